package floq

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Customer owns projects.
type Customer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Project is something hours can be tracked on.
type Project struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Active   bool     `json:"active"`
	Customer Customer `json:"customer"`
}

// EmployeeClient is a Client bound to one employee's credentials.
type EmployeeClient struct {
	client *Client
	creds  Credentials
}

// EmployeeID returns the employee this client acts for.
func (e *EmployeeClient) EmployeeID() int {
	return e.creds.EmployeeID
}

// Projects lists every project.
func (e *EmployeeClient) Projects(ctx context.Context) ([]Project, error) {
	query := url.Values{}
	query.Set("select", "id,name,active,customer{id,name}")

	var projects []Project
	if err := e.client.call(ctx, request{
		method:    http.MethodGet,
		path:      "/projects",
		query:     query.Encode(),
		token:     e.creds.AccessToken,
		retryable: true,
	}, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

type projectsInPeriodRequest struct {
	EmployeeID int    `json:"employee_id"`
	DateRange  string `json:"date_range"`
}

type projectInPeriodResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Active       bool   `json:"active"`
	CustomerID   string `json:"customer_id"`
	CustomerName string `json:"customer_name"`
}

// ProjectsForEmployee lists projects the employee has tracked time on from
// two weeks before date up to the Sunday of date's week.
func (e *EmployeeClient) ProjectsForEmployee(ctx context.Context, date time.Time) ([]Project, error) {
	lower := Day(date).AddDate(0, 0, -14)
	_, upper := Week(date)

	var rows []projectInPeriodResponse
	if err := e.client.call(ctx, request{
		method: http.MethodPost,
		path:   "/rpc/projects_info_for_employee_in_period",
		token:  e.creds.AccessToken,
		body: projectsInPeriodRequest{
			EmployeeID: e.creds.EmployeeID,
			DateRange:  fmt.Sprintf("(%s, %s)", lower.Format(DateLayout), upper.Format(DateLayout)),
		},
		retryable: true,
	}, &rows); err != nil {
		return nil, err
	}

	projects := make([]Project, 0, len(rows))
	for _, row := range rows {
		projects = append(projects, Project{
			ID:     row.ID,
			Name:   row.Name,
			Active: row.Active,
			Customer: Customer{
				ID:   row.CustomerID,
				Name: row.CustomerName,
			},
		})
	}
	return projects, nil
}
