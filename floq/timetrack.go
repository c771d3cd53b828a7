package floq

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// TrackedTime is the time an employee has registered on a project for one day.
type TrackedTime struct {
	ProjectID    string
	ProjectName  string
	CustomerName string
	Date         time.Time
	Minutes      int
}

// Hours returns the tracked time in hours.
func (t TrackedTime) Hours() float64 {
	return float64(t.Minutes) / 60
}

type trackedOnDateRequest struct {
	EmployeeID int    `json:"employee_id"`
	Date       string `json:"date"`
}

type trackedOnDateResponse struct {
	ID       string `json:"id"`
	Project  string `json:"project"`
	Customer string `json:"customer"`
	Minutes  int    `json:"minutes"`
}

// TimeTrackedOn lists the projects with time tracked on date. Projects with
// zero minutes are left out.
func (e *EmployeeClient) TimeTrackedOn(ctx context.Context, date time.Time) ([]TrackedTime, error) {
	date = Day(date)

	var rows []trackedOnDateResponse
	if err := e.client.call(ctx, request{
		method: http.MethodPost,
		path:   "/rpc/projects_for_employee_for_date",
		token:  e.creds.AccessToken,
		body: trackedOnDateRequest{
			EmployeeID: e.creds.EmployeeID,
			Date:       date.Format(DateLayout),
		},
		retryable: true,
	}, &rows); err != nil {
		return nil, err
	}

	tracked := make([]TrackedTime, 0, len(rows))
	for _, row := range rows {
		if row.Minutes == 0 {
			continue
		}
		tracked = append(tracked, TrackedTime{
			ProjectID:    row.ID,
			ProjectName:  row.Project,
			CustomerName: row.Customer,
			Date:         date,
			Minutes:      row.Minutes,
		})
	}
	return tracked, nil
}

// TimeTrackedInPeriod returns tracked time for every day from from to to, inclusive.
func (e *EmployeeClient) TimeTrackedInPeriod(ctx context.Context, from, to time.Time) ([]TrackedTime, error) {
	from, to = Day(from), Day(to)
	if to.Before(from) {
		return nil, errors.New("the end of the period is before its start")
	}

	var all []TrackedTime
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		tracked, err := e.TimeTrackedOn(ctx, day)
		if err != nil {
			return nil, fmt.Errorf("time tracked on %s: %w", day.Format(DateLayout), err)
		}
		all = append(all, tracked...)
	}
	return all, nil
}

// MinutesOnProject sums the minutes tracked on a project for date.
func (e *EmployeeClient) MinutesOnProject(ctx context.Context, projectID string, date time.Time) (int, error) {
	query := url.Values{}
	query.Set("select", "minutes")
	query.Set("employee", "eq."+strconv.Itoa(e.creds.EmployeeID))
	query.Set("project", "eq."+projectID)
	query.Set("date", "eq."+Day(date).Format(DateLayout))

	var entries []struct {
		Minutes int `json:"minutes"`
	}
	if err := e.client.call(ctx, request{
		method:    http.MethodGet,
		path:      "/time_entry",
		query:     query.Encode(),
		token:     e.creds.AccessToken,
		retryable: true,
	}, &entries); err != nil {
		return 0, err
	}

	total := 0
	for _, entry := range entries {
		total += entry.Minutes
	}
	return total, nil
}

type timeEntryRequest struct {
	Creator  int    `json:"creator"`
	Employee int    `json:"employee"`
	Project  string `json:"project"`
	Date     string `json:"date"`
	Minutes  int    `json:"minutes"`
}

// AddTimeEntry registers minutes on a project. Negative minutes reduce the
// tracked time.
func (e *EmployeeClient) AddTimeEntry(ctx context.Context, projectID string, date time.Time, minutes int) error {
	return e.client.call(ctx, request{
		method: http.MethodPost,
		path:   "/time_entry",
		token:  e.creds.AccessToken,
		body: timeEntryRequest{
			Creator:  e.creds.EmployeeID,
			Employee: e.creds.EmployeeID,
			Project:  projectID,
			Date:     Day(date).Format(DateLayout),
			Minutes:  minutes,
		},
	}, nil)
}

// TrackHours sets the time on a project for date to hours by adding the
// difference from what is already tracked. It returns the minutes added,
// which is zero when nothing had to change.
func (e *EmployeeClient) TrackHours(ctx context.Context, projectID string, date time.Time, hours float64) (int, error) {
	current, err := e.MinutesOnProject(ctx, projectID, date)
	if err != nil {
		return 0, err
	}

	diff := int(math.Round(hours*60)) - current
	if diff == 0 {
		return 0, nil
	}
	if err := e.AddTimeEntry(ctx, projectID, date, diff); err != nil {
		return 0, err
	}
	return diff, nil
}
