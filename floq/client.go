// Package floq is a small client for the Floq time-tracking API.
package floq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	retry "github.com/appleboy/go-httpretry"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	apiRequestTimeout   = 10 * time.Second
	maxAPIResponseBytes = 4 << 20
)

// ErrUnauthorized is returned when the API rejects the access token.
var ErrUnauthorized = errors.New("the Floq API rejected your login, please log in again")

// Employee is the identity behind an access token.
type Employee struct {
	ID    int
	Email string
	Name  string
}

// Credentials is everything an API call needs to act on behalf of an employee.
type Credentials struct {
	EmployeeID  int
	AccessToken string
}

// Client calls the Floq API. Reads go through a retrying client; writes and
// the profile lookup are sent once.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	retryClient *retry.Client
	logger      *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	retryClient, err := retry.NewBackgroundClient(
		retry.WithHTTPClient(c.httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create retry client: %w", err)
	}
	c.retryClient = retryClient

	return c, nil
}

type employeeResponse struct {
	ID        int    `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// WhoAmI returns the employee the access token belongs to.
func (c *Client) WhoAmI(ctx context.Context, accessToken string) (*Employee, error) {
	var employees []employeeResponse
	if err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/rpc/who_am_i",
		token:  accessToken,
	}, &employees); err != nil {
		return nil, err
	}

	if len(employees) != 1 {
		return nil, fmt.Errorf("who_am_i returned %d employees, expected 1", len(employees))
	}

	e := employees[0]
	return &Employee{
		ID:    e.ID,
		Email: e.Email,
		Name:  strings.TrimSpace(e.FirstName + " " + e.LastName),
	}, nil
}

// ForEmployee returns a client scoped to one employee's data.
func (c *Client) ForEmployee(creds Credentials) *EmployeeClient {
	return &EmployeeClient{client: c, creds: creds}
}

type request struct {
	method    string
	path      string
	query     string
	token     string
	body      any
	retryable bool
}

func (c *Client) call(ctx context.Context, r request, out any) error {
	reqCtx, cancel := context.WithTimeout(ctx, apiRequestTimeout)
	defer cancel()

	endpoint := c.baseURL + r.path
	if r.query != "" {
		endpoint += "?" + r.query
	}

	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", r.path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(reqCtx, r.method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", r.path, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	(&oauth2.Token{AccessToken: r.token, TokenType: "Bearer"}).SetAuthHeader(req)

	var resp *http.Response
	if r.retryable {
		resp, err = c.retryClient.DoWithContext(reqCtx, req)
	} else {
		resp, err = c.httpClient.Do(req)
	}
	if err != nil {
		return fmt.Errorf("%s request failed: %w", r.path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", r.path, err)
	}

	c.logger.Debug("floq api call",
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.Int("status", resp.StatusCode),
	)

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s failed with status %d", r.method, r.path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("could not read the response from %s: %w", r.path, err)
	}
	return nil
}
