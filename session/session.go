// Package session decides, on every command, whether the stored login can be
// used as is, must be refreshed, or has to be created through a browser login.
package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/floqtt/floq-cli/auth"
	"github.com/floqtt/floq-cli/credentials"
	"github.com/floqtt/floq-cli/floq"
	"github.com/floqtt/floq-cli/tui"
)

// refreshMargin refreshes tokens slightly before they expire to absorb clock
// skew and request latency.
const refreshMargin = time.Minute

// User is the logged-in employee as seen by API commands. It never carries
// the refresh token.
type User struct {
	EmployeeID         int
	Email              string
	Name               string
	AccessToken        string
	AccessTokenExpires time.Time
}

// Credentials returns what the Floq API client needs to act for the user.
func (u *User) Credentials() floq.Credentials {
	return floq.Credentials{
		EmployeeID:  u.EmployeeID,
		AccessToken: u.AccessToken,
	}
}

// Store persists the login between runs.
type Store interface {
	Load() (*credentials.UserConfig, error)
	Save(cfg *credentials.UserConfig) error
	Delete() error
	Path() string
}

// Authorizer runs an interactive login.
type Authorizer interface {
	Authorize(ctx context.Context) (*auth.Result, error)
}

// Refresher renews an access token without user interaction.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*auth.Tokens, error)
}

// Resolver turns the stored login into a usable User.
type Resolver struct {
	store      Store
	authorizer Authorizer
	refresher  Refresher
	displayer  tui.Displayer
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithDisplayer sets where progress is shown.
func WithDisplayer(d tui.Displayer) Option {
	return func(r *Resolver) {
		r.displayer = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// NewResolver creates a Resolver.
func NewResolver(store Store, authorizer Authorizer, refresher Refresher, opts ...Option) *Resolver {
	r := &Resolver{
		store:      store,
		authorizer: authorizer,
		refresher:  refresher,
		displayer:  tui.NoopDisplayer{},
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the current user. Without a stored login it runs the
// browser login; with an expiring access token it refreshes. A failed refresh
// is returned as an error and never falls back to a new browser login.
// A still valid login is returned without any network call.
func (r *Resolver) Resolve(ctx context.Context) (*User, error) {
	cfg, err := r.store.Load()
	if err != nil {
		return nil, err
	}

	if cfg == nil {
		r.displayer.CredentialsNotFound()
		return r.Login(ctx)
	}
	r.displayer.CredentialsFound()

	if cfg.AccessTokenExpires.Before(r.now().Add(refreshMargin)) {
		r.displayer.TokenExpired()
		return r.refresh(ctx, cfg)
	}

	r.displayer.TokenValid(cfg.AccessTokenExpires)
	return userFromConfig(cfg), nil
}

// Login runs the browser login unconditionally and replaces the stored login.
func (r *Resolver) Login(ctx context.Context) (*User, error) {
	result, err := r.authorizer.Authorize(ctx)
	if err != nil {
		return nil, err
	}

	cfg := &credentials.UserConfig{
		EmployeeID:         result.Employee.ID,
		Email:              result.Employee.Email,
		Name:               result.Employee.Name,
		AccessToken:        result.Tokens.AccessToken,
		AccessTokenExpires: result.Tokens.ExpiresAt,
		RefreshToken:       result.Tokens.RefreshToken,
	}
	if err := r.store.Save(cfg); err != nil {
		return nil, fmt.Errorf("logged in, but could not save the login: %w", err)
	}
	r.displayer.CredentialsSaved(r.store.Path())

	return userFromConfig(cfg), nil
}

func (r *Resolver) refresh(ctx context.Context, cfg *credentials.UserConfig) (*User, error) {
	if cfg.RefreshToken == "" {
		err := fmt.Errorf("%w: no refresh token stored in %s", auth.ErrRefresh, r.store.Path())
		r.displayer.RefreshFailed(err)
		return nil, err
	}

	r.displayer.Refreshing()
	tokens, err := r.refresher.Refresh(ctx, cfg.RefreshToken)
	if err != nil {
		r.displayer.RefreshFailed(err)
		return nil, err
	}

	cfg.AccessToken = tokens.AccessToken
	cfg.AccessTokenExpires = tokens.ExpiresAt
	cfg.RefreshToken = tokens.RefreshToken
	if err := r.store.Save(cfg); err != nil {
		return nil, fmt.Errorf("refreshed the login, but could not save it: %w", err)
	}

	r.logger.Debug("access token refreshed",
		zap.Int("employee_id", cfg.EmployeeID),
		zap.Time("expires_at", cfg.AccessTokenExpires),
	)
	r.displayer.RefreshOK()

	return userFromConfig(cfg), nil
}

// Logout removes the stored login. Logging out twice is not an error.
func (r *Resolver) Logout() error {
	if err := r.store.Delete(); err != nil {
		return err
	}
	r.displayer.LoggedOut(r.store.Path())
	return nil
}

func userFromConfig(cfg *credentials.UserConfig) *User {
	return &User{
		EmployeeID:         cfg.EmployeeID,
		Email:              cfg.Email,
		Name:               cfg.Name,
		AccessToken:        cfg.AccessToken,
		AccessTokenExpires: cfg.AccessTokenExpires,
	}
}
