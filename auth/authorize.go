// Package auth implements the browser login for the Floq CLI: an OAuth2
// authorization code flow with PKCE, completed through a short-lived
// loopback listener, plus token refresh.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/floqtt/floq-cli/floq"
	"github.com/floqtt/floq-cli/tui"
)

// Config holds the provider endpoints and client registration.
type Config struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	Scopes       []string

	// HostedDomain restricts logins to one Google Workspace domain. Empty disables the check.
	HostedDomain string

	// ListenAddr defaults to 127.0.0.1:0.
	ListenAddr string

	// Timeout bounds the wait for the browser redirect. Zero waits until ctx is done.
	Timeout time.Duration
}

// ProfileFetcher looks up the employee an access token belongs to.
type ProfileFetcher interface {
	WhoAmI(ctx context.Context, accessToken string) (*floq.Employee, error)
}

// Result is a completed login.
type Result struct {
	Employee floq.Employee
	Tokens   Tokens
}

// Authorizer runs one browser login per Authorize call.
type Authorizer struct {
	cfg       Config
	tokens    *TokenClient
	profiles  ProfileFetcher
	displayer tui.Displayer
	logger    *zap.Logger
	newState  func() string
}

// AuthorizerOption configures an Authorizer.
type AuthorizerOption func(*Authorizer)

// WithDisplayer sets where login progress is shown.
func WithDisplayer(d tui.Displayer) AuthorizerOption {
	return func(a *Authorizer) {
		a.displayer = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) AuthorizerOption {
	return func(a *Authorizer) {
		a.logger = logger
	}
}

// WithStateGenerator replaces the generator of the per-attempt state value.
func WithStateGenerator(fn func() string) AuthorizerOption {
	return func(a *Authorizer) {
		a.newState = fn
	}
}

// NewAuthorizer creates an Authorizer.
func NewAuthorizer(
	cfg Config,
	tokens *TokenClient,
	profiles ProfileFetcher,
	opts ...AuthorizerOption,
) *Authorizer {
	a := &Authorizer{
		cfg:       cfg,
		tokens:    tokens,
		profiles:  profiles,
		displayer: tui.NoopDisplayer{},
		logger:    zap.NewNop(),
		newState:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authorize runs the full login: it binds the listener, shows the
// authorization URL, waits for the redirect, exchanges the code and loads the
// employee profile. Nothing is retried; call Authorize again to start over
// with a new verifier and port.
func (a *Authorizer) Authorize(ctx context.Context) (*Result, error) {
	pkce, err := GeneratePKCE()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrListenerSetup, err)
	}
	state := a.newState()

	listener, err := startCallbackListener(a.cfg.ListenAddr, callbackExpectations{
		State:        state,
		HostedDomain: a.cfg.HostedDomain,
	}, a.logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := listener.Close(); err != nil {
			a.logger.Debug("callback listener shutdown", zap.Error(err))
		}
	}()

	redirectURI := listener.RedirectURI()
	authURL := AuthorizationURL(a.cfg, redirectURI, state, pkce.Challenge)

	a.displayer.AuthorizationURLReady(authURL, listener.Port(), a.cfg.Timeout)
	a.displayer.WaitingForCallback()

	code, err := a.waitForCode(ctx, listener)
	if err != nil {
		return nil, err
	}
	a.displayer.CallbackReceived()

	a.displayer.ExchangingCode()
	tokens, err := a.tokens.Exchange(ctx, code, redirectURI, pkce.Verifier)
	if err != nil {
		return nil, err
	}

	a.displayer.FetchingProfile()
	employee, err := a.profiles.WhoAmI(ctx, tokens.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfileFetch, err)
	}

	a.logger.Debug("login completed",
		zap.Int("employee_id", employee.ID),
		zap.Time("expires_at", tokens.ExpiresAt),
	)
	a.displayer.AuthSuccess(employee.Name)

	return &Result{Employee: *employee, Tokens: *tokens}, nil
}

// waitForCode blocks until the listener hands over an outcome, the server
// fails, the optional timeout fires or ctx is done.
func (a *Authorizer) waitForCode(ctx context.Context, l *callbackListener) (string, error) {
	var timeout <-chan time.Time
	if a.cfg.Timeout > 0 {
		timer := time.NewTimer(a.cfg.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case outcome := <-l.outcomes:
		if outcome.Err != nil {
			return "", outcome.Err
		}
		return outcome.Code, nil

	case err := <-l.serveErr:
		return "", fmt.Errorf("%w: %w", ErrListenerSetup, err)

	case <-timeout:
		return "", fmt.Errorf("%w after %s", ErrCallbackTimeout, a.cfg.Timeout)

	case <-ctx.Done():
		return "", fmt.Errorf("login aborted: %w", ctx.Err())
	}
}

// AuthorizationURL builds the URL the user opens to log in. The code verifier
// is never part of it; only its S256 challenge is.
func AuthorizationURL(cfg Config, redirectURI, state, codeChallenge string) string {
	oauthCfg := &oauth2.Config{
		ClientID: cfg.ClientID,
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.AuthURL,
			TokenURL: cfg.TokenURL,
		},
		RedirectURL: redirectURI,
		Scopes:      cfg.Scopes,
	}

	opts := []oauth2.AuthCodeOption{
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	}
	if cfg.HostedDomain != "" {
		opts = append(opts, oauth2.SetAuthURLParam("hd", cfg.HostedDomain))
	}

	return oauthCfg.AuthCodeURL(state, opts...)
}
