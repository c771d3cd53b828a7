package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Timeout configuration for token endpoint calls
const (
	tokenExchangeTimeout = 10 * time.Second
	refreshTokenTimeout  = 10 * time.Second

	maxTokenResponseBytes = 1 << 20
)

// Tokens is the result of a successful code exchange or refresh.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// TokenClient talks to the provider's token endpoint. Calls are never retried.
type TokenClient struct {
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       *zap.Logger
	now          func() time.Time
}

// NewTokenClient creates a TokenClient for cfg's token endpoint and client credentials.
func NewTokenClient(cfg Config, httpClient *http.Client, logger *zap.Logger) *TokenClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenClient{
		tokenURL:     cfg.TokenURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient:   httpClient,
		logger:       logger,
		now:          time.Now,
	}
}

// Exchange trades an authorization code for tokens. redirectURI must be the
// value sent in the authorization request.
func (c *TokenClient) Exchange(
	ctx context.Context,
	code, redirectURI, codeVerifier string,
) (*Tokens, error) {
	reqCtx, cancel := context.WithTimeout(ctx, tokenExchangeTimeout)
	defer cancel()

	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", redirectURI)
	data.Set("code_verifier", codeVerifier)
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)

	tokens, err := c.post(reqCtx, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenExchange, err)
	}
	if tokens.RefreshToken == "" {
		return nil, fmt.Errorf("%w: response did not include a refresh_token", ErrTokenExchange)
	}
	return tokens, nil
}

// Refresh obtains a new access token without user interaction.
func (c *TokenClient) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	reqCtx, cancel := context.WithTimeout(ctx, refreshTokenTimeout)
	defer cancel()

	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)

	tokens, err := c.post(reqCtx, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRefresh, err)
	}

	// Providers that rotate send a new refresh_token; otherwise the old one stays valid.
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = refreshToken
	}
	return tokens, nil
}

func (c *TokenClient) post(ctx context.Context, data url.Values) (*Tokens, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.tokenURL,
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", redactURLError(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("token endpoint responded",
		zap.String("grant_type", data.Get("grant_type")),
		zap.Int("status", resp.StatusCode),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, describeTokenError(resp.StatusCode, body)
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, errors.New("failed to parse token response: malformed JSON")
	}

	if err := validateTokenResponse(
		tokenResp.AccessToken,
		tokenResp.TokenType,
		tokenResp.ExpiresIn,
	); err != nil {
		return nil, fmt.Errorf("invalid token response: %w", err)
	}

	issuedAt := c.now()
	return &Tokens{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		IssuedAt:     issuedAt,
		ExpiresAt:    issuedAt.Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
	}, nil
}

// validateTokenResponse validates the OAuth token response
func validateTokenResponse(accessToken, tokenType string, expiresIn int) error {
	if accessToken == "" {
		return errors.New("access_token is empty")
	}

	if expiresIn <= 0 {
		return fmt.Errorf("expires_in must be positive, got: %d", expiresIn)
	}

	// Token type is optional in OAuth 2.0, but if present, should be "Bearer"
	if tokenType != "" && !strings.EqualFold(tokenType, "Bearer") {
		return fmt.Errorf("unexpected token_type: %s (expected Bearer)", tokenType)
	}

	return nil
}

// redactURLError drops the request URL from transport errors so a token
// endpoint configured with embedded credentials never reaches the user.
func redactURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s token endpoint: %w", strings.ToLower(urlErr.Op), urlErr.Err)
	}
	return err
}
