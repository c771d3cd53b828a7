package main

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/floqtt/floq-cli/auth"
	"github.com/floqtt/floq-cli/credentials"
)

// Defaults for the blank.no Floq installation.
const (
	defaultAPIURL       = "https://api-blank.floq.no"
	defaultAuthURL      = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenURL     = "https://oauth2.googleapis.com/token"
	defaultScopes       = "openid email profile"
	defaultHostedDomain = "blank.no"
)

// appConfig is the resolved configuration. Priority: flag > env > .env > default.
type appConfig struct {
	APIURL       string
	AuthURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	HostedDomain string
	ConfigFile   string
	LoginTimeout time.Duration
	Verbose      bool
}

// registerFlags declares the persistent flags and binds them, with FLOQ_
// environment variables, to v.
func registerFlags(cmd *cobra.Command, v *viper.Viper) {
	flags := cmd.PersistentFlags()
	flags.String("api-url", defaultAPIURL, "Floq API URL")
	flags.String("auth-url", defaultAuthURL, "OAuth authorization endpoint")
	flags.String("token-url", defaultTokenURL, "OAuth token endpoint")
	flags.String("client-id", "", "OAuth client ID")
	flags.String("client-secret", "", "OAuth client secret")
	flags.String("scopes", defaultScopes, "Space separated OAuth scopes")
	flags.String("hosted-domain", defaultHostedDomain, "Only accept accounts from this domain (empty to allow any)")
	flags.String("config-file", "", "Credential file (default ~/.floq/user-config.toml)")
	flags.Duration("login-timeout", 0, "Give up waiting for the browser login after this long (0 waits forever)")
	flags.BoolP("verbose", "v", false, "Log debug output to stderr")

	for _, name := range []string{
		"api-url", "auth-url", "token-url", "client-id", "client-secret", "scopes",
		"hosted-domain", "config-file", "login-timeout", "verbose",
	} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}

	v.SetEnvPrefix("FLOQ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// loadConfig reads and validates the configuration bound to v. Plaintext
// HTTP endpoints produce a warning on warn.
func loadConfig(v *viper.Viper, warn io.Writer) (*appConfig, error) {
	cfg := &appConfig{
		APIURL:       v.GetString("api-url"),
		AuthURL:      v.GetString("auth-url"),
		TokenURL:     v.GetString("token-url"),
		ClientID:     v.GetString("client-id"),
		ClientSecret: v.GetString("client-secret"),
		Scopes:       strings.Fields(v.GetString("scopes")),
		HostedDomain: strings.TrimSpace(v.GetString("hosted-domain")),
		ConfigFile:   v.GetString("config-file"),
		LoginTimeout: v.GetDuration("login-timeout"),
		Verbose:      v.GetBool("verbose"),
	}

	for _, endpoint := range []struct{ name, value string }{
		{"api-url", cfg.APIURL},
		{"auth-url", cfg.AuthURL},
		{"token-url", cfg.TokenURL},
	} {
		if err := validateServerURL(endpoint.value); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", endpoint.name, err)
		}
		warnIfPlaintext(warn, endpoint.name, endpoint.value)
	}

	if cfg.LoginTimeout < 0 {
		return nil, fmt.Errorf("login-timeout must not be negative, got %s", cfg.LoginTimeout)
	}

	if cfg.ConfigFile == "" {
		path, err := credentials.DefaultPath()
		if err != nil {
			return nil, err
		}
		cfg.ConfigFile = path
	}

	return cfg, nil
}

// requireClient checks the OAuth client registration needed to log in or refresh.
func (c *appConfig) requireClient() error {
	var missing []string
	if c.ClientID == "" {
		missing = append(missing, "client-id (FLOQ_CLIENT_ID)")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "client-secret (FLOQ_CLIENT_SECRET)")
	}
	if len(missing) > 0 {
		return fmt.Errorf(
			"missing %s: set it with a flag, an environment variable or a .env file",
			strings.Join(missing, " and "),
		)
	}
	return nil
}

func (c *appConfig) authConfig() auth.Config {
	return auth.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		AuthURL:      c.AuthURL,
		TokenURL:     c.TokenURL,
		Scopes:       c.Scopes,
		HostedDomain: c.HostedDomain,
		Timeout:      c.LoginTimeout,
	}
}

// validateServerURL validates that the server URL is properly formatted
func validateServerURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("URL cannot be empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got: %s", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("URL must include a host")
	}

	return nil
}

func warnIfPlaintext(w io.Writer, name, rawURL string) {
	if !strings.HasPrefix(strings.ToLower(rawURL), "http://") {
		return
	}
	fmt.Fprintf(w, "⚠️  WARNING: %s uses HTTP instead of HTTPS. Tokens will be transmitted in plaintext!\n", name)
	fmt.Fprintln(w, "⚠️  This is only safe for local development. Use HTTPS in production.")
	fmt.Fprintln(w)
}

// newLogger returns a development logger on stderr when verbose, otherwise a no-op logger.
func newLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
