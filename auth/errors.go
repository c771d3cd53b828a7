package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Step errors. Every failure returned by this package wraps exactly one of these.
var (
	ErrListenerSetup   = errors.New("could not start local login listener")
	ErrCallback        = errors.New("login callback was rejected")
	ErrCallbackTimeout = errors.New("timed out waiting for the login callback")
	ErrTokenExchange   = errors.New("could not exchange authorization code")
	ErrProfileFetch    = errors.New("could not fetch employee profile")
	ErrRefresh         = errors.New("could not refresh access token")
)

// ErrorResponse is the OAuth error body returned by the token endpoint.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// UserMessage turns an error from this package into a sentence a user can act on.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrListenerSetup):
		return "Could not open a local port for the login redirect. Check that nothing is blocking localhost and try again."
	case errors.Is(err, ErrCallbackTimeout):
		return "The browser login was not completed in time. Please try logging in again."
	case errors.Is(err, ErrCallback):
		var cbErr *CallbackError
		if errors.As(err, &cbErr) {
			return "The login was not accepted (" + cbErr.Reason + "). Please try logging in again."
		}
		return "The login was not accepted. Please try logging in again."
	case errors.Is(err, ErrTokenExchange):
		return "The login server did not accept the authorization. Please try logging in again."
	case errors.Is(err, ErrProfileFetch):
		return "Logged in, but your Floq employee profile could not be loaded. Please try logging in again."
	case errors.Is(err, ErrRefresh):
		return "Your saved login could not be renewed. Run `floq logout` and log in again."
	default:
		return err.Error()
	}
}

// CallbackError is the reason a redirect to the local listener was rejected.
type CallbackError struct {
	Reason string
}

func (e *CallbackError) Error() string {
	return ErrCallback.Error() + ": " + e.Reason
}

func (e *CallbackError) Is(target error) bool {
	return target == ErrCallback
}

// describeTokenError builds an error for a non-2xx token endpoint response
// from the OAuth error code only. Raw bodies are never included.
func describeTokenError(status int, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		if errResp.ErrorDescription != "" {
			return fmt.Errorf("%s: %s (status %d)", errResp.Error, errResp.ErrorDescription, status)
		}
		return fmt.Errorf("%s (status %d)", errResp.Error, status)
	}
	return fmt.Errorf("token endpoint returned status %d %s", status, http.StatusText(status))
}
