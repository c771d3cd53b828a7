package tui

import (
	"time"
)

// MsgBanner signals that the banner/title should be displayed.
type MsgBanner struct{}

// MsgCredentialsFound signals that a credential file was found on disk.
type MsgCredentialsFound struct{}

// MsgTokenValid signals that the stored access token can be used as is.
type MsgTokenValid struct{ ExpiresAt time.Time }

// MsgTokenExpired signals that the stored access token has expired.
type MsgTokenExpired struct{}

// MsgCredentialsNotFound signals that there is no stored login.
type MsgCredentialsNotFound struct{}

// MsgRefreshing signals that a token refresh is in progress.
type MsgRefreshing struct{}

// MsgRefreshOK signals that the token was refreshed successfully.
type MsgRefreshOK struct{}

// MsgRefreshFailed signals that token refresh failed.
type MsgRefreshFailed struct{ Err error }

// MsgAuthorizationURLReady signals that the local listener is up and the user
// should open the authorization URL.
type MsgAuthorizationURLReady struct {
	URL     string
	Port    int
	Timeout time.Duration
}

// MsgWaitingForCallback signals that the browser redirect is awaited.
type MsgWaitingForCallback struct{}

// MsgCallbackReceived signals that the browser redirect arrived.
type MsgCallbackReceived struct{}

// MsgExchangingCode signals that the authorization code is being exchanged.
type MsgExchangingCode struct{}

// MsgFetchingProfile signals that the employee profile is being fetched.
type MsgFetchingProfile struct{}

// MsgAuthSuccess signals that the user logged in.
type MsgAuthSuccess struct{ Name string }

// MsgCredentialsSaved signals that credentials were written to disk.
type MsgCredentialsSaved struct{ Path string }

// MsgLoggedOut signals that the credential file was removed.
type MsgLoggedOut struct{ Path string }

// MsgDone signals that a session is ready.
type MsgDone struct {
	Name       string
	Email      string
	EmployeeID int
	ExpiresIn  time.Duration
}

// MsgFatal signals a fatal error that should terminate the flow.
type MsgFatal struct{ Err error }
