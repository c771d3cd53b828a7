package tui

import (
	"fmt"
	"io"
	"time"

	tea "charm.land/bubbletea/v2"
)

// Displayer abstracts all user-facing output from session resolution and login.
type Displayer interface {
	Banner()
	CredentialsFound()
	TokenValid(expiresAt time.Time)
	TokenExpired()
	CredentialsNotFound()
	Refreshing()
	RefreshOK()
	RefreshFailed(err error)
	AuthorizationURLReady(authURL string, port int, timeout time.Duration)
	WaitingForCallback()
	CallbackReceived()
	ExchangingCode()
	FetchingProfile()
	AuthSuccess(name string)
	CredentialsSaved(path string)
	LoggedOut(path string)
	Done(name, email string, employeeID int, expiresIn time.Duration)
	Fatal(err error)
}

// PlainDisplayer writes plain text output to w.
// Used when stderr is not a TTY (pipes, CI, SSH without pty) and for data commands.
type PlainDisplayer struct {
	w io.Writer
}

// NewPlainDisplayer creates a PlainDisplayer that writes to w.
func NewPlainDisplayer(w io.Writer) *PlainDisplayer {
	return &PlainDisplayer{w: w}
}

func (p *PlainDisplayer) Banner() {
	fmt.Fprintln(p.w, "=== Floq CLI login ===")
	fmt.Fprintln(p.w)
}

func (p *PlainDisplayer) CredentialsFound() {}

func (p *PlainDisplayer) TokenValid(_ time.Time) {}

func (p *PlainDisplayer) TokenExpired() {
	fmt.Fprintln(p.w, "Access token expired, refreshing...")
}

func (p *PlainDisplayer) CredentialsNotFound() {
	fmt.Fprintln(p.w, "You are not logged in, starting login...")
}

func (p *PlainDisplayer) Refreshing() {}

func (p *PlainDisplayer) RefreshOK() {
	fmt.Fprintln(p.w, "Access token refreshed.")
}

func (p *PlainDisplayer) RefreshFailed(err error) {
	fmt.Fprintf(p.w, "Refresh failed: %v\n", err)
}

func (p *PlainDisplayer) AuthorizationURLReady(authURL string, port int, timeout time.Duration) {
	fmt.Fprintln(p.w, "----------------------------------------")
	fmt.Fprintf(p.w, "Please open this link in your browser to log in:\n%s\n", authURL)
	fmt.Fprintf(p.w, "\n(listening for the redirect on port %d", port)
	if timeout > 0 {
		fmt.Fprintf(p.w, ", for %s", timeout)
	}
	fmt.Fprintln(p.w, ")")
	fmt.Fprintln(p.w, "----------------------------------------")
	fmt.Fprintln(p.w)
}

func (p *PlainDisplayer) WaitingForCallback() {
	fmt.Fprintln(p.w, "Waiting for the browser login...")
}

func (p *PlainDisplayer) CallbackReceived() {
	fmt.Fprintln(p.w, "Browser login received.")
}

func (p *PlainDisplayer) ExchangingCode() {}

func (p *PlainDisplayer) FetchingProfile() {}

func (p *PlainDisplayer) AuthSuccess(name string) {
	fmt.Fprintf(p.w, "\nLogged in as %s!\n", name)
}

func (p *PlainDisplayer) CredentialsSaved(path string) {
	fmt.Fprintf(p.w, "Credentials saved to %s\n", path)
}

func (p *PlainDisplayer) LoggedOut(path string) {
	fmt.Fprintf(p.w, "Logged out, removed %s\n", path)
}

func (p *PlainDisplayer) Done(name, email string, employeeID int, expiresIn time.Duration) {
	fmt.Fprintln(p.w, "\n========================================")
	fmt.Fprintf(p.w, "Name:        %s\n", name)
	fmt.Fprintf(p.w, "Email:       %s\n", email)
	fmt.Fprintf(p.w, "Employee ID: %d\n", employeeID)
	fmt.Fprintf(p.w, "Token valid: %s\n", expiresIn.Round(time.Second))
	fmt.Fprintln(p.w, "========================================")
}

func (p *PlainDisplayer) Fatal(err error) {
	fmt.Fprintf(p.w, "Error: %v\n", err)
}

// NoopDisplayer is a no-op implementation used in tests.
type NoopDisplayer struct{}

func (NoopDisplayer) Banner()                                                {}
func (NoopDisplayer) CredentialsFound()                                      {}
func (NoopDisplayer) TokenValid(_ time.Time)                                 {}
func (NoopDisplayer) TokenExpired()                                          {}
func (NoopDisplayer) CredentialsNotFound()                                   {}
func (NoopDisplayer) Refreshing()                                            {}
func (NoopDisplayer) RefreshOK()                                             {}
func (NoopDisplayer) RefreshFailed(_ error)                                  {}
func (NoopDisplayer) AuthorizationURLReady(_ string, _ int, _ time.Duration) {}
func (NoopDisplayer) WaitingForCallback()                                    {}
func (NoopDisplayer) CallbackReceived()                                      {}
func (NoopDisplayer) ExchangingCode()                                        {}
func (NoopDisplayer) FetchingProfile()                                       {}
func (NoopDisplayer) AuthSuccess(_ string)                                   {}
func (NoopDisplayer) CredentialsSaved(_ string)                              {}
func (NoopDisplayer) LoggedOut(_ string)                                     {}
func (NoopDisplayer) Done(_, _ string, _ int, _ time.Duration)               {}
func (NoopDisplayer) Fatal(_ error)                                          {}

// ProgramDisplayer sends BubbleTea messages to a running tea.Program.
type ProgramDisplayer struct {
	p *tea.Program
}

// NewProgramDisplayer creates a ProgramDisplayer that sends messages to p.
func NewProgramDisplayer(p *tea.Program) *ProgramDisplayer {
	return &ProgramDisplayer{p: p}
}

func (t *ProgramDisplayer) Banner() {
	t.p.Send(MsgBanner{})
}

func (t *ProgramDisplayer) CredentialsFound() {
	t.p.Send(MsgCredentialsFound{})
}

func (t *ProgramDisplayer) TokenValid(expiresAt time.Time) {
	t.p.Send(MsgTokenValid{ExpiresAt: expiresAt})
}

func (t *ProgramDisplayer) TokenExpired() {
	t.p.Send(MsgTokenExpired{})
}

func (t *ProgramDisplayer) CredentialsNotFound() {
	t.p.Send(MsgCredentialsNotFound{})
}

func (t *ProgramDisplayer) Refreshing() {
	t.p.Send(MsgRefreshing{})
}

func (t *ProgramDisplayer) RefreshOK() {
	t.p.Send(MsgRefreshOK{})
}

func (t *ProgramDisplayer) RefreshFailed(err error) {
	t.p.Send(MsgRefreshFailed{Err: err})
}

func (t *ProgramDisplayer) AuthorizationURLReady(authURL string, port int, timeout time.Duration) {
	t.p.Send(MsgAuthorizationURLReady{URL: authURL, Port: port, Timeout: timeout})
}

func (t *ProgramDisplayer) WaitingForCallback() {
	t.p.Send(MsgWaitingForCallback{})
}

func (t *ProgramDisplayer) CallbackReceived() {
	t.p.Send(MsgCallbackReceived{})
}

func (t *ProgramDisplayer) ExchangingCode() {
	t.p.Send(MsgExchangingCode{})
}

func (t *ProgramDisplayer) FetchingProfile() {
	t.p.Send(MsgFetchingProfile{})
}

func (t *ProgramDisplayer) AuthSuccess(name string) {
	t.p.Send(MsgAuthSuccess{Name: name})
}

func (t *ProgramDisplayer) CredentialsSaved(path string) {
	t.p.Send(MsgCredentialsSaved{Path: path})
}

func (t *ProgramDisplayer) LoggedOut(path string) {
	t.p.Send(MsgLoggedOut{Path: path})
}

func (t *ProgramDisplayer) Done(name, email string, employeeID int, expiresIn time.Duration) {
	t.p.Send(MsgDone{Name: name, Email: email, EmployeeID: employeeID, ExpiresIn: expiresIn})
}

func (t *ProgramDisplayer) Fatal(err error) {
	t.p.Send(MsgFatal{Err: err})
}
