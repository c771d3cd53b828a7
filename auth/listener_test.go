package auth

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestParseCallback(t *testing.T) {
	expect := callbackExpectations{State: "state-1", HostedDomain: "right.com"}

	tests := []struct {
		name       string
		rawQuery   string
		wantCode   string
		wantReason string
	}{
		{
			name:     "code and state",
			rawQuery: "code=abc123&state=state-1",
			wantCode: "abc123",
		},
		{
			name:     "matching hosted domain",
			rawQuery: "code=abc123&state=state-1&hd=right.com",
			wantCode: "abc123",
		},
		{
			name:     "hosted domain compared case-insensitively",
			rawQuery: "code=abc123&state=state-1&hd=Right.COM",
			wantCode: "abc123",
		},
		{
			name:     "extra parameters ignored",
			rawQuery: "code=abc123&state=state-1&scope=openid+email&authuser=0",
			wantCode: "abc123",
		},
		{
			name:       "missing code",
			rawQuery:   "state=state-1",
			wantReason: "missing parameter code",
		},
		{
			name:       "empty code",
			rawQuery:   "code=&state=state-1",
			wantReason: "missing parameter code",
		},
		{
			name:       "missing state",
			rawQuery:   "code=abc123",
			wantReason: "missing parameter state",
		},
		{
			name:       "empty query",
			rawQuery:   "",
			wantReason: "missing parameter code",
		},
		{
			name:       "state mismatch",
			rawQuery:   "code=abc123&state=other",
			wantReason: "state mismatch",
		},
		{
			name:       "wrong hosted domain",
			rawQuery:   "code=abc123&state=state-1&hd=wrong.com",
			wantReason: "account is not in the right.com domain",
		},
		{
			name:       "empty hosted domain",
			rawQuery:   "code=abc123&state=state-1&hd=",
			wantReason: "account is not in the right.com domain",
		},
		{
			name:       "provider error",
			rawQuery:   "error=access_denied&state=state-1",
			wantReason: "authorization was denied: access_denied",
		},
		{
			name:       "malformed escape",
			rawQuery:   "code=%zz&state=state-1",
			wantReason: "unable to parse callback request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := parseCallback(tt.rawQuery, expect)

			if tt.wantReason == "" {
				if outcome.Err != nil {
					t.Fatalf("parseCallback() error = %v", outcome.Err)
				}
				if outcome.Code != tt.wantCode {
					t.Errorf("Code = %q, want %q", outcome.Code, tt.wantCode)
				}
				return
			}

			if outcome.Code != "" {
				t.Errorf("rejected outcome carries code %q", outcome.Code)
			}
			var cbErr *CallbackError
			if !errors.As(outcome.Err, &cbErr) {
				t.Fatalf("Err = %v, want *CallbackError", outcome.Err)
			}
			if cbErr.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", cbErr.Reason, tt.wantReason)
			}
			if !errors.Is(outcome.Err, ErrCallback) {
				t.Errorf("errors.Is(Err, ErrCallback) = false")
			}
		})
	}
}

func TestParseCallback_NoHostedDomainConfigured(t *testing.T) {
	outcome := parseCallback("code=abc&state=s&hd=anything.com", callbackExpectations{State: "s"})
	if outcome.Err != nil || outcome.Code != "abc" {
		t.Errorf("parseCallback() = %+v, want code abc", outcome)
	}
}

func TestParseCallback_RoundTrip(t *testing.T) {
	codes := []string{
		"abc123",
		"4/0AY0e-g7xyz",
		"with space",
		"a&b=c",
		"ünïcødé",
	}

	for _, code := range codes {
		q := url.Values{}
		q.Set("code", code)
		q.Set("state", "s")

		outcome := parseCallback(q.Encode(), callbackExpectations{State: "s"})
		if outcome.Err != nil {
			t.Errorf("parseCallback(%q) error = %v", code, outcome.Err)
			continue
		}
		if outcome.Code != code {
			t.Errorf("parseCallback() Code = %q, want %q", outcome.Code, code)
		}
	}
}

type getResult struct {
	status int
	body   string
	err    error
}

func get(rawURL string) <-chan getResult {
	ch := make(chan getResult, 1)
	go func() {
		resp, err := http.Get(rawURL)
		if err != nil {
			ch <- getResult{err: err}
			return
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		ch <- getResult{status: resp.StatusCode, body: string(body)}
	}()
	return ch
}

func waitResult(t *testing.T, ch <-chan getResult) getResult {
	t.Helper()
	select {
	case r := <-ch:
		if r.err != nil {
			t.Fatalf("GET failed: %v", r.err)
		}
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("GET did not complete")
	}
	return getResult{}
}

func TestCallbackListener_DeliversFirstOutcomeOnly(t *testing.T) {
	l, err := startCallbackListener("", callbackExpectations{State: "s"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("startCallbackListener() error = %v", err)
	}
	defer l.Close()

	if l.Port() == 0 {
		t.Fatal("listener reported port 0")
	}
	if !strings.HasPrefix(l.RedirectURI(), "http://127.0.0.1:") {
		t.Errorf("RedirectURI() = %q", l.RedirectURI())
	}

	first := get(l.RedirectURI() + "/?code=abc123&state=s")

	select {
	case outcome := <-l.outcomes:
		if outcome.Err != nil || outcome.Code != "abc123" {
			t.Fatalf("outcome = %+v, want code abc123", outcome)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no outcome delivered")
	}

	r := waitResult(t, first)
	if r.status != http.StatusOK || r.body != callbackSuccessText {
		t.Errorf("first response = %d %q", r.status, r.body)
	}

	r = waitResult(t, get(l.RedirectURI()+"/?code=second&state=s"))
	if r.status != http.StatusOK || r.body != callbackHandledText {
		t.Errorf("second response = %d %q", r.status, r.body)
	}

	select {
	case outcome := <-l.outcomes:
		t.Errorf("second callback delivered %+v", outcome)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCallbackListener_RejectedCallback(t *testing.T) {
	l, err := startCallbackListener("", callbackExpectations{State: "s"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("startCallbackListener() error = %v", err)
	}
	defer l.Close()

	res := get(l.RedirectURI() + "/?state=s")

	outcome := <-l.outcomes
	if !errors.Is(outcome.Err, ErrCallback) {
		t.Errorf("outcome.Err = %v, want ErrCallback", outcome.Err)
	}

	r := waitResult(t, res)
	if r.status != http.StatusOK || r.body != callbackFailureText {
		t.Errorf("response = %d %q", r.status, r.body)
	}
}

func TestCallbackListener_OtherPathsDoNotConsumeOutcome(t *testing.T) {
	l, err := startCallbackListener("", callbackExpectations{State: "s"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("startCallbackListener() error = %v", err)
	}
	defer l.Close()

	r := waitResult(t, get(l.RedirectURI()+"/favicon.ico"))
	if r.status != http.StatusNotFound {
		t.Errorf("favicon status = %d, want 404", r.status)
	}
	if l.claimed.Load() {
		t.Fatal("favicon request claimed the callback")
	}

	res := get(l.RedirectURI() + "/?code=abc&state=s")
	outcome := <-l.outcomes
	if outcome.Code != "abc" {
		t.Errorf("outcome = %+v, want code abc", outcome)
	}
	waitResult(t, res)
}

func TestCallbackListener_CloseReleasesBlockedHandler(t *testing.T) {
	l, err := startCallbackListener("", callbackExpectations{State: "s"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("startCallbackListener() error = %v", err)
	}

	res := get(l.RedirectURI() + "/?code=abc&state=s")

	deadline := time.Now().Add(5 * time.Second)
	for !l.claimed.Load() {
		if time.Now().After(deadline) {
			t.Fatal("callback never reached the handler")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Nobody reads outcomes; Close must not hang on the blocked handler.
	closed := make(chan error, 1)
	go func() { closed <- l.Close() }()
	select {
	case <-closed:
	case <-time.After(listenerShutdownTimeout + 2*time.Second):
		t.Fatal("Close() hung")
	}

	select {
	case <-res:
	case <-time.After(5 * time.Second):
		t.Fatal("client request never finished")
	}

	if err := l.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestStartCallbackListener_BindFailure(t *testing.T) {
	l, err := startCallbackListener("", callbackExpectations{}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("startCallbackListener() error = %v", err)
	}
	defer l.Close()

	_, err = startCallbackListener(l.listener.Addr().String(), callbackExpectations{}, zaptest.NewLogger(t))
	if !errors.Is(err, ErrListenerSetup) {
		t.Errorf("error = %v, want ErrListenerSetup", err)
	}
}
