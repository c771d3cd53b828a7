package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	defaultListenAddr       = "127.0.0.1:0"
	listenerShutdownTimeout = 2 * time.Second

	callbackSuccessText = "You are now logged in to the Floq CLI.\n\nYou can close this tab."
	callbackFailureText = "Login failed. See the terminal for details and try again."
	callbackHandledText = "This login attempt has already been handled. You can close this tab."
)

// Outcome is what a single browser redirect produced: either a code or a rejection.
type Outcome struct {
	Code string
	Err  error
}

type callbackExpectations struct {
	State        string
	HostedDomain string
}

// parseCallback validates the raw query string of a redirect. It never
// returns a partially populated success.
func parseCallback(rawQuery string, expect callbackExpectations) Outcome {
	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		return reject("unable to parse callback request")
	}

	if providerErr := params.Get("error"); providerErr != "" {
		return reject("authorization was denied: " + providerErr)
	}

	for _, name := range []string{"code", "state"} {
		if params.Get(name) == "" {
			return reject("missing parameter " + name)
		}
	}

	if params.Get("state") != expect.State {
		return reject("state mismatch")
	}

	if hd, ok := params["hd"]; ok && expect.HostedDomain != "" {
		if len(hd) == 0 || !strings.EqualFold(hd[0], expect.HostedDomain) {
			return reject(fmt.Sprintf("account is not in the %s domain", expect.HostedDomain))
		}
	}

	return Outcome{Code: params.Get("code")}
}

func reject(reason string) Outcome {
	return Outcome{Err: &CallbackError{Reason: reason}}
}

// callbackListener serves the redirect URI on an ephemeral loopback port and
// hands the first callback's Outcome to the waiting Authorize call.
type callbackListener struct {
	listener net.Listener
	server   *http.Server
	expect   callbackExpectations
	logger   *zap.Logger

	// outcomes is unbuffered: the handler blocks until the outcome is taken.
	outcomes chan Outcome
	serveErr chan error
	done     chan struct{}

	claimed   atomic.Bool
	closeOnce sync.Once
}

func startCallbackListener(
	addr string,
	expect callbackExpectations,
	logger *zap.Logger,
) (*callbackListener, error) {
	if addr == "" {
		addr = defaultListenAddr
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrListenerSetup, err)
	}

	l := &callbackListener{
		listener: ln,
		expect:   expect,
		logger:   logger,
		outcomes: make(chan Outcome),
		serveErr: make(chan error, 1),
		done:     make(chan struct{}),
	}

	router := mux.NewRouter()
	router.HandleFunc("/", l.handleCallback).Methods(http.MethodGet)
	l.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.serveErr <- err
		}
	}()

	logger.Debug("callback listener started", zap.Int("port", l.Port()))
	return l, nil
}

// Port is the OS-assigned port the listener is bound to.
func (l *callbackListener) Port() int {
	if addr, ok := l.listener.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// RedirectURI is the exact redirect_uri used in both the authorization and token requests.
func (l *callbackListener) RedirectURI() string {
	return fmt.Sprintf("http://127.0.0.1:%d", l.Port())
}

func (l *callbackListener) handleCallback(w http.ResponseWriter, r *http.Request) {
	if !l.claimed.CompareAndSwap(false, true) {
		l.logger.Debug("ignoring repeated callback")
		writeText(w, callbackHandledText)
		return
	}

	outcome := parseCallback(r.URL.RawQuery, l.expect)
	if outcome.Err != nil {
		l.logger.Debug("callback rejected", zap.Error(outcome.Err))
	} else {
		l.logger.Debug("callback accepted")
	}

	select {
	case l.outcomes <- outcome:
	case <-l.done:
		return
	}

	if outcome.Err != nil {
		writeText(w, callbackFailureText)
		return
	}
	writeText(w, callbackSuccessText)
}

// Close stops the server. In-flight responses get a short grace period.
func (l *callbackListener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.done)
		ctx, cancel := context.WithTimeout(context.Background(), listenerShutdownTimeout)
		defer cancel()
		err = l.server.Shutdown(ctx)
	})
	return err
}

func writeText(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Connection", "close")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}
