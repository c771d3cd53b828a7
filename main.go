package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/floqtt/floq-cli/auth"
	"github.com/floqtt/floq-cli/credentials"
	"github.com/floqtt/floq-cli/floq"
	"github.com/floqtt/floq-cli/session"
	"github.com/floqtt/floq-cli/tui"
)

// app carries what every command needs once configuration is loaded.
type app struct {
	v          *viper.Viper
	cfg        *appConfig
	logger     *zap.Logger
	httpClient *http.Client
	store      *credentials.Store
	api        *floq.Client
}

func main() {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", auth.UserMessage(err))
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "floq",
		Short:         "Track hours in Floq from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	registerFlags(rootCmd, a.v)

	rootCmd.AddCommand(
		newLoginCommand(a),
		newLogoutCommand(a),
		newWhoAmICommand(a),
		newProjectsCommand(a),
		newTrackCommand(a),
		newHistoryCommand(a),
	)
	return rootCmd
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.v, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		return err
	}
	a.logger = logger

	a.httpClient = &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}

	a.store = credentials.NewStore(cfg.ConfigFile)

	a.api, err = floq.NewClient(cfg.APIURL,
		floq.WithHTTPClient(a.httpClient),
		floq.WithLogger(logger.Named("floq")),
	)
	return err
}

// resolver wires the login pieces for one command run.
func (a *app) resolver(d tui.Displayer) *session.Resolver {
	authCfg := a.cfg.authConfig()
	tokens := auth.NewTokenClient(authCfg, a.httpClient, a.logger.Named("token"))
	authorizer := auth.NewAuthorizer(authCfg, tokens, a.api,
		auth.WithDisplayer(d),
		auth.WithLogger(a.logger.Named("auth")),
	)
	return session.NewResolver(a.store, authorizer, tokens,
		session.WithDisplayer(d),
		session.WithLogger(a.logger.Named("session")),
	)
}

// currentUser resolves the session for data commands, showing login
// progress as plain text on stderr.
func (a *app) currentUser(cmd *cobra.Command) (*session.User, error) {
	if err := a.cfg.requireClient(); err != nil {
		return nil, err
	}
	return a.resolver(tui.NewPlainDisplayer(cmd.ErrOrStderr())).Resolve(cmd.Context())
}

// isTTY reports whether stderr is a character device (interactive terminal).
// We check stderr because the TUI renders to stderr, allowing stdout to be piped.
func isTTY() bool {
	fi, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// withDisplayer runs fn with the BubbleTea displayer when stderr is a
// terminal and with plain text output otherwise.
func withDisplayer(fn func(d tui.Displayer) error) error {
	if !isTTY() {
		d := tui.NewPlainDisplayer(os.Stderr)
		d.Banner()
		return fn(d)
	}

	// WithInput(nil): disable stdin/keyboard input so BubbleTea skips terminal
	// capability queries (?2026/?2027). Ctrl+C is handled by signal.NotifyContext.
	p := tea.NewProgram(tui.NewModel(), tea.WithOutput(os.Stderr), tea.WithInput(nil))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := p.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		}
	}()

	d := tui.NewProgramDisplayer(p)
	d.Banner()
	err := fn(d)
	if err != nil {
		d.Fatal(err)
	}
	p.Quit() // let BubbleTea drain terminal query responses before exiting
	wg.Wait()
	return err
}
