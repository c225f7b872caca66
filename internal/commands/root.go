// Package commands implements the helpdesk command-line tool.
package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/giihelpdesk/helpdesk-client/apiclient"
	"github.com/giihelpdesk/helpdesk-client/config"
	"github.com/giihelpdesk/helpdesk-client/logger"
	"github.com/giihelpdesk/helpdesk-client/notify"
	"github.com/giihelpdesk/helpdesk-client/observability"
	"github.com/giihelpdesk/helpdesk-client/session"
)

// ErrCommandFailed is returned after a failed call has already been
// reported on stderr. The caller should only set the exit code.
var ErrCommandFailed = errors.New("command failed")

// ErrSignedOut is a failed call that also ended the stored session.
var ErrSignedOut = fmt.Errorf("%w: signed out", ErrCommandFailed)

// GlobalOptions holds the persistent flags.
type GlobalOptions struct {
	ConfigFile string
	Env        string
	Host       string
	LogLevel   string
	JSON       bool
}

// NewRootCommand assembles the helpdesk command tree.
func NewRootCommand(version string) *cobra.Command {
	opts := &GlobalOptions{}

	root := &cobra.Command{
		Use:   "helpdesk",
		Short: "Command-line client for the giiHelpdesk account API",
		Long: `helpdesk signs in to a giiHelpdesk account and calls the account API.

The session token is kept in the configured session store, so later
commands run as the signed-in user until logout or until the API
answers 401.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.ConfigFile, "config", "c", "config.yaml", "Configuration file")
	flags.StringVar(&opts.Env, "env", "", "Environment profile (development, staging, production)")
	flags.StringVar(&opts.Host, "host", "", "Site host used to pick the environment")
	flags.StringVar(&opts.LogLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	flags.BoolVar(&opts.JSON, "json", false, "Print compact single-line JSON")

	root.AddCommand(
		newLoginCommand(opts),
		newLogoutCommand(opts),
		newRegisterCommand(opts),
		newForgotPasswordCommand(opts),
		newResetPasswordCommand(opts),
		newVerifyEmailCommand(opts),
		newCheckDomainCommand(opts),
		newWhoamiCommand(opts),
		newAccountCommand(opts),
		newPolicyCommand(opts),
		newSubscriptionCommand(opts),
		newCheckoutCommand(opts),
		newDebugCommand(opts),
		newTokenCommand(opts),
	)

	return root
}

// env is everything a command needs once configuration is loaded.
type env struct {
	cfg      *config.Config
	log      logger.Logger
	store    session.Store
	client   *apiclient.Client
	nav      *terminalNavigator
	provider observability.Provider
	out      io.Writer
	errOut   io.Writer
	json     bool
}

// withEnv wraps fn with configuration loading and teardown.
func withEnv(opts *GlobalOptions, fn func(ctx context.Context, e *env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		e, err := newEnv(ctx, cmd, opts)
		if err != nil {
			return err
		}
		defer e.close()
		return fn(ctx, e, args)
	}
}

func newEnv(ctx context.Context, cmd *cobra.Command, opts *GlobalOptions) (*env, error) {
	loadOpts := []config.Option{config.WithFile(opts.ConfigFile)}
	if opts.Env != "" {
		loadOpts = append(loadOpts, config.WithEnvironment(opts.Env))
	}
	if opts.Host != "" {
		loadOpts = append(loadOpts, config.WithHost(opts.Host))
	}
	cfg, err := config.Load(loadOpts...)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	errOut := cmd.ErrOrStderr()
	log := logger.NewWithWriter(errOut, level, cfg.Log.Pretty, logger.DefaultFilterConfig())

	e := &env{
		cfg:    cfg,
		log:    log,
		out:    cmd.OutOrStdout(),
		errOut: errOut,
		json:   opts.JSON,
		nav:    newTerminalNavigator(errOut, protectedPath(cmd, cfg.Navigation.ProtectedPrefix)),
	}

	provider, err := observability.NewProvider(cfg.Observability, observability.Options{
		Environment: cfg.App.Env,
		Version:     cmd.Root().Version,
		Writer:      errOut,
	})
	if err != nil {
		return nil, err
	}
	observability.Install(provider)
	e.provider = provider

	store, err := openStore(ctx, cfg.Session)
	if err != nil {
		e.close()
		return nil, err
	}
	e.store = store

	client, err := apiclient.New(ctx, apiclient.Options{
		API:            cfg.API,
		Navigation:     cfg.Navigation,
		Store:          store,
		Notifier:       notify.Multi(notify.NewWriter(errOut), notify.NewLogger(log)),
		Navigator:      e.nav,
		Logger:         log,
		TracerProvider: provider.TracerProvider(),
		MeterProvider:  provider.MeterProvider(),
	})
	if err != nil {
		e.close()
		return nil, err
	}
	e.client = client

	log.Debug().
		Str("env", cfg.App.Env).
		Str("base_url", cfg.API.BaseURL).
		Str("session_backend", cfg.Session.Backend).
		Msg("Client ready")
	return e, nil
}

func (e *env) close() {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.log.Warn().Err(err).Msg("Failed to close session store")
		}
	}
	if err := observability.Shutdown(e.provider, 0); err != nil {
		e.log.Warn().Err(err).Msg("Failed to flush traces")
	}
}

// print writes v as JSON on stdout.
func (e *env) print(v any) error {
	enc := json.NewEncoder(e.out)
	if !e.json {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// result prints an outcome and turns a failure into ErrCommandFailed,
// or ErrSignedOut when the failure sent the user back to the login page.
func (e *env) result(out apiclient.Outcome) error {
	if err := e.print(out); err != nil {
		return err
	}
	if !out.Success {
		if e.nav.Redirected() {
			return ErrSignedOut
		}
		return ErrCommandFailed
	}
	return nil
}

// protectedPath maps commands that act on the account area to a page path
// under the protected prefix; a forced sign-out there tells the user to log in again.
func protectedPath(cmd *cobra.Command, prefix string) string {
	var parts []string
	for c := cmd; c != nil && c.HasParent(); c = c.Parent() {
		parts = append([]string{c.Name()}, parts...)
	}
	if len(parts) == 0 {
		return "/"
	}
	switch parts[0] {
	case "account", "policy", "subscription", "whoami", "checkout":
		return strings.TrimRight(prefix, "/") + "/" + strings.Join(parts, "/")
	}
	return "/" + strings.Join(parts, "/")
}
