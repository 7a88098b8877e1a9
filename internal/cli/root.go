// Package cli implements parcelctl, the terminal client for parcel-server.
// Every command runs through the same session controller and audit pipeline.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"parcelview/internal/audit"
	"parcelview/internal/backend"
	"parcelview/internal/clientinfo"
	"parcelview/internal/config"
	"parcelview/internal/geoip"
	"parcelview/internal/logging"
	"parcelview/internal/session"
	"parcelview/internal/storage"
)

const flushTimeout = 5 * time.Second

type app struct {
	cfg       *config.Config
	cfgErr    error
	serverURL string

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	logger *zap.Logger
	client *backend.Client
	ctrl   *session.Controller

	// expired is closed by the tracker's expiry callback.
	expired    chan struct{}
	expireOnce sync.Once
}

func NewRootCommand() *cobra.Command {
	cfg, err := config.Load()
	return newRootCommand(cfg, err, os.Stdin, os.Stdout, os.Stderr)
}

// NewRootCommandWithConfig is used by tests and embedders that build the
// configuration themselves.
func NewRootCommandWithConfig(cfg *config.Config, in io.Reader, out, errOut io.Writer) *cobra.Command {
	return newRootCommand(cfg, nil, in, out, errOut)
}

func newRootCommand(cfg *config.Config, cfgErr error, in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{
		cfg:     cfg,
		cfgErr:  cfgErr,
		stdin:   in,
		stdout:  out,
		stderr:  errOut,
		expired: make(chan struct{}),
	}

	cmd := &cobra.Command{
		Use:           "parcelctl",
		Short:         "Parcel viewer client",
		Long:          "parcelctl signs in to parcel-server, manages parcel favorites and keeps an audited session open.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&a.serverURL, "server", "", "parcel-server API base URL (overrides client.base_url)")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if a.cfgErr != nil {
			return fmt.Errorf("invalid configuration: %w", a.cfgErr)
		}
		if a.cfg == nil {
			return fmt.Errorf("missing configuration")
		}
		if a.serverURL != "" {
			a.cfg.Client.BaseURL = a.serverURL
		}
		return a.setup(cmd.Context())
	}

	cmd.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newSignupCmd(a),
		newWhoamiCmd(a),
		newFavoritesCmd(a),
		newShellCmd(a),
	)
	a.detachAfterRun(cmd)
	return cmd
}

// detachAfterRun wraps every RunE so pending audit writes are flushed even
// when the command fails. PersistentPostRun is skipped on error.
func (a *app) detachAfterRun(cmd *cobra.Command) {
	for _, c := range cmd.Commands() {
		if run := c.RunE; run != nil {
			c.RunE = func(cmd *cobra.Command, args []string) error {
				defer a.detach()
				return run(cmd, args)
			}
		}
		a.detachAfterRun(c)
	}
}

func (a *app) setup(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := a.cfg

	logger, err := logging.NewFileOnly(cfg.Log)
	if err != nil {
		return err
	}
	a.logger = logger

	state, err := storage.NewLocalState(cfg.Client.StateDir)
	if err != nil {
		return fmt.Errorf("open state dir: %w", err)
	}

	a.client = backend.NewClient(cfg.Client.BaseURL, state, nil, logger.Named("backend"))

	env := clientinfo.StaticEnvironment{Agent: cfg.Client.UserAgent, Referer: cfg.Client.Referrer}
	probe := clientinfo.NewEchoProbe(env, cfg.Audit.IPEchoURL, cfg.Audit.Timeout, nil, logger.Named("clientinfo"))
	geo := geoip.NewResolver(cfg.Audit.GeoIPURL, cfg.Audit.Timeout, nil, logger.Named("geoip"))
	auditor := audit.New(probe, geo, a.client, logger.Named("audit"))

	a.ctrl = session.NewController(a.client, auditor, state, session.ControllerOptions{
		Tracker: session.TrackerConfig{
			Timeout:     cfg.Session.Timeout,
			WarningTime: cfg.Session.WarningTime,
			WarningPoll: cfg.Session.WarningPoll,
			ExpiryPoll:  cfg.Session.ExpiryPoll,
		},
		OnWarning: func(minutes int) {
			fmt.Fprintf(a.stderr, "Your session will expire in %d minute(s) due to inactivity.\n", minutes)
		},
		OnExpired: func() {
			fmt.Fprintln(a.stderr, "Session expired due to inactivity. You have been signed out.")
			a.expireOnce.Do(func() { close(a.expired) })
		},
		Logger: logger.Named("session"),
	})

	a.ctrl.Init(ctx)
	return nil
}

// detach ends a one-shot command without signing out: the persisted tokens
// stay valid for the next invocation.
func (a *app) detach() {
	if a.ctrl == nil {
		return
	}
	a.ctrl.Tracker().Stop()
	if !a.ctrl.Flush(flushTimeout) {
		a.logger.Warn("audit writes still pending at exit")
	}
	a.logger.Sync()
}

func (a *app) requireSignedIn() error {
	if a.ctrl.State() != session.StateAuthenticated {
		return fmt.Errorf("not signed in; run `parcelctl login` first")
	}
	return nil
}
