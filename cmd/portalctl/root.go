package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	portalAuth "github.com/MrEthical07/portalAuth"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const storeMiniredis = "miniredis"

type options struct {
	envFile string
	store   string
	verbose bool

	// gateway replaces the HTTP client; tests only.
	gateway portalAuth.CredentialGateway
}

type app struct {
	opts   *options
	prompt prompter
}

func newRootCmd(p prompter) *cobra.Command {
	return newRootCmdWithOptions(p, &options{})
}

func newRootCmdWithOptions(p prompter, opts *options) *cobra.Command {
	a := &app{opts: opts, prompt: p}

	root := &cobra.Command{
		Use:   "portalctl",
		Short: "Sign in to the employee portals and inspect the session",
		Long: `portalctl talks to the portal identity provider and keeps the signed-in
session in the configured store, so later invocations see the same user.

Configuration comes from PORTAL_AUTH_* environment variables, optionally
loaded from --env-file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file read before the environment (ignored when missing)")
	flags.StringVar(&opts.store, "store", "", "session backend override: file, memory, redis or miniredis")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level to stderr")

	root.AddCommand(
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.homeCmd(),
		a.admitCmd(),
		a.resetCmd(),
		a.updateCmd(),
		a.reportCmd(),
	)
	return root
}

// openManager builds a manager for one command and restores the persisted
// session. The returned close func must always be called.
func (a *app) openManager(cmd *cobra.Command) (*portalAuth.Manager, func(), error) {
	cfg, err := portalAuth.LoadConfig(a.opts.envFile)
	if err != nil {
		return nil, nil, err
	}

	logger := newLogger(cmd.ErrOrStderr(), a.opts.verbose)
	b := portalAuth.New().WithLogger(logger)
	if a.opts.gateway != nil {
		b = b.WithGateway(a.opts.gateway)
	}

	cleanup := func() {}
	switch a.opts.store {
	case "":
	case storeMiniredis:
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		cfg.Store.Backend = portalAuth.StoreRedis
		b = b.WithRedis(client)
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		logger.Info("portalctl: using in-process miniredis; the session ends with this command", "addr", mr.Addr())
	default:
		cfg.Store.Backend = portalAuth.StoreBackend(a.opts.store)
	}

	m, err := b.WithConfig(cfg).Build()
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	m.Restore(cmd.Context())
	return m, func() {
		_ = m.Close()
		cleanup()
	}, nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, portalAuth.ErrNotAuthenticated),
		errors.Is(err, portalAuth.ErrRoleNotPermitted):
		return 3
	case errors.Is(err, portalAuth.ErrInvalidCredentials),
		errors.Is(err, portalAuth.ErrTooManyAttempts):
		return 4
	case errors.Is(err, portalAuth.ErrNetwork),
		errors.Is(err, portalAuth.ErrSessionStoreUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return 5
	default:
		return 1
	}
}
