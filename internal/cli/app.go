package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/blogstore/internal/blog"
	"github.com/roach88/blogstore/internal/config"
	"github.com/roach88/blogstore/internal/sequence"
	"github.com/roach88/blogstore/internal/store"
	"github.com/roach88/blogstore/internal/store/boltstore"
	"github.com/roach88/blogstore/internal/store/sqlstore"
)

// app is everything a command needs once configuration is resolved.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	clock      quartz.Clock
	registerer prometheus.Registerer
	backend    store.Backend
	alloc      *sequence.Allocator
	blog       *blog.Store
	out        *OutputFormatter
}

// loadConfig resolves configuration and installs the process logger.
func loadConfig(cmd *cobra.Command, opts *RootOptions) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	logger := cfg.Log.NewLogger(cmd.ErrOrStderr(), opts.Verbose)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// openStore loads configuration and opens the configured backend without
// touching the entity collections. Callers must Close the result.
func openStore(cmd *cobra.Command, opts *RootOptions) (*app, error) {
	cfg, logger, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}

	logger.Debug("opening store", "driver", cfg.Store.Driver, "dsn", cfg.Store.DSN)
	backend, err := OpenBackend(cfg.Store)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}

	clock := opts.Clock
	if clock == nil {
		clock = quartz.NewReal()
	}
	registerer := opts.Registerer
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}

	return &app{
		cfg:        cfg,
		logger:     logger,
		clock:      clock,
		registerer: registerer,
		backend:    backend,
		out:        newFormatter(cmd, opts),
	}, nil
}

// openApp is openStore followed by a bootstrap of the entity store.
func openApp(cmd *cobra.Command, opts *RootOptions) (*app, error) {
	a, err := openStore(cmd, opts)
	if err != nil {
		return nil, err
	}
	a.attachBlog()
	if err := a.bootstrap(cmd); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// attachBlog builds the allocator and entity store without touching the
// backend.
func (a *app) attachBlog() {
	a.alloc = sequence.New(a.backend, sequence.Options{Logger: a.logger, Registerer: a.registerer})
	a.blog = blog.Open(a.backend, a.alloc, blog.Options{Logger: a.logger, Clock: a.clock})
}

func (a *app) bootstrap(cmd *cobra.Command) error {
	if err := a.blog.Bootstrap(commandContext(cmd)); err != nil {
		return WrapExitError(ExitCommandError, "failed to bootstrap store", err)
	}
	return nil
}

// Close releases the backend.
func (a *app) Close() {
	if err := a.backend.Close(); err != nil {
		a.logger.Error("error closing store", "error", err)
	}
}

// OpenBackend opens the store named by cfg.Driver.
func OpenBackend(cfg config.StoreConfig) (store.Backend, error) {
	if cfg.Driver == config.DriverBolt {
		s, err := boltstore.Open(cfg.DSN, boltstore.Options{Timeout: cfg.BoltTimeout})
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	s, err := sqlstore.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func newFormatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
}

// commandContext returns the command's context, or Background when the
// command runs outside ExecuteContext.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// runE adapts a command body so that JSON mode reports failures in the
// response envelope as well as through the returned error.
func runE(opts *RootOptions, fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		if err == nil {
			return nil
		}
		var exitErr *ExitError
		if !errors.As(err, &exitErr) {
			err = WrapExitError(ExitFailure, "command failed", err)
		}
		if opts.Format == "json" {
			_ = newFormatter(cmd, opts).ReportError(err)
		}
		return err
	}
}
