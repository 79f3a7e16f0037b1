// Command vtabled serves a VTable database over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/hupe1980/vtable"
	"github.com/hupe1980/vtable/api"
	"github.com/hupe1980/vtable/internal/config"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const version = "0.1.0"

const usage = `VTable server.

Usage:
    vtabled [--config=<path>] [--listen=<addr>] [--log-level=<level>]
    vtabled -h | --help
    vtabled --version

Options:
    -h --help              Show this screen.
    --version              Show version.
    --config=<path>        YAML configuration file.
    --listen=<addr>        HTTP listen address, overrides the config.
    --log-level=<level>    debug, info, warn or error, overrides the config.`

const shutdownTimeout = 10 * time.Second

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], version)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintln(os.Stderr, "vtabled:", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, when given, and applies flag overrides.
func loadConfig(opts docopt.Opts) (config.Config, error) {
	cfg := config.Default()
	if path, _ := opts.String("--config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return config.Config{}, err
		}
	}
	if listen, _ := opts.String("--listen"); listen != "" {
		cfg.Listen = listen
	}
	if level, _ := opts.String("--log-level"); level != "" {
		cfg.Log.Level = level
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Log) *vtable.Logger {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	if cfg.Format == "json" {
		return vtable.NewJSONLogger(level)
	}
	return vtable.NewTextLogger(level)
}

func run(ctx context.Context, cfg config.Config) error {
	logger := newLogger(cfg.Log)

	journal, err := openJournal(ctx, cfg.Storage, logger.Logger)
	if err != nil {
		return err
	}

	metrics := &vtable.BasicMetricsCollector{}
	db, err := vtable.Open(ctx,
		vtable.WithJournal(journal),
		vtable.WithLogger(logger),
		vtable.WithMetricsCollector(metrics),
		vtable.WithMaxRetries(cfg.Storage.MaxRetries),
		vtable.WithCheckpointEvery(cfg.Storage.File.CheckpointEvery),
	)
	if err != nil {
		_ = journal.Close()
		return err
	}

	handler := api.New(db, func(o *api.Options) {
		o.Logger = logger
		o.RateLimit = rate.Limit(cfg.RateLimit.RPS)
		o.Burst = cfg.RateLimit.Burst
	})
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("vtabled listening", "addr", cfg.Listen, "storage", cfg.Storage.Kind)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	stats := metrics.GetStats()
	logger.Info("vtabled stopped",
		"mutations", stats.MutationCount,
		"queries", stats.QueryCount,
		"commits", db.Stats().Commits)
	if cerr := db.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	return err
}
