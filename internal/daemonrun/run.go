// Package daemonrun assembles the registry, engine and HTTP API into the
// long-running serve process.
package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"permanentes/internal/api"
	"permanentes/internal/backend"
	"permanentes/internal/config"
	"permanentes/internal/daemon"
	"permanentes/internal/logging"
	"permanentes/internal/metrics"
	"permanentes/internal/version"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// Bind overrides paths.api_bind when non-empty.
	Bind string
	// Logger replaces the config-derived logger. Used by tests.
	Logger *slog.Logger
	// Ready, when set, receives the bound address once serving starts.
	Ready func(addr string)
}

// Run serves the API until cmdCtx is cancelled or the process is signalled.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if opts.Bind != "" {
		cfg.Paths.APIBind = opts.Bind
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logger := opts.Logger
	if logger == nil {
		var err error
		logger, err = logging.NewFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
	}

	pidPath := filepath.Join(cfg.Paths.DataDir, "permanentes.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	m := metrics.New()
	svc, err := backend.OpenServices(signalCtx, cfg, m, logger)
	if err != nil {
		logger.Error("open registry", logging.Error(err))
		return err
	}
	defer svc.Registry.Close()

	logRegistrySnapshot(signalCtx, logger, cfg, svc)

	handler := api.NewHandler(api.Options{
		Resolver:       svc.Resolver,
		Reconciler:     svc.Reconciler,
		Records:        svc.Registry,
		Listings:       svc.Listings,
		Metrics:        m,
		Pinger:         svc.Registry,
		Logger:         logger,
		Token:          cfg.Paths.APIToken,
		Version:        version.String(),
		ExtractionMode: svc.Mode,
	})

	d, err := daemon.New(cfg, handler, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(signalCtx); err != nil {
		logging.WarnWithContext(signalCtx, logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "registry is not served over HTTP"),
		)
		return err
	}
	defer d.Stop()

	if opts.Ready != nil {
		opts.Ready(d.Addr())
	}

	<-signalCtx.Done()
	logger.Info("permanentes daemon shutting down")
	d.Stop()
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logRegistrySnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config, svc *backend.Services) {
	countCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	count, err := svc.Registry.CountRecords(countCtx)
	if err != nil {
		logging.WarnWithContext(ctx, logger, "registry count failed", "registry_snapshot_failed",
			logging.Error(err))
		return
	}
	logger.Info("registry snapshot",
		logging.String(logging.FieldEventType, "registry_snapshot"),
		logging.String("registry", backend.Describe(cfg)),
		logging.Int("records", count),
		logging.Int("century_cutoff", cfg.Matching.CenturyCutoff),
		logging.String("permanent_marker", cfg.Matching.PermanentMarker),
		logging.Int("workers", cfg.Matching.Workers),
	)
}
