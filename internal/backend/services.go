package backend

import (
	"context"
	"fmt"
	"log/slog"

	"permanentes/internal/config"
	"permanentes/internal/identifier"
	"permanentes/internal/importer"
	"permanentes/internal/listing"
	"permanentes/internal/logging"
	"permanentes/internal/metrics"
	"permanentes/internal/reconcile"
	"permanentes/internal/registry"
	"permanentes/internal/resolver"
)

// Services bundles the engine components built over one registry.
type Services struct {
	Registry   registry.Backend
	Metrics    *metrics.Metrics
	Resolver   *resolver.Resolver
	Reconciler *reconcile.Reconciler
	Listings   *listing.Service
	Importer   *importer.Importer
	Mode       identifier.Mode
}

// Build wires services over reg using cfg's matching and import settings.
// A nil metrics disables instrumentation.
func Build(cfg *config.Config, reg registry.Backend, m *metrics.Metrics, logger *slog.Logger) (*Services, error) {
	if cfg == nil || reg == nil {
		return nil, fmt.Errorf("build services: config and registry are required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	mode, err := identifier.ParseMode(cfg.Matching.ExtractionMode)
	if err != nil {
		return nil, fmt.Errorf("build services: %w", err)
	}

	res := resolver.New(reg,
		resolver.WithCenturyCutoff(cfg.Matching.CenturyCutoff),
		resolver.WithPermanentMarker(cfg.Matching.PermanentMarker),
		resolver.WithLogger(logger),
		resolver.WithMetrics(m),
	)
	return &Services{
		Registry: reg,
		Metrics:  m,
		Resolver: res,
		Reconciler: reconcile.New(res,
			reconcile.WithWorkers(cfg.Matching.Workers),
			reconcile.WithLogger(logger),
			reconcile.WithMetrics(m),
		),
		Listings: listing.NewService(reg, reg, listing.WithLogger(logger)),
		Importer: importer.New(reg,
			importer.WithEncoding(cfg.Import.Encoding),
			importer.WithDelimiter(cfg.Import.Delimiter),
			importer.WithBatchSize(cfg.Import.BatchSize),
			importer.WithLockPath(cfg.ImportLockPath()),
			importer.WithLogger(logger),
			importer.WithMetrics(m),
		),
		Mode: mode,
	}, nil
}

// OpenServices opens the configured registry and builds services over it.
// Close the returned Registry when done.
func OpenServices(ctx context.Context, cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (*Services, error) {
	reg, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc, err := Build(cfg, reg, m, logger)
	if err != nil {
		_ = reg.Close()
		return nil, err
	}
	return svc, nil
}
