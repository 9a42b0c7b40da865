package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"permanentes/internal/identifier"
	"permanentes/internal/listing"
	"permanentes/internal/logging"
	"permanentes/internal/metrics"
	"permanentes/internal/reconcile"
	"permanentes/internal/registry"
	"permanentes/internal/resolver"
)

const maxBodyBytes = 4 << 20

// Pinger reports registry health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options wires the handler to its services. Metrics, Pinger and Token are
// optional.
type Options struct {
	Resolver       *resolver.Resolver
	Reconciler     *reconcile.Reconciler
	Records        registry.Records
	Listings       *listing.Service
	Metrics        *metrics.Metrics
	Pinger         Pinger
	Logger         *slog.Logger
	Token          string
	Version        string
	ExtractionMode identifier.Mode
	RequestTimeout time.Duration
}

type server struct {
	resolver   *resolver.Resolver
	reconciler *reconcile.Reconciler
	records    registry.Records
	listings   *listing.Service
	pinger     Pinger
	logger     *slog.Logger
	version    string
	mode       identifier.Mode
}

// NewHandler builds the HTTP handler for the /api tree and /metrics.
func NewHandler(opts Options) http.Handler {
	logger := logging.NewComponentLogger(opts.Logger, "api")
	s := &server{
		resolver:   opts.Resolver,
		reconciler: opts.Reconciler,
		records:    opts.Records,
		listings:   opts.Listings,
		pinger:     opts.Pinger,
		logger:     logger,
		version:    opts.Version,
		mode:       opts.ExtractionMode,
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(correlate)
	r.Use(observe(opts.Metrics, logger))

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(requireToken(opts.Token))
		r.Use(middleware.Timeout(timeout))

		r.Get("/version", s.handleVersion)
		r.Get("/health", s.handleHealth)
		r.Get("/check", s.handleCheck)
		r.Post("/batch", s.handleBatch)

		r.Get("/boxes", s.handleBoxes)
		r.Get("/boxes/{box}/processes", s.handleBoxProcesses)
		r.Get("/processes", s.handleScanTargets)

		r.Route("/listings", func(r chi.Router) {
			r.Get("/", s.handleListListings)
			r.Post("/", s.handleCreateListing)
			r.Route("/{listingID}", func(r chi.Router) {
				r.Get("/", s.handleShowListing)
				r.Patch("/", s.handleRenameListing)
				r.Get("/report", s.handleListingReport)
				r.Post("/items", s.handleAddItem)
				r.Delete("/items/{itemID}", s.handleRemoveItem)
			})
		})
	})
	return r
}

func (s *server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.WithContext(r.Context(), s.logger).Error("request failed",
			logging.String("path", r.URL.Path),
			logging.Error(err),
		)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w: request body too large", errBadRequest)
		}
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}
