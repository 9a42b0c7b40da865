// Package reconcile runs the resolver over a batch of identifiers, either a
// discrete list or numbers extracted from pasted text, and summarizes the
// outcome: matched records (deduplicated by record id and split into
// permanent and other), unmatched inputs in encounter order, and inputs whose
// lookup failed.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"permanentes/internal/identifier"
	"permanentes/internal/logging"
	"permanentes/internal/metrics"
	"permanentes/internal/registry"
	"permanentes/internal/resolver"
)

// Resolver is the part of resolver.Resolver the reconciler needs.
type Resolver interface {
	Resolve(ctx context.Context, raw string) (resolver.Result, error)
	IsPermanent(rec registry.Record) bool
}

// ItemError records an input whose resolution failed on the registry side.
type ItemError struct {
	Input   string `json:"input"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

func (e ItemError) Error() string {
	return fmt.Sprintf("%s: %s", e.Input, e.Message)
}

func (e ItemError) Unwrap() error {
	return e.Err
}

// Detail is the per-input trace of a batch.
type Detail struct {
	Input      string            `json:"input"`
	Matched    bool              `json:"matched"`
	Identifier string            `json:"identifier,omitempty"`
	Strategy   resolver.Strategy `json:"strategy"`
	Kind       identifier.Kind   `json:"kind,omitempty"`
	Candidates int               `json:"candidates,omitempty"`
}

// Outcome summarizes one batch. TotalVerified is not always TotalMatched +
// TotalUnmatched: several inputs may resolve to the same record, and failed
// inputs count as neither.
type Outcome struct {
	BatchID      string            `json:"batch_id"`
	UniqueInputs []string          `json:"unique_inputs"`
	Matched      []registry.Record `json:"matched"`
	Permanent    []registry.Record `json:"permanent"`
	Other        []registry.Record `json:"other"`
	Unmatched    []string          `json:"unmatched"`
	Failed       []ItemError       `json:"failed,omitempty"`
	Details      []Detail          `json:"details,omitempty"`

	TotalVerified  int `json:"total_verified"`
	TotalMatched   int `json:"total_matched"`
	TotalUnmatched int `json:"total_unmatched"`

	// Empty is set when the batch held no usable identifiers.
	Empty bool `json:"empty"`
}

// Reconciler runs batches. It keeps no state between calls.
type Reconciler struct {
	resolver Resolver
	workers  int
	logger   *slog.Logger
	metrics  *metrics.Metrics
	newID    func() string
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithWorkers bounds concurrent resolutions. Values below 1 mean 1.
func WithWorkers(n int) Option {
	return func(r *Reconciler) {
		if n < 1 {
			n = 1
		}
		r.workers = n
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) { r.logger = logging.NewComponentLogger(logger, "reconcile") }
}

// WithMetrics attaches Prometheus instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reconciler) { r.metrics = m }
}

// WithBatchIDs replaces the uuid batch id generator.
func WithBatchIDs(next func() string) Option {
	return func(r *Reconciler) {
		if next != nil {
			r.newID = next
		}
	}
}

// New builds a Reconciler over res.
func New(res Resolver, opts ...Option) *Reconciler {
	r := &Reconciler{
		resolver: res,
		workers:  1,
		logger:   logging.NewNop(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile resolves a discrete list. Inputs are trimmed, blanks dropped, and
// duplicates collapsed onto their first occurrence before resolution.
func (r *Reconciler) Reconcile(ctx context.Context, inputs []string) (Outcome, error) {
	unique := dedup(inputs, true)
	return r.run(ctx, unique)
}

// ReconcileText extracts candidate numbers from text with mode, then
// reconciles them as Reconcile does.
func (r *Reconciler) ReconcileText(ctx context.Context, text string, mode identifier.Mode) (Outcome, error) {
	unique := dedup(identifier.Extract(text, mode), false)
	return r.run(ctx, unique)
}

func dedup(inputs []string, trim bool) []string {
	seen := make(map[string]struct{}, len(inputs))
	out := make([]string, 0, len(inputs))
	for _, input := range inputs {
		if trim {
			input = strings.TrimSpace(input)
		}
		if input == "" {
			continue
		}
		// Inputs that normalize to the same digits collapse onto the first raw form.
		key := identifier.Normalize(input)
		if key == "" {
			key = input
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, input)
	}
	return out
}

func (r *Reconciler) run(ctx context.Context, unique []string) (Outcome, error) {
	batchID := r.newID()
	ctx = logging.WithBatchID(ctx, batchID)
	logger := logging.WithContext(ctx, r.logger)

	if len(unique) == 0 {
		logger.Info("batch has no valid identifiers")
		return Outcome{BatchID: batchID, Empty: true}, nil
	}

	start := time.Now()
	results := make([]resolver.Result, len(unique))
	failures := make([]error, len(unique))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, input := range unique {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := r.resolver.Resolve(gctx, input)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				failures[i] = err
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Outcome{}, fmt.Errorf("reconcile batch %s: %w", batchID, err)
	}

	out := Outcome{
		BatchID:      batchID,
		UniqueInputs: unique,
		Matched:      []registry.Record{},
		Permanent:    []registry.Record{},
		Other:        []registry.Record{},
		Unmatched:    []string{},
		Details:      make([]Detail, 0, len(unique)),
	}
	seen := make(map[int64]struct{}, len(unique))
	for i, input := range unique {
		if err := failures[i]; err != nil {
			out.Failed = append(out.Failed, ItemError{Input: input, Message: err.Error(), Err: err})
			logging.WarnWithContext(ctx, r.logger, "identifier lookup failed; skipped", "lookup_failed",
				logging.String("input", input),
				logging.Error(err),
				logging.String(logging.FieldImpact, "input reported as failed, batch continues"),
			)
			continue
		}
		res := results[i]
		detail := Detail{Input: input, Matched: res.Matched, Strategy: res.Strategy, Kind: res.Kind, Candidates: res.Candidates}
		if !res.Matched || res.Record == nil {
			out.Unmatched = append(out.Unmatched, input)
			out.Details = append(out.Details, detail)
			continue
		}
		rec := *res.Record
		detail.Identifier = rec.Identifier
		out.Details = append(out.Details, detail)
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		seen[rec.ID] = struct{}{}
		out.Matched = append(out.Matched, rec)
		if r.resolver.IsPermanent(rec) {
			out.Permanent = append(out.Permanent, rec)
		} else {
			out.Other = append(out.Other, rec)
		}
	}

	out.TotalVerified = len(unique)
	out.TotalMatched = len(out.Matched)
	out.TotalUnmatched = len(out.Unmatched)

	elapsed := time.Since(start)
	r.metrics.ObserveBatch(elapsed, out.TotalMatched, out.TotalUnmatched, len(out.Failed))
	logger.Info("batch reconciled",
		logging.Int("verified", out.TotalVerified),
		logging.Int("matched", out.TotalMatched),
		logging.Int("permanent", len(out.Permanent)),
		logging.Int("unmatched", out.TotalUnmatched),
		logging.Int("failed", len(out.Failed)),
		logging.Duration("elapsed", elapsed),
	)
	return out, nil
}
