package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"permanentes/internal/identifier"
	"permanentes/internal/logging"
	"permanentes/internal/metrics"
	"permanentes/internal/registry"
)

// DefaultPermanentMarker is the status substring that flags a permanent record.
const DefaultPermanentMarker = "PERMANENTE"

// ErrLookup wraps every registry failure surfaced by Resolve.
var ErrLookup = errors.New("registry lookup failed")

// Lookup is the read side of the registry the resolver depends on.
type Lookup interface {
	// FindByIdentifier returns (nil, nil) when nothing matches exactly.
	FindByIdentifier(ctx context.Context, id string) (*registry.Record, error)
	// FindByPrefixAndSubstring returns candidates in registry order.
	FindByPrefixAndSubstring(ctx context.Context, prefix, substring string) ([]registry.Record, error)
}

// Strategy names the rule that produced a Result.
type Strategy string

const (
	StrategyNone            Strategy = "none"
	StrategyExactRaw        Strategy = "exact_raw"
	StrategyExactNormalized Strategy = "exact_normalized"
	StrategyLegacyPermanent Strategy = "legacy_permanent"
	StrategyLegacyFallback  Strategy = "legacy_fallback"
)

// Result is the outcome of one resolution. The zero value means no match.
type Result struct {
	Matched  bool             `json:"matched"`
	Record   *registry.Record `json:"record,omitempty"`
	Strategy Strategy         `json:"strategy"`
	// Kind explains a miss or a fallback; KindNone on a clean match.
	Kind identifier.Kind `json:"kind,omitempty"`
	// Candidates is the size of the legacy candidate set, when one was queried.
	Candidates int `json:"candidates,omitempty"`
}

func noMatch(kind identifier.Kind, candidates int) Result {
	return Result{Strategy: StrategyNone, Kind: kind, Candidates: candidates}
}

// Resolver resolves raw identifiers against a Lookup. It holds no per-call
// state and is safe for concurrent use when the Lookup is.
type Resolver struct {
	lookup  Lookup
	cutoff  int
	marker  string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCenturyCutoff overrides identifier.DefaultCenturyCutoff.
func WithCenturyCutoff(cutoff int) Option {
	return func(r *Resolver) { r.cutoff = cutoff }
}

// WithPermanentMarker overrides DefaultPermanentMarker. Blank values are ignored.
func WithPermanentMarker(marker string) Option {
	return func(r *Resolver) {
		if m := strings.ToUpper(strings.TrimSpace(marker)); m != "" {
			r.marker = m
		}
	}
}

// WithLogger attaches a logger; ambiguity warnings and strategy traces go there.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logging.NewComponentLogger(logger, "resolver") }
}

// WithMetrics attaches Prometheus instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// New builds a Resolver over lookup.
func New(lookup Lookup, opts ...Option) *Resolver {
	r := &Resolver{
		lookup: lookup,
		cutoff: identifier.DefaultCenturyCutoff,
		marker: DefaultPermanentMarker,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IsPermanent reports whether rec carries the configured permanent marker.
func (r *Resolver) IsPermanent(rec registry.Record) bool {
	return hasMarker(rec, r.marker)
}

// IsPermanent reports whether rec carries DefaultPermanentMarker.
func IsPermanent(rec registry.Record) bool {
	return hasMarker(rec, DefaultPermanentMarker)
}

func hasMarker(rec registry.Record, marker string) bool {
	return strings.Contains(strings.ToUpper(rec.Status), marker)
}

// Resolve maps raw to a registry record. A returned error always wraps
// ErrLookup; misses and fallbacks are reported through Result.
func (r *Resolver) Resolve(ctx context.Context, raw string) (Result, error) {
	result, err := r.resolve(ctx, raw)
	if err != nil {
		return Result{}, err
	}
	r.metrics.IncrementResolution(string(result.Strategy))
	return result, nil
}

func (r *Resolver) resolve(ctx context.Context, raw string) (Result, error) {
	normalized := identifier.Normalize(raw)
	if normalized == "" {
		return noMatch(identifier.KindValidation, 0), nil
	}

	rec, err := r.findExact(ctx, raw)
	if err != nil {
		return Result{}, err
	}
	if rec != nil {
		return Result{Matched: true, Record: rec, Strategy: StrategyExactRaw}, nil
	}
	if normalized != raw {
		rec, err = r.findExact(ctx, normalized)
		if err != nil {
			return Result{}, err
		}
		if rec != nil {
			return Result{Matched: true, Record: rec, Strategy: StrategyExactNormalized}, nil
		}
	}

	query, ok := identifier.DecodeLegacyWithCutoff(normalized, r.cutoff)
	if !ok {
		return noMatch(identifier.KindNotFound, 0), nil
	}
	return r.resolveLegacy(ctx, raw, query)
}

func (r *Resolver) findExact(ctx context.Context, id string) (*registry.Record, error) {
	start := time.Now()
	rec, err := r.lookup.FindByIdentifier(ctx, id)
	r.metrics.ObserveLookup("exact", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%w: exact %q: %w", ErrLookup, id, err)
	}
	return rec, nil
}

func (r *Resolver) resolveLegacy(ctx context.Context, raw string, query identifier.LegacyQuery) (Result, error) {
	start := time.Now()
	candidates, err := r.lookup.FindByPrefixAndSubstring(ctx, query.YearFull, query.SequenceFragment)
	r.metrics.ObserveLookup("legacy", time.Since(start))
	if err != nil {
		return Result{}, fmt.Errorf("%w: legacy %s/%s: %w", ErrLookup, query.YearFull, query.SequenceFragment, err)
	}
	r.metrics.ObserveCandidates(len(candidates))

	if len(candidates) == 0 {
		return noMatch(identifier.KindNotFound, 0), nil
	}

	for i := range candidates {
		if r.IsPermanent(candidates[i]) {
			rec := candidates[i]
			r.logger.Debug("legacy number resolved to permanent record",
				logging.String("input", raw),
				logging.String("year", query.YearFull),
				logging.String("fragment", query.SequenceFragment),
				logging.String("identifier", rec.Identifier),
				logging.Int("candidates", len(candidates)),
			)
			return Result{Matched: true, Record: &rec, Strategy: StrategyLegacyPermanent, Candidates: len(candidates)}, nil
		}
	}

	rec := candidates[0]
	result := Result{Matched: true, Record: &rec, Strategy: StrategyLegacyFallback, Candidates: len(candidates)}
	if len(candidates) > 1 {
		result.Kind = identifier.KindAmbiguous
		r.metrics.IncrementAmbiguous()
		logging.WarnWithContext(ctx, r.logger, "legacy number matched several records, none permanent",
			"legacy_ambiguous",
			logging.String("input", raw),
			logging.String("year", query.YearFull),
			logging.String("fragment", query.SequenceFragment),
			logging.Int("candidates", len(candidates)),
			logging.String("chosen", rec.Identifier),
			logging.String(logging.FieldImpact, "first candidate in registry order was used"),
		)
	}
	return result, nil
}
