package resolver_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"permanentes/internal/identifier"
	"permanentes/internal/metrics"
	"permanentes/internal/registry"
	"permanentes/internal/resolver"
	"permanentes/internal/testsupport"
)

// memoryLookup keeps records in registry order and counts calls.
type memoryLookup struct {
	records     []registry.Record
	exactCalls  []string
	prefixCalls int
	err         error
}

func newMemoryLookup(records ...registry.Record) *memoryLookup {
	for i := range records {
		records[i].ID = int64(i + 1)
	}
	return &memoryLookup{records: records}
}

func (m *memoryLookup) FindByIdentifier(_ context.Context, id string) (*registry.Record, error) {
	m.exactCalls = append(m.exactCalls, id)
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.records {
		if m.records[i].Identifier == id {
			rec := m.records[i]
			return &rec, nil
		}
	}
	return nil, nil
}

func (m *memoryLookup) FindByPrefixAndSubstring(_ context.Context, prefix, substring string) ([]registry.Record, error) {
	m.prefixCalls++
	if m.err != nil {
		return nil, m.err
	}
	var out []registry.Record
	for _, rec := range m.records {
		if strings.HasPrefix(rec.Identifier, prefix) && strings.Contains(rec.Identifier, substring) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func TestResolveRejectsInputWithoutDigits(t *testing.T) {
	lookup := newMemoryLookup(registry.Record{Identifier: "123456789012345"})
	r := resolver.New(lookup)

	for _, raw := range []string{"", "   ", "proc. n/a"} {
		res, err := r.Resolve(context.Background(), raw)
		if err != nil {
			t.Fatalf("Resolve(%q) error: %v", raw, err)
		}
		if res.Matched || res.Record != nil {
			t.Fatalf("Resolve(%q) matched: %+v", raw, res)
		}
		if res.Kind != identifier.KindValidation || res.Strategy != resolver.StrategyNone {
			t.Fatalf("Resolve(%q) = %+v, want validation miss", raw, res)
		}
	}
	if len(lookup.exactCalls) != 0 || lookup.prefixCalls != 0 {
		t.Fatalf("registry should not be queried, got %v exact and %d prefix calls", lookup.exactCalls, lookup.prefixCalls)
	}
}

func TestResolveExactRawSkipsSecondLookup(t *testing.T) {
	lookup := newMemoryLookup(registry.Record{Identifier: "123456789012345", Status: "ATIVO"})
	res, err := resolver.New(lookup).Resolve(context.Background(), "123456789012345")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if !res.Matched || res.Record.Identifier != "123456789012345" || res.Strategy != resolver.StrategyExactRaw {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(lookup.exactCalls) != 1 {
		t.Fatalf("expected a single exact lookup, got %v", lookup.exactCalls)
	}
}

func TestResolveExactRawMatchesFormattedIdentifier(t *testing.T) {
	lookup := newMemoryLookup(registry.Record{Identifier: "0001234-56.2019"})
	res, err := resolver.New(lookup).Resolve(context.Background(), "0001234-56.2019")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if !res.Matched || res.Strategy != resolver.StrategyExactRaw {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestResolveExactNormalized(t *testing.T) {
	lookup := newMemoryLookup(registry.Record{Identifier: "123456789012345"})
	res, err := resolver.New(lookup).Resolve(context.Background(), " 12345.67890-12345 ")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if !res.Matched || res.Strategy != resolver.StrategyExactNormalized {
		t.Fatalf("unexpected result: %+v", res)
	}
	want := []string{" 12345.67890-12345 ", "123456789012345"}
	if len(lookup.exactCalls) != 2 || lookup.exactCalls[0] != want[0] || lookup.exactCalls[1] != want[1] {
		t.Fatalf("exact calls = %q, want %q", lookup.exactCalls, want)
	}
	if lookup.prefixCalls != 0 {
		t.Fatal("legacy lookup should not run after an exact hit")
	}
}

func TestExactSelfResolutionForEveryRecord(t *testing.T) {
	records := []registry.Record{
		{Identifier: "199971100056908", Status: "ARQUIVO PERMANENTE"},
		{Identifier: "201012300012345", Status: "ATIVO"},
		{Identifier: "9919056901", Status: ""},
	}
	lookup := newMemoryLookup(records...)
	r := resolver.New(lookup)
	for _, rec := range lookup.records {
		res, err := r.Resolve(context.Background(), rec.Identifier)
		if err != nil {
			t.Fatalf("Resolve(%q) error: %v", rec.Identifier, err)
		}
		if !res.Matched || res.Record.ID != rec.ID {
			t.Fatalf("Resolve(%q) = %+v, want record %d", rec.Identifier, res, rec.ID)
		}
	}
}

func TestResolveLegacyUniqueCandidate(t *testing.T) {
	lookup := newMemoryLookup(
		registry.Record{Identifier: "199971100056908", Status: "ATIVO"},
		registry.Record{Identifier: "201971100056908", Status: "ATIVO"},
	)
	res, err := resolver.New(lookup).Resolve(context.Background(), "9919056901")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if !res.Matched || res.Record.Identifier != "199971100056908" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Strategy != resolver.StrategyLegacyFallback || res.Kind != identifier.KindNone || res.Candidates != 1 {
		t.Fatalf("single candidate should be a clean fallback: %+v", res)
	}
}

func TestResolveLegacyCenturyInference(t *testing.T) {
	lookup := newMemoryLookup(
		registry.Record{Identifier: "199111100056901", Status: "ATIVO"},
		registry.Record{Identifier: "201011100005690", Status: "ATIVO"},
	)
	r := resolver.New(lookup)

	res, err := r.Resolve(context.Background(), "9190569012")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if !res.Matched || res.Record.Identifier != "199111100056901" {
		t.Fatalf("9190569012 should land in 1991, got %+v", res)
	}

	res, err = r.Resolve(context.Background(), "1019056901")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if !res.Matched || res.Record.Identifier != "201011100005690" {
		t.Fatalf("1019056901 should land in 2010, got %+v", res)
	}
}

func TestResolveLegacyPrefersPermanentRegardlessOfPosition(t *testing.T) {
	orders := [][]registry.Record{
		{
			{Identifier: "199900000056900", Status: "ATIVO"},
			{Identifier: "199911100056908", Status: "baixado"},
			{Identifier: "199971100056908", Status: "Arquivo Permanente"},
		},
		{
			{Identifier: "199971100056908", Status: "Arquivo Permanente"},
			{Identifier: "199900000056900", Status: "ATIVO"},
			{Identifier: "199911100056908", Status: "baixado"},
		},
	}
	for i, records := range orders {
		lookup := newMemoryLookup(records...)
		res, err := resolver.New(lookup).Resolve(context.Background(), "9919056901")
		if err != nil {
			t.Fatalf("order %d: Resolve error: %v", i, err)
		}
		if !res.Matched || res.Record.Identifier != "199971100056908" {
			t.Fatalf("order %d: expected the permanent record, got %+v", i, res)
		}
		if res.Strategy != resolver.StrategyLegacyPermanent || res.Candidates != 3 {
			t.Fatalf("order %d: unexpected strategy: %+v", i, res)
		}
	}
}

func TestResolveLegacyFragmentCollisionBetweenPermanents(t *testing.T) {
	lookup := newMemoryLookup(
		registry.Record{Identifier: "199900000056901", Status: "ATIVO"},
		registry.Record{Identifier: "199911100056902", Status: "PERMANENTE"},
		registry.Record{Identifier: "199922200056903", Status: "PERMANENTE"},
	)
	res, err := resolver.New(lookup).Resolve(context.Background(), "9919056901")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if res.Record == nil || res.Record.Identifier != "199911100056902" {
		t.Fatalf("expected first permanent in registry order, got %+v", res)
	}
}

func TestResolveLegacyAmbiguousFallsBackToFirst(t *testing.T) {
	m := metrics.New()
	lookup := newMemoryLookup(
		registry.Record{Identifier: "199900000056901", Status: "ATIVO"},
		registry.Record{Identifier: "199911100056902", Status: "BAIXADO"},
	)
	res, err := resolver.New(lookup, resolver.WithMetrics(m)).Resolve(context.Background(), "9919056901")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if !res.Matched || res.Record.Identifier != "199900000056901" {
		t.Fatalf("expected first candidate, got %+v", res)
	}
	if res.Kind != identifier.KindAmbiguous || res.Strategy != resolver.StrategyLegacyFallback {
		t.Fatalf("expected ambiguous fallback, got %+v", res)
	}
	if got := testutil.ToFloat64(m.AmbiguousFallbacks); got != 1 {
		t.Fatalf("ambiguous counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Resolutions.WithLabelValues("legacy_fallback")); got != 1 {
		t.Fatalf("legacy_fallback counter = %v, want 1", got)
	}
}

func TestResolveLegacyNoCandidates(t *testing.T) {
	lookup := newMemoryLookup(registry.Record{Identifier: "201012300012345"})
	res, err := resolver.New(lookup).Resolve(context.Background(), "9919056901")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if res.Matched || res.Kind != identifier.KindNotFound {
		t.Fatalf("expected not found, got %+v", res)
	}
}

func TestResolveOtherLengthsSkipLegacy(t *testing.T) {
	lookup := newMemoryLookup(registry.Record{Identifier: "199971100056908"})
	for _, raw := range []string{"99190569011", "991905690", "123456789012345"} {
		res, err := resolver.New(lookup).Resolve(context.Background(), raw)
		if err != nil {
			t.Fatalf("Resolve(%q) error: %v", raw, err)
		}
		if res.Matched || res.Kind != identifier.KindNotFound {
			t.Fatalf("Resolve(%q) = %+v, want not found", raw, res)
		}
	}
	if lookup.prefixCalls != 0 {
		t.Fatalf("legacy lookup ran %d times for non-legacy lengths", lookup.prefixCalls)
	}
}

func TestResolveOptionsOverrideCutoffAndMarker(t *testing.T) {
	lookup := newMemoryLookup(
		registry.Record{Identifier: "194000000056901", Status: "ATIVO"},
		registry.Record{Identifier: "194011100056902", Status: "GUARDA DEFINITIVA"},
	)
	r := resolver.New(lookup, resolver.WithCenturyCutoff(30), resolver.WithPermanentMarker(" guarda definitiva "))
	res, err := r.Resolve(context.Background(), "4019056901")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if res.Record == nil || res.Record.Identifier != "194011100056902" || res.Strategy != resolver.StrategyLegacyPermanent {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !r.IsPermanent(*res.Record) || resolver.IsPermanent(*res.Record) {
		t.Fatal("IsPermanent should follow the configured marker only on the resolver")
	}
}

func TestResolveWrapsLookupErrors(t *testing.T) {
	boom := errors.New("disk on fire")
	lookup := newMemoryLookup()
	lookup.err = boom

	_, err := resolver.New(lookup).Resolve(context.Background(), "123456789012345")
	if !errors.Is(err, resolver.ErrLookup) || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped lookup error, got %v", err)
	}
}

func TestResolveAgainstSQLiteRegistry(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedRecords(t, store,
		registry.Record{Identifier: "199900000056901", Status: "ATIVO"},
		registry.Record{Identifier: "199971100056908", Status: "ARQUIVO PERMANENTE"},
	)
	res, err := resolver.New(store).Resolve(context.Background(), "99.1905690-1")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if !res.Matched || res.Record.Identifier != "199971100056908" || res.Strategy != resolver.StrategyLegacyPermanent {
		t.Fatalf("unexpected result: %+v", res)
	}
}
