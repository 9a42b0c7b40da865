package reconcile_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"permanentes/internal/identifier"
	"permanentes/internal/metrics"
	"permanentes/internal/reconcile"
	"permanentes/internal/registry"
	"permanentes/internal/resolver"
	"permanentes/internal/testsupport"
)

var errRegistryDown = errors.New("registry down")

type fakeLookup struct {
	mu      sync.Mutex
	records []registry.Record
	failOn  map[string]bool
	calls   int
}

func newFakeLookup(records ...registry.Record) *fakeLookup {
	for i := range records {
		records[i].ID = int64(i + 1)
	}
	return &fakeLookup{records: records, failOn: map[string]bool{}}
}

func (f *fakeLookup) FindByIdentifier(_ context.Context, id string) (*registry.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failOn[id] {
		return nil, errRegistryDown
	}
	for i := range f.records {
		if f.records[i].Identifier == id {
			rec := f.records[i]
			return &rec, nil
		}
	}
	return nil, nil
}

func (f *fakeLookup) FindByPrefixAndSubstring(_ context.Context, prefix, substring string) ([]registry.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	var out []registry.Record
	for _, rec := range f.records {
		if strings.HasPrefix(rec.Identifier, prefix) && strings.Contains(rec.Identifier, substring) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func sampleRecords() []registry.Record {
	return []registry.Record{
		{Identifier: "123456789012345", Status: "ARQUIVADO"},
		{Identifier: "199911100056908", Status: "PERMANENTE"},
		{Identifier: "201011100005690", Status: "BAIXADO"},
	}
}

func identifiers(recs []registry.Record) []string {
	out := make([]string, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.Identifier)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestReconcileCollapsesTextualDuplicates(t *testing.T) {
	lookup := newFakeLookup(sampleRecords()...)
	rec := reconcile.New(resolver.New(lookup))

	out, err := rec.Reconcile(context.Background(), []string{"123456789012345", "123456789012345", " 123456789012345 "})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if out.TotalVerified != 1 || out.TotalMatched != 1 || out.TotalUnmatched != 0 {
		t.Fatalf("unexpected totals: %+v", out)
	}
	if !equalStrings(out.UniqueInputs, []string{"123456789012345"}) {
		t.Fatalf("unique inputs = %v", out.UniqueInputs)
	}
	if out.Empty {
		t.Fatal("expected non-empty outcome")
	}
	if _, err := uuid.Parse(out.BatchID); err != nil {
		t.Fatalf("batch id %q is not a uuid: %v", out.BatchID, err)
	}
}

func TestReconcileCollapsesInputsWithEqualDigits(t *testing.T) {
	lookup := newFakeLookup(sampleRecords()...)
	rec := reconcile.New(resolver.New(lookup))

	out, err := rec.Reconcile(context.Background(), []string{"123456789012345", "123.456.789-012345", "99.1905690-1", "9919056901"})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !equalStrings(out.UniqueInputs, []string{"123456789012345", "99.1905690-1"}) {
		t.Fatalf("unique inputs = %v", out.UniqueInputs)
	}
	if out.TotalVerified != 2 || out.TotalMatched != 2 || out.TotalUnmatched != 0 {
		t.Fatalf("unexpected totals: verified=%d matched=%d unmatched=%d", out.TotalVerified, out.TotalMatched, out.TotalUnmatched)
	}
}

func TestReconcileDeduplicatesMatchedRecordsByIdentity(t *testing.T) {
	lookup := newFakeLookup(sampleRecords()...)
	rec := reconcile.New(resolver.New(lookup))

	// Both the modern identifier and its legacy form land on the same record.
	out, err := rec.Reconcile(context.Background(), []string{"199911100056908", "9919056901"})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if out.TotalVerified != 2 {
		t.Fatalf("expected 2 verified, got %d", out.TotalVerified)
	}
	if out.TotalMatched != 1 {
		t.Fatalf("expected 1 matched record, got %d (%v)", out.TotalMatched, identifiers(out.Matched))
	}
	if out.TotalUnmatched != 0 {
		t.Fatalf("expected no unmatched, got %v", out.Unmatched)
	}
	if len(out.Details) != 2 {
		t.Fatalf("expected a detail per input, got %d", len(out.Details))
	}
	for _, d := range out.Details {
		if d.Identifier != "199911100056908" {
			t.Fatalf("detail %+v resolved to wrong record", d)
		}
	}
}

func TestReconcilePartitionsPermanentAndOther(t *testing.T) {
	lookup := newFakeLookup(sampleRecords()...)
	rec := reconcile.New(resolver.New(lookup))

	out, err := rec.Reconcile(context.Background(), []string{"123456789012345", "199911100056908", "201011100005690"})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if got := identifiers(out.Permanent); !equalStrings(got, []string{"199911100056908"}) {
		t.Fatalf("permanent = %v", got)
	}
	if got := identifiers(out.Other); !equalStrings(got, []string{"123456789012345", "201011100005690"}) {
		t.Fatalf("other = %v", got)
	}
	if got := identifiers(out.Matched); !equalStrings(got, []string{"123456789012345", "199911100056908", "201011100005690"}) {
		t.Fatalf("matched order = %v", got)
	}
}

func TestReconcileUnmatchedKeepsEncounterOrder(t *testing.T) {
	lookup := newFakeLookup(sampleRecords()...)
	rec := reconcile.New(resolver.New(lookup))

	inputs := []string{"999999999999999", "123456789012345", "555555555555555", "999999999999999", "111111111111111"}
	out, err := rec.Reconcile(context.Background(), inputs)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	want := []string{"999999999999999", "555555555555555", "111111111111111"}
	if !equalStrings(out.Unmatched, want) {
		t.Fatalf("unmatched = %v, want %v", out.Unmatched, want)
	}
	if out.TotalVerified != 4 || out.TotalMatched != 1 || out.TotalUnmatched != 3 {
		t.Fatalf("unexpected totals: verified=%d matched=%d unmatched=%d", out.TotalVerified, out.TotalMatched, out.TotalUnmatched)
	}
}

func TestReconcileEmptyInputIsNotAnError(t *testing.T) {
	lookup := newFakeLookup(sampleRecords()...)
	rec := reconcile.New(resolver.New(lookup))

	for _, inputs := range [][]string{nil, {}, {"", "   ", "\t"}} {
		out, err := rec.Reconcile(context.Background(), inputs)
		if err != nil {
			t.Fatalf("Reconcile(%q): %v", inputs, err)
		}
		if !out.Empty {
			t.Fatalf("Reconcile(%q) expected Empty outcome", inputs)
		}
		if out.TotalVerified != 0 || out.TotalMatched != 0 || out.TotalUnmatched != 0 {
			t.Fatalf("Reconcile(%q) expected zero counts, got %+v", inputs, out)
		}
	}
	if lookup.calls != 0 {
		t.Fatalf("expected no registry calls, got %d", lookup.calls)
	}
}

func TestReconcileTextModes(t *testing.T) {
	lookup := newFakeLookup(sampleRecords()...)
	rec := reconcile.New(resolver.New(lookup))
	text := "proc 12345678901234567 end"

	broad, err := rec.ReconcileText(context.Background(), text, identifier.ModeBroad)
	if err != nil {
		t.Fatalf("ReconcileText broad: %v", err)
	}
	if !equalStrings(broad.UniqueInputs, []string{"12345678901234567"}) {
		t.Fatalf("broad inputs = %v", broad.UniqueInputs)
	}
	if !equalStrings(broad.Unmatched, []string{"12345678901234567"}) {
		t.Fatalf("broad unmatched = %v", broad.Unmatched)
	}

	strict, err := rec.ReconcileText(context.Background(), text, identifier.ModeStrict)
	if err != nil {
		t.Fatalf("ReconcileText strict: %v", err)
	}
	if !strict.Empty {
		t.Fatalf("strict mode should find nothing, got %v", strict.UniqueInputs)
	}
}

func TestReconcileTextDeduplicatesExtractedNumbers(t *testing.T) {
	lookup := newFakeLookup(sampleRecords()...)
	rec := reconcile.New(resolver.New(lookup))
	text := "Processos: 123456789012345; 9919056901\n123456789012345 e 000000000000000."

	out, err := rec.ReconcileText(context.Background(), text, identifier.ModeStrict)
	if err != nil {
		t.Fatalf("ReconcileText: %v", err)
	}
	if !equalStrings(out.UniqueInputs, []string{"123456789012345", "000000000000000"}) {
		t.Fatalf("unique inputs = %v", out.UniqueInputs)
	}
	if out.TotalMatched != 1 || !equalStrings(out.Unmatched, []string{"000000000000000"}) {
		t.Fatalf("unexpected outcome: matched=%d unmatched=%v", out.TotalMatched, out.Unmatched)
	}
}

func TestReconcileParallelMatchesSequential(t *testing.T) {
	records := sampleRecords()
	inputs := []string{"9919056901"}
	for i := 0; i < 40; i++ {
		id := fmt.Sprintf("2020%011d", i)
		status := "ATIVO"
		if i%3 == 0 {
			status = "PERMANENTE"
		}
		records = append(records, registry.Record{Identifier: id, Status: status})
		inputs = append(inputs, id, fmt.Sprintf("3030%011d", i))
	}

	seq, err := reconcile.New(resolver.New(newFakeLookup(records...))).Reconcile(context.Background(), inputs)
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	par, err := reconcile.New(resolver.New(newFakeLookup(records...)), reconcile.WithWorkers(8)).Reconcile(context.Background(), inputs)
	if err != nil {
		t.Fatalf("parallel: %v", err)
	}
	if !equalStrings(identifiers(seq.Matched), identifiers(par.Matched)) {
		t.Fatalf("matched differ:\nseq=%v\npar=%v", identifiers(seq.Matched), identifiers(par.Matched))
	}
	if !equalStrings(identifiers(seq.Permanent), identifiers(par.Permanent)) {
		t.Fatal("permanent partitions differ")
	}
	if !equalStrings(seq.Unmatched, par.Unmatched) {
		t.Fatalf("unmatched differ:\nseq=%v\npar=%v", seq.Unmatched, par.Unmatched)
	}
	if seq.TotalMatched != 41 || seq.TotalUnmatched != 40 {
		t.Fatalf("unexpected totals: matched=%d unmatched=%d", seq.TotalMatched, seq.TotalUnmatched)
	}
}

func TestReconcileIsolatesFailedLookups(t *testing.T) {
	lookup := newFakeLookup(sampleRecords()...)
	lookup.failOn["555555555555555"] = true
	m := metrics.New()
	rec := reconcile.New(resolver.New(lookup), reconcile.WithWorkers(2), reconcile.WithMetrics(m))

	out, err := rec.Reconcile(context.Background(), []string{"123456789012345", "555555555555555", "999999999999999"})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(out.Failed) != 1 || out.Failed[0].Input != "555555555555555" {
		t.Fatalf("failed = %+v", out.Failed)
	}
	if !errors.Is(out.Failed[0], errRegistryDown) {
		t.Fatalf("failure should wrap the registry error: %v", out.Failed[0].Err)
	}
	if !errors.Is(out.Failed[0], resolver.ErrLookup) {
		t.Fatalf("failure should wrap ErrLookup: %v", out.Failed[0].Err)
	}
	if out.TotalVerified != 3 || out.TotalMatched != 1 || out.TotalUnmatched != 1 {
		t.Fatalf("unexpected totals: %+v", out)
	}
	if got := testutil.ToFloat64(m.BatchInputs.WithLabelValues("failed")); got != 1 {
		t.Fatalf("failed inputs metric = %v", got)
	}
}

func TestReconcileStopsOnCancelledContext(t *testing.T) {
	lookup := newFakeLookup(sampleRecords()...)
	rec := reconcile.New(resolver.New(lookup), reconcile.WithWorkers(4))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := rec.Reconcile(ctx, []string{"123456789012345", "199911100056908"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestReconcileUsesInjectedBatchIDs(t *testing.T) {
	lookup := newFakeLookup(sampleRecords()...)
	rec := reconcile.New(resolver.New(lookup), reconcile.WithBatchIDs(func() string { return "batch-1" }))

	out, err := rec.Reconcile(context.Background(), []string{"123456789012345"})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if out.BatchID != "batch-1" {
		t.Fatalf("batch id = %q", out.BatchID)
	}
}

func TestReconcileAgainstSQLiteRegistry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedRecords(t, store, sampleRecords()...)

	rec := reconcile.New(resolver.New(store), reconcile.WithWorkers(4))
	out, err := rec.ReconcileText(context.Background(), "9919056901, 1019056901 e 777777777777777", identifier.ModeBroad)
	if err != nil {
		t.Fatalf("ReconcileText: %v", err)
	}
	if got := identifiers(out.Matched); !equalStrings(got, []string{"199911100056908", "201011100005690"}) {
		t.Fatalf("matched = %v", got)
	}
	if !equalStrings(out.Unmatched, []string{"777777777777777"}) {
		t.Fatalf("unmatched = %v", out.Unmatched)
	}
}
