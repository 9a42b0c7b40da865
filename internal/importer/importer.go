package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"permanentes/internal/identifier"
	"permanentes/internal/logging"
	"permanentes/internal/metrics"
	"permanentes/internal/registry"
)

var (
	// ErrMissingColumn is returned when the file has no PROCESSO column.
	ErrMissingColumn = errors.New("missing PROCESSO column")
	// ErrImportRunning is returned when another import holds the lock.
	ErrImportRunning = errors.New("another import is already running")
	// ErrUnsupportedEncoding rejects encodings other than latin-1, windows-1252 and utf-8.
	ErrUnsupportedEncoding = errors.New("unsupported encoding")
	// ErrUnsupportedDelimiter rejects delimiters other than auto, ';' and ','.
	ErrUnsupportedDelimiter = errors.New("unsupported delimiter")
)

// Column names after normalization.
const (
	columnIdentifier  = "PROCESSO"
	columnClass       = "CLASSE"
	columnStatus      = "SITUAÇÃO"
	columnSubject     = "ASSUNTO"
	columnLocator     = "LOCALIZADOR"
	columnBox         = "CAIXA"
	maxIdentifierSize = identifier.ModernLength
)

var (
	currentBodyColumns  = []string{"ÓRGÃO ATUAL", "ORGAO ATUAL"}
	statusDetailColumns = []string{"SITUAÇÃO_DETALHE", "SITUACAO_DETALHE", "SITUAÇÃO DETALHE", "SITUAÇÃO.1"}
)

// Upserter is the registry write path used by imports.
type Upserter interface {
	UpsertRecords(ctx context.Context, records []registry.Record) (registry.UpsertResult, error)
}

// Summary reports what an import did.
type Summary struct {
	Delimiter string        `json:"delimiter"`
	Columns   []string      `json:"columns"`
	Rows      int           `json:"rows"`
	Imported  int           `json:"imported"`
	Created   int           `json:"created"`
	Updated   int           `json:"updated"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Importer reads CSV exports into the registry.
type Importer struct {
	store     Upserter
	encoding  string
	delimiter string
	batchSize int
	lockPath  string
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures an Importer.
type Option func(*Importer)

// WithEncoding selects the source encoding: "latin-1" (default),
// "windows-1252", or "utf-8".
func WithEncoding(encoding string) Option {
	return func(im *Importer) { im.encoding = encoding }
}

// WithDelimiter forces ";" or ","; "auto" sniffs the header line.
func WithDelimiter(delimiter string) Option {
	return func(im *Importer) { im.delimiter = delimiter }
}

// WithBatchSize sets how many rows go into one upsert transaction.
func WithBatchSize(n int) Option {
	return func(im *Importer) {
		if n > 0 {
			im.batchSize = n
		}
	}
}

// WithLockPath serializes imports across processes through a lock file.
func WithLockPath(path string) Option {
	return func(im *Importer) { im.lockPath = path }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(im *Importer) { im.logger = logging.NewComponentLogger(logger, "importer") }
}

// WithMetrics attaches Prometheus instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(im *Importer) { im.metrics = m }
}

// New constructs an Importer writing to store.
func New(store Upserter, opts ...Option) *Importer {
	im := &Importer{
		store:     store,
		encoding:  "latin-1",
		delimiter: "auto",
		batchSize: 500,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// ImportFile imports the CSV file at path.
func (im *Importer) ImportFile(ctx context.Context, path string) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()
	return im.Import(ctx, f)
}

// Import reads a whole CSV document from r and upserts its rows.
func (im *Importer) Import(ctx context.Context, r io.Reader) (Summary, error) {
	if im.lockPath != "" {
		lock := flock.New(im.lockPath)
		ok, err := lock.TryLock()
		if err != nil {
			return Summary{}, fmt.Errorf("acquire import lock: %w", err)
		}
		if !ok {
			return Summary{}, ErrImportRunning
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				im.logger.Warn("failed to release import lock", logging.Error(err))
			}
		}()
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return Summary{}, fmt.Errorf("read import: %w", err)
	}
	text, err := decodeText(raw, im.encoding)
	if err != nil {
		return Summary{}, err
	}
	delim, err := parseDelimiter(im.delimiter, text)
	if err != nil {
		return Summary{}, err
	}

	reader := csv.NewReader(bytes.NewReader(text))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Summary{Delimiter: string(delim)}, fmt.Errorf("%w: file is empty", ErrMissingColumn)
	}
	if err != nil {
		return Summary{}, fmt.Errorf("read header: %w", err)
	}
	columns := normalizeHeaders(header)
	index := make(map[string]int, len(columns))
	for i, name := range columns {
		index[name] = i
	}
	summary := Summary{Delimiter: string(delim), Columns: columns}
	if _, ok := index[columnIdentifier]; !ok {
		return summary, fmt.Errorf("%w (columns: %s)", ErrMissingColumn, strings.Join(columns, ", "))
	}

	im.logger.Info("import started",
		logging.String("delimiter", summary.Delimiter),
		logging.String("encoding", im.encoding),
		logging.Int("columns", len(columns)),
	)

	start := time.Now()
	sampler := logging.NewProgressSampler(im.batchSize)
	pending := make([]registry.Record, 0, im.batchSize)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		im.writeBatch(ctx, pending, &summary)
		pending = pending[:0]
		if err := ctx.Err(); err != nil {
			return err
		}
		if sampler.ShouldLog(summary.Imported) {
			im.logger.Info("import progress", logging.Int("imported", summary.Imported))
		}
		return nil
	}

	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			summary.Rows++
			summary.Failed++
			im.logger.Debug("unreadable csv row", logging.Int("line", line), logging.Error(err))
			continue
		}
		summary.Rows++
		rec, ok, rowErr := buildRecord(row, index)
		if rowErr != nil {
			summary.Failed++
			im.logger.Debug("invalid csv row", logging.Int("line", line), logging.Error(rowErr))
			continue
		}
		if !ok {
			summary.Skipped++
			continue
		}
		pending = append(pending, rec)
		if len(pending) >= im.batchSize {
			if err := flush(); err != nil {
				return summary, fmt.Errorf("import interrupted: %w", err)
			}
		}
	}
	if err := flush(); err != nil {
		return summary, fmt.Errorf("import interrupted: %w", err)
	}

	summary.Elapsed = time.Since(start)
	im.metrics.AddImportedRows("created", summary.Created)
	im.metrics.AddImportedRows("updated", summary.Updated)
	im.metrics.AddImportedRows("skipped", summary.Skipped)
	im.metrics.AddImportedRows("failed", summary.Failed)
	im.logger.Info("import finished",
		logging.Int("rows", summary.Rows),
		logging.Int("imported", summary.Imported),
		logging.Int("created", summary.Created),
		logging.Int("updated", summary.Updated),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed),
		logging.Duration("elapsed", summary.Elapsed),
	)
	return summary, nil
}

// writeBatch upserts a batch in one transaction. When the transaction fails
// the rows are retried one at a time so a single bad row only costs itself.
func (im *Importer) writeBatch(ctx context.Context, batch []registry.Record, summary *Summary) {
	res, err := im.store.UpsertRecords(ctx, batch)
	if err == nil {
		summary.Created += res.Created
		summary.Updated += res.Updated
		summary.Imported += len(batch)
		return
	}
	if ctx.Err() != nil {
		return
	}
	im.logger.Debug("batch upsert failed; retrying rows individually",
		logging.Int("rows", len(batch)),
		logging.Error(err),
	)
	failed := 0
	for _, rec := range batch {
		res, err := im.store.UpsertRecords(ctx, []registry.Record{rec})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failed++
			continue
		}
		summary.Created += res.Created
		summary.Updated += res.Updated
		summary.Imported++
	}
	summary.Failed += failed
	if failed > 0 {
		logging.WarnWithContext(ctx, im.logger, "rows rejected by registry", "import_rows_failed",
			logging.Int("failed", failed),
			logging.Error(err),
			logging.String(logging.FieldImpact, "rejected rows were not imported"),
		)
	}
}

// buildRecord maps one CSV row to a record. ok is false for rows without a
// usable identifier, which are skipped rather than failed.
func buildRecord(row []string, index map[string]int) (registry.Record, bool, error) {
	cell := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}
	get := func(name string) string {
		return strings.TrimSpace(cell(name))
	}
	first := func(names []string) string {
		for _, name := range names {
			if v := get(name); v != "" {
				return v
			}
		}
		return ""
	}

	raw := get(columnIdentifier)
	if raw == "" {
		return registry.Record{}, false, nil
	}
	id := identifier.Normalize(raw)
	if id == "" {
		return registry.Record{}, false, nil
	}
	if len(id) > maxIdentifierSize {
		return registry.Record{}, false, fmt.Errorf("identifier %q has %d digits", raw, len(id))
	}

	// Status stays verbatim so a whitespace-only cell is not mistaken for a blank one.
	return registry.Record{
		Identifier:   id,
		Status:       cell(columnStatus),
		Class:        get(columnClass),
		Subject:      get(columnSubject),
		CurrentBody:  first(currentBodyColumns),
		Locator:      get(columnLocator),
		StatusDetail: first(statusDetailColumns),
		Box:          get(columnBox),
	}, true, nil
}
