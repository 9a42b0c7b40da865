package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldBatchID identifies one reconciliation run.
	FieldBatchID = "batch_id"
	// FieldListingID identifies the listing a log line refers to.
	FieldListingID = "listing_id"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType names the kind of event behind a warning.
	FieldEventType = "event_type"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldAlert flags anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)

type contextKey string

const (
	batchIDKey       contextKey = "batch_id"
	listingIDKey     contextKey = "listing_id"
	correlationIDKey contextKey = "correlation_id"
)

// WithBatchID annotates ctx with a reconciliation batch identifier.
func WithBatchID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, batchIDKey, id)
}

// BatchIDFromContext returns the batch identifier if present.
func BatchIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(batchIDKey).(string)
	return v, ok && v != ""
}

// WithListingID annotates ctx with a listing identifier.
func WithListingID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, listingIDKey, id)
}

// ListingIDFromContext returns the listing identifier if present.
func ListingIDFromContext(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(listingIDKey).(int64)
	return v, ok
}

// WithCorrelationID annotates ctx with a request correlation identifier.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext returns the correlation identifier if present.
func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(correlationIDKey).(string)
	return v, ok && v != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := BatchIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldBatchID, id))
	}
	if id, ok := ListingIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldListingID, id))
	}
	if id, ok := CorrelationIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
