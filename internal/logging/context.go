package logging

import (
	"context"
	"log/slog"

	"flipscan/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldSector is the standardized key for sector start addresses.
	FieldSector = "sector"
	// FieldCondition is the standardized key for the exposure condition (pre/post).
	FieldCondition = "condition"
	// FieldRunID is the standardized key for conversion run identifiers.
	FieldRunID = "run_id"
	// FieldEventType classifies a record for filtering (e.g. sector_failed).
	FieldEventType = "event_type"
	// FieldErrorHint carries the operator's next step for a warning or error.
	FieldErrorHint = "error_hint"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if rid, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, rid))
	}
	if sector, ok := services.SectorFromContext(ctx); ok {
		fields = append(fields, slog.Uint64(FieldSector, sector))
	}
	if cond, ok := services.ConditionFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCondition, cond))
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
	return logger.With(attrsToArgs(fields)...)
}
