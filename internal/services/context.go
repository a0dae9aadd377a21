package services

import (
	"context"
	"errors"
)

type contextKey string

const (
	sectorKey    contextKey = "sector"
	conditionKey contextKey = "condition"
	runIDKey     contextKey = "run_id"
)

// WithSector annotates context with the sector start address.
func WithSector(ctx context.Context, sector uint64) context.Context {
	return context.WithValue(ctx, sectorKey, sector)
}

// SectorFromContext extracts the sector start address if present.
func SectorFromContext(ctx context.Context) (uint64, bool) {
	v, ok := ctx.Value(sectorKey).(uint64)
	return v, ok
}

// WithCondition annotates context with the exposure condition (pre/post).
func WithCondition(ctx context.Context, condition string) context.Context {
	if condition == "" {
		return ctx
	}
	return context.WithValue(ctx, conditionKey, condition)
}

// ConditionFromContext returns the exposure condition if present.
func ConditionFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(conditionKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRunID annotates context with the conversion run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// Canceled reports whether err is a context cancellation or deadline.
func Canceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrCanceled)
}
