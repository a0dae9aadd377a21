package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingInput   = errors.New("missing input")
	ErrMalformedInput = errors.New("malformed input")
	ErrSerialization  = errors.New("serialization error")
	ErrConfiguration  = errors.New("configuration error")
	ErrCanceled       = errors.New("canceled")
)

// Kind values recorded in the run manifest.
const (
	KindMissingInput   = "missing_input"
	KindMalformedInput = "malformed_input"
	KindSerialization  = "serialization"
	KindConfiguration  = "configuration"
	KindCanceled       = "canceled"
	KindInternal       = "internal"
)

// Wrap builds an error message that includes sector context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, sector, operation, message string, err error) error {
	detail := buildDetail(sector, operation, message)
	if marker == nil {
		marker = ErrSerialization
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind maps an error to the failure category persisted alongside a sector
// result.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingInput):
		return KindMissingInput
	case errors.Is(err, ErrMalformedInput):
		return KindMalformedInput
	case errors.Is(err, ErrSerialization):
		return KindSerialization
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrCanceled), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindInternal
	}
}

// IsInputError reports whether err stems from missing or malformed readout
// files, which usually means the upstream collection run was incomplete.
func IsInputError(err error) bool {
	return errors.Is(err, ErrMissingInput) || errors.Is(err, ErrMalformedInput)
}

func buildDetail(sector, operation, message string) string {
	parts := make([]string, 0, 3)
	if sector = strings.TrimSpace(sector); sector != "" {
		parts = append(parts, "sector "+sector)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "sector failure"
	}
	return strings.Join(parts, ": ")
}
