package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"flipscan/internal/services"
)

func TestWrapIncludesSectorAndMarker(t *testing.T) {
	base := errors.New("open data-5000-0.csv: no such file")
	err := services.Wrap(services.ErrMissingInput, "0", "read pre", "", base)
	if !errors.Is(err, services.ErrMissingInput) {
		t.Fatalf("expected missing input marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatal("expected wrapped cause to be preserved")
	}
	if !strings.Contains(err.Error(), "sector 0: read pre") {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrMissingInput, "0", "read", "", nil), services.KindMissingInput},
		{services.Wrap(services.ErrMalformedInput, "0", "read", "bad row", nil), services.KindMalformedInput},
		{services.Wrap(services.ErrSerialization, "0", "write", "", nil), services.KindSerialization},
		{fmt.Errorf("wrapped: %w", context.Canceled), services.KindCanceled},
		{errors.New("boom"), services.KindInternal},
	}
	for _, tc := range cases {
		if got := services.Kind(tc.err); got != tc.want {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestIsInputError(t *testing.T) {
	if !services.IsInputError(services.Wrap(services.ErrMalformedInput, "", "", "x", nil)) {
		t.Fatal("expected malformed input to be an input error")
	}
	if services.IsInputError(services.Wrap(services.ErrSerialization, "", "", "x", nil)) {
		t.Fatal("serialization failure is not an input error")
	}
}
