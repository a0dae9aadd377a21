package main

import (
	"strings"
	"testing"
)

func TestRenderTableAlignsColumns(t *testing.T) {
	out := renderTable([]string{"Sector", "Kind"}, [][]string{{"8", "missing_input"}, {"65536", "internal"}}, []columnAlignment{alignRight, alignLeft})
	requireContains(t, out, "SECTOR")
	requireContains(t, out, "missing_input")
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty table for no headers")
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"Sector", "Kind", "Error"}, [][]string{{"8"}}, nil)
	if strings.Contains(out, "<nil>") {
		t.Fatalf("short row rendered a nil cell:\n%s", out)
	}
	requireContains(t, out, "ERROR")
	requireContains(t, out, "8")
}

func TestStatusLabel(t *testing.T) {
	cases := map[string]string{
		"completed": "Completed",
		"partial":   "Partial",
		"":          "Unknown",
	}
	for in, want := range cases {
		if got := statusLabel(in); got != want {
			t.Fatalf("statusLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
