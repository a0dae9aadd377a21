package histogram

import "testing"

func TestFillBinsValues(t *testing.T) {
	h, err := New("pre", 100, -1000, 9000)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		value int32
		bin   int // -1 underflow, -2 overflow
	}{
		{-1001, -1},
		{-1000, 0},
		{0, 10},
		{5099, 60},
		{5100, 61},
		{8999, 99},
		{9000, -2},
	}
	for _, tt := range tests {
		h.Fill(tt.value)
	}
	if h.Underflow != 1 || h.Overflow != 1 {
		t.Fatalf("underflow=%d overflow=%d", h.Underflow, h.Overflow)
	}
	for _, tt := range tests {
		if tt.bin < 0 {
			continue
		}
		if h.Counts[tt.bin] != 1 {
			t.Errorf("value %d: bin %d count = %d", tt.value, tt.bin, h.Counts[tt.bin])
		}
	}
	if h.Entries() != int64(len(tests)) {
		t.Fatalf("entries = %d", h.Entries())
	}
	if h.BinLow(10) != 0 || h.BinHigh(10) != 100 || h.Width() != 100 {
		t.Fatalf("edges: low=%g high=%g width=%g", h.BinLow(10), h.BinHigh(10), h.Width())
	}
}

func TestMean(t *testing.T) {
	h, _ := New("diff", 200, -10000, 10000)
	if h.Mean() != 0 {
		t.Fatal("empty mean should be 0")
	}
	for _, v := range []int32{-1000, -3000, 20000} {
		h.Fill(v)
	}
	if got := h.Mean(); got != 16000.0/3 {
		t.Fatalf("mean = %g", got)
	}
}

func TestNewRejectsBadBinning(t *testing.T) {
	if _, err := New("x", 0, 0, 10); err == nil {
		t.Fatal("expected error for zero bins")
	}
	if _, err := New("x", 10, 5, 5); err == nil {
		t.Fatal("expected error for empty range")
	}
}

func TestMerge(t *testing.T) {
	a, _ := New("a", 10, 0, 100)
	b, _ := New("b", 10, 0, 100)
	a.Fill(5)
	b.Fill(5)
	b.Fill(-1)
	b.Fill(100)
	if err := a.Merge(b); err != nil {
		t.Fatal(err)
	}
	if a.Counts[0] != 2 || a.Underflow != 1 || a.Overflow != 1 {
		t.Fatalf("merged = %+v", a)
	}

	c, _ := New("c", 20, 0, 100)
	if err := a.Merge(c); err == nil {
		t.Fatal("expected error merging different binning")
	}
}
