package histogram

import (
	"fmt"
	"math"
)

// Histogram is a fixed-width binned counter over [Min, Max).
type Histogram struct {
	Name      string
	Min       float64
	Max       float64
	Counts    []int64
	Underflow int64
	Overflow  int64
	sum       int64
}

// New returns an empty histogram with bins equal-width bins over [min, max).
func New(name string, bins int, min, max float64) (*Histogram, error) {
	if bins <= 0 || !(max > min) {
		return nil, fmt.Errorf("histogram %s: invalid binning %d over [%g, %g)", name, bins, min, max)
	}
	return &Histogram{Name: name, Min: min, Max: max, Counts: make([]int64, bins)}, nil
}

// Bins returns the number of in-range bins.
func (h *Histogram) Bins() int { return len(h.Counts) }

// Width returns the bin width.
func (h *Histogram) Width() float64 { return (h.Max - h.Min) / float64(len(h.Counts)) }

// BinLow returns the inclusive lower edge of bin i.
func (h *Histogram) BinLow(i int) float64 { return h.Min + float64(i)*h.Width() }

// BinHigh returns the exclusive upper edge of bin i.
func (h *Histogram) BinHigh(i int) float64 { return h.Min + float64(i+1)*h.Width() }

// Fill counts one value.
func (h *Histogram) Fill(v int32) {
	h.sum += int64(v)
	x := float64(v)
	switch {
	case x < h.Min:
		h.Underflow++
	case x >= h.Max:
		h.Overflow++
	default:
		bin := int(math.Floor((x - h.Min) / h.Width()))
		if bin >= len(h.Counts) {
			bin = len(h.Counts) - 1
		}
		h.Counts[bin]++
	}
}

// Entries returns every filled value, including under- and overflow.
func (h *Histogram) Entries() int64 {
	n := h.Underflow + h.Overflow
	for _, c := range h.Counts {
		n += c
	}
	return n
}

// Mean returns the mean of every filled value, or 0 when empty.
func (h *Histogram) Mean() float64 {
	n := h.Entries()
	if n == 0 {
		return 0
	}
	return float64(h.sum) / float64(n)
}

// Merge adds other's counts into h. Both must share the same binning.
func (h *Histogram) Merge(other *Histogram) error {
	if other.Min != h.Min || other.Max != h.Max || len(other.Counts) != len(h.Counts) {
		return fmt.Errorf("histogram %s: cannot merge differently binned %s", h.Name, other.Name)
	}
	for i, c := range other.Counts {
		h.Counts[i] += c
	}
	h.Underflow += other.Underflow
	h.Overflow += other.Overflow
	h.sum += other.sum
	return nil
}
