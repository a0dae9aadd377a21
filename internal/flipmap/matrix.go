// Package flipmap holds the per-sector first-flip voltage matrix and the
// elementwise operations applied to it.
package flipmap

import (
	"errors"
	"fmt"
)

// Unset marks a bit that never read as set during a sweep.
const Unset int32 = 0

// Matrix is a cells x bits grid of voltages stored row-major.
type Matrix struct {
	Cells  int
	Bits   int
	Values []int32
}

// New returns a zeroed matrix.
func New(cells, bits int) *Matrix {
	return &Matrix{Cells: cells, Bits: bits, Values: make([]int32, cells*bits)}
}

// At returns the value at [cell, bit].
func (m *Matrix) At(cell, bit int) int32 {
	return m.Values[cell*m.Bits+bit]
}

// Set stores v at [cell, bit].
func (m *Matrix) Set(cell, bit int, v int32) {
	m.Values[cell*m.Bits+bit] = v
}

// MarkFirst records v at [cell, bit] unless a voltage is already recorded
// there. It reports whether the entry changed.
func (m *Matrix) MarkFirst(cell, bit int, v int32) bool {
	idx := cell*m.Bits + bit
	if m.Values[idx] != Unset {
		return false
	}
	m.Values[idx] = v
	return true
}

// SameShape reports whether m and other have identical dimensions.
func (m *Matrix) SameShape(other *Matrix) bool {
	return m != nil && other != nil && m.Cells == other.Cells && m.Bits == other.Bits
}

// Validate checks that the backing slice matches the declared shape.
func (m *Matrix) Validate() error {
	if m == nil {
		return errors.New("flipmap: nil matrix")
	}
	if m.Cells <= 0 || m.Bits <= 0 {
		return fmt.Errorf("flipmap: invalid shape %dx%d", m.Cells, m.Bits)
	}
	if len(m.Values) != m.Cells*m.Bits {
		return fmt.Errorf("flipmap: %d values for shape %dx%d", len(m.Values), m.Cells, m.Bits)
	}
	return nil
}

// CountSet returns the number of entries holding a recorded voltage.
func (m *Matrix) CountSet() int {
	n := 0
	for _, v := range m.Values {
		if v != Unset {
			n++
		}
	}
	return n
}

// CountBelow returns the number of entries strictly less than threshold.
func (m *Matrix) CountBelow(threshold int32) int {
	n := 0
	for _, v := range m.Values {
		if v < threshold {
			n++
		}
	}
	return n
}

// Diff returns post - pre elementwise.
func Diff(pre, post *Matrix) (*Matrix, error) {
	if !pre.SameShape(post) {
		return nil, shapeError(pre, post)
	}
	out := New(pre.Cells, pre.Bits)
	for i := range out.Values {
		out.Values[i] = post.Values[i] - pre.Values[i]
	}
	return out, nil
}

func shapeError(pre, post *Matrix) error {
	if pre == nil || post == nil {
		return errors.New("flipmap: nil matrix")
	}
	return fmt.Errorf("flipmap: shape mismatch %dx%d vs %dx%d", pre.Cells, pre.Bits, post.Cells, post.Bits)
}
