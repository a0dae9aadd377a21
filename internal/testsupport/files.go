package testsupport

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"

	"flipscan/internal/geometry"
	"flipscan/internal/readout"
)

// FirstFlipFunc returns the voltage at which a bit first reads set, or 0 when
// it never sets.
type FirstFlipFunc func(cell, bit int) int

// NeverSet is a FirstFlipFunc for a sector whose bits all read '0'.
func NeverSet(int, int) int { return 0 }

// WriteSweep writes one readout file per sweep voltage for sector under dir.
// A bit reads '1' at voltage v when first(cell, bit) is nonzero and v >= first.
func WriteSweep(t testing.TB, dir string, layout geometry.Layout, sweep geometry.Sweep, sector geometry.SectorID, first FirstFlipFunc) {
	t.Helper()

	for _, v := range sweep.Voltages() {
		voltage := v
		WriteReadout(t, dir, layout, voltage, sector, func(cell, bit int) bool {
			f := first(cell, bit)
			return f != 0 && voltage >= f
		})
	}
}

// WriteReadout writes a single well-formed readout file with bits chosen by set.
func WriteReadout(t testing.TB, dir string, layout geometry.Layout, voltage int, sector geometry.SectorID, set func(cell, bit int) bool) {
	t.Helper()

	path := readout.FileName(dir, voltage, sector)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	w := bufio.NewWriterSize(f, 256*1024)
	row := make([]byte, layout.BitsPerCell+1)
	row[layout.BitsPerCell] = '\n'
	for cell := 0; cell < layout.CellsPerSector; cell++ {
		for bit := 0; bit < layout.BitsPerCell; bit++ {
			row[bit] = '0'
			if set(cell, bit) {
				row[bit] = '1'
			}
		}
		if _, err := w.Write(row); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush %s: %v", path, err)
	}
}

// WriteRaw writes content verbatim as the readout file for (voltage, sector).
func WriteRaw(t testing.TB, dir string, voltage int, sector geometry.SectorID, content string) {
	t.Helper()

	path := readout.FileName(dir, voltage, sector)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
