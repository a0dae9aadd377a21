package histogram

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"flipscan/internal/fileutil"
	"flipscan/internal/services"
)

func formatEdge(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteCSV writes one row per bin for every series, preceded by an underflow
// row and followed by an overflow row.
func WriteCSV(w io.Writer, set *Set) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"series", "bin_low", "bin_high", "count"}); err != nil {
		return err
	}
	for _, h := range set.Series() {
		rows := make([][]string, 0, h.Bins()+2)
		rows = append(rows, []string{h.Name, "-inf", formatEdge(h.Min), strconv.FormatInt(h.Underflow, 10)})
		for i, c := range h.Counts {
			rows = append(rows, []string{h.Name, formatEdge(h.BinLow(i)), formatEdge(h.BinHigh(i)), strconv.FormatInt(c, 10)})
		}
		rows = append(rows, []string{h.Name, formatEdge(h.Max), "+inf", strconv.FormatInt(h.Overflow, 10)})
		if err := cw.WriteAll(rows); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile atomically replaces path with the CSV rendering of set.
func WriteFile(path string, set *Set) error {
	if err := fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return WriteCSV(w, set)
	}); err != nil {
		return fmt.Errorf("%w: write %s: %w", services.ErrSerialization, path, err)
	}
	return nil
}
