package readout

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"flipscan/internal/flipmap"
	"flipscan/internal/geometry"
	"flipscan/internal/logging"
	"flipscan/internal/services"
)

// Condition names an exposure condition.
type Condition string

const (
	Pre  Condition = "pre"
	Post Condition = "post"
)

const readBufferSize = 64 * 1024

// Source locates one condition's readout files.
type Source struct {
	Dir   string
	Sweep geometry.Sweep
}

// FileName returns the readout file path for (voltage, sector) under dir.
func FileName(dir string, voltage int, sector geometry.SectorID) string {
	return filepath.Join(dir, "data-"+strconv.Itoa(voltage)+"-"+strconv.FormatUint(uint64(sector), 10)+".csv")
}

// Reader builds first-flip matrices. It holds no per-sector state and is safe
// for concurrent use.
type Reader struct {
	layout geometry.Layout
	logger *slog.Logger
}

// NewReader constructs a reader for the given geometry.
func NewReader(layout geometry.Layout, logger *slog.Logger) *Reader {
	return &Reader{layout: layout, logger: logging.NewComponentLogger(logger, "reader")}
}

// ReadSector consumes every readout file of src's sweep for sector and
// returns the first-flip matrix. Missing files yield services.ErrMissingInput
// and malformed content services.ErrMalformedInput; both name the file.
// Other I/O failures are returned unclassified.
func (r *Reader) ReadSector(ctx context.Context, cond Condition, sector geometry.SectorID, src Source) (*flipmap.Matrix, error) {
	if err := src.Sweep.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s sweep: %w", services.ErrConfiguration, cond, err)
	}
	ctx = services.WithCondition(services.WithSector(ctx, uint64(sector)), string(cond))
	logger := logging.WithContext(ctx, r.logger)

	start := time.Now()
	m := flipmap.New(r.layout.CellsPerSector, r.layout.BitsPerCell)
	for _, voltage := range src.Sweep.Voltages() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := applyFile(FileName(src.Dir, voltage, sector), int32(voltage), m); err != nil {
			return nil, err
		}
	}
	logger.Debug("sweep consumed",
		logging.Int("files", src.Sweep.Len()),
		logging.Int("bits_set", m.CountSet()),
		logging.Duration("elapsed", time.Since(start)),
	)
	return m, nil
}

// applyFile marks every '1' in the file at voltage unless the bit already has
// an earlier voltage recorded.
func applyFile(path string, voltage int32, m *flipmap.Matrix) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: readout file %s not found", services.ErrMissingInput, path)
		}
		return fmt.Errorf("open readout file: %w", err)
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, readBufferSize)
	bits := m.Bits
	row := 0
	sawBlank := false
	for line := 1; ; line++ {
		raw, readErr := br.ReadSlice('\n')
		if errors.Is(readErr, bufio.ErrBufferFull) {
			return malformed(path, line, "row exceeds %d bytes", readBufferSize)
		}
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("read %s: %w", path, readErr)
		}
		text := bytes.TrimRight(raw, "\r\n")
		if len(text) == 0 {
			if readErr != nil {
				break
			}
			sawBlank = true
			continue
		}
		if sawBlank {
			return malformed(path, line, "row follows a blank line")
		}
		if row >= m.Cells {
			return malformed(path, line, "more than %d rows", m.Cells)
		}
		if len(text) != bits {
			return malformed(path, line, "row has %d columns, want %d", len(text), bits)
		}
		base := row * bits
		for k := 0; k < bits; k++ {
			switch text[k] {
			case '1':
				if m.Values[base+k] == flipmap.Unset {
					m.Values[base+k] = voltage
				}
			case '0':
			default:
				return malformed(path, line, "invalid character %q in column %d", text[k], k+1)
			}
		}
		row++
		if readErr != nil {
			break
		}
	}
	if row != m.Cells {
		return fmt.Errorf("%w: %s: %d rows, want %d", services.ErrMalformedInput, path, row, m.Cells)
	}
	return nil
}

func malformed(path string, line int, format string, args ...any) error {
	return fmt.Errorf("%w: %s:%d: %s", services.ErrMalformedInput, path, line, fmt.Sprintf(format, args...))
}
