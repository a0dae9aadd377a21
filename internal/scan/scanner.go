package scan

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"flipscan/internal/artifact"
	"flipscan/internal/config"
	"flipscan/internal/fileutil"
	"flipscan/internal/geometry"
	"flipscan/internal/logging"
	"flipscan/internal/services"
	"flipscan/internal/workspace"
)

// Row is the flip count of one sector.
type Row struct {
	Sector geometry.SectorID
	Flips  int
}

// Result holds the rows of a scan in sector order and the sectors whose diff
// artifact was absent.
type Result struct {
	Rows    []Row
	Missing []geometry.SectorID
}

// TotalFlips sums the flip counts of every row.
func (r *Result) TotalFlips() int {
	total := 0
	for _, row := range r.Rows {
		total += row.Flips
	}
	return total
}

// Scanner reads diff artifacts from a workspace.
type Scanner struct {
	ws        *workspace.Workspace
	threshold int32
	workers   int
	strict    bool
	logger    *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithThreshold overrides the configured threshold.
func WithThreshold(mv int) Option {
	return func(s *Scanner) { s.threshold = int32(mv) }
}

// WithStrict makes a missing diff artifact fatal.
func WithStrict(strict bool) Option {
	return func(s *Scanner) { s.strict = strict }
}

// NewScanner returns a scanner over ws using cfg's threshold and worker count.
func NewScanner(cfg *config.Config, ws *workspace.Workspace, logger *slog.Logger, opts ...Option) *Scanner {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Scanner{
		ws:        ws,
		threshold: int32(cfg.Scan.ThresholdMV),
		workers:   cfg.WorkerCount(),
		logger:    logging.NewComponentLogger(logger, "scanner"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Threshold returns the effective threshold in mV.
func (s *Scanner) Threshold() int { return int(s.threshold) }

type entry struct {
	flips   int
	missing bool
	err     error
}

// Scan counts flips for every sector.
func (s *Scanner) Scan(ctx context.Context, sectors []geometry.SectorID) (*Result, error) {
	entries := make([]entry, len(sectors))

	workers := s.workers
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, id := range sectors {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			entries[i] = s.count(id)
		}()
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{Rows: make([]Row, 0, len(sectors))}
	for i, id := range sectors {
		e := entries[i]
		switch {
		case e.err != nil:
			return nil, e.err
		case e.missing:
			if s.strict {
				return nil, services.Wrap(services.ErrMissingInput, strconv.FormatUint(uint64(id), 10), "scan",
					"diff artifact not found", nil)
			}
			logging.WarnWithContext(s.logger, "diff artifact missing; sector skipped", "scan_sector_missing",
				logging.Sector(uint64(id)),
				logging.String(logging.FieldErrorHint, "rerun convert with --retry-failed"),
				logging.String(logging.FieldImpact, "sector is excluded from the scan"),
			)
			result.Missing = append(result.Missing, id)
		default:
			result.Rows = append(result.Rows, Row{Sector: id, Flips: e.flips})
			s.logger.Debug("sector scanned", logging.Sector(uint64(id)), logging.Int("bit_flips", e.flips))
		}
	}
	return result, nil
}

func (s *Scanner) count(id geometry.SectorID) entry {
	path := s.ws.ArtifactPath(artifact.KindDiff, id)
	m, err := artifact.LoadKind(path, artifact.KindDiff)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return entry{missing: true}
		}
		return entry{err: services.Wrap(services.ErrMalformedInput, strconv.FormatUint(uint64(id), 10), "load diff", "", err)}
	}
	return entry{flips: m.CountBelow(s.threshold)}
}

// ValidateOutputPath requires a .csv extension, compared case-insensitively.
func ValidateOutputPath(path string) error {
	if !strings.EqualFold(filepath.Ext(strings.TrimSpace(path)), ".csv") {
		return fmt.Errorf("%w: output file must be of type '.csv': %q", services.ErrConfiguration, path)
	}
	return nil
}

// WriteCSV writes the header row followed by one row per sector.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"sector", "bit flips"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write([]string{
			strconv.FormatUint(uint64(row.Sector), 10),
			strconv.Itoa(row.Flips),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile atomically replaces path with the CSV rendering of rows.
func WriteFile(path string, rows []Row) error {
	if err := ValidateOutputPath(path); err != nil {
		return err
	}
	if err := fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return WriteCSV(w, rows)
	}); err != nil {
		return fmt.Errorf("%w: write %s: %w", services.ErrSerialization, path, err)
	}
	return nil
}
