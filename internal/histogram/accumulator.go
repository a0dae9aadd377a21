package histogram

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"sync"

	"flipscan/internal/artifact"
	"flipscan/internal/config"
	"flipscan/internal/flipmap"
	"flipscan/internal/geometry"
	"flipscan/internal/logging"
	"flipscan/internal/services"
	"flipscan/internal/workspace"
)

// Series names as written to the CSV output.
const (
	SeriesPre  = "pre"
	SeriesPost = "post"
	SeriesDiff = "diff"
)

// Set holds the three histograms of a run plus bookkeeping counters.
type Set struct {
	Pre        *Histogram
	Post       *Histogram
	Diff       *Histogram
	Sectors    int
	BadSkipped int
	Missing    []geometry.SectorID
	Filtered   int64
	Unobserved int64
}

func newSet(cfg config.Histogram) (*Set, error) {
	pre, err := New(SeriesPre, cfg.ValueBins, float64(cfg.ValueMin), float64(cfg.ValueMax))
	if err != nil {
		return nil, err
	}
	post, err := New(SeriesPost, cfg.ValueBins, float64(cfg.ValueMin), float64(cfg.ValueMax))
	if err != nil {
		return nil, err
	}
	diff, err := New(SeriesDiff, cfg.DiffBins, float64(cfg.DiffMin), float64(cfg.DiffMax))
	if err != nil {
		return nil, err
	}
	return &Set{Pre: pre, Post: post, Diff: diff}, nil
}

// Series returns the histograms in output order.
func (s *Set) Series() []*Histogram {
	return []*Histogram{s.Pre, s.Post, s.Diff}
}

func (s *Set) merge(other *Set) error {
	for i, h := range s.Series() {
		if err := h.Merge(other.Series()[i]); err != nil {
			return err
		}
	}
	s.Sectors += other.Sectors
	s.Filtered += other.Filtered
	s.Unobserved += other.Unobserved
	return nil
}

// ProgressFunc is called after each sector with the number of sectors done.
type ProgressFunc func(done, total int)

// Accumulator fills histograms from a workspace.
type Accumulator struct {
	ws      *workspace.Workspace
	cfg     config.Histogram
	workers int
	bad     map[geometry.SectorID]struct{}
	logger  *slog.Logger
}

// Option configures an Accumulator.
type Option func(*Accumulator)

// WithFilter overrides the configured band filter toggle.
func WithFilter(enabled bool) Option {
	return func(a *Accumulator) { a.cfg.Filter = enabled }
}

// NewAccumulator returns an accumulator reading artifacts from ws.
func NewAccumulator(cfg *config.Config, ws *workspace.Workspace, logger *slog.Logger, opts ...Option) *Accumulator {
	if logger == nil {
		logger = logging.NewNop()
	}
	a := &Accumulator{
		ws:      ws,
		cfg:     cfg.Histogram,
		workers: cfg.WorkerCount(),
		bad:     make(map[geometry.SectorID]struct{}, len(cfg.Histogram.BadSectors)),
		logger:  logging.NewComponentLogger(logger, "histogram"),
	}
	for _, id := range cfg.Histogram.BadSectors {
		a.bad[geometry.SectorID(id)] = struct{}{}
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run accumulates every sector not listed as bad. Sectors whose artifacts are
// missing are skipped and listed in Set.Missing.
func (a *Accumulator) Run(ctx context.Context, sectors []geometry.SectorID, progress ProgressFunc) (*Set, error) {
	total, err := newSet(a.cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", services.ErrConfiguration, err)
	}

	var work []geometry.SectorID
	for _, id := range sectors {
		if _, skip := a.bad[id]; skip {
			total.BadSkipped++
			continue
		}
		work = append(work, id)
	}

	workers := a.workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(work) && len(work) > 0 {
		workers = len(work)
	}

	type outcome struct {
		id      geometry.SectorID
		missing bool
		err     error
	}
	jobs := make(chan geometry.SectorID)
	outcomes := make(chan outcome)
	locals := make([]*Set, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		local, err := newSet(a.cfg)
		if err != nil {
			return nil, err
		}
		locals[w] = local
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				missing, err := a.fillSector(local, id)
				outcomes <- outcome{id: id, missing: missing, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, id := range work {
			select {
			case jobs <- id:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	var firstErr error
	done := 0
	for out := range outcomes {
		done++
		switch {
		case out.err != nil:
			if firstErr == nil {
				firstErr = out.err
			}
		case out.missing:
			total.Missing = append(total.Missing, out.id)
			logging.WarnWithContext(a.logger, "artifacts missing; sector skipped", "histogram_sector_missing",
				logging.Sector(uint64(out.id)),
				logging.String(logging.FieldErrorHint, "rerun convert with --retry-failed"),
				logging.String(logging.FieldImpact, "sector is excluded from the histogram"),
			)
		}
		if progress != nil {
			progress(done, len(work))
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if firstErr != nil {
		return nil, firstErr
	}

	for _, local := range locals {
		if err := total.merge(local); err != nil {
			return nil, err
		}
	}
	return total, nil
}

func (a *Accumulator) fillSector(set *Set, id geometry.SectorID) (bool, error) {
	label := strconv.FormatUint(uint64(id), 10)
	pre, err := artifact.LoadKind(a.ws.ArtifactPath(artifact.KindPre, id), artifact.KindPre)
	if err != nil {
		return loadFailure(label, "load pre", err)
	}
	post, err := artifact.LoadKind(a.ws.ArtifactPath(artifact.KindPost, id), artifact.KindPost)
	if err != nil {
		return loadFailure(label, "load post", err)
	}
	if !pre.SameShape(post) {
		return false, services.Wrap(services.ErrConfiguration, label, "compare",
			fmt.Sprintf("pre is %dx%d but post is %dx%d", pre.Cells, pre.Bits, post.Cells, post.Bits), nil)
	}

	for i, p := range pre.Values {
		q := post.Values[i]
		if a.cfg.SkipUnobserved && flipmap.Classify(p, q) == flipmap.Unobserved {
			set.Unobserved++
			continue
		}
		if a.cfg.Filter && a.outsideBand(p, q) {
			set.Filtered++
			continue
		}
		set.Pre.Fill(p)
		set.Post.Fill(q)
		set.Diff.Fill(q - p)
	}
	set.Sectors++
	return false, nil
}

func (a *Accumulator) outsideBand(pre, post int32) bool {
	return pre >= int32(a.cfg.PreOverflow) ||
		pre <= int32(a.cfg.PreUnderflow) ||
		post <= int32(a.cfg.PostUnderflow) ||
		post >= int32(a.cfg.PostOverflow)
}

func loadFailure(label, op string, err error) (bool, error) {
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	return false, services.Wrap(services.ErrMalformedInput, label, op, "", err)
}
