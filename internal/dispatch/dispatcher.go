package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"flipscan/internal/geometry"
	"flipscan/internal/logging"
	"flipscan/internal/manifest"
	"flipscan/internal/sector"
	"flipscan/internal/services"
)

// ErrStopped is the skip cause for sectors left unsubmitted after a failure
// with StopOnFailure enabled.
var ErrStopped = errors.New("run stopped after a sector failure")

// Processor converts one sector.
type Processor interface {
	Process(ctx context.Context, id geometry.SectorID) sector.Result
}

// Recorder persists run progress. *manifest.Store implements it.
type Recorder interface {
	BeginRun(ctx context.Context, run manifest.Run) error
	RecordSector(ctx context.Context, rec manifest.SectorRecord) error
	FinishRun(ctx context.Context, id string, counts manifest.Counts, status manifest.RunStatus) error
}

// Dispatcher fans sectors out to a worker pool.
type Dispatcher struct {
	proc          Processor
	workers       int
	stopOnFailure bool
	progress      ProgressFunc
	recorder      Recorder
	inputs        sector.Inputs
	logger        *slog.Logger
}

// New returns a dispatcher driving proc.
func New(proc Processor, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		proc:    proc,
		workers: runtime.NumCPU(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.NewComponentLogger(d.logger, "dispatcher")
	return d
}

type job struct {
	idx int
	id  geometry.SectorID
}

type outcome struct {
	idx int
	res sector.Result
}

// Run processes every sector and returns the collected report. Sector
// failures are reported in the Report, not as an error; the error is
// non-nil only when the sector list is invalid or the manifest could not be
// written.
func (d *Dispatcher) Run(ctx context.Context, sectors []geometry.SectorID) (*Report, error) {
	if err := checkUnique(sectors); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	// Manifest writes must land even after ctx is canceled.
	recordCtx := context.WithoutCancel(ctx)
	logger := logging.WithContext(ctx, d.logger)

	total := len(sectors)
	report := &Report{RunID: runID, Results: make([]sector.Result, total)}
	if d.recorder != nil {
		err := d.recorder.BeginRun(recordCtx, manifest.Run{
			ID:        runID,
			StartedAt: time.Now(),
			PreDir:    d.inputs.PreDir,
			PostDir:   d.inputs.PostDir,
			Total:     total,
		})
		if err != nil {
			return nil, fmt.Errorf("begin run: %w", err)
		}
	}

	workers := d.workers
	if workers > total {
		workers = total
	}
	if workers < 1 {
		workers = 1
	}
	logger.Info("run started",
		logging.Int("sectors", total),
		logging.Int("workers", workers),
		logging.Bool("stop_on_failure", d.stopOnFailure),
	)
	start := time.Now()

	jobs := make(chan job)
	results := make(chan outcome, workers)
	stop := make(chan struct{})
	var stopOnce sync.Once
	submitted := make([]bool, total)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results <- outcome{idx: j.idx, res: d.proc.Process(ctx, j.id)}
			}
		}()
	}

	feederDone := make(chan struct{})
	go func() {
		defer close(feederDone)
		defer close(jobs)
		for i, id := range sectors {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			default:
			}
			select {
			case jobs <- job{idx: i, id: id}:
				submitted[i] = true
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var recordErrs []error
	completed := 0
	for out := range results {
		report.Results[out.idx] = out.res
		report.add(out.res)
		completed++
		if err := d.record(recordCtx, runID, out.res); err != nil {
			recordErrs = append(recordErrs, err)
		}
		if d.progress != nil {
			d.progress(Progress{Completed: completed, Total: total, Sector: out.res.Sector, Status: out.res.Status})
		}
		if out.res.Status == sector.StatusFailed && d.stopOnFailure {
			stopOnce.Do(func() {
				logger.Warn("stopping run after sector failure",
					logging.Sector(uint64(out.res.Sector)),
					logging.String(logging.FieldEventType, "run_stopping"),
				)
				close(stop)
			})
		}
	}
	<-feederDone

	cause := ctx.Err()
	if cause == nil {
		cause = ErrStopped
	}
	for i, id := range sectors {
		if submitted[i] {
			continue
		}
		res := sector.Skipped(id, cause)
		report.Results[i] = res
		report.add(res)
		if err := d.record(recordCtx, runID, res); err != nil {
			recordErrs = append(recordErrs, err)
		}
	}

	report.Canceled = ctx.Err() != nil
	report.Duration = time.Since(start)
	if d.recorder != nil {
		if err := d.recorder.FinishRun(recordCtx, runID, report.counts(), report.Status()); err != nil {
			recordErrs = append(recordErrs, fmt.Errorf("finish run: %w", err))
		}
	}

	logger.Info("run finished",
		logging.Int("succeeded", report.Succeeded),
		logging.Int("failed", report.Failed),
		logging.Int("skipped", report.Skipped),
		logging.Int64("bytes", report.Bytes),
		logging.Duration("elapsed", report.Duration),
		logging.String("status", string(report.Status())),
	)
	return report, errors.Join(recordErrs...)
}

func (d *Dispatcher) record(ctx context.Context, runID string, res sector.Result) error {
	if d.recorder == nil {
		return nil
	}
	rec := manifest.SectorRecord{
		RunID:     runID,
		Sector:    uint64(res.Sector),
		Status:    string(res.Status),
		ErrorKind: res.ErrorKind(),
		Bytes:     res.Bytes,
		Duration:  res.Duration,
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	if res.Status == sector.StatusSucceeded {
		rec.PrePath = res.Paths.Pre
		rec.PostPath = res.Paths.Post
		rec.DiffPath = res.Paths.Diff
	}
	if err := d.recorder.RecordSector(ctx, rec); err != nil {
		logging.WarnWithContext(d.logger, "failed to record sector result", "manifest_write_failed",
			logging.Sector(uint64(res.Sector)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "artifacts are intact; rerun to rebuild the manifest entry"),
		)
		return fmt.Errorf("record sector %d: %w", res.Sector, err)
	}
	return nil
}

func checkUnique(sectors []geometry.SectorID) error {
	seen := make(map[geometry.SectorID]struct{}, len(sectors))
	for _, id := range sectors {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: sector %d listed more than once", services.ErrConfiguration, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
