package dispatch

import (
	"log/slog"
	"runtime"

	"flipscan/internal/geometry"
	"flipscan/internal/sector"
)

// Progress describes one completed sector.
type Progress struct {
	Completed int
	Total     int
	Sector    geometry.SectorID
	Status    sector.Status
}

// ProgressFunc receives progress updates from the collecting goroutine only,
// so implementations need no locking.
type ProgressFunc func(Progress)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithWorkers sets the pool size; n <= 0 uses runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n <= 0 {
			n = runtime.NumCPU()
		}
		d.workers = n
	}
}

// WithStopOnFailure stops submitting new sectors after the first failure.
func WithStopOnFailure(enabled bool) Option {
	return func(d *Dispatcher) {
		d.stopOnFailure = enabled
	}
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(d *Dispatcher) {
		d.progress = fn
	}
}

// WithRecorder persists the run and each sector result.
func WithRecorder(r Recorder, inputs sector.Inputs) Option {
	return func(d *Dispatcher) {
		d.recorder = r
		d.inputs = inputs
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}
