package sector

import (
	"time"

	"flipscan/internal/geometry"
	"flipscan/internal/services"
)

// Status is the terminal state of one sector in a run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Paths holds the artifact locations of a sector.
type Paths struct {
	Pre  string
	Post string
	Diff string
}

// Result reports the outcome of processing one sector.
type Result struct {
	Sector   geometry.SectorID
	Status   Status
	Paths    Paths
	Bytes    int64
	Duration time.Duration
	Err      error
}

// ErrorKind classifies Err for persistence.
func (r Result) ErrorKind() string {
	return services.Kind(r.Err)
}

// Skipped builds the result for a sector that was never started.
func Skipped(id geometry.SectorID, cause error) Result {
	return Result{
		Sector: id,
		Status: StatusSkipped,
		Err:    services.Wrap(services.ErrCanceled, formatSector(id), "", "not processed", cause),
	}
}
