package manifest

import "time"

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	// RunPartial marks a run that finished with failed or skipped sectors.
	RunPartial  RunStatus = "partial"
	RunCanceled RunStatus = "canceled"
)

// Sector result statuses as stored in sector_results.status.
const (
	SectorSucceeded = "succeeded"
	SectorFailed    = "failed"
	SectorSkipped   = "skipped"
)

// Run is one row of the runs table.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	PreDir     string
	PostDir    string
	Total      int
	Succeeded  int
	Failed     int
	Skipped    int
	Status     RunStatus
}

// Counts summarizes sector outcomes for FinishRun.
type Counts struct {
	Succeeded int
	Failed    int
	Skipped   int
}

// SectorRecord is one row of the sector_results table.
type SectorRecord struct {
	RunID     string
	Sector    uint64
	Status    string
	Error     string
	ErrorKind string
	PrePath   string
	PostPath  string
	DiffPath  string
	Bytes     int64
	Duration  time.Duration
}
