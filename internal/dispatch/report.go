package dispatch

import (
	"time"

	"flipscan/internal/manifest"
	"flipscan/internal/sector"
)

// Report collects every sector result of a run in submission order.
type Report struct {
	RunID     string
	Results   []sector.Result
	Succeeded int
	Failed    int
	Skipped   int
	Bytes     int64
	Duration  time.Duration
	Canceled  bool
}

// Total returns the number of sectors in the run.
func (r *Report) Total() int { return len(r.Results) }

// Failures returns the failed results.
func (r *Report) Failures() []sector.Result {
	var out []sector.Result
	for _, res := range r.Results {
		if res.Status == sector.StatusFailed {
			out = append(out, res)
		}
	}
	return out
}

// Status maps the report to the manifest run status.
func (r *Report) Status() manifest.RunStatus {
	switch {
	case r.Canceled:
		return manifest.RunCanceled
	case r.Failed > 0 || r.Skipped > 0:
		return manifest.RunPartial
	default:
		return manifest.RunCompleted
	}
}

func (r *Report) counts() manifest.Counts {
	return manifest.Counts{Succeeded: r.Succeeded, Failed: r.Failed, Skipped: r.Skipped}
}

func (r *Report) add(res sector.Result) {
	switch res.Status {
	case sector.StatusSucceeded:
		r.Succeeded++
		r.Bytes += res.Bytes
	case sector.StatusFailed:
		r.Failed++
	default:
		r.Skipped++
	}
}
