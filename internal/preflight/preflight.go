package preflight

import (
	"fmt"
	"strings"

	"flipscan/internal/artifact"
	"flipscan/internal/config"
	"flipscan/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Request describes the conversion being checked.
type Request struct {
	PreDir  string
	PostDir string
	Dest    string
	Sectors int
}

// RunAll executes every conversion check for req.
func RunAll(cfg *config.Config, req Request) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckReadableDir("Pre readout directory", req.PreDir),
		CheckReadableDir("Post readout directory", req.PostDir),
		CheckDestination("Destination", req.Dest),
	}

	compression, err := artifact.ParseCompression(cfg.Output.Compression)
	if err != nil {
		results = append(results, Result{Name: "Compression", Detail: err.Error()})
		return results
	}
	need := EstimateArtifactBytes(cfg.Geometry, req.Sectors, compression)
	results = append(results, CheckFreeSpace("Free space", req.Dest, need))
	return results
}

// Err returns a configuration error naming every failed check, or nil.
func Err(results []Result) error {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("%w: preflight failed: %s", services.ErrConfiguration, strings.Join(failed, "; "))
}
