// Package dispatch runs the sector processor across many sectors with a
// fixed-size worker pool.
//
// A feeder goroutine submits one task per sector; workers send results back
// to the collecting goroutine, which records them in the run manifest and
// reports progress. When the context is canceled, or when StopOnFailure is
// set and a sector fails, the feeder stops submitting: in-flight sectors
// drain and every sector that was never submitted is reported as skipped.
// Failures stay isolated to their sector and never stop the pool on their
// own.
package dispatch
