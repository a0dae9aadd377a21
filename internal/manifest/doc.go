// Package manifest records conversion runs and their per-sector outcomes in
// a SQLite database stored alongside the artifacts.
//
// Each run gets a row in runs; every sector result of that run is upserted
// into sector_results. The manifest answers "what happened last time" for
// the runs command and drives --retry-failed, which reprocesses only the
// sectors that failed or were skipped in the latest run.
//
// The schema is versioned like a fresh database: a version mismatch fails
// Open with ErrSchemaMismatch rather than migrating in place. Writes retry
// with backoff on SQLITE_BUSY.
package manifest
