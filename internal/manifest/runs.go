package manifest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const runColumns = "id, started_at, finished_at, pre_dir, post_dir, total, succeeded, failed, skipped, status"

// BeginRun inserts a running run.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	return s.execWithRetry(ctx,
		`INSERT INTO runs (id, started_at, pre_dir, post_dir, total, status) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, formatTime(run.StartedAt), run.PreDir, run.PostDir, run.Total, string(RunRunning),
	)
}

// RecordSector upserts the result of one sector.
func (s *Store) RecordSector(ctx context.Context, rec SectorRecord) error {
	return s.execWithRetry(ctx,
		`INSERT INTO sector_results (run_id, sector, status, error, error_kind, pre_path, post_path, diff_path, bytes, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id, sector) DO UPDATE SET
		   status = excluded.status,
		   error = excluded.error,
		   error_kind = excluded.error_kind,
		   pre_path = excluded.pre_path,
		   post_path = excluded.post_path,
		   diff_path = excluded.diff_path,
		   bytes = excluded.bytes,
		   duration_ms = excluded.duration_ms`,
		rec.RunID, int64(rec.Sector), rec.Status,
		nullableString(rec.Error), nullableString(rec.ErrorKind),
		nullableString(rec.PrePath), nullableString(rec.PostPath), nullableString(rec.DiffPath),
		rec.Bytes, rec.Duration.Milliseconds(),
	)
}

// FinishRun stores the final counts and status of a run.
func (s *Store) FinishRun(ctx context.Context, id string, counts Counts, status RunStatus) error {
	return s.execWithRetry(ctx,
		`UPDATE runs SET finished_at = ?, succeeded = ?, failed = ?, skipped = ?, status = ? WHERE id = ?`,
		formatTime(time.Now()), counts.Succeeded, counts.Failed, counts.Skipped, string(status), id,
	)
}

// LatestRun returns the most recently started run, or nil when none exist.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		"SELECT "+runColumns+" FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1")
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

// Runs lists runs newest first. A limit of zero or less returns every run.
func (s *Store) Runs(ctx context.Context, limit int) ([]*Run, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, rowid DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SectorResults returns the sector rows of a run ordered by sector,
// optionally restricted to the given statuses.
func (s *Store) SectorResults(ctx context.Context, runID string, statuses ...string) ([]*SectorRecord, error) {
	ctx = ensureContext(ctx)
	query := `SELECT run_id, sector, status, error, error_kind, pre_path, post_path, diff_path, bytes, duration_ms
		FROM sector_results WHERE run_id = ?`
	args := []any{runID}
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		query += " AND status IN (" + strings.Join(placeholders, ",") + ")"
	}
	query += " ORDER BY sector"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sector results: %w", err)
	}
	defer rows.Close()

	var records []*SectorRecord
	for rows.Next() {
		var (
			rec        SectorRecord
			sector     int64
			errMsg     sql.NullString
			errKind    sql.NullString
			prePath    sql.NullString
			postPath   sql.NullString
			diffPath   sql.NullString
			durationMS int64
		)
		if err := rows.Scan(&rec.RunID, &sector, &rec.Status, &errMsg, &errKind,
			&prePath, &postPath, &diffPath, &rec.Bytes, &durationMS); err != nil {
			return nil, err
		}
		rec.Sector = uint64(sector)
		rec.Error = errMsg.String
		rec.ErrorKind = errKind.String
		rec.PrePath = prePath.String
		rec.PostPath = postPath.String
		rec.DiffPath = diffPath.String
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// RetrySectors returns the sectors that failed or were skipped in the latest
// run. The run is nil when the manifest is empty.
func (s *Store) RetrySectors(ctx context.Context) (*Run, []uint64, error) {
	run, err := s.LatestRun(ctx)
	if err != nil || run == nil {
		return run, nil, err
	}
	records, err := s.SectorResults(ctx, run.ID, SectorFailed, SectorSkipped)
	if err != nil {
		return run, nil, err
	}
	sectors := make([]uint64, 0, len(records))
	for _, rec := range records {
		sectors = append(sectors, rec.Sector)
	}
	return run, sectors, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		startedRaw  string
		finishedRaw sql.NullString
		status      string
	)
	if err := scanner.Scan(&run.ID, &startedRaw, &finishedRaw, &run.PreDir, &run.PostDir,
		&run.Total, &run.Succeeded, &run.Failed, &run.Skipped, &status); err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return &run, nil
}
