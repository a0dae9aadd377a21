package manifest_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"flipscan/internal/manifest"
	"flipscan/internal/testsupport"
)

func beginRun(t *testing.T, store *manifest.Store, id string, started time.Time, total int) {
	t.Helper()
	err := store.BeginRun(context.Background(), manifest.Run{
		ID:        id,
		StartedAt: started,
		PreDir:    "/in/pre",
		PostDir:   "/in/post",
		Total:     total,
	})
	if err != nil {
		t.Fatalf("BeginRun(%s): %v", id, err)
	}
}

func TestRunLifecycle(t *testing.T) {
	store := testsupport.MustOpenManifest(t, t.TempDir())
	ctx := context.Background()

	latest, err := store.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun on empty manifest: %v", err)
	}
	if latest != nil {
		t.Fatalf("expected no runs, got %#v", latest)
	}

	beginRun(t, store, "run-1", time.Now(), 3)
	latest, err = store.LatestRun(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if latest == nil || latest.Status != manifest.RunRunning || latest.FinishedAt != nil {
		t.Fatalf("unexpected running run: %#v", latest)
	}

	if err := store.FinishRun(ctx, "run-1", manifest.Counts{Succeeded: 2, Failed: 1}, manifest.RunPartial); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	latest, err = store.LatestRun(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if latest.Status != manifest.RunPartial || latest.Succeeded != 2 || latest.Failed != 1 || latest.Total != 3 {
		t.Fatalf("unexpected finished run: %#v", latest)
	}
	if latest.FinishedAt == nil {
		t.Fatal("expected finished_at to be set")
	}
	if latest.PreDir != "/in/pre" || latest.PostDir != "/in/post" {
		t.Fatalf("dirs not persisted: %#v", latest)
	}
}

func TestBeginRunRequiresID(t *testing.T) {
	store := testsupport.MustOpenManifest(t, t.TempDir())
	if err := store.BeginRun(context.Background(), manifest.Run{}); err == nil {
		t.Fatal("expected error for empty run id")
	}
}

func TestRunsOrderedNewestFirst(t *testing.T) {
	store := testsupport.MustOpenManifest(t, t.TempDir())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Whole-second and fractional timestamps must still sort correctly.
	beginRun(t, store, "a", base, 1)
	beginRun(t, store, "b", base.Add(100*time.Millisecond), 1)
	beginRun(t, store, "c", base.Add(time.Second), 1)

	runs, err := store.Runs(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, run := range runs {
		ids = append(ids, run.ID)
	}
	if len(ids) != 3 || ids[0] != "c" || ids[1] != "b" || ids[2] != "a" {
		t.Fatalf("order = %v, want [c b a]", ids)
	}

	limited, err := store.Runs(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Fatalf("limit ignored: %d runs", len(limited))
	}
}

func TestRecordSectorUpsertsAndFilters(t *testing.T) {
	store := testsupport.MustOpenManifest(t, t.TempDir())
	ctx := context.Background()
	beginRun(t, store, "run-1", time.Now(), 3)

	records := []manifest.SectorRecord{
		{RunID: "run-1", Sector: 131072, Status: manifest.SectorSkipped, ErrorKind: "canceled", Error: "canceled"},
		{RunID: "run-1", Sector: 0, Status: manifest.SectorSucceeded, PrePath: "p", PostPath: "q", DiffPath: "d", Bytes: 1234, Duration: 1500 * time.Millisecond},
		{RunID: "run-1", Sector: 65536, Status: manifest.SectorFailed, ErrorKind: "missing_input", Error: "missing input: data-5000-65536.csv"},
	}
	for _, rec := range records {
		if err := store.RecordSector(ctx, rec); err != nil {
			t.Fatalf("RecordSector(%d): %v", rec.Sector, err)
		}
	}

	all, err := store.SectorResults(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].Sector != 0 || all[1].Sector != 65536 || all[2].Sector != 131072 {
		t.Fatalf("unexpected ordering: %+v", all)
	}
	if all[0].Bytes != 1234 || all[0].Duration != 1500*time.Millisecond || all[0].DiffPath != "d" {
		t.Fatalf("success row not persisted: %+v", all[0])
	}

	failed, err := store.SectorResults(ctx, "run-1", manifest.SectorFailed)
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 1 || failed[0].ErrorKind != "missing_input" {
		t.Fatalf("failed filter: %+v", failed)
	}

	// Re-recording a sector replaces its row.
	if err := store.RecordSector(ctx, manifest.SectorRecord{RunID: "run-1", Sector: 65536, Status: manifest.SectorSucceeded}); err != nil {
		t.Fatal(err)
	}
	failed, err = store.SectorResults(ctx, "run-1", manifest.SectorFailed)
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 0 {
		t.Fatalf("expected upsert to clear failure, got %+v", failed)
	}
}

func TestRetrySectorsUsesLatestRun(t *testing.T) {
	store := testsupport.MustOpenManifest(t, t.TempDir())
	ctx := context.Background()
	now := time.Now()

	run, sectors, err := store.RetrySectors(ctx)
	if err != nil || run != nil || len(sectors) != 0 {
		t.Fatalf("empty manifest: run=%v sectors=%v err=%v", run, sectors, err)
	}

	beginRun(t, store, "old", now.Add(-time.Hour), 2)
	_ = store.RecordSector(ctx, manifest.SectorRecord{RunID: "old", Sector: 8, Status: manifest.SectorFailed})

	beginRun(t, store, "new", now, 3)
	for _, rec := range []manifest.SectorRecord{
		{RunID: "new", Sector: 0, Status: manifest.SectorSucceeded},
		{RunID: "new", Sector: 16, Status: manifest.SectorSkipped},
		{RunID: "new", Sector: 24, Status: manifest.SectorFailed},
	} {
		if err := store.RecordSector(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	run, sectors, err = store.RetrySectors(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if run.ID != "new" {
		t.Fatalf("run = %s, want new", run.ID)
	}
	if len(sectors) != 2 || sectors[0] != 16 || sectors[1] != 24 {
		t.Fatalf("sectors = %v, want [16 24]", sectors)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.db")

	store, err := manifest.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	if _, err := manifest.Open(path); !errors.Is(err, manifest.ErrSchemaMismatch) {
		t.Fatalf("err = %v, want ErrSchemaMismatch", err)
	}
}

func TestReopenKeepsRuns(t *testing.T) {
	dir := t.TempDir()
	store, err := manifest.Open(filepath.Join(dir, "manifest.db"))
	if err != nil {
		t.Fatal(err)
	}
	beginRun(t, store, "persisted", time.Now(), 1)
	_ = store.Close()

	reopened := testsupport.MustOpenManifest(t, dir)
	latest, err := reopened.LatestRun(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if latest == nil || latest.ID != "persisted" {
		t.Fatalf("latest = %#v", latest)
	}
}
