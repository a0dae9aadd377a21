package scan_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"flipscan/internal/artifact"
	"flipscan/internal/config"
	"flipscan/internal/flipmap"
	"flipscan/internal/geometry"
	"flipscan/internal/logging"
	"flipscan/internal/scan"
	"flipscan/internal/sector"
	"flipscan/internal/services"
	"flipscan/internal/testsupport"
	"flipscan/internal/workspace"
)

func prepare(t *testing.T) (*config.Config, *workspace.Workspace) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(2))
	ws, err := workspace.Prepare(cfg.Output.DestDir)
	if err != nil {
		t.Fatal(err)
	}
	return cfg, ws
}

func writeDiff(t *testing.T, cfg *config.Config, ws *workspace.Workspace, id geometry.SectorID, values map[int]int32) {
	t.Helper()
	m := flipmap.New(cfg.Geometry.CellsPerSector, cfg.Geometry.BitsPerCell)
	for idx, v := range values {
		m.Values[idx] = v
	}
	var buf bytes.Buffer
	if _, err := artifact.Encode(&buf, artifact.KindDiff, id, m, artifact.CompressionZstd); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(ws.ArtifactPath(artifact.KindDiff, id), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScanCountsStrictlyBelowThreshold(t *testing.T) {
	cfg, ws := prepare(t)
	layout := cfg.Geometry

	writeDiff(t, cfg, ws, layout.Sector(0), map[int]int32{
		0:  -1001,
		5:  -5100,
		17: -9000,
		20: -1000, // equal to the threshold: not a flip
		21: -999,
		40: 4100,
	})
	writeDiff(t, cfg, ws, layout.Sector(1), nil)
	writeDiff(t, cfg, ws, layout.Sector(2), map[int]int32{3: -1000})
	writeDiff(t, cfg, ws, layout.Sector(3), map[int]int32{0: -2000, 127: -3000})

	result, err := scan.NewScanner(cfg, ws, logging.NewNop()).Scan(context.Background(), layout.AllSectors())
	if err != nil {
		t.Fatal(err)
	}
	want := []scan.Row{
		{Sector: 0, Flips: 3},
		{Sector: 8, Flips: 0},
		{Sector: 16, Flips: 0},
		{Sector: 24, Flips: 2},
	}
	if len(result.Rows) != len(want) {
		t.Fatalf("rows = %+v", result.Rows)
	}
	for i := range want {
		if result.Rows[i] != want[i] {
			t.Fatalf("row %d = %+v, want %+v", i, result.Rows[i], want[i])
		}
	}
	if result.TotalFlips() != 5 || len(result.Missing) != 0 {
		t.Fatalf("total=%d missing=%v", result.TotalFlips(), result.Missing)
	}
}

func TestScanThresholdOverride(t *testing.T) {
	cfg, ws := prepare(t)
	id := cfg.Geometry.Sector(0)
	writeDiff(t, cfg, ws, id, map[int]int32{0: -1500, 1: -2500, 2: -3500})

	s := scan.NewScanner(cfg, ws, nil, scan.WithThreshold(-2500))
	if s.Threshold() != -2500 {
		t.Fatalf("threshold = %d", s.Threshold())
	}
	result, err := s.Scan(context.Background(), []geometry.SectorID{id})
	if err != nil {
		t.Fatal(err)
	}
	if result.Rows[0].Flips != 1 {
		t.Fatalf("flips = %d, want 1", result.Rows[0].Flips)
	}
}

func TestScanMissingArtifact(t *testing.T) {
	cfg, ws := prepare(t)
	layout := cfg.Geometry
	writeDiff(t, cfg, ws, layout.Sector(0), map[int]int32{0: -2000})
	writeDiff(t, cfg, ws, layout.Sector(2), nil)

	result, err := scan.NewScanner(cfg, ws, logging.NewNop()).Scan(context.Background(), layout.AllSectors())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Rows) != 2 || len(result.Missing) != 2 {
		t.Fatalf("rows=%+v missing=%v", result.Rows, result.Missing)
	}
	if result.Missing[0] != layout.Sector(1) || result.Missing[1] != layout.Sector(3) {
		t.Fatalf("missing = %v", result.Missing)
	}

	_, err = scan.NewScanner(cfg, ws, logging.NewNop(), scan.WithStrict(true)).Scan(context.Background(), layout.AllSectors())
	if !errors.Is(err, services.ErrMissingInput) {
		t.Fatalf("strict err = %v, want ErrMissingInput", err)
	}
}

func TestScanCorruptArtifact(t *testing.T) {
	cfg, ws := prepare(t)
	id := cfg.Geometry.Sector(0)
	if err := os.WriteFile(ws.ArtifactPath(artifact.KindDiff, id), []byte("not an artifact"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := scan.NewScanner(cfg, ws, nil).Scan(context.Background(), []geometry.SectorID{id})
	if !errors.Is(err, services.ErrMalformedInput) || !errors.Is(err, artifact.ErrCorruptArtifact) {
		t.Fatalf("err = %v", err)
	}
}

// Convert one sector whose bit (0,0) first sets at the second pre voltage and
// never in post, then scan it.
func TestScanAfterConvert(t *testing.T) {
	cfg, ws := prepare(t)
	pre, post := testsupport.InputDirs(t)
	id := geometry.SectorID(0)
	testsupport.WriteSweep(t, pre, cfg.Geometry, cfg.Sweep.Pre, id, func(cell, bit int) int {
		if cell == 0 && bit == 0 {
			return 5100
		}
		return 0
	})
	testsupport.WriteSweep(t, post, cfg.Geometry, cfg.Sweep.Post, id, testsupport.NeverSet)

	proc, err := sector.NewProcessor(cfg, sector.Inputs{PreDir: pre, PostDir: post}, ws, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res := proc.Process(context.Background(), id); res.Status != sector.StatusSucceeded {
		t.Fatalf("process: %v", res.Err)
	}

	result, err := scan.NewScanner(cfg, ws, nil).Scan(context.Background(), []geometry.SectorID{id})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Rows) != 1 || result.Rows[0].Flips != 1 {
		t.Fatalf("rows = %+v, want one flip", result.Rows)
	}
}

func TestValidateOutputPath(t *testing.T) {
	for _, ok := range []string{"out.csv", "/tmp/OUT.CSV", "a/b/c.Csv"} {
		if err := scan.ValidateOutputPath(ok); err != nil {
			t.Errorf("%s: unexpected error %v", ok, err)
		}
	}
	for _, bad := range []string{"out.txt", "out", "csv", "out.csv.bak"} {
		if err := scan.ValidateOutputPath(bad); !errors.Is(err, services.ErrConfiguration) {
			t.Errorf("%s: err = %v, want configuration error", bad, err)
		}
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flips.csv")
	rows := []scan.Row{{Sector: 0, Flips: 3}, {Sector: 65536, Flips: 0}}
	if err := scan.WriteFile(path, rows); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := "sector,bit flips\n0,3\n65536,0\n"; string(got) != want {
		t.Fatalf("csv = %q, want %q", got, want)
	}

	if err := scan.WriteFile(filepath.Join(t.TempDir(), "flips.txt"), rows); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("err = %v", err)
	}
}
