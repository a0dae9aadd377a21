package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"flipscan/internal/artifact"
	"flipscan/internal/geometry"
	"flipscan/internal/readout"
	"flipscan/internal/workspace"
)

func TestConvertWritesArtifactsAndManifest(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.convertArgs(), env.configPath)
	if err != nil {
		t.Fatalf("convert: %v\n%s", err, out)
	}
	requireContains(t, out, "Completed")
	requireContains(t, out, "Succeeded")

	ws := workspace.Open(env.destDir)
	for _, id := range env.cfg.Geometry.AllSectors() {
		for _, kind := range artifact.Kinds {
			if _, err := os.Stat(ws.ArtifactPath(kind, id)); err != nil {
				t.Fatalf("missing %s artifact for sector %d: %v", kind, id, err)
			}
		}
	}

	out, _, err = runCLI(t, []string{"runs", "--dest", env.destDir}, env.configPath)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, "Completed")
}

func TestConvertRequiresInputs(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"convert", "--post", env.postDir, "--dest", env.destDir}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "pre") {
		t.Fatalf("expected missing --pre error, got %v", err)
	}

	missing := filepath.Join(t.TempDir(), "absent")
	_, _, err = runCLI(t, []string{"convert", "--pre", missing, "--post", env.postDir, "--dest", env.destDir}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "preflight") {
		t.Fatalf("expected preflight error, got %v", err)
	}
}

func TestConvertRetryFailed(t *testing.T) {
	env := setupCLITestEnv(t)

	broken := geometry.SectorID(8)
	if err := os.Remove(readout.FileName(env.postDir, 4100, broken)); err != nil {
		t.Fatalf("remove readout: %v", err)
	}

	out, _, err := runCLI(t, env.convertArgs(), env.configPath)
	if err == nil {
		t.Fatal("expected convert to report the failed sector")
	}
	requireContains(t, err.Error(), "1 of 4 sectors failed")
	requireContains(t, out, "Partial")
	requireContains(t, out, "missing_input")

	out, _, err = runCLI(t, []string{"runs", "--dest", env.destDir, "--failed"}, env.configPath)
	if err != nil {
		t.Fatalf("runs --failed: %v", err)
	}
	requireContains(t, out, "1 failed, 0 skipped")
	requireContains(t, out, "missing_input")

	env.writeSector(t, broken)
	out, _, err = runCLI(t, env.convertArgs("--retry-failed"), env.configPath)
	if err != nil {
		t.Fatalf("convert --retry-failed: %v\n%s", err, out)
	}
	requireContains(t, out, "Retrying 1 sectors")
	requireContains(t, out, "Completed")

	ws := workspace.Open(env.destDir)
	if _, err := os.Stat(ws.ArtifactPath(artifact.KindDiff, broken)); err != nil {
		t.Fatalf("retried sector has no diff artifact: %v", err)
	}

	out, _, err = runCLI(t, env.convertArgs("--retry-failed"), env.configPath)
	if err != nil {
		t.Fatalf("second retry: %v", err)
	}
	requireContains(t, out, "No failed or skipped sectors to retry")
}

func TestConvertRejectsRetryWithSectors(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env.convertArgs("--retry-failed", "--sectors", "0"), env.configPath)
	if err == nil || !strings.Contains(err.Error(), "mutually exclusive") {
		t.Fatalf("expected mutually exclusive error, got %v", err)
	}
}

func TestConvertSectorSubset(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env.convertArgs("--sectors", "16,0"), env.configPath); err != nil {
		t.Fatalf("convert subset: %v", err)
	}
	ws := workspace.Open(env.destDir)
	if _, err := os.Stat(ws.ArtifactPath(artifact.KindDiff, 16)); err != nil {
		t.Fatalf("sector 16 not converted: %v", err)
	}
	if _, err := os.Stat(ws.ArtifactPath(artifact.KindDiff, 8)); !os.IsNotExist(err) {
		t.Fatalf("sector 8 should not be converted, stat err = %v", err)
	}

	_, _, err := runCLI(t, env.convertArgs("--sectors", "3"), env.configPath)
	if err == nil {
		t.Fatal("expected error for a sector id that is not a sector start")
	}
}
