package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"flipscan/internal/config"
	"flipscan/internal/geometry"
	"flipscan/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	preDir     string
	postDir    string
	destDir    string
}

// setupCLITestEnv writes a small-geometry config and a complete set of
// readouts in which cell 0 bit 0 of every sector shifts by -1100 mV.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("FLIPSCAN_WORKERS", "")
	t.Setenv("FLIPSCAN_LOG_LEVEL", "")

	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(2))
	configPath := filepath.Join(base, "flipscan.toml")
	writeTestConfig(t, configPath, cfg)

	pre, post := testsupport.InputDirs(t)
	env := &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		preDir:     pre,
		postDir:    post,
		destDir:    filepath.Join(base, "artifacts"),
	}
	for _, id := range cfg.Geometry.AllSectors() {
		env.writeSector(t, id)
	}
	return env
}

func (e *cliTestEnv) writeSector(t *testing.T, id geometry.SectorID) {
	t.Helper()
	testsupport.WriteSweep(t, e.preDir, e.cfg.Geometry, e.cfg.Sweep.Pre, id, firstFlipAt(5100))
	testsupport.WriteSweep(t, e.postDir, e.cfg.Geometry, e.cfg.Sweep.Post, id, firstFlipAt(4000))
}

func firstFlipAt(v int) testsupport.FirstFlipFunc {
	return func(cell, bit int) int {
		if cell == 0 && bit == 0 {
			return v
		}
		return 0
	}
}

func (e *cliTestEnv) convertArgs(extra ...string) []string {
	args := []string{"convert", "--pre", e.preDir, "--post", e.postDir, "--dest", e.destDir}
	return append(args, extra...)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--log-level", "error"}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
