package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"flipscan/internal/geometry"
)

//go:embed sample_config.toml
var sampleConfig string

// Sweeps holds the readout sweep for each exposure condition.
type Sweeps struct {
	Pre  geometry.Sweep `toml:"pre"`
	Post geometry.Sweep `toml:"post"`
}

// Output contains artifact destination settings.
type Output struct {
	DestDir     string `toml:"dest_dir"`
	Compression string `toml:"compression"`
}

// Dispatch controls the sector worker pool.
type Dispatch struct {
	// Workers is the pool size; 0 uses every available CPU.
	Workers       int  `toml:"workers"`
	StopOnFailure bool `toml:"stop_on_failure"`
}

// Scan contains the threshold scanner settings.
type Scan struct {
	// ThresholdMV counts diff entries strictly below this voltage shift.
	ThresholdMV int `toml:"threshold_mv"`
}

// Histogram contains the artifact consumer settings.
type Histogram struct {
	Filter         bool     `toml:"filter"`
	PreUnderflow   int      `toml:"pre_underflow_mv"`
	PreOverflow    int      `toml:"pre_overflow_mv"`
	PostUnderflow  int      `toml:"post_underflow_mv"`
	PostOverflow   int      `toml:"post_overflow_mv"`
	SkipUnobserved bool     `toml:"skip_unobserved"`
	BadSectors     []uint64 `toml:"bad_sectors"`
	ValueBins      int      `toml:"value_bins"`
	ValueMin       int      `toml:"value_min_mv"`
	ValueMax       int      `toml:"value_max_mv"`
	DiffBins       int      `toml:"diff_bins"`
	DiffMin        int      `toml:"diff_min_mv"`
	DiffMax        int      `toml:"diff_max_mv"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Dir    string `toml:"dir"`
}

// Config encapsulates all configuration values for flipscan. A loaded Config
// is treated as immutable; components receive the sections they need at
// construction.
//
// Configuration sections by subsystem:
//   - Geometry: chip address-space layout (fixed for production data)
//   - Sweep: pre and post exposure voltage sweeps
//   - Output: artifact destination and compression codec
//   - Dispatch: worker pool sizing and failure policy
//   - Scan: bit-flip threshold
//   - Histogram: binning, band filter, and bad sectors
//   - Logging: log format, level, and optional file directory
type Config struct {
	Geometry  geometry.Layout `toml:"geometry"`
	Sweep     Sweeps          `toml:"sweep"`
	Output    Output          `toml:"output"`
	Dispatch  Dispatch        `toml:"dispatch"`
	Scan      Scan            `toml:"scan"`
	Histogram Histogram       `toml:"histogram"`
	Logging   Logging         `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/flipscan/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("flipscan.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log directory when file logging is enabled.
// Artifact directories are created per run by the workspace package.
func (c *Config) EnsureDirectories() error {
	if strings.TrimSpace(c.Logging.Dir) == "" {
		return nil
	}
	if err := os.MkdirAll(c.Logging.Dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Logging.Dir, err)
	}
	return nil
}

// WorkerCount resolves the configured pool size.
func (c *Config) WorkerCount() int {
	if c.Dispatch.Workers > 0 {
		return c.Dispatch.Workers
	}
	return runtime.NumCPU()
}

// Marshal renders the configuration as TOML.
func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
