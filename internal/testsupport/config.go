package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"flipscan/internal/config"
	"flipscan/internal/geometry"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// SmallLayout is a reduced geometry that keeps fixture files tiny while
// exercising every code path of the full chip layout.
func SmallLayout() geometry.Layout {
	return geometry.Layout{Sectors: 4, CellsPerSector: 8, BitsPerCell: 16}
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults to SmallLayout, two-level sweeps, and a single worker.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Geometry = SmallLayout()
	cfgVal.Sweep.Pre = geometry.Sweep{Start: 5000, Stop: 5200, Step: 100}
	cfgVal.Sweep.Post = geometry.Sweep{Start: 4000, Stop: 4200, Step: 100}
	cfgVal.Output.DestDir = filepath.Join(base, "out")
	cfgVal.Dispatch.Workers = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithLayout overrides the chip geometry.
func WithLayout(layout geometry.Layout) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Geometry = layout
	}
}

// WithSweeps overrides both readout sweeps.
func WithSweeps(pre, post geometry.Sweep) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sweep.Pre = pre
		b.cfg.Sweep.Post = post
	}
}

// WithWorkers sets the dispatcher pool size.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Dispatch.Workers = n
	}
}

// WithCompression selects the artifact codec.
func WithCompression(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Output.Compression = name
	}
}

// InputDirs creates empty pre and post readout directories under a temp dir.
func InputDirs(t testing.TB) (string, string) {
	t.Helper()

	base := t.TempDir()
	pre := filepath.Join(base, "pre")
	post := filepath.Join(base, "post")
	for _, dir := range []string{pre, post} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	return pre, post
}
