package config

import "flipscan/internal/geometry"

const (
	defaultCompression   = "zstd"
	defaultThresholdMV   = -1000
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
	defaultPreUnderflow  = 4000
	defaultPreOverflow   = 6500
	defaultPostUnderflow = 2000
	defaultPostOverflow  = 6500
	defaultValueBins     = 100
	defaultValueMin      = -1000
	defaultValueMax      = 9000
	defaultDiffBins      = 200
	defaultDiffMin       = -10000
	defaultDiffMax       = 10000
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Geometry: geometry.DefaultLayout(),
		Sweep: Sweeps{
			Pre:  geometry.DefaultPreSweep(),
			Post: geometry.DefaultPostSweep(),
		},
		Output: Output{
			Compression: defaultCompression,
		},
		Scan: Scan{
			ThresholdMV: defaultThresholdMV,
		},
		Histogram: Histogram{
			PreUnderflow:  defaultPreUnderflow,
			PreOverflow:   defaultPreOverflow,
			PostUnderflow: defaultPostUnderflow,
			PostOverflow:  defaultPostOverflow,
			ValueBins:     defaultValueBins,
			ValueMin:      defaultValueMin,
			ValueMax:      defaultValueMax,
			DiffBins:      defaultDiffBins,
			DiffMin:       defaultDiffMin,
			DiffMax:       defaultDiffMax,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
