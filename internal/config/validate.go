package config

import (
	"errors"
	"fmt"

	"flipscan/internal/geometry"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.Geometry.Validate(); err != nil {
		return err
	}
	if err := c.validateSweeps(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if c.Dispatch.Workers < 0 {
		return errors.New("dispatch.workers must be zero (auto) or positive")
	}
	if err := c.validateHistogram(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateSweeps() error {
	if err := c.Sweep.Pre.Validate(); err != nil {
		return fmt.Errorf("sweep.pre: %w", err)
	}
	if err := c.Sweep.Post.Validate(); err != nil {
		return fmt.Errorf("sweep.post: %w", err)
	}
	return nil
}

func (c *Config) validateOutput() error {
	switch c.Output.Compression {
	case "none", "zstd", "s2", "lz4":
		return nil
	default:
		return fmt.Errorf("output.compression: unsupported value %q (expected none, zstd, s2, or lz4)", c.Output.Compression)
	}
}

func (c *Config) validateHistogram() error {
	h := c.Histogram
	if h.ValueBins <= 0 || h.ValueMax <= h.ValueMin {
		return errors.New("histogram value binning requires value_bins > 0 and value_max_mv > value_min_mv")
	}
	if h.DiffBins <= 0 || h.DiffMax <= h.DiffMin {
		return errors.New("histogram diff binning requires diff_bins > 0 and diff_max_mv > diff_min_mv")
	}
	if h.Filter {
		if h.PreOverflow <= h.PreUnderflow {
			return errors.New("histogram.pre_overflow_mv must exceed histogram.pre_underflow_mv")
		}
		if h.PostOverflow <= h.PostUnderflow {
			return errors.New("histogram.post_overflow_mv must exceed histogram.post_underflow_mv")
		}
	}
	for _, sector := range h.BadSectors {
		if _, err := c.Geometry.Index(geometry.SectorID(sector)); err != nil {
			return fmt.Errorf("histogram.bad_sectors: %w", err)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
