package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeDispatch(); err != nil {
		return err
	}
	c.Output.Compression = strings.ToLower(strings.TrimSpace(c.Output.Compression))
	if c.Output.Compression == "" {
		c.Output.Compression = defaultCompression
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Output.DestDir, err = expandPath(strings.TrimSpace(c.Output.DestDir)); err != nil {
		return fmt.Errorf("output.dest_dir: %w", err)
	}
	if c.Logging.Dir, err = expandPath(strings.TrimSpace(c.Logging.Dir)); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDispatch() error {
	value, ok := os.LookupEnv("FLIPSCAN_WORKERS")
	if !ok || strings.TrimSpace(value) == "" {
		return nil
	}
	workers, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("FLIPSCAN_WORKERS: %w", err)
	}
	c.Dispatch.Workers = workers
	return nil
}

func (c *Config) normalizeLogging() {
	if value, ok := os.LookupEnv("FLIPSCAN_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
