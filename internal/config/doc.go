// Package config loads, normalizes, and validates flipscan configuration data.
//
// It supplies repository defaults (chip geometry, the pre/post voltage sweeps,
// the -1000 mV bit-flip threshold, histogram binning), expands user paths
// (including tilde shortcuts), reads TOML files, and honours environment
// overrides such as FLIPSCAN_WORKERS. The Config type centralizes every knob the
// conversion pipeline and its collaborators need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical codec and log names, and clear validation errors.
package config
