// Package sector turns one sector's pre and post readout sweeps into its
// three persisted artifacts.
//
// Processor.Process reads the pre sweep, then the post sweep, differences
// them and hands all three matrices to artifact.SetWriter so the set lands
// atomically. Every outcome, including failures, is reported as a Result;
// Process never panics on bad input and never returns a partial set.
package sector
