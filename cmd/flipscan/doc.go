// Command flipscan converts voltage-sweep readouts of a memory chip into
// per-sector first-flip artifacts and analyzes them.
//
// Subcommands:
//   - convert: build pre, post, and diff artifacts for every sector
//   - scan: count bit flips below a voltage-shift threshold per sector
//   - histogram: accumulate pre, post, and diff distributions
//   - runs: inspect the conversion manifest of a destination
//   - config: create, validate, and print configuration
package main
