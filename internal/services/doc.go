// Package services defines shared utilities consumed by the conversion
// pipeline and its downstream collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp sector addresses, exposure conditions, and run
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent manifest categories (missing input, malformed input,
//     serialization, configuration, canceled).
//
// Use these helpers when wiring new pipeline logic so failure reporting stays
// uniform across sectors.
package services
