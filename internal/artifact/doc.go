// Package artifact persists first-flip and diff matrices as self-describing
// compressed files.
//
// Each artifact is a fixed 40-byte little-endian header followed by a
// compressed payload of int32 values in row-major order. The header records
// the artifact kind, codec, sector, shape, payload length and an xxHash64
// checksum of the uncompressed payload so Load can detect truncation and
// corruption.
//
// A sector's pre, post and diff artifacts are written together by SetWriter:
// every member is staged to a synced temporary file before any rename
// happens, and a failure at any point removes the whole set.
package artifact
