// Package preflight provides readiness checks for the filesystem paths a
// conversion depends on.
//
// RunAll verifies that both readout directories are readable, that the
// destination (or its nearest existing ancestor) is writable, and that the
// destination filesystem has room for the artifacts of the requested
// sectors. The convert command aborts with a configuration error when any
// check fails, before a single sector is read.
package preflight
