// Package geometry describes the fixed address-space layout of the memory chip
// under test and the voltage sweeps applied while reading it out.
//
// A Layout partitions the address space into equally sized sectors; a sector
// is identified by its starting address. A Sweep is the ordered list of
// voltage levels (in millivolts, stop exclusive) visited for one exposure
// condition. Both are plain values so they can be embedded in the immutable
// configuration handed to each pipeline component.
package geometry
