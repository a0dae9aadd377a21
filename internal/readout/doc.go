// Package readout reduces a condition's voltage sweep of readout files into a
// first-flip matrix for one sector.
//
// Each readout file (data-{voltage}-{sector}.csv) holds one row per cell and
// one '0'/'1' character per bit. Files are consumed in increasing voltage
// order and streamed row by row, so memory stays bounded by the matrix itself.
// A bit's entry records the first voltage at which it read '1' and is never
// overwritten by later files.
package readout
