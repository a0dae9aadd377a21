// Package scan counts bit flips per sector from diff artifacts.
//
// A bit flip is a diff entry strictly below the configured threshold
// (default -1000 mV); an entry equal to the threshold does not count.
// Sectors are loaded concurrently but rows are always emitted in sector
// order as CSV with the header "sector,bit flips".
package scan
