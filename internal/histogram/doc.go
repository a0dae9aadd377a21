// Package histogram accumulates value distributions across all sectors from
// the pre and post artifacts of a conversion.
//
// Pre and post first-flip voltages share one binning (100 bins over
// [-1000, 9000) mV by default) and their difference another (200 bins over
// [-10000, 10000) mV). Values outside a range land in the underflow and
// overflow counters rather than being dropped. An optional band filter
// discards a bit when its pre or post voltage sits on or beyond the
// configured limits, configured bad sectors are skipped entirely, and
// skip_unobserved drops bits that never set in either condition.
package histogram
