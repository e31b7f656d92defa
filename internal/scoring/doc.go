// Package scoring maps reveal statistics to integer score deltas.
//
// Everything here is pure and deterministic: no I/O, no clocks.
package scoring
