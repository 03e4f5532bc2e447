// Package operations runs the snapshot pipeline: resolve the logical
// snapshot date, rank all districts, compute per-district analytics in
// parallel behind the ranking barrier, and persist every artifact. A run
// that loses some districts but not all finishes partial; derived data is
// always recomputed from the snapshot set, never patched.
package operations
