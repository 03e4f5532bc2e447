// Package analytics derives per-district insight from stored snapshots:
// club health classification, distinguished-level counts and projection,
// trend arrays, year-over-year comparison and recognition targets. All
// computation here is pure and synchronous; it operates on already-loaded
// snapshot slices and never touches storage.
package analytics
