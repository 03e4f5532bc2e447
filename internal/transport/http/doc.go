// Package http serves the read-only API over chi. Handlers return stored
// artifacts verbatim; nothing is recomputed per request. Store absence
// maps to 404, validation failures to 400, everything else to 500.
package http
