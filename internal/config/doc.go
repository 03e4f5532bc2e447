// Package config centralizes application configuration and the on-disk
// data layout. Configuration loads from environment variables with the DP
// prefix first, then an optional YAML file fills anything the environment
// left unset. All file paths flow through the Paths type; no other package
// joins path segments for data files.
package config
