// Package config loads, normalizes, and validates neuroflow configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// FREESURFER_HOME and FS_LICENSE. The Config type centralizes every knob the
// CLI and pipeline need: tool binaries, stage timeouts, the subjects
// directory layout, and batch concurrency.
//
// Always obtain settings through this package so downstream code receives
// sanitized absolute paths and clear validation errors.
package config
