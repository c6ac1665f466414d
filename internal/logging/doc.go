// Package logging constructs the slog loggers used across neuroflow.
//
// It centralizes level parsing, console/json format selection, and log file
// routing so every command and pipeline worker logs the same way. Context
// helpers derive standardized fields (subject_id, stage, run_id) from a
// context annotated by the services package.
package logging
