// Package services defines the shared error taxonomy and context helpers used
// by pipeline stages.
//
// Stage code wraps failures with one of the exported sentinel markers so the
// orchestrator and batch report can classify outcomes without string matching:
// validation gates, external tool exits, timeouts, environment problems, and
// the two extraction-specific conditions (malformed reports and reconstruction
// output that went missing despite a reported success).
//
// Context helpers annotate a context with the subject, stage, and run
// identifiers so loggers can derive structured fields in one place.
package services
