// Package batch fans a manifest of subjects out over a bounded worker pool.
// Each subject is processed independently; a failure is recorded in the run
// report and never aborts its siblings.
package batch
