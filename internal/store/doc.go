// Package store persists subjects, scans, per-stage processing status, and
// volumetric records in SQLite.
//
// The Store manages connections, schema initialization, the monotonic
// stage-status transition guard, and the atomic replace-or-create write for a
// scan's record set. Each write touches a single subject's rows inside one
// transaction, which is the mutual-exclusion boundary the concurrency model
// relies on: concurrent workers never interleave partial updates to different
// subjects' rows.
//
// Treat this package as the single source of truth for status semantics; when
// you add stages or statuses, update schema.sql and bump schemaVersion.
package store
