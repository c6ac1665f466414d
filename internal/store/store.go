package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"neuroflow/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; existing databases with a different version are rejected.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Store manages pipeline persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the pipeline database and verifies the
// schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.DatabasePath())
}

// OpenPath opens the database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to recreate)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// UpsertSubject inserts a subject if it does not exist and returns the stored
// row. Subjects are immutable; a conflicting insert leaves the original
// source directory untouched.
func (s *Store) UpsertSubject(ctx context.Context, subjectID, sourceDir string) (*Subject, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO subjects (subject_id, source_dir, created_at) VALUES (?, ?, ?)
         ON CONFLICT(subject_id) DO NOTHING`,
		subjectID, sourceDir, timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert subject: %w", err)
	}
	return s.GetSubject(ctx, subjectID)
}

// GetSubject fetches a subject by identifier, or nil when absent.
func (s *Store) GetSubject(ctx context.Context, subjectID string) (*Subject, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT subject_id, source_dir, created_at FROM subjects WHERE subject_id = ?`, subjectID)

	var subject Subject
	var createdRaw string
	if err := row.Scan(&subject.SubjectID, &subject.SourceDir, &createdRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get subject: %w", err)
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		subject.CreatedAt = created
	}
	return &subject, nil
}

// ListSubjects returns all subjects ordered by creation time.
func (s *Store) ListSubjects(ctx context.Context) ([]*Subject, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT subject_id, source_dir, created_at FROM subjects ORDER BY created_at, subject_id`)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	var subjects []*Subject
	for rows.Next() {
		var subject Subject
		var createdRaw string
		if err := rows.Scan(&subject.SubjectID, &subject.SourceDir, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		if created, err := parseTimeString(createdRaw); err == nil {
			subject.CreatedAt = created
		}
		subjects = append(subjects, &subject)
	}
	return subjects, rows.Err()
}

const scanColumns = "id, subject_id, modality, nifti_path, output_dir, recon_runtime_seconds, recon_retries, created_at, updated_at"

// EnsureScan returns the subject's scan row, creating it when absent.
func (s *Store) EnsureScan(ctx context.Context, subjectID, modality string) (*Scan, error) {
	existing, err := s.ScanForSubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO scans (subject_id, modality, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		subjectID, modality, timestamp, timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert scan: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.getScan(ctx, id)
}

// ScanForSubject returns the subject's scan row, or nil when absent.
func (s *Store) ScanForSubject(ctx context.Context, subjectID string) (*Scan, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+scanColumns+` FROM scans WHERE subject_id = ? ORDER BY id LIMIT 1`, subjectID)
	scan, err := scanScan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan for subject: %w", err)
	}
	return scan, nil
}

func (s *Store) getScan(ctx context.Context, id int64) (*Scan, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+scanColumns+` FROM scans WHERE id = ?`, id)
	scan, err := scanScan(row)
	if err != nil {
		return nil, fmt.Errorf("get scan: %w", err)
	}
	return scan, nil
}

// UpdateScan persists changes to an existing scan row.
func (s *Store) UpdateScan(ctx context.Context, scan *Scan) error {
	if scan == nil {
		return errors.New("scan is nil")
	}
	scan.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE scans
         SET modality = ?, nifti_path = ?, output_dir = ?, recon_runtime_seconds = ?,
             recon_retries = ?, updated_at = ?
         WHERE id = ?`,
		scan.Modality,
		nullableString(scan.NiftiPath),
		nullableString(scan.OutputDir),
		nullableFloat(scan.ReconRuntimeSeconds),
		scan.ReconRetries,
		scan.UpdatedAt.Format(time.RFC3339Nano),
		scan.ID,
	)
	if err != nil {
		return fmt.Errorf("update scan: %w", err)
	}
	return nil
}
