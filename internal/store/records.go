package store

import (
	"context"
	"fmt"
	"time"

	"neuroflow/internal/stats"
)

// ReplaceRecords writes a scan's full volumetric record set in one
// transaction with replace-or-create semantics: any existing records for the
// scan are removed first, and either every metric lands or none do.
func (s *Store) ReplaceRecords(ctx context.Context, subjectID string, scanID int64, metrics []stats.Metric) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin records tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM volumetrics WHERE scan_id = ?`, scanID); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	for _, metric := range metrics {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO volumetrics (subject_id, scan_id, metric, value, unit, created_at)
             VALUES (?, ?, ?, ?, ?, ?)`,
			subjectID, scanID, metric.Name, metric.Value, string(metric.Unit), timestamp,
		); err != nil {
			return fmt.Errorf("insert record %s: %w", metric.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit records: %w", err)
	}
	return nil
}

// RecordsForSubject returns every persisted volumetric record for a subject
// ordered by metric name.
func (s *Store) RecordsForSubject(ctx context.Context, subjectID string) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, subject_id, scan_id, metric, value, unit, created_at
         FROM volumetrics WHERE subject_id = ? ORDER BY metric`,
		subjectID,
	)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var record Record
		var createdRaw string
		if err := rows.Scan(
			&record.ID,
			&record.SubjectID,
			&record.ScanID,
			&record.Metric,
			&record.Value,
			&record.Unit,
			&createdRaw,
		); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if created, err := parseTimeString(createdRaw); err == nil {
			record.CreatedAt = created
		}
		records = append(records, &record)
	}
	return records, rows.Err()
}
