package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTransition indicates a stage status change that would violate the
// monotonic ordering.
var ErrInvalidTransition = errors.New("invalid stage transition")

// StageState returns the persisted state of one stage for one subject, or nil
// when the stage has never been recorded.
func (s *Store) StageState(ctx context.Context, subjectID string, stage Stage) (*StageRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT subject_id, stage, status, attempts, error_message, started_at, finished_at, updated_at
         FROM stage_status WHERE subject_id = ? AND stage = ?`,
		subjectID, stage,
	)
	record, err := scanStageRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stage state: %w", err)
	}
	return record, nil
}

// StageStates returns every recorded stage row for a subject keyed by stage.
func (s *Store) StageStates(ctx context.Context, subjectID string) (map[Stage]*StageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT subject_id, stage, status, attempts, error_message, started_at, finished_at, updated_at
         FROM stage_status WHERE subject_id = ?`,
		subjectID,
	)
	if err != nil {
		return nil, fmt.Errorf("stage states: %w", err)
	}
	defer rows.Close()

	states := make(map[Stage]*StageRecord)
	for rows.Next() {
		record, err := scanStageRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stage state: %w", err)
		}
		states[record.Stage] = record
	}
	return states, rows.Err()
}

// Transition moves one stage of one subject to a new status inside a single
// transaction, enforcing the monotonic ordering. Entering running increments
// the attempt counter and stamps started_at; terminal statuses stamp
// finished_at. The error message is stored verbatim for failed transitions
// and cleared otherwise.
func (s *Store) Transition(ctx context.Context, subjectID string, stage Stage, to Status, errorMessage string) (*StageRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transition tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		`SELECT subject_id, stage, status, attempts, error_message, started_at, finished_at, updated_at
         FROM stage_status WHERE subject_id = ? AND stage = ?`,
		subjectID, stage,
	)
	current, err := scanStageRecord(row)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read stage state: %w", err)
	}

	from := Status("")
	record := &StageRecord{SubjectID: subjectID, Stage: stage}
	if current != nil {
		from = current.Status
		record = current
	}
	if !CanTransition(from, to) {
		return nil, fmt.Errorf("%w: %s/%s %s -> %s", ErrInvalidTransition, subjectID, stage, from, to)
	}

	now := time.Now().UTC()
	record.Status = to
	record.UpdatedAt = now
	switch to {
	case StatusRunning:
		record.Attempts++
		record.StartedAt = &now
		record.FinishedAt = nil
		record.ErrorMessage = ""
	case StatusCompleted:
		record.FinishedAt = &now
		record.ErrorMessage = ""
	case StatusFailed:
		record.FinishedAt = &now
		record.ErrorMessage = errorMessage
	default:
		record.ErrorMessage = ""
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO stage_status (subject_id, stage, status, attempts, error_message, started_at, finished_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(subject_id, stage) DO UPDATE SET
             status = excluded.status,
             attempts = excluded.attempts,
             error_message = excluded.error_message,
             started_at = excluded.started_at,
             finished_at = excluded.finished_at,
             updated_at = excluded.updated_at`,
		subjectID,
		stage,
		record.Status,
		record.Attempts,
		nullableString(record.ErrorMessage),
		nullableTime(record.StartedAt),
		nullableTime(record.FinishedAt),
		record.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("write stage state: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}
	return record, nil
}

func scanStageRecord(scanner interface{ Scan(dest ...any) error }) (*StageRecord, error) {
	var (
		subjectID   string
		stageStr    string
		statusStr   string
		attempts    int
		errMessage  sql.NullString
		startedRaw  sql.NullString
		finishedRaw sql.NullString
		updatedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&subjectID,
		&stageStr,
		&statusStr,
		&attempts,
		&errMessage,
		&startedRaw,
		&finishedRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	record := &StageRecord{
		SubjectID:    subjectID,
		Stage:        Stage(stageStr),
		Status:       Status(statusStr),
		Attempts:     attempts,
		ErrorMessage: errMessage.String,
		StartedAt:    timePtr(startedRaw),
		FinishedAt:   timePtr(finishedRaw),
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		record.UpdatedAt = updated
	}
	return record, nil
}
