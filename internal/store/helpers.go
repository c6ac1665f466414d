package store

import (
	"database/sql"
	"errors"
	"time"
)

func scanScan(scanner interface{ Scan(dest ...any) error }) (*Scan, error) {
	var (
		id          int64
		subjectID   string
		modality    string
		niftiPath   sql.NullString
		outputDir   sql.NullString
		runtimeSecs sql.NullFloat64
		retries     sql.NullInt64
		createdRaw  sql.NullString
		updatedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&subjectID,
		&modality,
		&niftiPath,
		&outputDir,
		&runtimeSecs,
		&retries,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	scan := &Scan{
		ID:                  id,
		SubjectID:           subjectID,
		Modality:            modality,
		NiftiPath:           niftiPath.String,
		OutputDir:           outputDir.String,
		ReconRuntimeSeconds: runtimeSecs.Float64,
		ReconRetries:        int(retries.Int64),
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		scan.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		scan.UpdatedAt = updated
	}
	return scan, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableFloat(value float64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func timePtr(raw sql.NullString) *time.Time {
	if !raw.Valid {
		return nil
	}
	t, err := parseTimeString(raw.String)
	if err != nil {
		return nil
	}
	return &t
}
