package pipeline

import (
	"context"

	"neuroflow/internal/stats"
	"neuroflow/internal/store"
)

// StatusStore is the persistence surface the orchestrator needs. *store.Store
// satisfies it.
type StatusStore interface {
	UpsertSubject(ctx context.Context, subjectID, sourceDir string) (*store.Subject, error)
	EnsureScan(ctx context.Context, subjectID, modality string) (*store.Scan, error)
	ScanForSubject(ctx context.Context, subjectID string) (*store.Scan, error)
	UpdateScan(ctx context.Context, scan *store.Scan) error
	StageState(ctx context.Context, subjectID string, stage store.Stage) (*store.StageRecord, error)
	Transition(ctx context.Context, subjectID string, stage store.Stage, to store.Status, errorMessage string) (*store.StageRecord, error)
	ReplaceRecords(ctx context.Context, subjectID string, scanID int64, metrics []stats.Metric) error
}

// Validator checks a subject's raw DICOM directory.
type Validator interface {
	Validate(dir string) (int, error)
}

// Extractor parses reconstruction stats reports into metrics.
type Extractor interface {
	Extract(statsDir string) ([]stats.Metric, error)
}

var _ StatusStore = (*store.Store)(nil)
var _ Extractor = (*stats.Extractor)(nil)
