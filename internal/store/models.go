package store

import (
	"strings"
	"time"
)

// Status represents the lifecycle of one stage for one subject.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{StatusPending, StatusRunning, StatusCompleted, StatusFailed}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// CanTransition reports whether a stage status may move from one value to
// another. Statuses advance monotonically: completed is terminal, and failed
// may only be retried back to running, never silently reset to pending.
// Re-entering the same status is allowed so a crashed orchestrator can resume
// a stage that was left in running.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	switch from {
	case "":
		return to == StatusPending || to == StatusRunning
	case StatusPending:
		return to == StatusRunning || to == StatusFailed
	case StatusRunning:
		return to == StatusCompleted || to == StatusFailed
	case StatusFailed:
		return to == StatusRunning
	default:
		return false
	}
}

// Stage identifies one of the ordered pipeline steps.
type Stage string

const (
	StageValidate    Stage = "validate"
	StageConvert     Stage = "convert"
	StageReconstruct Stage = "reconstruct"
	StageExtract     Stage = "extract"
)

var stageOrder = []Stage{StageValidate, StageConvert, StageReconstruct, StageExtract}

// Stages returns the pipeline stages in execution order.
func Stages() []Stage {
	cp := make([]Stage, len(stageOrder))
	copy(cp, stageOrder)
	return cp
}

// ParseStage converts a string into a known Stage.
func ParseStage(value string) (Stage, bool) {
	normalized := Stage(strings.ToLower(strings.TrimSpace(value)))
	for _, stage := range stageOrder {
		if stage == normalized {
			return stage, true
		}
	}
	return "", false
}

// Subject is one research participant's imaging record. Immutable once
// created.
type Subject struct {
	SubjectID string
	SourceDir string
	CreatedAt time.Time
}

// Scan tracks one imaging session for a subject and its processing outputs.
type Scan struct {
	ID                  int64
	SubjectID           string
	Modality            string
	NiftiPath           string
	OutputDir           string
	ReconRuntimeSeconds float64
	ReconRetries        int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// StageRecord is the persisted state of one stage for one subject.
type StageRecord struct {
	SubjectID    string
	Stage        Stage
	Status       Status
	Attempts     int
	ErrorMessage string
	StartedAt    *time.Time
	FinishedAt   *time.Time
	UpdatedAt    time.Time
}

// Record is one persisted volumetric measurement.
type Record struct {
	ID        int64
	SubjectID string
	ScanID    int64
	Metric    string
	Value     float64
	Unit      string
	CreatedAt time.Time
}
