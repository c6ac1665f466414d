package batch

import (
	"time"

	"neuroflow/internal/pipeline"
	"neuroflow/internal/store"
)

// SubjectOutcome summarizes one subject's run within a batch.
type SubjectOutcome struct {
	SubjectID      string
	Status         store.Status
	FailedStage    store.Stage
	Classification string
	StagesRun      int
	StagesSkipped  int
	MetricCount    int
	Retries        int
	Duration       time.Duration
	Err            error
}

// Report is the aggregate result of a batch run.
type Report struct {
	RunID     string
	Started   time.Time
	Finished  time.Time
	Outcomes  []SubjectOutcome
	Completed int
	Failed    int
}

// Duration is the wall-clock span of the whole batch.
func (r Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

func outcomeFromResult(result pipeline.Result) SubjectOutcome {
	return SubjectOutcome{
		SubjectID:      result.SubjectID,
		Status:         result.Status,
		FailedStage:    result.FailedStage,
		Classification: result.Classification,
		StagesRun:      len(result.StagesRun),
		StagesSkipped:  len(result.StagesSkipped),
		MetricCount:    result.MetricCount,
		Retries:        result.Retries,
		Duration:       result.Duration,
		Err:            result.Err,
	}
}
