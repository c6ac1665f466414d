package batch

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"neuroflow/internal/logging"
	"neuroflow/internal/pipeline"
	"neuroflow/internal/services"
	"neuroflow/internal/store"
)

// Processor runs the stage sequence for one subject. *pipeline.Orchestrator
// satisfies it.
type Processor interface {
	Process(ctx context.Context, subject pipeline.Subject) pipeline.Result
}

// Coordinator distributes subjects across workers.
type Coordinator struct {
	processor Processor
	logger    *slog.Logger
	workers   int
}

// NewCoordinator constructs a coordinator with the given concurrency cap.
func NewCoordinator(processor Processor, workers int, logger *slog.Logger) (*Coordinator, error) {
	if processor == nil {
		return nil, errors.New("processor required")
	}
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Coordinator{processor: processor, logger: logger, workers: workers}, nil
}

// Run processes every subject and returns the aggregate report. The report
// lists subjects in manifest order regardless of completion order.
func (c *Coordinator) Run(ctx context.Context, subjects []pipeline.Subject) Report {
	report := Report{RunID: uuid.NewString(), Started: time.Now()}
	runCtx := services.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(runCtx, c.logger)

	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.Int("subjects", len(subjects)),
		logging.Int("workers", c.workers))

	work := make(chan pipeline.Subject)
	results := make(chan pipeline.Result, len(subjects))
	order := make(map[string]int, len(subjects))

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for subject := range work {
				results <- c.processor.Process(runCtx, subject)
			}
		}()
	}

	for i, subject := range subjects {
		order[subject.ID] = i
		work <- subject
	}
	close(work)
	wg.Wait()
	close(results)

	for result := range results {
		outcome := outcomeFromResult(result)
		report.Outcomes = append(report.Outcomes, outcome)
		if outcome.Status == store.StatusCompleted {
			report.Completed++
		} else {
			report.Failed++
		}
	}
	sort.Slice(report.Outcomes, func(i, j int) bool {
		return order[report.Outcomes[i].SubjectID] < order[report.Outcomes[j].SubjectID]
	})
	report.Finished = time.Now()

	logger.Info("batch finished",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("completed", report.Completed),
		logging.Int("failed", report.Failed),
		logging.Duration("duration", report.Duration()))
	return report
}
