package batch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"neuroflow/internal/pipeline"
	"neuroflow/internal/services"
	"neuroflow/internal/store"
)

type stubProcessor struct {
	mu      sync.Mutex
	active  int32
	peak    int32
	results map[string]pipeline.Result
	calls   []string
}

func (p *stubProcessor) Process(_ context.Context, subject pipeline.Subject) pipeline.Result {
	current := atomic.AddInt32(&p.active, 1)
	for {
		peak := atomic.LoadInt32(&p.peak)
		if current <= peak || atomic.CompareAndSwapInt32(&p.peak, peak, current) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	atomic.AddInt32(&p.active, -1)

	p.mu.Lock()
	p.calls = append(p.calls, subject.ID)
	p.mu.Unlock()

	if result, ok := p.results[subject.ID]; ok {
		return result
	}
	return pipeline.Result{SubjectID: subject.ID, Status: store.StatusCompleted}
}

func TestRunIsolatesFailures(t *testing.T) {
	processor := &stubProcessor{results: map[string]pipeline.Result{
		"sub-002": {
			SubjectID:      "sub-002",
			Status:         store.StatusFailed,
			FailedStage:    store.StageValidate,
			Classification: services.Classify(services.ErrValidation),
			Err:            services.ErrValidation,
		},
	}}
	coordinator, err := NewCoordinator(processor, 2, nil)
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}

	subjects := []pipeline.Subject{
		{ID: "sub-001", SourceDir: "/data/a"},
		{ID: "sub-002", SourceDir: "/data/b"},
		{ID: "sub-003", SourceDir: "/data/c"},
	}
	report := coordinator.Run(context.Background(), subjects)

	if report.Completed != 2 || report.Failed != 1 {
		t.Fatalf("completed=%d failed=%d", report.Completed, report.Failed)
	}
	if len(processor.calls) != 3 {
		t.Fatalf("all subjects must be attempted, got %d", len(processor.calls))
	}
	if report.RunID == "" {
		t.Fatal("missing run id")
	}

	// Outcomes follow manifest order even when workers finish out of order.
	for i, want := range []string{"sub-001", "sub-002", "sub-003"} {
		if report.Outcomes[i].SubjectID != want {
			t.Fatalf("outcome %d = %s, want %s", i, report.Outcomes[i].SubjectID, want)
		}
	}
	if report.Outcomes[1].Classification != "validation-error" {
		t.Fatalf("classification = %s", report.Outcomes[1].Classification)
	}
	if report.Outcomes[1].FailedStage != store.StageValidate {
		t.Fatalf("failed stage = %s", report.Outcomes[1].FailedStage)
	}
}

func TestRunHonorsConcurrencyCap(t *testing.T) {
	processor := &stubProcessor{}
	coordinator, err := NewCoordinator(processor, 2, nil)
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}

	subjects := make([]pipeline.Subject, 6)
	for i := range subjects {
		subjects[i] = pipeline.Subject{ID: string(rune('a' + i)), SourceDir: "/data"}
	}
	report := coordinator.Run(context.Background(), subjects)

	if report.Completed != 6 {
		t.Fatalf("completed = %d", report.Completed)
	}
	if peak := atomic.LoadInt32(&processor.peak); peak > 2 {
		t.Fatalf("concurrency peak = %d, cap is 2", peak)
	}
}

func TestNewCoordinatorDefaultsWorkers(t *testing.T) {
	coordinator, err := NewCoordinator(&stubProcessor{}, 0, nil)
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	report := coordinator.Run(context.Background(), []pipeline.Subject{{ID: "sub-001", SourceDir: "/data"}})
	if report.Completed != 1 {
		t.Fatalf("completed = %d", report.Completed)
	}
}
