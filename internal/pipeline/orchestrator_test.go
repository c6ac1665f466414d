package pipeline_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"neuroflow/internal/config"
	"neuroflow/internal/logging"
	"neuroflow/internal/pipeline"
	"neuroflow/internal/recon"
	"neuroflow/internal/services"
	"neuroflow/internal/stats"
	"neuroflow/internal/store"
)

type fakeValidator struct {
	calls int
	count int
	err   error
}

func (v *fakeValidator) Validate(string) (int, error) {
	v.calls++
	return v.count, v.err
}

type fakeConverter struct {
	calls int
	path  string
	err   error
}

func (c *fakeConverter) Convert(_ context.Context, subjectID, _, outputDir string) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	if c.path != "" {
		return c.path, nil
	}
	return filepath.Join(outputDir, subjectID+"_T1w.nii.gz"), nil
}

type fakeRecon struct {
	calls   int
	retries int
	err     error
}

func (r *fakeRecon) Reconstruct(_ context.Context, subjectID, _, outputRoot string) (*recon.Result, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &recon.Result{
		OutputDir: filepath.Join(outputRoot, subjectID),
		Runtime:   3 * time.Hour,
		Retries:   r.retries,
	}, nil
}

type fakeExtractor struct {
	calls   int
	metrics []stats.Metric
	err     error
}

func (e *fakeExtractor) Extract(string) ([]stats.Metric, error) {
	e.calls++
	return e.metrics, e.err
}

type fixture struct {
	cfg       *config.Config
	store     *store.Store
	validator *fakeValidator
	converter *fakeConverter
	recon     *fakeRecon
	extractor *fakeExtractor
	orch      *pipeline.Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(root, "work")
	cfg.Paths.SubjectsDir = filepath.Join(root, "subjects")
	cfg.Paths.NiftiDir = filepath.Join(root, "nifti")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	st, err := store.OpenPath(cfg.DatabasePath())
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	fx := &fixture{
		cfg:       &cfg,
		store:     st,
		validator: &fakeValidator{count: 176},
		converter: &fakeConverter{},
		recon:     &fakeRecon{},
		extractor: &fakeExtractor{metrics: []stats.Metric{
			{Name: "icv", Value: 1500000, Unit: stats.UnitVolume},
			{Name: "hippocampus_left", Value: 4100.5, Unit: stats.UnitVolume},
		}},
	}
	orch, err := pipeline.New(&cfg, st, logging.NewNop(),
		pipeline.WithValidator(fx.validator),
		pipeline.WithConverter(fx.converter),
		pipeline.WithReconstructor(fx.recon),
		pipeline.WithExtractor(fx.extractor))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fx.orch = orch
	return fx
}

func (fx *fixture) subject() pipeline.Subject {
	return pipeline.Subject{ID: "sub-001", SourceDir: "/data/sub-001/dicom"}
}

func TestProcessRunsAllStages(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	result := fx.orch.Process(ctx, fx.subject())
	if !result.Completed() {
		t.Fatalf("result = %+v", result)
	}
	if len(result.StagesRun) != 4 || len(result.StagesSkipped) != 0 {
		t.Fatalf("stages run %v skipped %v", result.StagesRun, result.StagesSkipped)
	}
	if result.MetricCount != 2 {
		t.Fatalf("metric count = %d", result.MetricCount)
	}
	if result.RunID == "" {
		t.Fatal("missing run id")
	}

	for _, stage := range store.Stages() {
		state, err := fx.store.StageState(ctx, "sub-001", stage)
		if err != nil {
			t.Fatalf("StageState %s: %v", stage, err)
		}
		if state == nil || state.Status != store.StatusCompleted {
			t.Fatalf("stage %s state = %+v", stage, state)
		}
	}

	scan, err := fx.store.ScanForSubject(ctx, "sub-001")
	if err != nil {
		t.Fatalf("ScanForSubject: %v", err)
	}
	if scan.NiftiPath == "" || scan.OutputDir == "" {
		t.Fatalf("scan fields not persisted: %+v", scan)
	}
	if scan.ReconRuntimeSeconds != (3 * time.Hour).Seconds() {
		t.Fatalf("runtime = %v", scan.ReconRuntimeSeconds)
	}

	records, err := fx.store.RecordsForSubject(ctx, "sub-001")
	if err != nil {
		t.Fatalf("RecordsForSubject: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d", len(records))
	}
}

func TestProcessSkipsCompletedStages(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	if result := fx.orch.Process(ctx, fx.subject()); !result.Completed() {
		t.Fatalf("first run failed: %+v", result)
	}

	result := fx.orch.Process(ctx, fx.subject())
	if !result.Completed() {
		t.Fatalf("second run failed: %+v", result)
	}
	if len(result.StagesRun) != 0 || len(result.StagesSkipped) != 4 {
		t.Fatalf("stages run %v skipped %v", result.StagesRun, result.StagesSkipped)
	}
	if fx.recon.calls != 1 {
		t.Fatalf("reconstruction re-invoked: %d calls", fx.recon.calls)
	}
	if fx.converter.calls != 1 || fx.validator.calls != 1 || fx.extractor.calls != 1 {
		t.Fatalf("completed stages re-ran: validator=%d converter=%d extractor=%d",
			fx.validator.calls, fx.converter.calls, fx.extractor.calls)
	}
}

func TestProcessResumesAfterFailure(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.recon.err = services.Wrap(services.ErrExternalTool, "reconstruct", "run recon-all", "recon-all exited 1", nil)
	result := fx.orch.Process(ctx, fx.subject())
	if result.Completed() {
		t.Fatal("expected failure")
	}
	if result.FailedStage != store.StageReconstruct {
		t.Fatalf("failed stage = %s", result.FailedStage)
	}
	if result.Classification != "external-tool-failure" {
		t.Fatalf("classification = %s", result.Classification)
	}

	state, err := fx.store.StageState(ctx, "sub-001", store.StageReconstruct)
	if err != nil {
		t.Fatalf("StageState: %v", err)
	}
	if state.Status != store.StatusFailed || state.ErrorMessage == "" {
		t.Fatalf("state = %+v", state)
	}
	// Extraction never started, so no row exists for it.
	if extractState, err := fx.store.StageState(ctx, "sub-001", store.StageExtract); err != nil || extractState != nil {
		t.Fatalf("extract state = %+v err=%v", extractState, err)
	}

	// Re-submission resumes at the failed stage.
	fx.recon.err = nil
	result = fx.orch.Process(ctx, fx.subject())
	if !result.Completed() {
		t.Fatalf("resume failed: %+v", result)
	}
	if len(result.StagesSkipped) != 2 {
		t.Fatalf("expected validate and convert skipped, got %v", result.StagesSkipped)
	}
	if fx.validator.calls != 1 || fx.converter.calls != 1 {
		t.Fatal("earlier completed stages re-ran on resume")
	}
	if fx.recon.calls != 2 {
		t.Fatalf("recon calls = %d", fx.recon.calls)
	}
}

func TestProcessValidationFailure(t *testing.T) {
	fx := newFixture(t)
	fx.validator.err = services.Wrap(services.ErrValidation, "validate", "check modality", "003.dcm has modality \"CT\", expected MR", nil)

	result := fx.orch.Process(context.Background(), fx.subject())
	if result.Completed() {
		t.Fatal("expected failure")
	}
	if result.FailedStage != store.StageValidate || result.Classification != "validation-error" {
		t.Fatalf("result = %+v", result)
	}
	if fx.converter.calls != 0 || fx.recon.calls != 0 {
		t.Fatal("later stages ran after validation failure")
	}
}

func TestProcessMissingReportsClassifiedIncomplete(t *testing.T) {
	fx := newFixture(t)
	fx.extractor.err = stats.ErrReportMissing
	fx.extractor.metrics = nil

	result := fx.orch.Process(context.Background(), fx.subject())
	if result.Completed() {
		t.Fatal("expected failure")
	}
	if result.FailedStage != store.StageExtract {
		t.Fatalf("failed stage = %s", result.FailedStage)
	}
	if result.Classification != "reconstruction-incomplete" {
		t.Fatalf("classification = %s", result.Classification)
	}
	if !errors.Is(result.Err, services.ErrReconIncomplete) {
		t.Fatalf("err = %v", result.Err)
	}
}

func TestProcessMalformedReportClassification(t *testing.T) {
	fx := newFixture(t)
	fx.extractor.err = stats.ErrMalformed
	fx.extractor.metrics = nil

	result := fx.orch.Process(context.Background(), fx.subject())
	if result.Classification != "malformed-report" {
		t.Fatalf("classification = %s", result.Classification)
	}
}

func TestProcessPropagatesRetries(t *testing.T) {
	fx := newFixture(t)
	fx.recon.retries = 1

	result := fx.orch.Process(context.Background(), fx.subject())
	if !result.Completed() {
		t.Fatalf("result = %+v", result)
	}
	if result.Retries != 1 {
		t.Fatalf("retries = %d", result.Retries)
	}
	scan, err := fx.store.ScanForSubject(context.Background(), "sub-001")
	if err != nil {
		t.Fatalf("ScanForSubject: %v", err)
	}
	if scan.ReconRetries != 1 {
		t.Fatalf("scan retries = %d", scan.ReconRetries)
	}
}

func TestProcessRequiresSubjectID(t *testing.T) {
	fx := newFixture(t)
	result := fx.orch.Process(context.Background(), pipeline.Subject{SourceDir: "/data"})
	if result.Completed() || result.Err == nil {
		t.Fatalf("result = %+v", result)
	}
}
