package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"neuroflow/internal/config"
	"neuroflow/internal/convert"
	"neuroflow/internal/dicom"
	"neuroflow/internal/logging"
	"neuroflow/internal/recon"
	"neuroflow/internal/services"
	"neuroflow/internal/stats"
	"neuroflow/internal/store"
	"neuroflow/internal/toolexec"
)

// ErrSubjectBusy is returned when another process already holds the lock for
// a subject.
var ErrSubjectBusy = errors.New("subject is already being processed")

// Subject is one unit of work for the orchestrator.
type Subject struct {
	ID        string
	SourceDir string
	// OutputDir overrides the configured subjects directory when set.
	OutputDir string
}

// Result reports the outcome of one subject run.
type Result struct {
	SubjectID      string
	RunID          string
	Status         store.Status
	FailedStage    store.Stage
	Classification string
	Err            error
	StagesRun      []store.Stage
	StagesSkipped  []store.Stage
	MetricCount    int
	Retries        int
	Duration       time.Duration
}

// Completed reports whether every stage finished.
func (r Result) Completed() bool {
	return r.Status == store.StatusCompleted
}

// Option overrides an orchestrator collaborator, primarily for tests.
type Option func(*Orchestrator)

// WithValidator injects the DICOM validator.
func WithValidator(v Validator) Option {
	return func(o *Orchestrator) {
		if v != nil {
			o.validator = v
		}
	}
}

// WithConverter injects the NIfTI converter.
func WithConverter(c convert.Converter) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.converter = c
		}
	}
}

// WithReconstructor injects the surface reconstructor.
func WithReconstructor(r recon.Reconstructor) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recon = r
		}
	}
}

// WithExtractor injects the stats extractor.
func WithExtractor(e Extractor) Option {
	return func(o *Orchestrator) {
		if e != nil {
			o.extractor = e
		}
	}
}

// Orchestrator runs the full stage sequence for individual subjects.
type Orchestrator struct {
	cfg       *config.Config
	store     StatusStore
	logger    *slog.Logger
	validator Validator
	converter convert.Converter
	recon     recon.Reconstructor
	extractor Extractor
	lockDir   string
}

// New wires an orchestrator from configuration. The reconstruction client
// runs inside docker when the configuration says so; conversion always runs
// natively because dcm2niix ships on the host.
func New(cfg *config.Config, st StatusStore, logger *slog.Logger, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.New("configuration required")
	}
	if st == nil {
		return nil, errors.New("store required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	validator, err := dicom.NewValidator(cfg.Validation.ExpectedModality, cfg.Validation.SampleLimit)
	if err != nil {
		return nil, fmt.Errorf("build validator: %w", err)
	}

	logBase := filepath.Join(cfg.Paths.LogDir, "subjects")
	converter, err := convert.New(cfg.Conversion.Binary, cfg.Conversion.TimeoutSeconds, convert.WithLogDir(logBase))
	if err != nil {
		return nil, fmt.Errorf("build converter: %w", err)
	}

	reconOpts := []recon.Option{
		recon.WithLicense(cfg.Reconstruction.LicensePath),
		recon.WithFreesurferHome(cfg.Reconstruction.FreesurferHome),
		recon.WithLogDir(logBase),
	}
	if cfg.Reconstruction.UseDocker {
		dockerRunner, err := toolexec.NewDockerRunner(cfg.Reconstruction.DockerImage)
		if err != nil {
			return nil, fmt.Errorf("build docker runner: %w", err)
		}
		reconOpts = append(reconOpts, recon.WithRunner(dockerRunner))
	}
	reconstructor, err := recon.New(cfg.Reconstruction.Binary, cfg.Reconstruction.TimeoutSeconds, cfg.Reconstruction.RetryTimeoutSeconds, reconOpts...)
	if err != nil {
		return nil, fmt.Errorf("build reconstructor: %w", err)
	}

	orch := &Orchestrator{
		cfg:       cfg,
		store:     st,
		logger:    logger,
		validator: validator,
		converter: converter,
		recon:     reconstructor,
		extractor: stats.NewExtractor(cfg.Extraction.LineTolerance),
		lockDir:   filepath.Join(cfg.Paths.WorkDir, "locks"),
	}
	for _, opt := range opts {
		opt(orch)
	}
	return orch, nil
}

type subjectEnv struct {
	subject Subject
	scan    *store.Scan
	// outputRoot is the FreeSurfer subjects directory for this run.
	outputRoot  string
	metricCount int
	retries     int
}

// Process runs every pending stage for one subject. Stages already marked
// completed are skipped without re-verification, which is what makes a crash
// or re-submission cheap to recover from.
func (o *Orchestrator) Process(ctx context.Context, subject Subject) Result {
	started := time.Now()
	result := Result{SubjectID: subject.ID, RunID: uuid.NewString(), Status: store.StatusFailed}

	finish := func(result Result) Result {
		result.Duration = time.Since(started)
		return result
	}

	if strings.TrimSpace(subject.ID) == "" {
		result.Err = errors.New("subject id required")
		result.Classification = services.Classify(services.ErrConfiguration)
		return finish(result)
	}

	ctx = services.WithSubjectID(ctx, subject.ID)
	ctx = services.WithRunID(ctx, result.RunID)
	logger := logging.WithContext(ctx, o.logger)

	unlock, err := o.acquireLock(subject.ID)
	if err != nil {
		result.Err = err
		result.Classification = services.Classify(services.ErrConfiguration)
		return finish(result)
	}
	defer unlock()

	if _, err := o.store.UpsertSubject(ctx, subject.ID, subject.SourceDir); err != nil {
		result.Err = fmt.Errorf("register subject: %w", err)
		result.Classification = services.Classify(services.ErrConfiguration)
		return finish(result)
	}
	scan, err := o.store.EnsureScan(ctx, subject.ID, "T1w")
	if err != nil {
		result.Err = fmt.Errorf("register scan: %w", err)
		result.Classification = services.Classify(services.ErrConfiguration)
		return finish(result)
	}

	env := &subjectEnv{subject: subject, scan: scan, outputRoot: o.cfg.Paths.SubjectsDir}
	if subject.OutputDir != "" {
		env.outputRoot = subject.OutputDir
	}

	for _, stage := range store.Stages() {
		state, err := o.store.StageState(ctx, subject.ID, stage)
		if err != nil {
			result.Err = fmt.Errorf("load stage state: %w", err)
			result.FailedStage = stage
			result.Classification = services.Classify(services.ErrConfiguration)
			return finish(result)
		}
		if state != nil && state.Status == store.StatusCompleted {
			result.StagesSkipped = append(result.StagesSkipped, stage)
			continue
		}

		if err := o.runStage(ctx, logger, stage, env); err != nil {
			message := strings.TrimSpace(err.Error())
			if _, terr := o.store.Transition(ctx, subject.ID, stage, store.StatusFailed, message); terr != nil {
				logger.Error("persist stage failure",
					logging.String(logging.FieldStage, string(stage)),
					logging.Error(terr))
			}
			logger.Error("stage failed",
				logging.String(logging.FieldEventType, "stage_failure"),
				logging.String(logging.FieldStage, string(stage)),
				logging.String("classification", services.Classify(err)),
				logging.Error(err))
			result.Err = err
			result.FailedStage = stage
			result.Classification = services.Classify(err)
			return finish(result)
		}
		result.StagesRun = append(result.StagesRun, stage)
	}

	result.Status = store.StatusCompleted
	result.MetricCount = env.metricCount
	result.Retries = env.retries
	logger.Info("subject completed",
		logging.String(logging.FieldEventType, "subject_complete"),
		logging.Int("metrics", env.metricCount),
		logging.Int("stages_run", len(result.StagesRun)),
		logging.Int("stages_skipped", len(result.StagesSkipped)),
		logging.Duration("duration", time.Since(started)))
	return finish(result)
}

func (o *Orchestrator) runStage(ctx context.Context, logger *slog.Logger, stage store.Stage, env *subjectEnv) error {
	stageCtx := services.WithStage(ctx, string(stage))
	stageLogger := logging.WithContext(stageCtx, logger)

	if _, err := o.store.Transition(stageCtx, env.subject.ID, stage, store.StatusRunning, ""); err != nil {
		return fmt.Errorf("mark %s running: %w", stage, err)
	}
	stageLogger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))

	started := time.Now()
	var err error
	switch stage {
	case store.StageValidate:
		err = o.validateStage(stageCtx, stageLogger, env)
	case store.StageConvert:
		err = o.convertStage(stageCtx, env)
	case store.StageReconstruct:
		err = o.reconstructStage(stageCtx, env)
	case store.StageExtract:
		err = o.extractStage(stageCtx, env)
	default:
		err = fmt.Errorf("unknown stage %q", stage)
	}
	if err != nil {
		return err
	}

	if _, err := o.store.Transition(stageCtx, env.subject.ID, stage, store.StatusCompleted, ""); err != nil {
		return fmt.Errorf("mark %s completed: %w", stage, err)
	}
	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("duration", time.Since(started)))
	return nil
}

func (o *Orchestrator) validateStage(ctx context.Context, logger *slog.Logger, env *subjectEnv) error {
	count, err := o.validator.Validate(env.subject.SourceDir)
	if err != nil {
		return err
	}
	logger.Info("source validated", logging.Int("dicom_files", count))
	return nil
}

func (o *Orchestrator) convertStage(ctx context.Context, env *subjectEnv) error {
	path, err := o.converter.Convert(ctx, env.subject.ID, env.subject.SourceDir, o.cfg.Paths.NiftiDir)
	if err != nil {
		return err
	}
	env.scan.NiftiPath = path
	if err := o.store.UpdateScan(ctx, env.scan); err != nil {
		return fmt.Errorf("persist nifti path: %w", err)
	}
	return nil
}

func (o *Orchestrator) reconstructStage(ctx context.Context, env *subjectEnv) error {
	niftiPath := env.scan.NiftiPath
	if niftiPath == "" {
		// Conversion was completed by an earlier run; the path is deterministic.
		niftiPath = filepath.Join(o.cfg.Paths.NiftiDir, env.subject.ID+"_T1w.nii.gz")
	}
	result, err := o.recon.Reconstruct(ctx, env.subject.ID, niftiPath, env.outputRoot)
	if err != nil {
		return err
	}
	env.scan.NiftiPath = niftiPath
	env.scan.OutputDir = result.OutputDir
	env.scan.ReconRuntimeSeconds = result.Runtime.Seconds()
	env.scan.ReconRetries = result.Retries
	env.retries = result.Retries
	if err := o.store.UpdateScan(ctx, env.scan); err != nil {
		return fmt.Errorf("persist reconstruction result: %w", err)
	}
	return nil
}

func (o *Orchestrator) extractStage(ctx context.Context, env *subjectEnv) error {
	outputDir := env.scan.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join(env.outputRoot, env.subject.ID)
	}
	metrics, err := o.extractor.Extract(filepath.Join(outputDir, "stats"))
	if err != nil {
		switch {
		case errors.Is(err, stats.ErrReportMissing):
			return services.Wrap(services.ErrReconIncomplete, string(store.StageExtract), "locate reports", "", err)
		case errors.Is(err, stats.ErrMalformed):
			return services.Wrap(services.ErrMalformedReport, string(store.StageExtract), "parse reports", "", err)
		default:
			return services.Wrap(services.ErrMalformedReport, string(store.StageExtract), "read reports", "", err)
		}
	}
	if err := o.store.ReplaceRecords(ctx, env.subject.ID, env.scan.ID, metrics); err != nil {
		return fmt.Errorf("persist metrics: %w", err)
	}
	env.metricCount = len(metrics)
	return nil
}

func (o *Orchestrator) acquireLock(subjectID string) (func(), error) {
	if err := os.MkdirAll(o.lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(filepath.Join(o.lockDir, subjectID+".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire subject lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrSubjectBusy, subjectID)
	}
	return func() {
		_ = lock.Unlock()
	}, nil
}
