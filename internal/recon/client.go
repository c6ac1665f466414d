package recon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"neuroflow/internal/services"
	"neuroflow/internal/toolexec"
)

const stageName = "reconstruct"

// doneMarker is written by recon-all only when every processing step ran.
const doneMarker = "scripts/recon-all.done"

// Result describes a completed reconstruction.
type Result struct {
	// OutputDir is the per-subject FreeSurfer directory holding surf/, mri/,
	// stats/ and friends.
	OutputDir string
	Runtime   time.Duration
	// Retries is 1 when the first attempt timed out and the extended-budget
	// attempt succeeded, 0 otherwise.
	Retries int
}

// Reconstructor runs the surface reconstruction for one subject.
type Reconstructor interface {
	Reconstruct(ctx context.Context, subjectID, niftiPath, outputRoot string) (*Result, error)
}

// Option configures the client.
type Option func(*Client)

// WithRunner injects a tool runner (primarily for tests).
func WithRunner(runner toolexec.Runner) Option {
	return func(c *Client) {
		if runner != nil {
			c.runner = runner
		}
	}
}

// WithLicense points FreeSurfer at its license file.
func WithLicense(path string) Option {
	return func(c *Client) {
		c.licensePath = path
	}
}

// WithFreesurferHome sets FREESURFER_HOME for native execution.
func WithFreesurferHome(home string) Option {
	return func(c *Client) {
		c.freesurferHome = home
	}
}

// WithLogDir sets the base directory for reconstruction logs; each subject
// gets its own subdirectory beneath it.
func WithLogDir(dir string) Option {
	return func(c *Client) {
		c.logDir = dir
	}
}

// Client wraps recon-all invocations.
type Client struct {
	binary         string
	timeout        time.Duration
	retryTimeout   time.Duration
	freesurferHome string
	licensePath    string
	logDir         string
	runner         toolexec.Runner
}

// New constructs a reconstruction client. retryTimeoutSeconds is the budget
// for the second attempt after a first-attempt timeout and must not be
// smaller than the first budget.
func New(binary string, timeoutSeconds, retryTimeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("recon-all binary required")
	}
	if retryTimeoutSeconds < timeoutSeconds {
		return nil, fmt.Errorf("retry budget %ds below first budget %ds", retryTimeoutSeconds, timeoutSeconds)
	}
	client := &Client{
		binary:       binary,
		timeout:      time.Duration(timeoutSeconds) * time.Second,
		retryTimeout: time.Duration(retryTimeoutSeconds) * time.Second,
		runner:       toolexec.NewNativeRunner(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Reconstruct runs recon-all for one subject and verifies its completion
// marker. The subject directory under outputRoot is removed before a retry so
// recon-all never trips over a half-written tree.
func (c *Client) Reconstruct(ctx context.Context, subjectID, niftiPath, outputRoot string) (*Result, error) {
	if subjectID == "" {
		return nil, errors.New("subject id required")
	}
	if _, err := os.Stat(niftiPath); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "locate input volume", niftiPath, err)
	}
	if err := os.MkdirAll(outputRoot, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "create subjects directory", outputRoot, err)
	}

	outputDir := filepath.Join(outputRoot, subjectID)
	started := time.Now()

	runErr := c.attempt(ctx, subjectID, niftiPath, outputRoot, c.timeout, 0)
	retries := 0
	if runErr != nil && errors.Is(runErr, services.ErrTimeout) {
		if err := os.RemoveAll(outputDir); err != nil {
			return nil, services.Wrap(services.ErrCrashed, stageName, "clear partial output", outputDir, err)
		}
		retries = 1
		runErr = c.attempt(ctx, subjectID, niftiPath, outputRoot, c.retryTimeout, retries)
	}
	if runErr != nil {
		return nil, runErr
	}

	marker := filepath.Join(outputDir, filepath.FromSlash(doneMarker))
	if _, err := os.Stat(marker); err != nil {
		message := fmt.Sprintf("recon-all exited cleanly but %s is missing", doneMarker)
		return nil, services.Wrap(services.ErrReconIncomplete, stageName, "verify output", message, err)
	}

	return &Result{
		OutputDir: outputDir,
		Runtime:   time.Since(started),
		Retries:   retries,
	}, nil
}

func (c *Client) attempt(ctx context.Context, subjectID, niftiPath, outputRoot string, budget time.Duration, attempt int) error {
	env := map[string]string{"SUBJECTS_DIR": outputRoot}
	if c.freesurferHome != "" {
		env["FREESURFER_HOME"] = c.freesurferHome
	}
	if c.licensePath != "" {
		env["FS_LICENSE"] = c.licensePath
	}

	mounts := []toolexec.Mount{
		{HostPath: filepath.Dir(niftiPath), ReadOnly: true},
		{HostPath: outputRoot},
	}
	if c.licensePath != "" {
		mounts = append(mounts, toolexec.Mount{HostPath: c.licensePath, ReadOnly: true})
	}

	command := toolexec.Command{
		Binary:  c.binary,
		Args:    []string{"-i", niftiPath, "-s", subjectID, "-sd", outputRoot, "-all"},
		Env:     env,
		Mounts:  mounts,
		Timeout: budget,
	}
	if c.logDir != "" {
		name := "recon-all.log"
		if attempt > 0 {
			name = fmt.Sprintf("recon-all.retry%d.log", attempt)
		}
		command.LogPath = filepath.Join(c.logDir, subjectID, name)
	}

	outcome, err := c.runner.Run(ctx, command)
	if !outcome.Failed() {
		return nil
	}
	switch outcome.Classification {
	case toolexec.ClassTimeout:
		return services.Wrap(services.ErrTimeout, stageName, "run recon-all", fmt.Sprintf("budget %s", budget), err)
	case toolexec.ClassCrashed:
		return services.Wrap(services.ErrCrashed, stageName, "run recon-all", outcome.Tail, err)
	default:
		return services.Wrap(services.ErrExternalTool, stageName, "run recon-all", outcome.Tail, err)
	}
}

var _ Reconstructor = (*Client)(nil)
