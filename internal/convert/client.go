package convert

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

const stageName = "convert"

// Converter produces a NIfTI volume from a DICOM directory.
type Converter interface {
	Convert(ctx context.Context, subjectID, sourceDir, outputDir string) (string, error)
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

// WithLogDir sets the base directory for conversion logs; each subject gets
// its own subdirectory beneath it.
func WithLogDir(dir string) Option {
	return func(c *Client) {
		c.logDir = dir
	}
}

// Client wraps dcm2niix invocations.
type Client struct {
	binary  string
	timeout time.Duration
	logDir  string
	runner  toolexec.Runner
}

// New constructs a converter client.
func New(binary string, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("dcm2niix binary required")
	}
	client := &Client{
		binary:  binary,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		runner:  toolexec.NewNativeRunner(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Convert runs dcm2niix and returns the path of the produced volume. The
// output name is fixed to <subject>_T1w.nii.gz so downstream stages never
// guess at series naming.
func (c *Client) Convert(ctx context.Context, subjectID, sourceDir, outputDir string) (string, error) {
	if subjectID == "" {
		return "", errors.New("subject id required")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, stageName, "create output directory", outputDir, err)
	}

	stem := subjectID + "_T1w"
	outputPath := filepath.Join(outputDir, stem+".nii.gz")

	command := toolexec.Command{
		Binary: c.binary,
		Args:   []string{"-o", outputDir, "-f", stem, "-z", "y", "-b", "y", sourceDir},
		Mounts: []toolexec.Mount{
			{HostPath: sourceDir, ReadOnly: true},
			{HostPath: outputDir},
		},
		Timeout: c.timeout,
	}
	if c.logDir != "" {
		command.LogPath = filepath.Join(c.logDir, subjectID, "dcm2niix.log")
	}

	outcome, err := c.runner.Run(ctx, command)
	if outcome.Failed() {
		return "", classify(outcome, err)
	}

	if _, err := os.Stat(outputPath); err != nil {
		message := fmt.Sprintf("dcm2niix exited cleanly but %s is missing", filepath.Base(outputPath))
		return "", services.Wrap(services.ErrExternalTool, stageName, "verify output", message, err)
	}
	return outputPath, nil
}

func classify(outcome toolexec.Outcome, err error) error {
	message := outcome.Tail
	switch outcome.Classification {
	case toolexec.ClassTimeout:
		return services.Wrap(services.ErrTimeout, stageName, "run dcm2niix", "", err)
	case toolexec.ClassCrashed:
		return services.Wrap(services.ErrCrashed, stageName, "run dcm2niix", message, err)
	default:
		return services.Wrap(services.ErrExternalTool, stageName, "run dcm2niix", message, err)
	}
}

var _ Converter = (*Client)(nil)
