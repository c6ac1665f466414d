package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"neuroflow/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.SubjectsDir = filepath.Join(base, "subjects")
	cfgVal.Paths.NiftiDir = filepath.Join(base, "nifti")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Reconstruction.TimeoutSeconds = 30
	cfgVal.Reconstruction.RetryTimeoutSeconds = 45

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure config directories: %v", err)
	}

	return builder.cfg
}

// WithWorkers sets the batch concurrency cap on the test config.
func WithWorkers(workers int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Batch.Workers = workers
	}
}

// WithDockerReconstruction switches the test config to containerized
// reconstruction with the given image.
func WithDockerReconstruction(image string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Reconstruction.UseDocker = true
		b.cfg.Reconstruction.DockerImage = image
		b.cfg.Reconstruction.LicensePath = filepath.Join(b.baseDir, "license.txt")
		WriteFile(b.t, b.cfg.Reconstruction.LicensePath, "freesurfer test license")
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default external binaries
// are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"dcm2niix", "recon-all"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}
