package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"neuroflow/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	base := t.TempDir()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.SubjectsDir = filepath.Join(base, "subjects")
	cfg.Paths.NiftiDir = filepath.Join(base, "nifti")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.WorkDir, cfg.Paths.SubjectsDir, cfg.Paths.LogDir} {
		if _, err := os.Stat(dir); err != nil {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	base := t.TempDir()
	content := `
[paths]
work_dir = "` + filepath.Join(base, "work") + `"
subjects_dir = "` + filepath.Join(base, "subjects") + `"
nifti_dir = "` + filepath.Join(base, "nifti") + `"
log_dir = "` + filepath.Join(base, "logs") + `"

[reconstruction]
timeout_seconds = 100

[logging]
format = "JSON"
`
	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected resolved=%s exists=true, got %s %v", path, resolved, exists)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected normalized log format json, got %q", cfg.Logging.Format)
	}
	if cfg.Reconstruction.RetryTimeoutSeconds != 150 {
		t.Fatalf("expected derived retry budget 150, got %d", cfg.Reconstruction.RetryTimeoutSeconds)
	}
	if cfg.Conversion.Binary != "dcm2niix" {
		t.Fatalf("expected default conversion binary, got %q", cfg.Conversion.Binary)
	}
	if got := cfg.DatabasePath(); got != filepath.Join(cfg.Paths.WorkDir, "neuroflow.db") {
		t.Fatalf("unexpected database path %q", got)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := t.TempDir()
	newCfg := func() config.Config {
		cfg := config.Default()
		cfg.Paths.WorkDir = filepath.Join(base, "work")
		cfg.Paths.SubjectsDir = filepath.Join(base, "subjects")
		cfg.Paths.NiftiDir = filepath.Join(base, "nifti")
		cfg.Paths.LogDir = filepath.Join(base, "logs")
		return cfg
	}

	cfg := newCfg()
	cfg.Batch.Workers = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero workers")
	}

	cfg = newCfg()
	cfg.Extraction.LineTolerance = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative tolerance")
	}

	cfg = newCfg()
	cfg.Reconstruction.RetryTimeoutSeconds = cfg.Reconstruction.TimeoutSeconds - 1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for retry budget shorter than first attempt")
	}

	cfg = newCfg()
	cfg.Reconstruction.UseDocker = true
	cfg.Reconstruction.LicensePath = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "license_path") {
		t.Fatalf("expected license error for docker mode, got %v", err)
	}
}

func TestEnvFallbacks(t *testing.T) {
	base := t.TempDir()
	t.Setenv("FREESURFER_HOME", filepath.Join(base, "fs"))
	t.Setenv("FS_LICENSE", filepath.Join(base, "license.txt"))

	content := `
[paths]
work_dir = "` + filepath.Join(base, "work") + `"
subjects_dir = "` + filepath.Join(base, "subjects") + `"
nifti_dir = "` + filepath.Join(base, "nifti") + `"
log_dir = "` + filepath.Join(base, "logs") + `"

[reconstruction]
freesurfer_home = ""
`
	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Reconstruction.FreesurferHome != filepath.Join(base, "fs") {
		t.Fatalf("expected FREESURFER_HOME fallback, got %q", cfg.Reconstruction.FreesurferHome)
	}
	if cfg.Reconstruction.LicensePath != filepath.Join(base, "license.txt") {
		t.Fatalf("expected FS_LICENSE fallback, got %q", cfg.Reconstruction.LicensePath)
	}
}

func TestSampleConfigNotEmpty(t *testing.T) {
	if !strings.Contains(config.SampleConfig(), "[reconstruction]") {
		t.Fatal("sample config should document the reconstruction section")
	}
}
