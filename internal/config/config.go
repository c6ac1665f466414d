package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir     string `toml:"work_dir"`
	SubjectsDir string `toml:"subjects_dir"`
	NiftiDir    string `toml:"nifti_dir"`
	LogDir      string `toml:"log_dir"`
}

// Conversion configures the DICOM to NIfTI conversion tool.
type Conversion struct {
	Binary         string `toml:"binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Reconstruction configures the cortical/subcortical reconstruction tool.
type Reconstruction struct {
	Binary              string `toml:"binary"`
	FreesurferHome      string `toml:"freesurfer_home"`
	LicensePath         string `toml:"license_path"`
	TimeoutSeconds      int    `toml:"timeout_seconds"`
	RetryTimeoutSeconds int    `toml:"retry_timeout_seconds"`
	UseDocker           bool   `toml:"use_docker"`
	DockerImage         string `toml:"docker_image"`
}

// Validation configures the DICOM modality gate.
type Validation struct {
	ExpectedModality string `toml:"expected_modality"`
	SampleLimit      int    `toml:"sample_limit"`
}

// Extraction configures stats report parsing.
type Extraction struct {
	LineTolerance int `toml:"line_tolerance"`
}

// Batch configures manifest processing.
type Batch struct {
	Workers int `toml:"workers"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the complete neuroflow configuration.
type Config struct {
	Paths          Paths          `toml:"paths"`
	Conversion     Conversion     `toml:"conversion"`
	Reconstruction Reconstruction `toml:"reconstruction"`
	Validation     Validation     `toml:"validation"`
	Extraction     Extraction     `toml:"extraction"`
	Batch          Batch          `toml:"batch"`
	Logging        Logging        `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/neuroflow/config.toml")
}

// SampleConfig returns the embedded sample configuration document.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes the embedded sample configuration to path.
func CreateSample(path string) error {
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("neuroflow.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a pipeline run needs.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.SubjectsDir, c.Paths.NiftiDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.WorkDir, "neuroflow.db")
}

// SubjectLogDir returns the per-subject log directory. Deterministic naming
// lets cluster job stdout/stderr be correlated to a subject after the fact.
func (c *Config) SubjectLogDir(subjectID string) string {
	return filepath.Join(c.Paths.LogDir, "subjects", subjectID)
}

// ConvertTimeout returns the conversion stage budget.
func (c *Config) ConvertTimeout() time.Duration {
	return time.Duration(c.Conversion.TimeoutSeconds) * time.Second
}

// ReconTimeout returns the first-attempt reconstruction budget.
func (c *Config) ReconTimeout() time.Duration {
	return time.Duration(c.Reconstruction.TimeoutSeconds) * time.Second
}

// ReconRetryTimeout returns the extended budget used for the single automatic
// retry after a reconstruction timeout.
func (c *Config) ReconRetryTimeout() time.Duration {
	return time.Duration(c.Reconstruction.RetryTimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
