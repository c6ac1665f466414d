package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTimeouts(); err != nil {
		return err
	}
	if err := c.validateExtraction(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.WorkDir == "" {
		return errors.New("paths.work_dir must be set")
	}
	if c.Paths.SubjectsDir == "" {
		return errors.New("paths.subjects_dir must be set")
	}
	if c.Paths.NiftiDir == "" {
		return errors.New("paths.nifti_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateTimeouts() error {
	if c.Conversion.TimeoutSeconds <= 0 {
		return errors.New("conversion.timeout_seconds must be positive")
	}
	if c.Reconstruction.TimeoutSeconds <= 0 {
		return errors.New("reconstruction.timeout_seconds must be positive")
	}
	if c.Reconstruction.RetryTimeoutSeconds < c.Reconstruction.TimeoutSeconds {
		return errors.New("reconstruction.retry_timeout_seconds must not be shorter than the first-attempt budget")
	}
	if c.Reconstruction.UseDocker && c.Reconstruction.LicensePath == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/neuroflow/config.toml"
		}
		return fmt.Errorf("reconstruction.license_path is required when use_docker is enabled. Set FS_LICENSE or edit %s (create with 'neuroflow config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateExtraction() error {
	if c.Extraction.LineTolerance < 0 {
		return errors.New("extraction.line_tolerance must not be negative")
	}
	return nil
}

func (c *Config) validateBatch() error {
	if c.Batch.Workers <= 0 {
		return errors.New("batch.workers must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
