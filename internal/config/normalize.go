package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeReconstruction(); err != nil {
		return err
	}
	c.normalizeConversion()
	c.normalizeValidation()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.SubjectsDir, err = expandPath(c.Paths.SubjectsDir); err != nil {
		return fmt.Errorf("paths.subjects_dir: %w", err)
	}
	if c.Paths.NiftiDir, err = expandPath(c.Paths.NiftiDir); err != nil {
		return fmt.Errorf("paths.nifti_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeReconstruction() error {
	if c.Reconstruction.FreesurferHome == "" {
		if value, ok := os.LookupEnv("FREESURFER_HOME"); ok {
			c.Reconstruction.FreesurferHome = value
		} else {
			c.Reconstruction.FreesurferHome = defaultFreesurferHome
		}
	}
	if c.Reconstruction.LicensePath == "" {
		if value, ok := os.LookupEnv("FS_LICENSE"); ok {
			c.Reconstruction.LicensePath = value
		}
	}
	var err error
	if c.Reconstruction.FreesurferHome, err = expandPath(c.Reconstruction.FreesurferHome); err != nil {
		return fmt.Errorf("reconstruction.freesurfer_home: %w", err)
	}
	if c.Reconstruction.LicensePath != "" {
		if c.Reconstruction.LicensePath, err = expandPath(c.Reconstruction.LicensePath); err != nil {
			return fmt.Errorf("reconstruction.license_path: %w", err)
		}
	}
	c.Reconstruction.Binary = strings.TrimSpace(c.Reconstruction.Binary)
	if c.Reconstruction.Binary == "" {
		c.Reconstruction.Binary = defaultReconBinary
	}
	c.Reconstruction.DockerImage = strings.TrimSpace(c.Reconstruction.DockerImage)
	if c.Reconstruction.DockerImage == "" {
		c.Reconstruction.DockerImage = defaultDockerImage
	}
	if c.Reconstruction.RetryTimeoutSeconds <= 0 {
		// Extended budget for the single automatic retry after a timeout.
		c.Reconstruction.RetryTimeoutSeconds = c.Reconstruction.TimeoutSeconds * 3 / 2
	}
	return nil
}

func (c *Config) normalizeConversion() {
	c.Conversion.Binary = strings.TrimSpace(c.Conversion.Binary)
	if c.Conversion.Binary == "" {
		c.Conversion.Binary = defaultConversionBinary
	}
	if c.Conversion.TimeoutSeconds <= 0 {
		c.Conversion.TimeoutSeconds = defaultConversionTimeout
	}
}

func (c *Config) normalizeValidation() {
	c.Validation.ExpectedModality = strings.ToUpper(strings.TrimSpace(c.Validation.ExpectedModality))
	if c.Validation.ExpectedModality == "" {
		c.Validation.ExpectedModality = defaultExpectedModality
	}
	if c.Validation.SampleLimit <= 0 {
		c.Validation.SampleLimit = defaultModalitySampleLimit
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
