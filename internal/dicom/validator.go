package dicom

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"neuroflow/internal/services"
)

const stageName = "validate"

// Validator checks that a source directory contains usable DICOM input.
type Validator struct {
	reader      ModalityReader
	expected    string
	sampleLimit int
}

// ValidatorOption customizes a Validator.
type ValidatorOption func(*Validator)

// WithReader injects a header reader (primarily for tests).
func WithReader(reader ModalityReader) ValidatorOption {
	return func(v *Validator) {
		if reader != nil {
			v.reader = reader
		}
	}
}

// NewValidator constructs a validator for the given modality. sampleLimit
// caps how many headers are opened per directory.
func NewValidator(expectedModality string, sampleLimit int, opts ...ValidatorOption) (*Validator, error) {
	expectedModality = strings.TrimSpace(expectedModality)
	if expectedModality == "" {
		return nil, errors.New("expected modality required")
	}
	if sampleLimit <= 0 {
		sampleLimit = 10
	}
	validator := &Validator{
		reader:      HeaderReader{},
		expected:    strings.ToUpper(expectedModality),
		sampleLimit: sampleLimit,
	}
	for _, opt := range opts {
		opt(validator)
	}
	return validator, nil
}

// Validate walks dir, confirms DICOM files exist, and samples headers to
// confirm the expected modality. It returns the total slice count.
func (v *Validator) Validate(dir string) (int, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, stageName, "stat source", dir, err)
	}
	if !info.IsDir() {
		return 0, services.Wrap(services.ErrValidation, stageName, "stat source", fmt.Sprintf("%s is not a directory", dir), nil)
	}

	files, err := collectDICOMFiles(dir)
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, stageName, "scan source", dir, err)
	}
	if len(files) == 0 {
		return 0, services.Wrap(services.ErrValidation, stageName, "scan source", fmt.Sprintf("no DICOM files under %s", dir), nil)
	}

	sample := files
	if len(sample) > v.sampleLimit {
		sample = sample[:v.sampleLimit]
	}
	for _, path := range sample {
		modality, err := v.reader.Modality(path)
		if err != nil {
			return 0, services.Wrap(services.ErrValidation, stageName, "read header", filepath.Base(path), err)
		}
		if !strings.EqualFold(modality, v.expected) {
			message := fmt.Sprintf("%s has modality %q, expected %s", filepath.Base(path), modality, v.expected)
			return 0, services.Wrap(services.ErrValidation, stageName, "check modality", message, nil)
		}
	}
	return len(files), nil
}

func collectDICOMFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".dcm") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
