package dicom

import (
	"fmt"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// ModalityReader extracts the acquisition modality from a DICOM file.
type ModalityReader interface {
	Modality(path string) (string, error)
}

// HeaderReader reads modality from real DICOM headers. Pixel data is skipped
// so sampling stays cheap even for large slices.
type HeaderReader struct{}

// Modality parses the file header and returns the Modality attribute.
func (HeaderReader) Modality(path string) (string, error) {
	dataset, err := dicom.ParseFile(path, nil, dicom.SkipPixelData())
	if err != nil {
		return "", fmt.Errorf("parse dicom header: %w", err)
	}
	element, err := dataset.FindElementByTag(tag.Modality)
	if err != nil {
		return "", fmt.Errorf("modality attribute missing: %w", err)
	}
	values, ok := element.Value.GetValue().([]string)
	if !ok || len(values) == 0 {
		return "", fmt.Errorf("modality attribute empty")
	}
	return strings.TrimSpace(values[0]), nil
}

var _ ModalityReader = HeaderReader{}
