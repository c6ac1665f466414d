// Package dicom validates raw scanner exports before any conversion work
// starts. Validation is deliberately shallow: it confirms the directory holds
// DICOM slices of the expected modality by sampling a handful of headers,
// leaving full series integrity to the converter.
package dicom
