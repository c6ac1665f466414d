// Package convert turns validated DICOM series into compressed NIfTI volumes
// using dcm2niix.
package convert
