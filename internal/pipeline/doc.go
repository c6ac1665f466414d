// Package pipeline sequences the per-subject stages: validate the DICOM
// source, convert it to NIfTI, reconstruct cortical surfaces, and extract
// volumetric metrics into the store. Stage status rows make every run
// resumable; completed stages are skipped on re-submission and a failed
// stage restarts from where it stopped.
package pipeline
