// Command neuroflow runs the structural MRI processing pipeline: validate a
// subject's DICOM export, convert it to NIfTI, reconstruct cortical surfaces
// with FreeSurfer, and persist volumetric metrics to the local database.
package main
