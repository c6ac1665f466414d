// Package stats parses the reconstruction tool's statistics reports into
// typed volumetric metrics.
//
// Two report grammars are supported: the subcortical segmentation report
// (aseg.stats) and the per-hemisphere cortical parcellation reports
// (lh.aparc.stats, rh.aparc.stats). Both are line-oriented text with scalar
// summary lines and a fixed-column measurement table announced by a
// ColHeaders line. Fixed mapping tables select which rows and scalars become
// metrics; everything else is ignored.
//
// Parsing is strict by intent. Lines with an unexpected column count are
// skipped and counted against a tolerance so a report from an incompatible
// tool version fails loudly instead of being silently absorbed. A non-numeric
// value in a mapped numeric column is always fatal.
package stats
