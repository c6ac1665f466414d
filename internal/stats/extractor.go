package stats

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrReportMissing marks expected report files that are absent from the
// reconstruction output. The orchestrator folds this into its
// reconstruction-incomplete classification because it usually means the
// previous stage did not actually finish despite reporting success.
var ErrReportMissing = errors.New("stats report missing")

type report struct {
	file    string
	mapping Mapping
}

// Extractor parses the full report set of one subject's reconstruction
// output directory.
type Extractor struct {
	tolerance int
}

// NewExtractor constructs an extractor with the given per-report line
// tolerance.
func NewExtractor(tolerance int) *Extractor {
	return &Extractor{tolerance: tolerance}
}

func expectedReports() []report {
	return []report{
		{file: "aseg.stats", mapping: SubcorticalMapping()},
		{file: "lh.aparc.stats", mapping: CorticalMapping("lh")},
		{file: "rh.aparc.stats", mapping: CorticalMapping("rh")},
	}
}

// Extract parses every expected report under statsDir and unions their
// metric sets. All expected files must exist before any parsing starts; a
// metric present in only one report is accepted.
func (e *Extractor) Extract(statsDir string) ([]Metric, error) {
	reports := expectedReports()

	var missing []string
	for _, rep := range reports {
		if _, err := os.Stat(filepath.Join(statsDir, rep.file)); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				missing = append(missing, rep.file)
				continue
			}
			return nil, fmt.Errorf("stat report %s: %w", rep.file, err)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrReportMissing, strings.Join(missing, ", "))
	}

	var metrics []Metric
	for _, rep := range reports {
		parsed, err := e.extractOne(filepath.Join(statsDir, rep.file), rep.mapping)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", rep.file, err)
		}
		metrics = append(metrics, parsed...)
	}
	return metrics, nil
}

func (e *Extractor) extractOne(path string, mapping Mapping) ([]Metric, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}
	defer file.Close()

	reader := NewReader(file, mapping, e.tolerance)
	var metrics []Metric
	for reader.Next() {
		metrics = append(metrics, reader.Metric())
	}
	if err := reader.Err(); err != nil {
		return nil, err
	}
	return metrics, nil
}
