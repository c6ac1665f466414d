package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"neuroflow/internal/pipeline"
)

// manifest columns, in required order.
var manifestHeader = []string{"subject_id", "source_directory", "output_directory"}

// ErrManifest marks an unusable manifest file.
var ErrManifest = errors.New("invalid manifest")

// ReadManifest parses a CSV manifest into subjects. The header row is
// mandatory and duplicate subject ids are rejected so a stray copy-paste
// cannot process the same data twice in one run.
func ReadManifest(path string) ([]pipeline.Subject, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer file.Close()
	return parseManifest(file)
}

func parseManifest(r io.Reader) ([]pipeline.Subject, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrManifest)
		}
		return nil, fmt.Errorf("%w: %v", ErrManifest, err)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	var subjects []pipeline.Subject
	seen := make(map[string]bool)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrManifest, line, err)
		}
		subjectID := strings.TrimSpace(record[0])
		sourceDir := strings.TrimSpace(record[1])
		outputDir := strings.TrimSpace(record[2])
		if subjectID == "" || sourceDir == "" {
			return nil, fmt.Errorf("%w: line %d: subject_id and source_directory are required", ErrManifest, line)
		}
		if seen[subjectID] {
			return nil, fmt.Errorf("%w: line %d: duplicate subject %s", ErrManifest, line, subjectID)
		}
		seen[subjectID] = true
		subjects = append(subjects, pipeline.Subject{
			ID:        subjectID,
			SourceDir: sourceDir,
			OutputDir: outputDir,
		})
	}
	if len(subjects) == 0 {
		return nil, fmt.Errorf("%w: no subjects listed", ErrManifest)
	}
	return subjects, nil
}

func checkHeader(header []string) error {
	if len(header) != len(manifestHeader) {
		return fmt.Errorf("%w: header must be %s", ErrManifest, strings.Join(manifestHeader, ","))
	}
	for i, want := range manifestHeader {
		if !strings.EqualFold(strings.TrimSpace(header[i]), want) {
			return fmt.Errorf("%w: header column %d is %q, want %q", ErrManifest, i+1, header[i], want)
		}
	}
	return nil
}
