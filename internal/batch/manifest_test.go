package batch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestReadManifest(t *testing.T) {
	path := writeManifest(t, `subject_id,source_directory,output_directory
sub-001,/data/sub-001/dicom,/out/sub-001
sub-002, /data/sub-002/dicom ,
`)
	subjects, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if len(subjects) != 2 {
		t.Fatalf("subjects = %d", len(subjects))
	}
	if subjects[0].ID != "sub-001" || subjects[0].OutputDir != "/out/sub-001" {
		t.Fatalf("first subject = %+v", subjects[0])
	}
	if subjects[1].SourceDir != "/data/sub-002/dicom" {
		t.Fatalf("source not trimmed: %q", subjects[1].SourceDir)
	}
	if subjects[1].OutputDir != "" {
		t.Fatalf("output dir should be optional, got %q", subjects[1].OutputDir)
	}
}

func TestReadManifestRejectsBadHeader(t *testing.T) {
	path := writeManifest(t, "subject,source,output\nsub-001,/data,/out\n")
	if _, err := ReadManifest(path); !errors.Is(err, ErrManifest) {
		t.Fatalf("expected manifest error, got %v", err)
	}
}

func TestReadManifestRejectsDuplicates(t *testing.T) {
	path := writeManifest(t, `subject_id,source_directory,output_directory
sub-001,/data/a,
sub-001,/data/b,
`)
	if _, err := ReadManifest(path); !errors.Is(err, ErrManifest) {
		t.Fatalf("expected manifest error, got %v", err)
	}
}

func TestReadManifestRejectsMissingFields(t *testing.T) {
	path := writeManifest(t, `subject_id,source_directory,output_directory
sub-001,,
`)
	if _, err := ReadManifest(path); !errors.Is(err, ErrManifest) {
		t.Fatalf("expected manifest error, got %v", err)
	}
}

func TestReadManifestRejectsEmptyFile(t *testing.T) {
	path := writeManifest(t, "")
	if _, err := ReadManifest(path); !errors.Is(err, ErrManifest) {
		t.Fatalf("expected manifest error, got %v", err)
	}
	path = writeManifest(t, "subject_id,source_directory,output_directory\n")
	if _, err := ReadManifest(path); !errors.Is(err, ErrManifest) {
		t.Fatalf("expected manifest error for header-only file, got %v", err)
	}
}
