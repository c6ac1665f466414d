package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

const asegFixture = `# Measure Intracranial Vol, ICV, Intracranial Volume
# ColHeaders  Index SegId NVoxels Volume_mm3 StructName Mean StdDev Min Max Range
  1   17  34567  4125.50  Left-Hippocampus 0.0 0.0 0.0 0.0 0.0
  2   18  45678  1650.25  Left-Amygdala 0.0 0.0 0.0 0.0 0.0
  3   53  56789  4230.75  Right-Hippocampus 0.0 0.0 0.0 0.0 0.0
  4   54  67890  1710.00  Right-Amygdala 0.0 0.0 0.0 0.0 0.0
# Intracranial Vol = 1500000.00 mm^3
`

const aparcFixture = `# Measure Cortex, MeanThickness, mean thickness
# ColHeaders  StructName NumVert SurfArea GrayVol ThickAvg ThickStd MeanCurv GausCurv FoldInd CurvInd
bankssts 1234 800.1 2000.5 2.5 0.4 0.1 0.02 10 1.1
# mean thickness = 2.45 mm
# total surface area = 123456.78 mm^2
# total gray matter volume = 234567.89 mm^3
`

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteStatsReports fills statsDir with a parseable aseg plus both aparc
// reports, the complete set the extractor expects.
func WriteStatsReports(t testing.TB, statsDir string) {
	t.Helper()
	WriteFile(t, filepath.Join(statsDir, "aseg.stats"), asegFixture)
	WriteFile(t, filepath.Join(statsDir, "lh.aparc.stats"), aparcFixture)
	WriteFile(t, filepath.Join(statsDir, "rh.aparc.stats"), aparcFixture)
}

// WriteReconOutput lays out a minimal completed reconstruction tree for the
// subject: the done marker plus stats reports. It returns the subject output
// directory.
func WriteReconOutput(t testing.TB, outputRoot, subjectID string) string {
	t.Helper()
	outputDir := filepath.Join(outputRoot, subjectID)
	WriteFile(t, filepath.Join(outputDir, "scripts", "recon-all.done"), "done\n")
	WriteStatsReports(t, filepath.Join(outputDir, "stats"))
	return outputDir
}

// WriteDICOMSeries creates stub .dcm slices under dir. The files carry no
// real headers, so callers pair this with a fake modality reader.
func WriteDICOMSeries(t testing.TB, dir string, count int) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	for i := 0; i < count; i++ {
		name := filepath.Join(dir, fmt.Sprintf("slice-%03d.dcm", i))
		if err := os.WriteFile(name, []byte("dicom stub"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}
