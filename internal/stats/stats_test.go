package stats_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"neuroflow/internal/stats"
)

const sampleAseg = `# Measure Intracranial Vol, ICV, Intracranial Volume
# ColHeaders  Index SegId NVoxels Volume_mm3 StructName Mean StdDev Min Max Range
  1    4  12345  1234567.89  Left-Lateral-Ventricle 0.0 0.0 0.0 0.0 0.0
  2   10  23456  2345678.90  Left-Thalamus-Proper 0.0 0.0 0.0 0.0 0.0
  3   17  34567  3456789.01  Left-Hippocampus 0.0 0.0 0.0 0.0 0.0
  4   18  45678  4567890.12  Left-Amygdala 0.0 0.0 0.0 0.0 0.0
  5   53  56789  5678901.23  Right-Hippocampus 0.0 0.0 0.0 0.0 0.0
  6   54  67890  6789012.34  Right-Amygdala 0.0 0.0 0.0 0.0 0.0
# Intracranial Vol = 1500000.00 mm^3
`

const sampleAparc = `# Measure Cortex, MeanThickness, mean thickness
# ColHeaders  StructName NumVert SurfArea GrayVol ThickAvg ThickStd MeanCurv GausCurv FoldInd CurvInd
bankssts 1234 800.1 2000.5 2.5 0.4 0.1 0.02 10 1.1
# mean thickness = 2.45 mm
# total surface area = 123456.78 mm^2
# total gray matter volume = 234567.89 mm^3
`

func metricsByName(t *testing.T, metrics []stats.Metric) map[string]stats.Metric {
	t.Helper()
	byName := make(map[string]stats.Metric, len(metrics))
	for _, m := range metrics {
		if _, dup := byName[m.Name]; dup {
			t.Fatalf("duplicate metric %q", m.Name)
		}
		byName[m.Name] = m
	}
	return byName
}

func drain(t *testing.T, input string, mapping stats.Mapping, tolerance int) ([]stats.Metric, error) {
	t.Helper()
	reader := stats.NewReader(strings.NewReader(input), mapping, tolerance)
	var metrics []stats.Metric
	for reader.Next() {
		metrics = append(metrics, reader.Metric())
	}
	return metrics, reader.Err()
}

func TestSubcorticalReport(t *testing.T) {
	metrics, err := drain(t, sampleAseg, stats.SubcorticalMapping(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	byName := metricsByName(t, metrics)

	if got := byName["icv"]; got.Value != 1500000.00 || got.Unit != stats.UnitVolume {
		t.Fatalf("icv = %+v", got)
	}
	if got := byName["hippocampus_left"]; got.Value != 3456789.01 {
		t.Fatalf("hippocampus_left = %+v", got)
	}
	for _, name := range []string{"hippocampus_right", "amygdala_left", "amygdala_right"} {
		if _, ok := byName[name]; !ok {
			t.Fatalf("missing metric %q", name)
		}
	}
	// Unmapped structures are parsed and dropped, not errors.
	if _, ok := byName["Left-Lateral-Ventricle"]; ok {
		t.Fatal("unmapped row leaked into output")
	}
	if len(metrics) != 5 {
		t.Fatalf("expected 5 metrics, got %d", len(metrics))
	}
}

func TestCorticalReport(t *testing.T) {
	metrics, err := drain(t, sampleAparc, stats.CorticalMapping("lh"), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	byName := metricsByName(t, metrics)

	if got := byName["mean_thickness_lh"]; got.Value != 2.45 || got.Unit != stats.UnitThickness {
		t.Fatalf("mean_thickness_lh = %+v", got)
	}
	if got := byName["total_area_lh"]; got.Value != 123456.78 || got.Unit != stats.UnitArea {
		t.Fatalf("total_area_lh = %+v", got)
	}
	if got := byName["gray_volume_lh"]; got.Value != 234567.89 || got.Unit != stats.UnitVolume {
		t.Fatalf("gray_volume_lh = %+v", got)
	}
}

func TestParsingIsIdempotent(t *testing.T) {
	first, err := drain(t, sampleAseg, stats.SubcorticalMapping(), 0)
	if err != nil {
		t.Fatalf("first parse: %v", err)
	}
	second, err := drain(t, sampleAseg, stats.SubcorticalMapping(), 0)
	if err != nil {
		t.Fatalf("second parse: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("metric count changed between parses: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("metric %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestMalformedNumberIsFatal(t *testing.T) {
	corrupted := strings.Replace(sampleAseg, "3456789.01", "not-a-number", 1)
	metrics, err := drain(t, corrupted, stats.SubcorticalMapping(), 10)
	if !errors.Is(err, stats.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	// No partial acceptance past the corrupt value.
	for _, m := range metrics {
		if m.Name == "hippocampus_left" {
			t.Fatal("corrupt metric leaked into output")
		}
	}
}

func TestMalformedScalarIsFatal(t *testing.T) {
	corrupted := strings.Replace(sampleAseg, "1500000.00", "NaN?", 1)
	_, err := drain(t, corrupted, stats.SubcorticalMapping(), 10)
	if !errors.Is(err, stats.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestColumnCountToleranceExceeded(t *testing.T) {
	input := `# ColHeaders  Index SegId NVoxels Volume_mm3 StructName Mean StdDev Min Max Range
  1 2 3
  4 5 6
  3   17  34567  3456789.01  Left-Hippocampus 0.0 0.0 0.0 0.0 0.0
`
	metrics, err := drain(t, input, stats.SubcorticalMapping(), 1)
	if !errors.Is(err, stats.ErrMalformed) {
		t.Fatalf("expected ErrMalformed after exceeding tolerance, got %v", err)
	}
	if len(metrics) != 0 {
		t.Fatalf("expected no metrics, got %d", len(metrics))
	}
}

func TestColumnCountWithinTolerance(t *testing.T) {
	input := `# ColHeaders  Index SegId NVoxels Volume_mm3 StructName Mean StdDev Min Max Range
  1 2 3
  3   17  34567  3456789.01  Left-Hippocampus 0.0 0.0 0.0 0.0 0.0
`
	metrics, err := drain(t, input, stats.SubcorticalMapping(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(metrics) != 1 || metrics[0].Name != "hippocampus_left" {
		t.Fatalf("unexpected metrics %+v", metrics)
	}
}

func TestIncompatibleColumnHeader(t *testing.T) {
	input := strings.Replace(sampleAseg, "Volume_mm3", "Volume_ml", 1)
	_, err := drain(t, input, stats.SubcorticalMapping(), 0)
	if !errors.Is(err, stats.ErrMalformed) {
		t.Fatalf("expected ErrMalformed for missing value column, got %v", err)
	}
}

func writeReports(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestExtractorUnionsReports(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "stats")
	writeReports(t, dir, map[string]string{
		"aseg.stats":     sampleAseg,
		"lh.aparc.stats": sampleAparc,
		"rh.aparc.stats": sampleAparc,
	})

	metrics, err := stats.NewExtractor(0).Extract(dir)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	byName := metricsByName(t, metrics)
	for _, name := range []string{
		"icv", "hippocampus_left", "hippocampus_right", "amygdala_left", "amygdala_right",
		"mean_thickness_lh", "mean_thickness_rh",
		"total_area_lh", "total_area_rh",
		"gray_volume_lh", "gray_volume_rh",
	} {
		if _, ok := byName[name]; !ok {
			t.Fatalf("missing metric %q", name)
		}
	}
}

func TestExtractorReportsMissingFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "stats")
	writeReports(t, dir, map[string]string{
		"aseg.stats": sampleAseg,
	})

	_, err := stats.NewExtractor(0).Extract(dir)
	if !errors.Is(err, stats.ErrReportMissing) {
		t.Fatalf("expected ErrReportMissing, got %v", err)
	}
	if !strings.Contains(err.Error(), "lh.aparc.stats") || !strings.Contains(err.Error(), "rh.aparc.stats") {
		t.Fatalf("missing files not named in error: %v", err)
	}
}
