package stats

// Unit tags a metric value with its physical dimension.
type Unit string

const (
	UnitVolume    Unit = "mm^3"
	UnitThickness Unit = "mm"
	UnitArea      Unit = "mm^2"
)

// Metric is one typed measurement extracted from a stats report.
type Metric struct {
	Name  string
	Value float64
	Unit  Unit
}

// MetricSpec describes the output metric a mapped row or scalar produces.
type MetricSpec struct {
	Name string
	Unit Unit
}

// Mapping selects which report rows and scalars become metrics.
type Mapping struct {
	// Scalars maps summary-line labels (the text left of '=') to metrics.
	Scalars map[string]MetricSpec
	// Rows maps table structure names to metrics.
	Rows map[string]MetricSpec
	// NameColumn is the ColHeaders entry holding the structure name.
	NameColumn string
	// ValueColumn is the ColHeaders entry holding the numeric value.
	ValueColumn string
}
