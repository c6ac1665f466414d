package stats

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMalformed marks a report the reader refused to accept: a non-numeric
// value in a mapped numeric column, a ColHeaders line missing required
// columns, or more unparseable lines than the tolerance allows.
var ErrMalformed = errors.New("malformed stats report")

// Reader yields mapped metrics from one report as a single-pass sequence.
// It consumes the source once and is not restartable.
type Reader struct {
	scanner   *bufio.Scanner
	mapping   Mapping
	scalars   map[string]MetricSpec
	tolerance int

	headers  []string
	nameIdx  int
	valueIdx int

	line    int
	skipped int
	current Metric
	err     error
	done    bool
}

// NewReader constructs a reader over one report. Tolerance bounds how many
// lines with an unexpected column count may be skipped before the report is
// rejected.
func NewReader(r io.Reader, mapping Mapping, tolerance int) *Reader {
	scalars := make(map[string]MetricSpec, len(mapping.Scalars))
	for label, spec := range mapping.Scalars {
		scalars[strings.ToLower(label)] = spec
	}
	return &Reader{
		scanner:   bufio.NewScanner(r),
		mapping:   mapping,
		scalars:   scalars,
		tolerance: tolerance,
		nameIdx:   -1,
		valueIdx:  -1,
	}
}

// Next advances to the next mapped metric. It returns false at end of input
// or on error; consult Err afterwards.
func (r *Reader) Next() bool {
	if r.done || r.err != nil {
		return false
	}
	for r.scanner.Scan() {
		r.line++
		text := strings.TrimSpace(r.scanner.Text())
		if text == "" {
			continue
		}

		if strings.HasPrefix(text, "#") {
			if metric, ok, err := r.handleComment(text); err != nil {
				r.fail(err)
				return false
			} else if ok {
				r.current = metric
				return true
			}
			continue
		}

		metric, ok, err := r.handleRow(text)
		if err != nil {
			r.fail(err)
			return false
		}
		if ok {
			r.current = metric
			return true
		}
	}
	if err := r.scanner.Err(); err != nil {
		r.fail(fmt.Errorf("read report: %w", err))
		return false
	}
	r.done = true
	return false
}

// Metric returns the metric produced by the last successful Next call.
func (r *Reader) Metric() Metric {
	return r.current
}

// Err returns the terminal error, if any.
func (r *Reader) Err() error {
	return r.err
}

// Skipped reports how many lines were discarded for column-count mismatches.
func (r *Reader) Skipped() int {
	return r.skipped
}

func (r *Reader) handleComment(text string) (Metric, bool, error) {
	body := strings.TrimSpace(strings.TrimPrefix(text, "#"))

	if rest, ok := strings.CutPrefix(body, "ColHeaders"); ok {
		return Metric{}, false, r.setHeaders(strings.Fields(rest))
	}

	label, value, ok := strings.Cut(body, "=")
	if !ok {
		return Metric{}, false, nil
	}
	spec, mapped := r.scalars[strings.ToLower(strings.TrimSpace(label))]
	if !mapped {
		return Metric{}, false, nil
	}
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return Metric{}, false, r.malformedf("scalar %q has no value", strings.TrimSpace(label))
	}
	parsed, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Metric{}, false, r.malformedf("scalar %q: non-numeric value %q", strings.TrimSpace(label), fields[0])
	}
	return Metric{Name: spec.Name, Value: parsed, Unit: spec.Unit}, true, nil
}

func (r *Reader) setHeaders(headers []string) error {
	r.headers = headers
	r.nameIdx = -1
	r.valueIdx = -1
	for i, header := range headers {
		switch header {
		case r.mapping.NameColumn:
			r.nameIdx = i
		case r.mapping.ValueColumn:
			r.valueIdx = i
		}
	}
	if len(r.mapping.Rows) > 0 && (r.nameIdx < 0 || r.valueIdx < 0) {
		return r.malformedf("column header is missing %s or %s", r.mapping.NameColumn, r.mapping.ValueColumn)
	}
	return nil
}

func (r *Reader) handleRow(text string) (Metric, bool, error) {
	if r.headers == nil {
		return Metric{}, false, r.skip()
	}
	fields := strings.Fields(text)
	if len(fields) != len(r.headers) {
		return Metric{}, false, r.skip()
	}
	if r.nameIdx < 0 || r.valueIdx < 0 {
		return Metric{}, false, nil
	}
	spec, mapped := r.mapping.Rows[fields[r.nameIdx]]
	if !mapped {
		return Metric{}, false, nil
	}
	value, err := strconv.ParseFloat(fields[r.valueIdx], 64)
	if err != nil {
		return Metric{}, false, r.malformedf("row %q: non-numeric value %q", fields[r.nameIdx], fields[r.valueIdx])
	}
	return Metric{Name: spec.Name, Value: value, Unit: spec.Unit}, true, nil
}

// skip counts an unparseable line against the tolerance. The counter guards
// against silently accepting a report from an incompatible tool version.
func (r *Reader) skip() error {
	r.skipped++
	if r.skipped > r.tolerance {
		return r.malformedf("%d unparseable lines exceed tolerance of %d", r.skipped, r.tolerance)
	}
	return nil
}

func (r *Reader) malformedf(format string, args ...any) error {
	detail := fmt.Sprintf(format, args...)
	return fmt.Errorf("%w: line %d: %s", ErrMalformed, r.line, detail)
}

func (r *Reader) fail(err error) {
	r.err = err
	r.done = true
}
