package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks bad input data. Never retried.
	ErrValidation = errors.New("validation error")
	// ErrExternalTool marks a non-zero exit from an external binary.
	ErrExternalTool = errors.New("external tool failure")
	// ErrTimeout marks a stage killed after exceeding its time budget.
	ErrTimeout = errors.New("timeout")
	// ErrCrashed marks a process that could not be launched at all. This is an
	// environment problem, not a data problem, and is surfaced distinctly so
	// operators fix the host instead of re-queueing the subject.
	ErrCrashed = errors.New("crashed")
	// ErrMalformedReport marks a stats report the extractor refused to accept.
	ErrMalformedReport = errors.New("malformed report")
	// ErrReconIncomplete marks reconstruction output that is missing expected
	// files even though the tool reported success.
	ErrReconIncomplete = errors.New("reconstruction incomplete")
	// ErrConfiguration marks unusable configuration detected at stage time.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error to the label used in status rows and batch reports.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation-error"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrCrashed):
		return "crashed"
	case errors.Is(err, ErrMalformedReport):
		return "malformed-report"
	case errors.Is(err, ErrReconIncomplete):
		return "reconstruction-incomplete"
	case errors.Is(err, ErrConfiguration):
		return "configuration-error"
	default:
		return "external-tool-failure"
	}
}

// Retryable reports whether an automatic in-run retry is permitted for err.
// Only timeouts qualify; everything else waits for explicit re-submission.
func Retryable(err error) bool {
	return errors.Is(err, ErrTimeout)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "stage failure"
	}
	return strings.Join(parts, ": ")
}
