package toolexec

import (
	"context"
	"time"
)

// Classification describes how an external tool invocation ended.
type Classification string

const (
	// ClassSuccess means the process exited zero within its budget.
	ClassSuccess Classification = "success"
	// ClassToolFailure means the process ran to completion but exited non-zero.
	ClassToolFailure Classification = "tool-failure"
	// ClassTimeout means the budget elapsed and the process was killed.
	ClassTimeout Classification = "timeout"
	// ClassCrashed means the process could not be started or died without a
	// normal exit status.
	ClassCrashed Classification = "crashed"
)

// Mount maps a host path into a container. The native runner ignores mounts.
type Mount struct {
	HostPath      string
	ContainerPath string
	ReadOnly      bool
}

// Command is a single external tool invocation.
type Command struct {
	Binary  string
	Args    []string
	Dir     string
	Env     map[string]string
	Mounts  []Mount
	Timeout time.Duration
	// LogPath receives the combined stdout and stderr of the process. Empty
	// disables log capture; the output tail is retained either way.
	LogPath string
}

// Outcome reports what happened to an invocation.
type Outcome struct {
	Classification Classification
	ExitCode       int
	Duration       time.Duration
	// Tail holds the last portion of the combined output, for error messages.
	Tail string
}

// Failed reports whether the invocation needs error handling.
func (o Outcome) Failed() bool {
	return o.Classification != ClassSuccess
}

// Runner executes external tools.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Outcome, error)
}
