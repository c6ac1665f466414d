package toolexec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sys/unix"
)

var commandContext = exec.CommandContext

// NativeRunner executes tools directly on the host. Processes run in their
// own process group so a timeout kill also reaps any children the tool
// spawned.
type NativeRunner struct{}

// NewNativeRunner constructs a host-process runner.
func NewNativeRunner() *NativeRunner {
	return &NativeRunner{}
}

// Run executes the command and blocks until it finishes or the budget lapses.
func (r *NativeRunner) Run(ctx context.Context, command Command) (Outcome, error) {
	if command.Binary == "" {
		return Outcome{Classification: ClassCrashed}, errors.New("binary required")
	}

	runCtx := ctx
	if command.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, command.Timeout)
		defer cancel()
	}

	cmd := commandContext(runCtx, command.Binary, command.Args...) //nolint:gosec
	cmd.Dir = command.Dir
	cmd.Env = mergedEnv(command.Env)
	cmd.SysProcAttr = &unix.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		// Negative pid addresses the whole process group.
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}

	tail := &tailWriter{}
	output := io.Writer(tail)
	if command.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(command.LogPath), 0o755); err != nil {
			return Outcome{Classification: ClassCrashed}, fmt.Errorf("create log directory: %w", err)
		}
		logFile, err := os.Create(command.LogPath)
		if err != nil {
			return Outcome{Classification: ClassCrashed}, fmt.Errorf("create log file: %w", err)
		}
		defer logFile.Close()
		output = io.MultiWriter(logFile, tail)
	}
	cmd.Stdout = output
	cmd.Stderr = output

	started := time.Now()
	err := cmd.Run()
	outcome := Outcome{Duration: time.Since(started), Tail: tail.String()}

	switch {
	case err == nil:
		outcome.Classification = ClassSuccess
		return outcome, nil
	case runCtx.Err() != nil && ctx.Err() == nil:
		outcome.Classification = ClassTimeout
		return outcome, fmt.Errorf("%s timed out after %s", filepath.Base(command.Binary), command.Timeout)
	case ctx.Err() != nil:
		outcome.Classification = ClassCrashed
		return outcome, runCtx.Err()
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.ExitCode() >= 0 {
				outcome.Classification = ClassToolFailure
				outcome.ExitCode = exitErr.ExitCode()
				return outcome, fmt.Errorf("%s exited %d", filepath.Base(command.Binary), outcome.ExitCode)
			}
			// Killed by a signal without the context expiring.
			outcome.Classification = ClassCrashed
			return outcome, fmt.Errorf("%s terminated by signal: %w", filepath.Base(command.Binary), err)
		}
		outcome.Classification = ClassCrashed
		return outcome, fmt.Errorf("start %s: %w", filepath.Base(command.Binary), err)
	}
}

func mergedEnv(extra map[string]string) []string {
	if len(extra) == 0 {
		return nil
	}
	env := os.Environ()
	keys := make([]string, 0, len(extra))
	for key := range extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		env = append(env, key+"="+extra[key])
	}
	return env
}

var _ Runner = (*NativeRunner)(nil)
