// Package integration contains the subprocess boundaries of taskpilot: the
// command runner, the git port, the analysis engine port, and the host
// transcript reader.
package integration

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/taskpilot-cli/taskpilot/internal/hooks"
)

// CommandRunner executes an external command in the given directory and
// returns its combined output. A non-nil error is returned for non-zero
// exits and start failures; the captured output is returned either way so
// callers can parse failure output.
//
// All external process execution in taskpilot goes through this one narrow
// type so tests can substitute a scripted fake.
type CommandRunner func(dir, name string, args ...string) (string, error)

// NewCommandRunner returns a CommandRunner that executes real subprocesses
// with the given timeout. Every child environment carries the hook-active
// marker so a tool run from inside a hook cannot re-trigger it.
func NewCommandRunner(timeout time.Duration) CommandRunner {
	return func(dir, name string, args ...string) (string, error) {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		cmd := exec.CommandContext(ctx, name, args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(), hooks.HookActiveEnv+"=1")

		output, err := cmd.CombinedOutput()
		return string(output), err
	}
}

// RunShell executes a full shell command line via "sh -c", returning combined
// output. Validation commands are configured as shell strings and may contain
// pipes and redirections.
func RunShell(run CommandRunner, dir, command string) (string, error) {
	return run(dir, "sh", "-c", command)
}

// FirstLine returns the first line of s with surrounding whitespace trimmed.
func FirstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
