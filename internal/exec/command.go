// Package exec provides abstractions for executing external commands.
package exec

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/cockroachdb/errors"
)

// CommandResult contains the result of a command execution.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// Failed reports whether the command failed to run or exited non-zero.
func (r *CommandResult) Failed() bool {
	return r.Err != nil || r.ExitCode != 0
}

// CommandRunner executes external commands with timeout and output capture.
type CommandRunner interface {
	// Run executes a command and returns the result.
	Run(ctx context.Context, name string, args ...string) *CommandResult

	// RunInteractive executes a command wired to the caller's terminal.
	// Used for commands that may prompt the user (e.g. sudo credential entry).
	RunInteractive(ctx context.Context, name string, args ...string) *CommandResult
}

// commandRunner implements CommandRunner.
type commandRunner struct {
	defaultTimeout time.Duration
}

// NewCommandRunner creates a new CommandRunner with the given default timeout.
// The timeout applies only to Run; interactive commands wait on the user.
func NewCommandRunner(defaultTimeout time.Duration) CommandRunner {
	return &commandRunner{
		defaultTimeout: defaultTimeout,
	}
}

// Run executes a command and returns the result.
func (r *commandRunner) Run(ctx context.Context, name string, args ...string) *CommandResult {
	if r.defaultTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.defaultTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	return buildResult(stdout.String(), stderr.String(), name, err)
}

// RunInteractive executes a command with the caller's stdin/stdout/stderr.
func (*commandRunner) RunInteractive(
	ctx context.Context,
	name string,
	args ...string,
) *CommandResult {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()

	return buildResult("", "", name, err)
}

func buildResult(stdout, stderr, name string, err error) *CommandResult {
	result := &CommandResult{
		Stdout: stdout,
		Stderr: stderr,
	}

	var exitErr *exec.ExitError

	switch {
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		result.Err = err
	case err != nil:
		result.Err = errors.Wrapf(err, "executing %s", name)
	}

	return result
}
