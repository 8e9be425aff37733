package fsops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/joulelab/jouleup/internal/exec"
)

// Escalated mutates the filesystem through sudo. Commands run interactively
// so sudo can prompt for a password when its credentials are not cached.
type Escalated struct {
	runner exec.CommandRunner
}

// NewEscalated creates an Escalated mutator using the given runner.
func NewEscalated(runner exec.CommandRunner) *Escalated {
	return &Escalated{runner: runner}
}

// Escalated reports whether mutations run through sudo.
func (e *Escalated) Escalated() bool { return true }

// MkdirAll creates the directory and any missing parents.
func (e *Escalated) MkdirAll(ctx context.Context, dir string) error {
	return e.sudo(ctx, "mkdir", "-p", "--", dir)
}

// Install stages src next to dst via sudo and renames it into place with mv,
// which is atomic within a filesystem.
func (e *Escalated) Install(ctx context.Context, src, dst string) error {
	stage := filepath.Join(
		filepath.Dir(dst),
		fmt.Sprintf(".%s.tmp-%d", filepath.Base(dst), os.Getpid()),
	)

	if err := e.sudo(ctx, "cp", "--", src, stage); err != nil {
		return err
	}

	if err := e.sudo(ctx, "chmod", "755", "--", stage); err != nil {
		_ = e.sudo(ctx, "rm", "-f", "--", stage)

		return err
	}

	if err := e.sudo(ctx, "mv", "-f", "--", stage, dst); err != nil {
		_ = e.sudo(ctx, "rm", "-f", "--", stage)

		return err
	}

	return nil
}

// Remove deletes the file at path.
func (e *Escalated) Remove(ctx context.Context, path string) error {
	return e.sudo(ctx, "rm", "--", path)
}

func (e *Escalated) sudo(ctx context.Context, args ...string) error {
	result := e.runner.RunInteractive(ctx, "sudo", args...)
	if result.Failed() {
		if result.Err != nil {
			return errors.Wrapf(ErrPermissionDenied, "sudo %s: %v", args[0], result.Err)
		}

		return errors.Wrapf(
			ErrPermissionDenied,
			"sudo %s exited with status %d",
			args[0], result.ExitCode,
		)
	}

	return nil
}
