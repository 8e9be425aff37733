// Package fsops performs filesystem mutations in the install directory,
// directly when it is writable and through sudo when it is not.
package fsops

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/joulelab/jouleup/internal/exec"
	"github.com/joulelab/jouleup/pkg/logger"
)

// ErrPermissionDenied is returned when the install directory is not writable
// and no escalation path is usable.
var ErrPermissionDenied = errors.New("permission denied")

// Mutator mutates the install directory. Implementations differ only in
// privilege: Direct uses plain syscalls, Escalated shells out to sudo.
type Mutator interface {
	// MkdirAll creates the directory and any missing parents.
	MkdirAll(ctx context.Context, dir string) error

	// Install places src at dst atomically: the file appears at dst either
	// fully written and executable or not at all.
	Install(ctx context.Context, src, dst string) error

	// Remove deletes the file at path.
	Remove(ctx context.Context, path string) error

	// Escalated reports whether mutations run through sudo.
	Escalated() bool
}

// Select picks a Mutator for dir. Preference order: direct writes when the
// probe succeeds, sudo when it is present and can prompt (or has cached
// credentials), otherwise ErrPermissionDenied. Escalation is never attempted
// while direct writes work.
func Select(
	ctx context.Context,
	dir string,
	runner exec.CommandRunner,
	tools exec.ToolChecker,
	interactive bool,
	log logger.Logger,
) (Mutator, error) {
	if ProbeWritable(dir) {
		log.Debug("install directory writable, using direct writes", "dir", dir)

		return NewDirect(), nil
	}

	if !tools.IsAvailable("sudo") {
		return nil, errors.Wrapf(
			ErrPermissionDenied,
			"%s is not writable and sudo is not available; re-run as root or choose a writable --install-dir",
			dir,
		)
	}

	if !interactive && !sudoCached(ctx, runner) {
		return nil, errors.Wrapf(
			ErrPermissionDenied,
			"%s is not writable and sudo cannot prompt without a terminal; run 'sudo -v' first or choose a writable --install-dir",
			dir,
		)
	}

	log.Debug("install directory not writable, escalating via sudo", "dir", dir)

	return NewEscalated(runner), nil
}

// ProbeWritable reports whether the current user can create files in dir.
// When dir does not exist yet, the nearest existing ancestor is probed,
// since creating the directory needs write access there.
func ProbeWritable(dir string) bool {
	probe := nearestExisting(dir)

	f, err := os.CreateTemp(probe, ".jouleup-probe-*")
	if err != nil {
		return false
	}

	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)

	return true
}

func nearestExisting(dir string) string {
	for {
		if _, err := os.Stat(dir); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}

		dir = parent
	}
}

// sudoCached reports whether sudo can run without prompting.
func sudoCached(ctx context.Context, runner exec.CommandRunner) bool {
	result := runner.Run(ctx, "sudo", "-n", "true")

	return !result.Failed()
}
