// Package installer places and removes the profiler binary, escalating
// privileges only when the install directory requires it.
package installer

import (
	"context"
	"fmt"
	"io"
	"os"
	osexec "os/exec"

	"github.com/cockroachdb/errors"

	"github.com/joulelab/jouleup/internal/config"
	"github.com/joulelab/jouleup/internal/exec"
	"github.com/joulelab/jouleup/internal/fsops"
	"github.com/joulelab/jouleup/internal/tui"
	"github.com/joulelab/jouleup/pkg/logger"
)

var (
	// ErrDeclined is returned when the user answers no to a confirmation.
	// Callers treat it as a clean, mutation-free stop, not a failure.
	ErrDeclined = errors.New("operation declined")

	// ErrInstallationFailed is returned when post-install verification finds
	// the binary missing, non-executable, or unable to run.
	ErrInstallationFailed = errors.New("installation verification failed")

	// ErrNotInstalled is returned when removal finds no binary anywhere.
	ErrNotInstalled = errors.New("not installed")
)

// Installer installs and removes the profiler binary.
type Installer struct {
	settings config.Settings
	ui       tui.UI
	runner   exec.CommandRunner
	tools    exec.ToolChecker
	log      logger.Logger
	out      io.Writer
}

// New creates an Installer.
func New(
	settings config.Settings,
	ui tui.UI,
	runner exec.CommandRunner,
	tools exec.ToolChecker,
	log logger.Logger,
) *Installer {
	return &Installer{
		settings: settings,
		ui:       ui,
		runner:   runner,
		tools:    tools,
		log:      log,
		out:      os.Stdout,
	}
}

// SetOutput redirects user-facing messages away from stdout.
func (i *Installer) SetOutput(w io.Writer) {
	i.out = w
}

// Install places the already-fetched binary at the canonical path.
// srcPath must point at a verified, executable binary; tag is the release
// being installed and is used only for messaging.
//
// Order matters: the overwrite confirmation runs before any directory is
// created, so declining leaves the filesystem untouched.
func (i *Installer) Install(ctx context.Context, srcPath, tag string) error {
	dst := i.settings.BinaryPath()

	existing := DetectOnPath(ctx, i.runner, i.settings.BinaryName)
	if existing != nil {
		if err := i.confirmOverwrite(existing, tag); err != nil {
			return err
		}
	}

	mutator, err := fsops.Select(
		ctx,
		i.settings.InstallDir,
		i.runner,
		i.tools,
		i.ui.IsInteractive(),
		i.log,
	)
	if err != nil {
		return err
	}

	if mutator.Escalated() {
		fmt.Fprintf(i.out, "%s requires elevated privileges; sudo may prompt for your password.\n",
			i.settings.InstallDir)
	}

	if err := mutator.MkdirAll(ctx, i.settings.InstallDir); err != nil {
		return err
	}

	if err := mutator.Install(ctx, srcPath, dst); err != nil {
		return err
	}

	if err := i.verify(ctx, dst); err != nil {
		return err
	}

	fmt.Fprintf(i.out, "Installed %s %s to %s\n", i.settings.BinaryName, tag, dst)

	return nil
}

func (i *Installer) confirmOverwrite(existing *Installation, tag string) error {
	if i.settings.AssumeYes {
		i.log.Debug("overwriting existing installation without prompt",
			"path", existing.Path, "version", existing.Version)

		return nil
	}

	ok, err := i.ui.Confirm(
		fmt.Sprintf("Overwrite existing installation at %s?", existing.Path),
		fmt.Sprintf("Currently installed: %s. Installing: %s.", existing.Version, tag),
		false,
	)
	if err != nil {
		return errors.Wrap(err, "confirming overwrite")
	}

	if !ok {
		return errors.Wrap(ErrDeclined, "existing installation kept")
	}

	return nil
}

// verify checks that the placed binary is usable, not merely copied: it must
// exist with the executable bit, answer a version query, and resolve on PATH.
func (i *Installer) verify(ctx context.Context, dst string) error {
	info, err := os.Stat(dst)
	if err != nil {
		return errors.Wrapf(ErrInstallationFailed, "%s missing after placement: %v", dst, err)
	}

	if info.Mode().Perm()&0o111 == 0 {
		return errors.Wrapf(ErrInstallationFailed, "%s is not executable", dst)
	}

	if result := i.runner.Run(ctx, dst, "--version"); result.Failed() {
		return errors.Wrapf(ErrInstallationFailed, "%s --version failed", dst)
	}

	if _, lookErr := osexec.LookPath(i.settings.BinaryName); lookErr != nil {
		return errors.Wrapf(
			ErrInstallationFailed,
			"%s installed to %s but is not reachable on PATH; add %s to PATH",
			i.settings.BinaryName, dst, i.settings.InstallDir,
		)
	}

	return nil
}
