package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/joulelab/jouleup/internal/fsops"
)

// Uninstall removes the installed binary. The canonical path is checked
// first; when the binary lives elsewhere on PATH the divergence is reported
// and that copy is removed instead. Nothing found anywhere is ErrNotInstalled.
func (i *Installer) Uninstall(ctx context.Context) error {
	target, err := i.locate(ctx)
	if err != nil {
		return err
	}

	if err := i.confirmRemoval(target); err != nil {
		return err
	}

	mutator, err := fsops.Select(
		ctx,
		filepath.Dir(target.Path),
		i.runner,
		i.tools,
		i.ui.IsInteractive(),
		i.log,
	)
	if err != nil {
		return err
	}

	if mutator.Escalated() {
		fmt.Fprintf(i.out, "Removing %s requires elevated privileges; sudo may prompt for your password.\n",
			target.Path)
	}

	if err := mutator.Remove(ctx, target.Path); err != nil {
		return err
	}

	if _, statErr := os.Stat(target.Path); statErr == nil {
		return errors.Wrapf(ErrInstallationFailed, "%s still present after removal", target.Path)
	}

	fmt.Fprintf(i.out, "Removed %s (%s) from %s\n",
		i.settings.BinaryName, target.Version, target.Path)

	return nil
}

func (i *Installer) locate(ctx context.Context) (*Installation, error) {
	canonical := i.settings.BinaryPath()

	if target := DetectAt(ctx, i.runner, canonical); target != nil {
		return target, nil
	}

	if target := DetectOnPath(ctx, i.runner, i.settings.BinaryName); target != nil {
		fmt.Fprintf(i.out, "Note: %s not found at %s; removing the copy at %s instead.\n",
			i.settings.BinaryName, canonical, target.Path)

		return target, nil
	}

	return nil, errors.Wrapf(
		ErrNotInstalled,
		"%s not found at %s or anywhere on PATH",
		i.settings.BinaryName, canonical,
	)
}

func (i *Installer) confirmRemoval(target *Installation) error {
	if i.settings.AssumeYes {
		i.log.Debug("removing without prompt", "path", target.Path, "version", target.Version)

		return nil
	}

	ok, err := i.ui.Confirm(
		fmt.Sprintf("Remove %s from %s?", i.settings.BinaryName, target.Path),
		fmt.Sprintf("Installed version: %s.", target.Version),
		false,
	)
	if err != nil {
		return errors.Wrap(err, "confirming removal")
	}

	if !ok {
		return errors.Wrap(ErrDeclined, "installation kept")
	}

	return nil
}
