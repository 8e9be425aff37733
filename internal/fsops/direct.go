package fsops

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

const (
	dirMode    = 0o755
	binaryMode = 0o755
)

// Direct mutates the filesystem with plain syscalls.
type Direct struct{}

// NewDirect creates a Direct mutator.
func NewDirect() *Direct {
	return &Direct{}
}

// Escalated reports whether mutations run through sudo.
func (d *Direct) Escalated() bool { return false }

// MkdirAll creates the directory and any missing parents.
func (d *Direct) MkdirAll(_ context.Context, dir string) error {
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return errors.Wrapf(err, "creating %s", dir)
	}

	return nil
}

// Install stages src next to dst and renames it into place. The stage file
// lives in dst's directory so the rename never crosses a filesystem.
func (d *Direct) Install(_ context.Context, src, dst string) error {
	stage, err := stageCopy(src, dst)
	if err != nil {
		return err
	}

	if err := os.Rename(stage, dst); err != nil {
		_ = os.Remove(stage)

		return errors.Wrapf(err, "placing %s", dst)
	}

	return nil
}

// Remove deletes the file at path.
func (d *Direct) Remove(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil {
		return errors.Wrapf(err, "removing %s", path)
	}

	return nil
}

//nolint:gosec // G304: src comes from our own temp dir, dst from validated config
func stageCopy(src, dst string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", errors.Wrapf(err, "opening %s", src)
	}
	defer in.Close() //nolint:errcheck // read-only file

	stage, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return "", errors.Wrap(err, "creating stage file")
	}

	stagePath := stage.Name()

	cleanupStage := func() {
		_ = stage.Close()
		_ = os.Remove(stagePath)
	}

	if _, err := io.Copy(stage, in); err != nil {
		cleanupStage()

		return "", errors.Wrap(err, "copying to stage file")
	}

	if err := stage.Chmod(binaryMode); err != nil {
		cleanupStage()

		return "", errors.Wrap(err, "setting stage file mode")
	}

	if err := stage.Close(); err != nil {
		_ = os.Remove(stagePath)

		return "", errors.Wrap(err, "closing stage file")
	}

	return stagePath, nil
}
