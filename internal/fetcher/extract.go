package fetcher

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

// binaryMode is the permission set applied to the extracted executable.
const binaryMode = 0o755

// ExtractBinary extracts the named executable from a .tar.gz archive into
// destDir and returns its path. The archive may nest the binary under a
// directory prefix; matching is on base name.
//
//nolint:gosec // G304: archivePath and destDir live in our scoped temp dir
func ExtractBinary(archivePath, binaryName, destDir string) (string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return "", errors.Wrap(err, "opening archive")
	}
	defer f.Close() //nolint:errcheck // read-only file

	gz, err := gzip.NewReader(f)
	if err != nil {
		return "", errors.Wrapf(ErrExtractionFailed, "not a gzip archive: %v", err)
	}
	defer gz.Close() //nolint:errcheck // read-only stream

	tr := tar.NewReader(gz)

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return "", errors.Wrapf(ErrExtractionFailed, "reading archive: %v", err)
		}

		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		if filepath.Base(hdr.Name) != binaryName {
			continue
		}

		destPath, err := safePath(destDir, hdr.Name)
		if err != nil {
			return "", err
		}

		if err := writeBinary(destPath, tr); err != nil {
			return "", err
		}

		return destPath, nil
	}

	return "", errors.Wrapf(ErrExtractionFailed, "archive contains no %q entry", binaryName)
}

// safePath guards against path traversal in archive entry names.
func safePath(destDir, entryName string) (string, error) {
	dest := filepath.Join(destDir, filepath.Base(entryName))

	if !strings.HasPrefix(dest, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", errors.Wrapf(ErrExtractionFailed, "unsafe entry path %q", entryName)
	}

	return dest, nil
}

//nolint:gosec // G304/G110: destPath is inside our temp dir; archive is checksum-verified
func writeBinary(destPath string, r io.Reader) error {
	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, binaryMode)
	if err != nil {
		return errors.Wrap(err, "creating extracted file")
	}

	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()

		return errors.Wrapf(ErrExtractionFailed, "writing extracted file: %v", err)
	}

	return out.Close()
}
