package fetcher

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/joulelab/jouleup/internal/platform"
	"github.com/joulelab/jouleup/internal/release"
	"github.com/joulelab/jouleup/pkg/logger"
)

// AssetURLer builds download URLs for release assets.
// *release.Resolver satisfies this.
type AssetURLer interface {
	DownloadURL(tag, filename string) string
}

// Fetcher downloads a release archive, verifies its checksum, and extracts
// the binary. All intermediate files live in a scoped temp directory that
// the returned cleanup func removes.
type Fetcher struct {
	downloader *Downloader
	urls       AssetURLer
	binaryName string
	log        logger.Logger
}

// New creates a Fetcher.
func New(downloader *Downloader, urls AssetURLer, binaryName string, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Fetcher{
		downloader: downloader,
		urls:       urls,
		binaryName: binaryName,
		log:        log,
	}
}

// Fetch retrieves and verifies the binary for a release tag. On success it
// returns the path to the extracted, executable binary plus a cleanup func
// that removes the working directory; the caller must invoke it. On error
// the working directory is already removed.
func (f *Fetcher) Fetch(
	ctx context.Context,
	tag string,
	target platform.Target,
	progress ProgressFunc,
) (string, func(), error) {
	workDir, err := os.MkdirTemp("", "jouleup-*")
	if err != nil {
		return "", nil, errors.Wrap(err, "creating work directory")
	}

	cleanup := func() {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			f.log.Debug("failed to remove work directory", "dir", workDir, "error", rmErr)
		}
	}

	binaryPath, err := f.fetch(ctx, workDir, tag, target, progress)
	if err != nil {
		cleanup()

		return "", nil, err
	}

	return binaryPath, cleanup, nil
}

func (f *Fetcher) fetch(
	ctx context.Context,
	workDir, tag string,
	target platform.Target,
	progress ProgressFunc,
) (string, error) {
	archiveName := release.ArchiveName(f.binaryName, tag, target)
	checksumName := release.ChecksumName(archiveName)

	expected, err := f.fetchExpectedChecksum(ctx, tag, archiveName, checksumName)
	if err != nil {
		return "", err
	}

	archivePath := filepath.Join(workDir, archiveName)
	archiveURL := f.urls.DownloadURL(tag, archiveName)

	f.log.Debug("downloading archive", "url", archiveURL)

	if err := f.downloader.DownloadToFile(ctx, archiveURL, archivePath, progress); err != nil {
		return "", errors.Wrapf(err, "downloading %s", archiveName)
	}

	if err := VerifyFileChecksum(archivePath, expected); err != nil {
		return "", errors.Wrapf(err, "verifying %s", archiveName)
	}

	f.log.Debug("checksum verified", "archive", archiveName)

	binaryPath, err := ExtractBinary(archivePath, f.binaryName, workDir)
	if err != nil {
		return "", errors.Wrapf(err, "extracting %s", archiveName)
	}

	return binaryPath, nil
}

// fetchExpectedChecksum downloads the sidecar manifest and returns the digest
// declared for the archive. The manifest is fetched before the archive so an
// unverifiable artifact is rejected without wasting the large download.
func (f *Fetcher) fetchExpectedChecksum(
	ctx context.Context,
	tag, archiveName, checksumName string,
) (string, error) {
	checksumURL := f.urls.DownloadURL(tag, checksumName)

	f.log.Debug("downloading checksum manifest", "url", checksumURL)

	content, err := f.downloader.DownloadToString(ctx, checksumURL)
	if err != nil {
		return "", errors.Wrapf(err, "downloading %s", checksumName)
	}

	expected, ok := ParseChecksums(content)[archiveName]
	if !ok {
		return "", errors.Wrapf(
			ErrChecksumMismatch,
			"manifest %s declares no digest for %s",
			checksumName, archiveName,
		)
	}

	return expected, nil
}
