// Package release resolves version requests against the remote release index
// and knows the artifact naming convention.
package release

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"

	"github.com/joulelab/jouleup/internal/github"
	"github.com/joulelab/jouleup/internal/platform"
)

var (
	// ErrVersionFormatInvalid is returned for version strings that do not
	// match the release tag pattern. Checked before any network call.
	ErrVersionFormatInvalid = errors.New("invalid version format")

	// ErrVersionNotFound is returned when the requested tag has no release.
	ErrVersionNotFound = errors.New("version not found")
)

// RequestLatest is the version request that resolves to the newest tag.
const RequestLatest = "latest"

// versionRe is the exact tag pattern published releases use.
var versionRe = regexp.MustCompile(`^v\d+\.\d+\.\d+$`)

// Resolver validates version requests against the release index.
type Resolver struct {
	client github.Client
	owner  string
	repo   string
}

// NewResolver creates a Resolver for the given repository.
func NewResolver(client github.Client, owner, repo string) *Resolver {
	return &Resolver{
		client: client,
		owner:  owner,
		repo:   repo,
	}
}

// Resolve turns a version request ("latest" or an explicit tag) into a
// validated release tag. Explicit tags are format-checked before any
// network call so typos fail fast.
func (r *Resolver) Resolve(ctx context.Context, request string) (string, error) {
	if request == RequestLatest {
		return r.resolveLatest(ctx)
	}

	return r.resolvePinned(ctx, request)
}

func (r *Resolver) resolveLatest(ctx context.Context) (string, error) {
	rel, err := r.client.GetLatestRelease(ctx, r.owner, r.repo)
	if err != nil {
		return "", errors.Wrap(err, "resolving latest release")
	}

	tag := rel.TagName
	if tag == "" {
		return "", errors.Wrap(github.ErrNetwork, "release index returned no parsable tag")
	}

	return tag, nil
}

func (r *Resolver) resolvePinned(ctx context.Context, request string) (string, error) {
	if err := ValidateTag(request); err != nil {
		return "", err
	}

	if _, err := r.client.GetReleaseByTag(ctx, r.owner, r.repo, request); err != nil {
		if errors.Is(err, github.ErrReleaseNotFound) {
			return "", errors.Wrapf(
				ErrVersionNotFound,
				"release %s does not exist; run 'jouleup versions' or see %s",
				request, r.ReleasesURL(),
			)
		}

		return "", errors.Wrapf(err, "checking release %s", request)
	}

	return request, nil
}

// List returns the n most recent releases. Read-only: it mutates no
// resolver or installation state.
func (r *Resolver) List(ctx context.Context, n int) ([]*github.Release, error) {
	releases, err := r.client.ListReleases(ctx, r.owner, r.repo, n)
	if err != nil {
		return nil, errors.Wrap(err, "listing releases")
	}

	return releases, nil
}

// ValidateTag checks that a tag matches vMAJOR.MINOR.PATCH exactly.
// Fails closed: anything the pattern or semver rejects is
// ErrVersionFormatInvalid, never silently degraded.
func ValidateTag(tag string) error {
	if !versionRe.MatchString(tag) {
		return errors.Wrapf(
			ErrVersionFormatInvalid,
			"%q does not match vMAJOR.MINOR.PATCH (e.g. v1.2.0)",
			tag,
		)
	}

	if _, err := semver.StrictNewVersion(strings.TrimPrefix(tag, "v")); err != nil {
		return errors.Wrapf(ErrVersionFormatInvalid, "%q: %v", tag, err)
	}

	return nil
}

// ArchiveName returns the expected archive file name for a tag and target.
func ArchiveName(binary, tag string, target platform.Target) string {
	return fmt.Sprintf("%s-%s-%s.tar.gz", binary, tag, target.Triple)
}

// ChecksumName returns the sidecar manifest name for an archive.
func ChecksumName(archiveName string) string {
	return archiveName + ".sha256"
}

// DownloadURL returns the release asset URL for a tag and file name.
func (r *Resolver) DownloadURL(tag, filename string) string {
	return fmt.Sprintf(
		"https://github.com/%s/%s/releases/download/%s/%s",
		r.owner, r.repo, tag, filename,
	)
}

// ReleasesURL returns the human-browsable releases page.
func (r *Resolver) ReleasesURL() string {
	return fmt.Sprintf("https://github.com/%s/%s/releases", r.owner, r.repo)
}
