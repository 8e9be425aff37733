// Package github provides a GitHub release index client with caching.
package github

//go:generate mockgen -source=client.go -destination=client_mock.go -package=github

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/go-github/v84/github"

	execpkg "github.com/joulelab/jouleup/internal/exec"
)

const (
	// ghAuthTimeout is the timeout for the gh auth token command.
	ghAuthTimeout = 5 * time.Second
)

var (
	// ErrNetwork is returned when the release index is unreachable.
	ErrNetwork = errors.New("release index unreachable")

	// ErrRateLimited is returned when the GitHub API rate limit is exceeded.
	ErrRateLimited = errors.New("github API rate limit exceeded")

	// ErrReleaseNotFound is returned when a release tag does not exist.
	ErrReleaseNotFound = errors.New("release not found")

	// ErrNoReleases is returned when the repository has no releases.
	ErrNoReleases = errors.New("no releases found")
)

// Release represents a published release on the index.
type Release struct {
	TagName     string
	Name        string
	HTMLURL     string
	PublishedAt time.Time
}

// Client defines the interface for release index operations.
type Client interface {
	// GetLatestRelease retrieves the latest release for a repository.
	GetLatestRelease(ctx context.Context, owner, repo string) (*Release, error)

	// GetReleaseByTag retrieves a release by its exact tag.
	GetReleaseByTag(ctx context.Context, owner, repo, tag string) (*Release, error)

	// ListReleases retrieves the n most recent releases.
	ListReleases(ctx context.Context, owner, repo string, n int) ([]*Release, error)

	// IsAuthenticated returns whether the client sends a token.
	IsAuthenticated() bool
}

// SDKClient implements Client using the go-github SDK.
type SDKClient struct {
	client        *github.Client
	authenticated bool
	cache         *Cache
}

// getToken retrieves a GitHub token from the environment or the gh CLI.
// Unauthenticated requests hit low rate limits quickly in CI.
func getToken() string {
	if token := os.Getenv("GH_TOKEN"); token != "" {
		return token
	}

	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token
	}

	toolChecker := execpkg.NewToolChecker()
	if !toolChecker.IsAvailable("gh") {
		return ""
	}

	runner := execpkg.NewCommandRunner(ghAuthTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), ghAuthTimeout)
	defer cancel()

	result := runner.Run(ctx, "gh", "auth", "token")
	if result.Failed() {
		return ""
	}

	return strings.TrimSpace(result.Stdout)
}

// NewClient creates a release index client. A token is picked up from
// GH_TOKEN, GITHUB_TOKEN, or the gh CLI when available.
func NewClient() *SDKClient {
	token := getToken()
	authenticated := token != ""

	var httpClient *http.Client
	if authenticated {
		httpClient = &http.Client{
			Transport: &authTransport{token: token},
		}
	}

	return &SDKClient{
		client:        github.NewClient(httpClient),
		authenticated: authenticated,
		cache:         NewCache(),
	}
}

// NewClientWithHTTP creates a client over a caller-supplied HTTP client
// and base URL (for testing against httptest servers).
func NewClientWithHTTP(httpClient *http.Client, baseURL string) (*SDKClient, error) {
	ghClient := github.NewClient(httpClient)

	if baseURL != "" {
		var err error

		ghClient, err = ghClient.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, errors.Wrap(err, "setting base URL")
		}
	}

	return &SDKClient{
		client: ghClient,
		cache:  NewCache(),
	}, nil
}

// authTransport adds the authentication header to requests.
type authTransport struct {
	token string
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+t.token)

	return http.DefaultTransport.RoundTrip(req)
}

// IsAuthenticated returns whether the client sends a token.
func (c *SDKClient) IsAuthenticated() bool {
	return c.authenticated
}

// GetLatestRelease retrieves the latest release for a repository.
func (c *SDKClient) GetLatestRelease(
	ctx context.Context,
	owner, repo string,
) (*Release, error) {
	cacheKey := fmt.Sprintf("latest:%s/%s", owner, repo)

	if cached, ok := c.cache.Get(cacheKey); ok {
		if rel, ok := cached.(*Release); ok {
			return rel, nil
		}
	}

	release, resp, err := c.client.Repositories.GetLatestRelease(ctx, owner, repo)
	if err != nil {
		return nil, c.handleError(resp, err)
	}

	result := convertRelease(release)

	c.cache.Set(cacheKey, result)

	return result, nil
}

// GetReleaseByTag retrieves a release by its exact tag.
func (c *SDKClient) GetReleaseByTag(
	ctx context.Context,
	owner, repo, tag string,
) (*Release, error) {
	cacheKey := fmt.Sprintf("tag:%s/%s@%s", owner, repo, tag)

	if cached, ok := c.cache.Get(cacheKey); ok {
		if rel, ok := cached.(*Release); ok {
			return rel, nil
		}
	}

	release, resp, err := c.client.Repositories.GetReleaseByTag(ctx, owner, repo, tag)
	if err != nil {
		return nil, c.handleError(resp, err)
	}

	result := convertRelease(release)

	c.cache.Set(cacheKey, result)

	return result, nil
}

// ListReleases retrieves the n most recent releases.
func (c *SDKClient) ListReleases(
	ctx context.Context,
	owner, repo string,
	n int,
) ([]*Release, error) {
	cacheKey := fmt.Sprintf("list:%s/%s#%d", owner, repo, n)

	if cached, ok := c.cache.Get(cacheKey); ok {
		if releases, ok := cached.([]*Release); ok {
			return releases, nil
		}
	}

	opts := &github.ListOptions{PerPage: n}

	ghReleases, resp, err := c.client.Repositories.ListReleases(ctx, owner, repo, opts)
	if err != nil {
		return nil, c.handleError(resp, err)
	}

	if len(ghReleases) == 0 {
		return nil, ErrNoReleases
	}

	releases := make([]*Release, 0, len(ghReleases))
	for _, r := range ghReleases {
		releases = append(releases, convertRelease(r))
	}

	c.cache.Set(cacheKey, releases)

	return releases, nil
}

func convertRelease(r *github.RepositoryRelease) *Release {
	return &Release{
		TagName:     r.GetTagName(),
		Name:        r.GetName(),
		HTMLURL:     r.GetHTMLURL(),
		PublishedAt: r.GetPublishedAt().Time,
	}
}

// handleError converts GitHub API errors to our error taxonomy.
func (*SDKClient) handleError(resp *github.Response, err error) error {
	if resp == nil {
		return errors.Wrapf(ErrNetwork, "%v", err)
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return ErrReleaseNotFound
	case http.StatusForbidden:
		if resp.Rate.Remaining == 0 {
			return ErrRateLimited
		}

		return err
	default:
		return err
	}
}
