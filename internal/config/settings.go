// Package config provides configuration loading for jouleup.
package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Settings is the immutable configuration for a single jouleup run.
// It is constructed once in the command layer and passed by value through
// every pipeline stage; no stage mutates it or reads ambient globals.
type Settings struct {
	// InstallDir is the directory the profiler binary is placed in.
	InstallDir string `koanf:"install_dir"`

	// BinaryName is the name of the installed binary.
	BinaryName string `koanf:"binary_name"`

	// GitHubOwner is the release repository owner.
	GitHubOwner string `koanf:"github_owner"`

	// GitHubRepo is the release repository name.
	GitHubRepo string `koanf:"github_repo"`

	// AssumeYes skips interactive confirmations.
	AssumeYes bool `koanf:"assume_yes"`

	// Verbose enables diagnostic logging on stderr.
	Verbose bool `koanf:"verbose"`

	// NoColor disables colored output.
	NoColor bool `koanf:"no_color"`

	// Timeout bounds the whole network-facing pipeline.
	Timeout time.Duration `koanf:"timeout"`
}

// Default configuration values.
const (
	DefaultInstallDir  = "/usr/local/bin"
	DefaultBinaryName  = "joule-profiler"
	DefaultGitHubOwner = "joulelab"
	DefaultGitHubRepo  = "joule-profiler"
	DefaultTimeout     = 5 * time.Minute
)

var (
	// ErrInvalidInstallDir is returned when install_dir is not an absolute path.
	ErrInvalidInstallDir = errors.New("install_dir must be an absolute path")

	// ErrInvalidBinaryName is returned when binary_name is empty or contains separators.
	ErrInvalidBinaryName = errors.New("binary_name must be a bare file name")

	// ErrInvalidTimeout is returned when timeout is not positive.
	ErrInvalidTimeout = errors.New("timeout must be positive")
)

// Validate checks the settings for values the pipeline cannot work with.
func (s Settings) Validate() error {
	if !filepath.IsAbs(s.InstallDir) {
		return errors.Wrapf(ErrInvalidInstallDir, "got %q", s.InstallDir)
	}

	if s.BinaryName == "" || strings.ContainsRune(s.BinaryName, filepath.Separator) {
		return errors.Wrapf(ErrInvalidBinaryName, "got %q", s.BinaryName)
	}

	if s.Timeout <= 0 {
		return errors.Wrapf(ErrInvalidTimeout, "got %s", s.Timeout)
	}

	return nil
}

// BinaryPath returns the canonical installed path for the binary.
func (s Settings) BinaryPath() string {
	return filepath.Join(s.InstallDir, s.BinaryName)
}

// defaultsToMap returns built-in defaults for the koanf confmap provider.
func defaultsToMap() map[string]any {
	return map[string]any{
		"install_dir":  DefaultInstallDir,
		"binary_name":  DefaultBinaryName,
		"github_owner": DefaultGitHubOwner,
		"github_repo":  DefaultGitHubRepo,
		"assume_yes":   false,
		"verbose":      false,
		"no_color":     false,
		"timeout":      DefaultTimeout.String(),
	}
}
