// Package main provides the CLI entry point for jouleup.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/joulelab/jouleup/internal/color"
	"github.com/joulelab/jouleup/internal/config"
	"github.com/joulelab/jouleup/internal/exec"
	"github.com/joulelab/jouleup/internal/fetcher"
	"github.com/joulelab/jouleup/internal/fsops"
	"github.com/joulelab/jouleup/internal/github"
	"github.com/joulelab/jouleup/internal/platform"
	"github.com/joulelab/jouleup/internal/release"
	"github.com/joulelab/jouleup/pkg/logger"
)

// Exit codes. Scripts branch on these, so each failure class keeps a
// stable code.
const (
	// ExitOK covers success and user-declined confirmations.
	ExitOK = 0

	// ExitFailure covers failures with no more specific class.
	ExitFailure = 1

	// ExitUnsupportedPlatform is returned on a non linux/amd64 host.
	ExitUnsupportedPlatform = 2

	// ExitNetwork covers network failures and unresolvable versions.
	ExitNetwork = 3

	// ExitPermission is returned when the install directory cannot be
	// written and no escalation path works.
	ExitPermission = 4
)

const commandRunTimeout = 30 * time.Second

var (
	flagConfigPath string
	flagInstallDir string
	flagYes        bool
	flagVerbose    bool
	flagNoColor    bool
	flagTimeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "jouleup",
	Short: "Installer for the joule-profiler energy measurement tool",
	Long: `jouleup installs, updates, and removes the joule-profiler binary.

Releases are fetched from GitHub, verified against their SHA256
checksums, and placed atomically in the install directory. Privilege
escalation via sudo happens only when the directory is not writable.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
}

func main() {
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	err := rootCmd.Execute()
	if err == nil {
		return ExitOK
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	return exitCodeFor(err)
}

// exitCodeFor maps an error to its exit code by failure class.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, platform.ErrUnsupportedPlatform):
		return ExitUnsupportedPlatform
	case errors.Is(err, github.ErrNetwork),
		errors.Is(err, github.ErrRateLimited),
		errors.Is(err, github.ErrReleaseNotFound),
		errors.Is(err, release.ErrVersionFormatInvalid),
		errors.Is(err, release.ErrVersionNotFound),
		errors.Is(err, github.ErrNoReleases),
		errors.Is(err, fetcher.ErrAssetNotFound),
		errors.Is(err, fetcher.ErrDownloadFailed):
		return ExitNetwork
	case errors.Is(err, fsops.ErrPermissionDenied):
		return ExitPermission
	default:
		return ExitFailure
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(
		&flagConfigPath,
		"config",
		"c",
		"",
		"Path to configuration file (default: ~/.config/jouleup/config.toml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&flagInstallDir,
		"install-dir",
		"",
		"Directory to install the binary into (default: "+config.DefaultInstallDir+")",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&flagYes,
		"yes",
		"y",
		false,
		"Assume yes for all confirmations",
	)
	rootCmd.PersistentFlags().BoolVar(
		&flagVerbose,
		"verbose",
		false,
		"Enable diagnostic logging on stderr",
	)
	rootCmd.PersistentFlags().BoolVar(
		&flagNoColor,
		"no-color",
		false,
		"Disable colored output",
	)
	rootCmd.PersistentFlags().DurationVar(
		&flagTimeout,
		"timeout",
		0,
		"Overall timeout for network operations (default: "+config.DefaultTimeout.String()+")",
	)
}

// loadSettings resolves configuration from defaults, file, env, and flags.
func loadSettings() (config.Settings, error) {
	var (
		loader *config.Loader
		err    error
	)

	if flagConfigPath != "" {
		loader = config.NewLoaderWithPath(flagConfigPath)
	} else {
		loader, err = config.NewLoader()
		if err != nil {
			return config.Settings{}, err
		}
	}

	return loader.Load(buildFlagsMap())
}

// buildFlagsMap converts set CLI flags to a map for the config provider.
// Only explicitly set flags are included so they override env and file.
func buildFlagsMap() map[string]any {
	flags := make(map[string]any)

	if flagInstallDir != "" {
		flags["install_dir"] = flagInstallDir
	}

	if flagYes {
		flags["assume_yes"] = true
	}

	if flagVerbose {
		flags["verbose"] = true
	}

	if flagNoColor {
		flags["no_color"] = true
	}

	if flagTimeout > 0 {
		flags["timeout"] = flagTimeout.String()
	}

	return flags
}

// newSignalContext returns a context cancelled on SIGINT/SIGTERM and bounded
// by the configured timeout. Cancellation propagates through every pipeline
// stage, so partial downloads and temp dirs are cleaned up on Ctrl-C.
func newSignalContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, timeout)

	return ctx, func() {
		cancel()
		stop()
	}
}

func newLogger(settings config.Settings) logger.Logger {
	return logger.NewStderrLogger(settings.Verbose)
}

func newTheme(settings config.Settings) color.Theme {
	return color.NewTheme(color.Profile(settings.NoColor))
}

func newResolver(settings config.Settings) *release.Resolver {
	return release.NewResolver(github.NewClient(), settings.GitHubOwner, settings.GitHubRepo)
}

func newRunner() exec.CommandRunner {
	return exec.NewCommandRunner(commandRunTimeout)
}
