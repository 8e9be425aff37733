package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joulelab/jouleup/internal/color"
	"github.com/joulelab/jouleup/internal/exec"
	"github.com/joulelab/jouleup/internal/fetcher"
	"github.com/joulelab/jouleup/internal/installer"
	"github.com/joulelab/jouleup/internal/platform"
	"github.com/joulelab/jouleup/internal/release"
	"github.com/joulelab/jouleup/internal/tui"
)

const percentMultiple = 100

var installVersion string

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install joule-profiler",
	Long: `Install joule-profiler from GitHub Releases.

Downloads the release archive for this platform, verifies the SHA256
checksum, and places the binary atomically in the install directory.

Examples:
  jouleup install                    # Install the latest release
  jouleup install --version v1.2.0   # Install a specific release
  jouleup install -y                 # Skip confirmations`,
	RunE: runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)

	installCmd.Flags().StringVar(
		&installVersion,
		"version",
		release.RequestLatest,
		"Release version to install (e.g. v1.2.0)",
	)
}

func runInstall(_ *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	log := newLogger(settings)
	theme := newTheme(settings)

	target, err := platform.ProbeHost()
	if err != nil {
		return err
	}

	warnWithoutRAPL(theme)

	ctx, cancel := newSignalContext(settings.Timeout)
	defer cancel()

	resolver := newResolver(settings)

	tag, err := resolver.Resolve(ctx, installVersion)
	if err != nil {
		return err
	}

	fmt.Printf("Installing %s %s (%s)\n", settings.BinaryName, tag, target.Triple)

	fetch := fetcher.New(fetcher.NewDownloader(nil), resolver, settings.BinaryName, log)

	binaryPath, cleanup, err := fetch.Fetch(ctx, tag, target, downloadProgress)
	if err != nil {
		return err
	}
	defer cleanup()

	clearProgressLine()

	runner := newRunner()
	inst := installer.New(settings, tui.New(), runner, exec.NewToolChecker(), log)

	if err := inst.Install(ctx, binaryPath, tag); err != nil {
		if errors.Is(err, installer.ErrDeclined) {
			fmt.Println("Aborted; nothing was changed.")

			return nil
		}

		return err
	}

	fmt.Println(theme.Success.Render("Done."))

	return nil
}

// warnWithoutRAPL checks for RAPL energy counters. Their absence is a
// warning, not an error: installation still works, measurement will not.
func warnWithoutRAPL(theme color.Theme) {
	path := platform.RAPLPath()
	if !platform.CheckRAPL(path) {
		fmt.Fprintf(os.Stderr, "%s\n", theme.Warning.Render(
			fmt.Sprintf("Warning: RAPL not available at %s; joule-profiler will install but cannot measure energy on this host.", path),
		))
	}
}

func downloadProgress(received, total int64) {
	if total > 0 {
		pct := float64(received) / float64(total) * percentMultiple
		fmt.Fprintf(os.Stderr, "\r  %.0f%% (%s / %s)", pct,
			humanize.Bytes(uint64(received)), humanize.Bytes(uint64(total))) //nolint:gosec // G115: byte counts are non-negative
	} else {
		fmt.Fprintf(os.Stderr, "\r  %s", humanize.Bytes(uint64(received))) //nolint:gosec // G115: byte counts are non-negative
	}
}

func clearProgressLine() {
	fmt.Fprintf(os.Stderr, "\r%60s\r", "")
}
