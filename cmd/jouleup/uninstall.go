package main

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/joulelab/jouleup/internal/exec"
	"github.com/joulelab/jouleup/internal/installer"
	"github.com/joulelab/jouleup/internal/tui"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the installed joule-profiler binary",
	Long: `Remove the joule-profiler binary.

The canonical install path is checked first; when the binary lives
elsewhere on PATH, that copy is removed instead and the divergence is
reported.

Examples:
  jouleup uninstall       # Remove with confirmation
  jouleup uninstall -y    # Remove without prompting`,
	RunE: runUninstall,
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(_ *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	log := newLogger(settings)
	theme := newTheme(settings)

	ctx, cancel := newSignalContext(settings.Timeout)
	defer cancel()

	inst := installer.New(settings, tui.New(), newRunner(), exec.NewToolChecker(), log)

	if err := inst.Uninstall(ctx); err != nil {
		if errors.Is(err, installer.ErrDeclined) {
			fmt.Println("Aborted; nothing was changed.")

			return nil
		}

		return err
	}

	fmt.Println(theme.Success.Render("Done."))

	return nil
}
