package main

import (
	"fmt"
	"os"
	"time"

	"github.com/hako/durafmt"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/joulelab/jouleup/internal/color"
	"github.com/joulelab/jouleup/internal/github"
)

const (
	defaultVersionsLimit = 10
	ageDisplayUnits      = 2
)

var versionsLimit int

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List available joule-profiler releases",
	Long: `List recent joule-profiler releases from GitHub.

Read-only: listing never touches the installed binary or any local state.

Examples:
  jouleup versions              # List the 10 most recent releases
  jouleup versions --limit 25   # List more`,
	RunE: runVersions,
}

func init() {
	rootCmd.AddCommand(versionsCmd)

	versionsCmd.Flags().IntVar(
		&versionsLimit,
		"limit",
		defaultVersionsLimit,
		"Maximum number of releases to list",
	)
}

func runVersions(_ *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	theme := newTheme(settings)

	ctx, cancel := newSignalContext(settings.Timeout)
	defer cancel()

	releases, err := newResolver(settings).List(ctx, versionsLimit)
	if err != nil {
		return err
	}

	if len(releases) == 0 {
		fmt.Println("No releases found.")

		return nil
	}

	renderVersionsTable(releases, theme)

	return nil
}

func renderVersionsTable(releases []*github.Release, theme color.Theme) {
	t := tablewriter.NewTable(os.Stdout,
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleRounded),
		})),
		tablewriter.WithPadding(tw.Padding{Left: " ", Right: " "}),
	)

	t.Header([]string{"Version", "Published", "Age"})

	now := time.Now()

	for _, rel := range releases {
		published := "unknown"
		age := ""

		if !rel.PublishedAt.IsZero() {
			published = rel.PublishedAt.Format("2006-01-02")
			age = durafmt.Parse(now.Sub(rel.PublishedAt)).LimitFirstN(ageDisplayUnits).String() + " ago"
		}

		_ = t.Append([]string{
			theme.Header.Render(rel.TagName),
			published,
			theme.Muted.Render(age),
		})
	}

	_ = t.Render()
}
