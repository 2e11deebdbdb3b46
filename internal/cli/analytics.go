package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/liangyou/zoodb-landing/internal/analytics"
	"github.com/liangyou/zoodb-landing/pkg/models"
)

func (a *App) analyticsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Inspect and manage local download analytics",
	}

	var source string
	track := &cobra.Command{
		Use:   "track <platform>",
		Short: "Record a download event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.handleTrack(args[0], source)
		},
	}
	track.Flags().StringVar(&source, "source", string(models.SourceButton), "download source: button, link, command")

	var output string
	export := &cobra.Command{
		Use:   "export",
		Short: "Export analytics data and stats as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.handleExport(output)
		},
	}
	export.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Show download statistics for the last 90 days",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, args []string) error { return a.handleStats() },
		},
		track,
		&cobra.Command{
			Use:   "clear",
			Short: "Delete all recorded analytics",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, args []string) error { return a.handleClear() },
		},
		export,
	)
	return cmd
}

func (a *App) handleStats() error {
	tracker, err := a.analytics()
	if err != nil {
		return err
	}
	stats := tracker.Stats()
	now := a.now()

	fmt.Fprintf(a.out, "Downloads (last 90 days): %s\n", analytics.FormatNumber(stats.TotalDownloads))
	fmt.Fprintf(a.out, "  Today:      %s\n", analytics.FormatNumber(stats.TodayDownloads))
	fmt.Fprintf(a.out, "  This week:  %s\n", analytics.FormatNumber(stats.WeekDownloads))
	fmt.Fprintf(a.out, "  This month: %s\n", analytics.FormatNumber(stats.MonthDownloads))

	fmt.Fprintln(a.out, "By platform:")
	for _, p := range models.AllPlatforms() {
		count := stats.ByPlatform[p]
		fmt.Fprintf(a.out, "  %-8s %6s  %3d%%\n", p.DisplayName(), analytics.FormatNumber(count), analytics.Percentage(count, stats.TotalDownloads))
	}
	fmt.Fprintln(a.out, "By source:")
	for _, s := range models.AllSources() {
		count := stats.BySource[s]
		fmt.Fprintf(a.out, "  %-8s %6s  %3d%%\n", s, analytics.FormatNumber(count), analytics.Percentage(count, stats.TotalDownloads))
	}

	fmt.Fprintf(a.out, "Visits: %s (first %s)\n", analytics.FormatNumber(tracker.VisitCount()), analytics.FormatRelativeTime(tracker.FirstVisit(), now))
	if last, ok := tracker.LastDownload(); ok {
		fmt.Fprintf(a.out, "Last download: %s, %s\n", last.Platform.DisplayName(), analytics.FormatRelativeTime(last.Timestamp, now))
	}
	return nil
}

func (a *App) handleTrack(platformName, source string) error {
	p, ok := models.ParsePlatform(platformName)
	if !ok {
		return fmt.Errorf("unknown platform %q (valid: windows, macos, linux)", platformName)
	}
	tracker, err := a.analytics()
	if err != nil {
		return err
	}
	event, err := tracker.TrackDownload(p, models.Source(source))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Tracked download %s (%s via %s)\n", event.ID, event.Platform, event.Source)
	return nil
}

func (a *App) handleClear() error {
	tracker, err := a.analytics()
	if err != nil {
		return err
	}
	tracker.Clear()
	fmt.Fprintln(a.out, "Analytics cleared.")
	return nil
}

func (a *App) handleExport(output string) error {
	tracker, err := a.analytics()
	if err != nil {
		return err
	}
	export := tracker.Export()
	if output == "" {
		return a.writeJSON(export)
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	file, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer file.Close()

	if err := encodeJSON(file, export); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Fprintf(a.out, "Exported %d downloads to %s\n", len(export.Downloads), output)
	return nil
}
