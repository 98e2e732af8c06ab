package cmd

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/theirongolddev/budget/internal/config"
	"github.com/theirongolddev/budget/internal/tui/theme"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive configuration wizard",
	Args:  cobra.NoArgs,
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	// Edit the file's contents, not the env/flag-overlaid view.
	next, err := config.Load()
	if err != nil {
		return err
	}
	refresh := strconv.Itoa(next.Dashboard.RefreshIntervalSec)

	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, t := range theme.All {
		themeOpts = append(themeOpts, huh.NewOption(t.Name, t.Name))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().Title("budget setup").Description("Settings are saved to "+config.Path()),
			huh.NewInput().
				Title("Budget service URL").
				Value(&next.API.BaseURL).
				Validate(func(s string) error {
					u, err := url.Parse(s)
					if err != nil || u.Host == "" {
						return errors.New("enter a full URL, e.g. http://localhost:8000")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&next.Appearance.Theme),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Dashboard loading").
				Options(
					huh.NewOption("All or nothing (keep last good dashboard on any failure)", "all-or-nothing"),
					huh.NewOption("Per source (show what loaded, flag what failed)", "per-source"),
				).
				Value(&next.Dashboard.Join),
			huh.NewSelect[string]().
				Title("When an alert update fails").
				Options(
					huh.NewOption("Keep local changes until the next reload", "baseline"),
					huh.NewOption("Roll back what failed", "rollback"),
				).
				Value(&next.Alerts.Consistency),
			huh.NewConfirm().
				Title("Auto-refresh the TUI dashboard?").
				Value(&next.Dashboard.AutoRefresh),
			huh.NewInput().
				Title("Refresh interval (seconds)").
				Value(&refresh).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n < 5 {
						return errors.New("must be a whole number of at least 5")
					}
					return nil
				}),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	next.Dashboard.RefreshIntervalSec, _ = strconv.Atoi(refresh)
	if err := next.Validate(); err != nil {
		return err
	}
	if err := config.Save(next); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\n  Saved config to %s\n", config.Path())
	fmt.Println("  Run `budget login` to sign in.")
	return nil
}
