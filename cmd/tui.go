package cmd

import (
	"fmt"

	"github.com/theirongolddev/budget/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

// runTUI needs no PreRunE gate: the app hydrates itself and shows the login
// form when the session is anonymous.
func runTUI(_ *cobra.Command, _ []string) error {
	s, err := getServices()
	if err != nil {
		return err
	}

	// Force TrueColor profile so all background styling produces ANSI codes
	lipgloss.SetColorProfile(termenv.TrueColor)

	interval := cfg.RefreshInterval()
	if !cfg.Dashboard.AutoRefresh {
		interval = 0
	}

	app := tui.NewApp(tui.Deps{
		Session:         s.session,
		Dashboard:       s.dashboard,
		Alerts:          s.alerts,
		RefreshInterval: interval,
	})
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
