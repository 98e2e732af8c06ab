package cmd

import (
	"fmt"

	"github.com/theirongolddev/budget/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	fmt.Printf("  Config file: %s\n", config.Path())
	if config.Exists() {
		fmt.Println("  Status: loaded (environment and flags applied on top)")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [API]")
	fmt.Printf("    Base URL:          %s\n", cfg.API.BaseURL)
	fmt.Printf("    Timeout:           %s\n", cfg.Timeout())
	fmt.Printf("    AI timeout:        %s\n", cfg.AITimeout())
	fmt.Println()

	fmt.Println("  [Dashboard]")
	fmt.Printf("    Join:              %s\n", cfg.Dashboard.Join)
	fmt.Printf("    Alert limit:       %d\n", cfg.Dashboard.AlertLimit)
	fmt.Printf("    Insight limit:     %d\n", cfg.Dashboard.InsightLimit)
	if cfg.Dashboard.AutoRefresh {
		fmt.Printf("    Auto refresh:      every %s\n", cfg.RefreshInterval())
	} else {
		fmt.Println("    Auto refresh:      off")
	}
	fmt.Println()

	fmt.Println("  [Alerts]")
	fmt.Printf("    Consistency:       %s\n", cfg.Alerts.Consistency)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme:             %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  [Logging]")
	fmt.Printf("    Level:             %s\n", cfg.Logging.Level)
	fmt.Printf("    Format:            %s\n", cfg.Logging.Format)
	fmt.Println()

	fmt.Println("  [Storage]")
	fmt.Printf("    Credentials:       %s\n", cfg.CredentialsPath())
	fmt.Println()

	fmt.Println("  Run `budget setup` to change settings.")
	return nil
}
