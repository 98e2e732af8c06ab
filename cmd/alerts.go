package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/budget/internal/alerts"
	"github.com/theirongolddev/budget/internal/cli"
	"github.com/theirongolddev/budget/internal/model"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var flagAlertFilter string

var (
	flagPrefWarning  string
	flagPrefCritical string
	flagPrefEmail    bool
	flagPrefInApp    bool
	flagPrefUnusual  bool
	flagPrefBills    bool
	flagPrefWeekly   bool
)

var alertsCmd = &cobra.Command{
	Use:     "alerts",
	Short:   "List and manage budget alerts",
	Args:    cobra.NoArgs,
	PreRunE: requireAlerts,
	RunE:    runAlertsList,
}

var alertsListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List alerts",
	Args:    cobra.NoArgs,
	PreRunE: requireAlerts,
	RunE:    runAlertsList,
}

var alertsReadCmd = &cobra.Command{
	Use:     "read ID",
	Short:   "Mark an alert read",
	Args:    cobra.ExactArgs(1),
	PreRunE: requireAlerts,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := svc.alerts.MarkRead(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("  Marked %s read\n", args[0])
		return nil
	},
}

var alertsDismissCmd = &cobra.Command{
	Use:     "dismiss ID",
	Short:   "Delete an alert",
	Args:    cobra.ExactArgs(1),
	PreRunE: requireAlerts,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := svc.alerts.Dismiss(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("  Dismissed %s\n", args[0])
		return nil
	},
}

var alertsReadAllCmd = &cobra.Command{
	Use:     "read-all",
	Short:   "Mark every unread alert read",
	Args:    cobra.NoArgs,
	PreRunE: requireAlerts,
	RunE:    runAlertsReadAll,
}

var alertsPrefsCmd = &cobra.Command{
	Use:     "prefs",
	Short:   "Show notification preferences",
	Args:    cobra.NoArgs,
	PreRunE: requireSession,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := svc.client.AlertPreferences(cmd.Context())
		if err != nil {
			return err
		}
		printPreferences(p)
		return nil
	},
}

var alertsPrefsSetCmd = &cobra.Command{
	Use:     "set",
	Short:   "Change notification preferences",
	Example: "  budget alerts prefs set --warning 75% --critical 0.95 --email=false",
	Args:    cobra.NoArgs,
	PreRunE: requireSession,
	RunE:    runAlertsPrefsSet,
}

func init() {
	for _, c := range []*cobra.Command{alertsCmd, alertsListCmd} {
		c.Flags().StringVarP(&flagAlertFilter, "filter", "f", "all", "Show all, unread or read alerts")
	}

	f := alertsPrefsSetCmd.Flags()
	f.StringVar(&flagPrefWarning, "warning", "", "Warning threshold, as 0.7 or 70%")
	f.StringVar(&flagPrefCritical, "critical", "", "Critical threshold, as 0.9 or 90%")
	f.BoolVar(&flagPrefEmail, "email", true, "Send alerts by email")
	f.BoolVar(&flagPrefInApp, "in-app", true, "Show alerts in the app")
	f.BoolVar(&flagPrefUnusual, "unusual", true, "Alert on unusual spending")
	f.BoolVar(&flagPrefBills, "bills", true, "Send bill reminders")
	f.BoolVar(&flagPrefWeekly, "weekly", true, "Send a weekly summary")
	alertsPrefsCmd.AddCommand(alertsPrefsSetCmd)

	alertsCmd.AddCommand(alertsListCmd, alertsReadCmd, alertsDismissCmd, alertsReadAllCmd, alertsPrefsCmd)
	rootCmd.AddCommand(alertsCmd)
}

// requireAlerts gates on the session and loads the alert list every alert
// command works from.
func requireAlerts(cmd *cobra.Command, args []string) error {
	if err := requireSession(cmd, args); err != nil {
		return err
	}
	return svc.alerts.Load(cmd.Context())
}

func runAlertsList(_ *cobra.Command, _ []string) error {
	filter, err := alerts.ParseFilter(flagAlertFilter)
	if err != nil {
		return err
	}
	list := svc.alerts.List(filter)
	now := time.Now()

	rows := make([][]string, 0, len(list))
	for _, a := range list {
		state := cli.Header("new")
		if a.IsRead {
			state = cli.Muted("read")
		}
		rows = append(rows, []string{
			cli.Truncate(a.Title, 40),
			cli.Colored(string(a.Severity), cli.AlertColor(a.Severity)),
			state,
			cli.FormatAge(a.CreatedAt.Time, now),
			cli.Muted(a.ID),
		})
	}

	fmt.Println()
	if len(rows) == 0 {
		fmt.Printf("  No %s alerts.\n\n", filter)
		return nil
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   fmt.Sprintf("Alerts · %s (%d, %d unread)", filter, len(list), svc.alerts.UnreadCount()),
		Headers: []string{"Title", "Severity", "State", "Age", "ID"},
		Rows:    rows,
	}))
	fmt.Println()
	return nil
}

func runAlertsReadAll(cmd *cobra.Command, _ []string) error {
	n := svc.alerts.UnreadCount()
	if n == 0 {
		fmt.Println("  No unread alerts.")
		return nil
	}

	err := svc.alerts.MarkAllRead(cmd.Context())
	var bulk *alerts.BulkError
	if errors.As(err, &bulk) {
		fmt.Printf("  Marked %d of %d alerts read\n", bulk.Total-len(bulk.Failed), bulk.Total)
		for _, id := range bulk.Failed {
			fmt.Printf("    %s %s\n", cli.Colored("failed", cli.ColorRed), id)
		}
		return err
	}
	if err != nil {
		return err
	}
	fmt.Printf("  Marked %d alerts read\n", n)
	return nil
}

func runAlertsPrefsSet(cmd *cobra.Command, _ []string) error {
	upd, err := preferencesUpdate(cmd.Flags())
	if err != nil {
		return err
	}
	if upd == (model.AlertPreferencesUpdate{}) {
		return errors.New("nothing to update: pass --warning, --critical or a notification flag")
	}
	p, err := svc.client.UpdateAlertPreferences(cmd.Context(), upd)
	if err != nil {
		return err
	}
	fmt.Println("  Preferences updated.")
	printPreferences(p)
	return nil
}

// preferencesUpdate collects only the flags the user passed.
func preferencesUpdate(flags *pflag.FlagSet) (model.AlertPreferencesUpdate, error) {
	var upd model.AlertPreferencesUpdate
	var errs []error
	if flags.Changed("warning") {
		v, err := parseThreshold("warning", flagPrefWarning)
		errs = append(errs, err)
		upd.WarningThreshold = &v
	}
	if flags.Changed("critical") {
		v, err := parseThreshold("critical", flagPrefCritical)
		errs = append(errs, err)
		upd.CriticalThreshold = &v
	}
	for _, b := range []struct {
		name string
		val  bool
		dst  **bool
	}{
		{"email", flagPrefEmail, &upd.EmailEnabled},
		{"in-app", flagPrefInApp, &upd.InAppEnabled},
		{"unusual", flagPrefUnusual, &upd.UnusualSpendingEnabled},
		{"bills", flagPrefBills, &upd.BillRemindersEnabled},
		{"weekly", flagPrefWeekly, &upd.WeeklySummaryEnabled},
	} {
		if flags.Changed(b.name) {
			v := b.val
			*b.dst = &v
		}
	}
	if err := errors.Join(errs...); err != nil {
		return model.AlertPreferencesUpdate{}, err
	}
	return upd, nil
}

// parseThreshold accepts a fraction ("0.75") or a percentage ("75%").
func parseThreshold(flag, raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	pct := strings.HasSuffix(s, "%")
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return 0, fmt.Errorf("--%s %q: not a number", flag, raw)
	}
	if pct {
		v /= 100
	}
	if v < 0 || v > 1 {
		return 0, fmt.Errorf("--%s %q: must be between 0 and 1 (or 0%% and 100%%)", flag, raw)
	}
	return v, nil
}

func printPreferences(p model.AlertPreferences) {
	onOff := func(b bool) string {
		if b {
			return cli.Colored("on", cli.ColorGreen)
		}
		return cli.Muted("off")
	}
	fmt.Println()
	printField("Warning at", cli.FormatPercent(p.WarningThreshold*100))
	printField("Critical at", cli.FormatPercent(p.CriticalThreshold*100))
	printField("Email", onOff(p.EmailEnabled))
	printField("In app", onOff(p.InAppEnabled))
	printField("Unusual spend", onOff(p.UnusualSpendingEnabled))
	printField("Bill reminders", onOff(p.BillRemindersEnabled))
	printField("Weekly summary", onOff(p.WeeklySummaryEnabled))
	fmt.Println()
}
