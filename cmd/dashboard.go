package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/theirongolddev/budget/internal/cli"
	"github.com/theirongolddev/budget/internal/dashboard"

	"github.com/spf13/cobra"
)

var flagJoin string

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"dash"},
	Short:   "Budget overview: totals, budgets, alerts and insights",
	Args:    cobra.NoArgs,
	PreRunE: requireSession,
	RunE:    runDashboard,
}

func init() {
	addDashboardFlags(dashboardCmd)
	rootCmd.AddCommand(dashboardCmd)
}

func addDashboardFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagJoin, "join", "", "Load policy: all-or-nothing or per-source (default from config)")
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	agg := svc.dashboard
	if flagJoin != "" {
		join, err := dashboard.ParseJoin(flagJoin)
		if err != nil {
			return err
		}
		agg = dashboard.New(svc.client, dashboard.Options{
			Join:         join,
			AlertLimit:   cfg.Dashboard.AlertLimit,
			InsightLimit: cfg.Dashboard.InsightLimit,
		}, logger)
	}

	progress("Loading dashboard...")
	vm, err := agg.Load(cmd.Context())
	if err != nil {
		return err
	}

	cur := currency()
	t := vm.Totals

	fmt.Println()
	fmt.Println(cli.RenderTitle("BUDGET DASHBOARD"))
	fmt.Println()

	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "This Month",
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Budgeted", cli.FormatMoney(t.TotalBudget, cur)},
			{"Spent", cli.Colored(cli.FormatMoney(t.TotalSpent, cur), cli.SeverityColor(t.Severity))},
			{"Remaining", cli.FormatMoney(t.Remaining, cur)},
			{"Used", cli.FormatPercent(t.PercentageUsed)},
			{"---"},
			{"Transactions", cli.FormatNumber(int64(vm.Summary.TotalTransactions))},
			{"Total spent", cli.FormatMoney(vm.Summary.TotalSpent, cur)},
		},
	}))
	fmt.Println()

	if len(vm.Budgets) > 0 {
		rows := make([][]string, 0, len(vm.Budgets))
		for _, s := range vm.Budgets {
			rows = append(rows, []string{
				s.CategoryName,
				cli.FormatMoney(s.Limit, cur),
				cli.FormatMoney(s.Spent, cur),
				cli.FormatMoney(s.Remaining, cur),
				cli.Colored(cli.FormatPercent(s.PercentageUsed), cli.SeverityColor(s.Severity)),
				cli.RenderBudgetBar(s.PercentageUsed, s.Severity, 20),
			})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Budgets",
			Headers: []string{"Category", "Limit", "Spent", "Left", "Used", ""},
			Rows:    rows,
		}))
		fmt.Println()
	}

	if len(vm.Summary.CategoryBreakdown) > 0 {
		printBreakdown(vm)
	}

	if len(vm.Alerts) > 0 {
		fmt.Println("  " + cli.Header("Unread Alerts"))
		now := time.Now()
		for _, a := range vm.Alerts {
			fmt.Printf("  %s %s  %s\n",
				cli.Colored("●", cli.AlertColor(a.Severity)),
				a.Title,
				cli.Muted(cli.FormatAge(a.CreatedAt.Time, now)))
		}
		fmt.Println()
	}

	if len(vm.Insights) > 0 {
		fmt.Println("  " + cli.Header("Insights"))
		for _, in := range vm.Insights {
			fmt.Printf("  › %s\n", in.Content)
		}
		fmt.Println()
	}

	if vm.Degraded() {
		sections := make([]string, 0, len(vm.Errors))
		for s := range vm.Errors {
			sections = append(sections, string(s))
		}
		sort.Strings(sections)
		for _, s := range sections {
			fmt.Println("  " + cli.Colored(fmt.Sprintf("%s unavailable: %v", s, vm.Errors[dashboard.Section(s)]), cli.ColorOrange))
		}
		fmt.Println()
	}
	return nil
}

func printBreakdown(vm dashboard.ViewModel) {
	type entry struct {
		name  string
		value float64
	}
	entries := make([]entry, 0, len(vm.Summary.CategoryBreakdown))
	maxVal := 0.0
	for name, amount := range vm.Summary.CategoryBreakdown {
		v := amount.InexactFloat64()
		entries = append(entries, entry{name, v})
		maxVal = max(maxVal, v)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].value != entries[j].value {
			return entries[i].value > entries[j].value
		}
		return entries[i].name < entries[j].name
	})

	cur := currency()
	fmt.Println("  " + cli.Header("Spending by Category"))
	for _, e := range entries {
		fmt.Println(cli.RenderHorizontalBar(cli.Truncate(e.name, 16), e.value, maxVal, 30,
			cli.FormatMoney(vm.Summary.CategoryBreakdown[e.name], cur)))
	}
	fmt.Println()
}
