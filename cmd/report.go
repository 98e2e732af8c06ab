package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/theirongolddev/budget/internal/cli"
	"github.com/theirongolddev/budget/internal/pipeline"

	"github.com/spf13/cobra"
)

var (
	flagReportDays     int
	flagReportCategory string
)

var reportCmd = &cobra.Command{
	Use:     "report",
	Short:   "Spending report over recent transactions",
	Args:    cobra.NoArgs,
	PreRunE: requireSession,
	RunE:    runReport,
}

func init() {
	reportCmd.Flags().IntVarP(&flagReportDays, "days", "n", 30, "Time window in days")
	reportCmd.Flags().StringVarP(&flagReportCategory, "category", "c", "", "Filter to category (name or ID)")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if flagReportDays < 1 {
		return errors.New("--days must be at least 1")
	}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	until := today.AddDate(0, 0, 1)
	since := until.AddDate(0, 0, -flagReportDays)

	names, err := categoryNames(ctx)
	if err != nil {
		return err
	}
	categoryID := ""
	if flagReportCategory != "" {
		cat, err := resolveCategory(ctx, flagReportCategory)
		if err != nil {
			return err
		}
		categoryID = cat.ID
	}

	res, err := pipeline.Load(ctx, svc.client, since, until, categoryID, func(current, total int) {
		if !flagQuiet {
			fmt.Fprintf(os.Stderr, "\r  Fetching [%d/%d]", current, total)
		}
	})
	if !flagQuiet {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return err
	}
	logger.Debug("report loaded", "windows", res.Windows, "pages", res.Pages, "transactions", len(res.Transactions), "duplicates", res.Duplicates)

	txs := res.Transactions
	cur := currency()
	stats := pipeline.Aggregate(txs, since, until)

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("SPENDING · LAST %d DAYS", flagReportDays)))
	fmt.Println()

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Total spent", cli.FormatMoney(stats.TotalSpent, cur)},
			{"Transactions", cli.FormatNumber(int64(stats.Transactions))},
			{"Per day", cli.FormatMoney(stats.SpentPerDay, cur)},
			{"Per transaction", cli.FormatMoney(stats.AveragePerTx, cur)},
			{"Largest", cli.FormatMoney(stats.Largest, cur)},
			{"Recurring", cli.FormatMoney(stats.RecurringPart, cur)},
			{"Active days", fmt.Sprintf("%d / %d", stats.ActiveDays, stats.Days)},
		},
	}))
	fmt.Println()

	if stats.Transactions == 0 {
		fmt.Println("  No transactions in this window.")
		fmt.Println()
		return nil
	}

	if categoryID == "" {
		cats := pipeline.AggregateCategories(txs, names, since, until)
		rows := make([][]string, 0, len(cats))
		for _, c := range cats {
			rows = append(rows, []string{
				c.Name,
				cli.FormatMoney(c.Spent, cur),
				cli.FormatNumber(int64(c.Transactions)),
				cli.FormatPercent(c.SharePercent),
			})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "By Category",
			Headers: []string{"Category", "Spent", "Count", "Share"},
			Rows:    rows,
		}))
		fmt.Println()
	}

	days := pipeline.AggregateDays(txs, since, until)
	if len(days) > 14 {
		days = days[:14]
	}
	maxDay := 0.0
	for _, d := range days {
		maxDay = max(maxDay, d.Spent.InexactFloat64())
	}
	fmt.Println("  " + cli.Header("Daily (most recent first)"))
	for _, d := range days {
		fmt.Println(cli.RenderHorizontalBar(d.Date.Format("Mon Jan 02"), d.Spent.InexactFloat64(), maxDay, 30,
			cli.FormatMoney(d.Spent, cur)))
	}
	fmt.Println()

	weekdays := pipeline.AggregateWeekdays(txs, since, until)
	maxWd := 0.0
	for _, w := range weekdays {
		maxWd = max(maxWd, w.Spent.InexactFloat64())
	}
	fmt.Println("  " + cli.Header("By Weekday"))
	for _, w := range weekdays {
		fmt.Println(cli.RenderHorizontalBar(w.Weekday.String(), w.Spent.InexactFloat64(), maxWd, 30,
			fmt.Sprintf("%s (%d)", cli.FormatMoney(w.Spent, cur), w.Transactions)))
	}
	fmt.Println()
	return nil
}
