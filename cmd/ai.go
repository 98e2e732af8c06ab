package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/budget/internal/cli"
	"github.com/theirongolddev/budget/internal/model"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	flagAIMonths  int
	flagEventDate string
	flagEventDesc string
)

const answerWrapWidth = 78

var aiCmd = &cobra.Command{
	Use:   "ai",
	Short: "Ask the budgeting assistant",
}

var aiAskCmd = &cobra.Command{
	Use:     "ask QUESTION...",
	Short:   "Ask a question about your budget",
	Example: `  budget ai ask "can I afford a 600 dollar trip in March?"`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: requireSession,
	RunE:    runAIAsk,
}

var aiAnalyzeCmd = &cobra.Command{
	Use:     "analyze",
	Short:   "Review recent spending and suggest limits",
	Args:    cobra.NoArgs,
	PreRunE: requireSession,
	RunE:    runAIAnalyze,
}

var aiLifeEventCmd = &cobra.Command{
	Use:     "life-event TYPE",
	Short:   "Record a life event so advice can adapt",
	Example: `  budget ai life-event new_job --desc "raise, moving to biweekly pay"`,
	Args:    cobra.ExactArgs(1),
	PreRunE: requireSession,
	RunE:    runAILifeEvent,
}

func init() {
	aiAnalyzeCmd.Flags().IntVarP(&flagAIMonths, "months", "m", 6, "Months of history to analyze")
	aiLifeEventCmd.Flags().StringVar(&flagEventDate, "date", "", "Event date (YYYY-MM-DD, default today)")
	aiLifeEventCmd.Flags().StringVarP(&flagEventDesc, "desc", "d", "", "What changed")

	aiCmd.AddCommand(aiAskCmd, aiAnalyzeCmd, aiLifeEventCmd)
	rootCmd.AddCommand(aiCmd)
}

func runAIAsk(cmd *cobra.Command, args []string) error {
	progress("Thinking...")
	answer, err := svc.client.Ask(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(cli.Wrap(answer, answerWrapWidth))
	fmt.Println()
	return nil
}

func runAIAnalyze(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if flagAIMonths < 1 {
		return fmt.Errorf("--months %d: must be at least 1", flagAIMonths)
	}

	progress(fmt.Sprintf("Analyzing %d months of spending...", flagAIMonths))
	a, err := svc.client.Analyze(ctx, flagAIMonths)
	if err != nil {
		return err
	}
	budgets, err := svc.client.Budgets(ctx)
	if err != nil {
		return err
	}
	current := make(map[string]decimal.Decimal, len(budgets))
	for _, b := range budgets {
		current[b.CategoryID] = b.MonthlyLimit
	}

	cur := currency()
	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("ANALYSIS · LAST %d MONTHS", flagAIMonths)))
	fmt.Println()

	if len(a.Recommendations) > 0 {
		rows := make([][]string, 0, len(a.Recommendations))
		for _, r := range a.Recommendations {
			rows = append(rows, recommendationRow(r, current, cur))
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Recommended limits",
			Headers: []string{"Category", "Current", "Recommended", "Change", "Why"},
			Rows:    rows,
		}))
		fmt.Println()
	}
	printBullets("Patterns", a.Patterns)
	printBullets("Suggestions", a.Suggestions)

	if len(a.Recommendations) > 0 {
		fmt.Println("  " + cli.Muted("Apply one with `budget budgets set CATEGORY LIMIT`."))
		fmt.Println()
	}
	return nil
}

func recommendationRow(r model.Recommendation, current map[string]decimal.Decimal, cur string) []string {
	was, ok := current[r.CategoryID]
	if r.CategoryID == "" || !ok {
		return []string{r.CategoryName, cli.Muted("none"), cli.FormatMoney(r.RecommendedLimit, cur), cli.Muted("new"), cli.Truncate(r.Reasoning, 40)}
	}
	delta := r.RecommendedLimit.Sub(was)
	change := cli.Muted("same")
	switch {
	case delta.IsPositive():
		change = cli.Colored("+"+cli.FormatMoney(delta, cur), cli.ColorOrange)
	case delta.IsNegative():
		change = cli.Colored(cli.FormatMoney(delta, cur), cli.ColorGreen)
	}
	return []string{r.CategoryName, cli.FormatMoney(was, cur), cli.FormatMoney(r.RecommendedLimit, cur), change, cli.Truncate(r.Reasoning, 40)}
}

func printBullets(title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Println("  " + cli.Header(title))
	for _, it := range items {
		fmt.Println(cli.Wrap("• "+it, answerWrapWidth))
	}
	fmt.Println()
}

func runAILifeEvent(cmd *cobra.Command, args []string) error {
	date := flagEventDate
	if date == "" {
		date = time.Now().Format(time.DateOnly)
	}
	if err := checkDate("date", date); err != nil {
		return err
	}

	progress("Recording event...")
	ev, err := svc.client.LogLifeEvent(cmd.Context(), model.LifeEventInput{
		EventType:   args[0],
		EventDate:   date,
		Description: flagEventDesc,
	})
	if err != nil {
		return err
	}
	fmt.Printf("  Recorded %s on %s\n", cli.Header(ev.EventType), ev.EventDate)
	fmt.Println("  " + cli.Muted("Adjusted advice will appear under insights on the dashboard."))
	return nil
}
