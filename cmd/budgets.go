package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/theirongolddev/budget/internal/budget"
	"github.com/theirongolddev/budget/internal/cli"
	"github.com/theirongolddev/budget/internal/model"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	flagBudgetPeriod string
	flagRollover     bool
)

var budgetsCmd = &cobra.Command{
	Use:     "budgets",
	Short:   "List and manage category budgets",
	Args:    cobra.NoArgs,
	PreRunE: requireSession,
	RunE:    runBudgetsList,
}

var budgetsListCmd = &cobra.Command{
	Use:     "list",
	Short:   "Show this month's budget status per category",
	Args:    cobra.NoArgs,
	PreRunE: requireSession,
	RunE:    runBudgetsList,
}

var budgetsSetCmd = &cobra.Command{
	Use:     "set CATEGORY LIMIT",
	Short:   "Create or update the monthly limit for a category",
	Example: "  budget budgets set Groceries 450\n  budget budgets set 3f2c...e1 120.50 --rollover",
	Args:    cobra.ExactArgs(2),
	PreRunE: requireSession,
	RunE:    runBudgetsSet,
}

var budgetsDeleteCmd = &cobra.Command{
	Use:     "delete CATEGORY|BUDGET_ID",
	Aliases: []string{"rm"},
	Short:   "Remove a budget",
	Args:    cobra.ExactArgs(1),
	PreRunE: requireSession,
	RunE:    runBudgetsDelete,
}

var categoriesCmd = &cobra.Command{
	Use:     "categories",
	Short:   "List spending categories",
	Args:    cobra.NoArgs,
	PreRunE: requireSession,
	RunE:    runCategories,
}

func init() {
	budgetsSetCmd.Flags().StringVar(&flagBudgetPeriod, "period", "monthly", "Budget period")
	budgetsSetCmd.Flags().BoolVar(&flagRollover, "rollover", false, "Carry unspent budget into the next period")
	budgetsCmd.AddCommand(budgetsListCmd, budgetsSetCmd, budgetsDeleteCmd)
	rootCmd.AddCommand(budgetsCmd, categoriesCmd)
}

func runBudgetsList(cmd *cobra.Command, _ []string) error {
	raw, err := svc.client.BudgetStatus(cmd.Context())
	if err != nil {
		return err
	}
	statuses := budget.DeriveAll(raw)
	cur := currency()

	fmt.Println()
	fmt.Println(cli.RenderTitle("BUDGETS"))
	fmt.Println()

	if len(statuses) == 0 {
		fmt.Println("  No budgets set. Add one with `budget budgets set CATEGORY LIMIT`.")
		fmt.Println()
		return nil
	}

	rows := make([][]string, 0, len(statuses)+2)
	for _, s := range statuses {
		used := cli.Colored(cli.FormatPercent(s.PercentageUsed), cli.SeverityColor(s.Severity))
		if s.OverBudget() {
			used += cli.Colored(" over", cli.ColorRed)
		}
		rows = append(rows, []string{
			s.CategoryName,
			cli.FormatMoney(s.Limit, cur),
			cli.FormatMoney(s.Spent, cur),
			cli.FormatMoney(s.Remaining, cur),
			used,
			cli.RenderBudgetBar(s.PercentageUsed, s.Severity, 20),
		})
	}
	tot := budget.Sum(statuses)
	rows = append(rows, []string{"---"}, []string{
		"Total",
		cli.FormatMoney(tot.TotalBudget, cur),
		cli.FormatMoney(tot.TotalSpent, cur),
		cli.FormatMoney(tot.Remaining, cur),
		cli.Colored(cli.FormatPercent(tot.PercentageUsed), cli.SeverityColor(tot.Severity)),
		cli.RenderBudgetBar(tot.PercentageUsed, tot.Severity, 20),
	})

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Category", "Limit", "Spent", "Left", "Used", ""},
		Rows:    rows,
	}))
	fmt.Println()
	return nil
}

func runBudgetsSet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	limit, err := decimal.NewFromString(args[1])
	if err != nil {
		return fmt.Errorf("invalid limit %q: %w", args[1], err)
	}
	if !limit.IsPositive() {
		return errors.New("limit must be greater than zero")
	}

	cat, err := resolveCategory(ctx, args[0])
	if err != nil {
		return err
	}

	in := model.BudgetInput{
		CategoryID:      cat.ID,
		MonthlyLimit:    limit,
		BudgetPeriod:    flagBudgetPeriod,
		RolloverEnabled: flagRollover,
	}

	existing, err := budgetForCategory(ctx, cat.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		if _, err := svc.client.UpdateBudget(ctx, existing.ID, in); err != nil {
			return err
		}
		fmt.Printf("  Updated %s: %s → %s\n", cat.Name,
			cli.FormatMoney(existing.MonthlyLimit, currency()), cli.FormatMoney(limit, currency()))
		return nil
	}

	if _, err := svc.client.CreateBudget(ctx, in); err != nil {
		return err
	}
	fmt.Printf("  Budget set for %s: %s\n", cat.Name, cli.FormatMoney(limit, currency()))
	return nil
}

func runBudgetsDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	budgets, err := svc.client.Budgets(ctx)
	if err != nil {
		return err
	}
	for _, b := range budgets {
		if b.ID == args[0] {
			return deleteBudget(ctx, b.ID, b.ID)
		}
	}

	cat, err := resolveCategory(ctx, args[0])
	if err != nil {
		return err
	}
	for _, b := range budgets {
		if b.CategoryID == cat.ID {
			return deleteBudget(ctx, b.ID, cat.Name)
		}
	}
	return fmt.Errorf("no budget for category %q", cat.Name)
}

func deleteBudget(ctx context.Context, id, label string) error {
	if err := svc.client.DeleteBudget(ctx, id); err != nil {
		return err
	}
	fmt.Printf("  Deleted budget %s\n", label)
	return nil
}

func runCategories(cmd *cobra.Command, _ []string) error {
	cats, err := svc.client.Categories(cmd.Context())
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(cats))
	for _, c := range cats {
		kind := "custom"
		if c.IsDefault {
			kind = cli.Muted("default")
		}
		rows = append(rows, []string{c.Icon + " " + c.Name, kind, cli.Muted(c.ID)})
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   fmt.Sprintf("Categories (%d)", len(cats)),
		Headers: []string{"Name", "Type", "ID"},
		Rows:    rows,
	}))
	fmt.Println()
	return nil
}

// resolveCategory accepts a category ID or a case-insensitive name.
func resolveCategory(ctx context.Context, ref string) (model.Category, error) {
	cats, err := svc.client.Categories(ctx)
	if err != nil {
		return model.Category{}, err
	}
	var matches []model.Category
	for _, c := range cats {
		if c.ID == ref {
			return c, nil
		}
		if strings.EqualFold(c.Name, ref) {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 0:
		return model.Category{}, fmt.Errorf("unknown category %q (see `budget categories`)", ref)
	case 1:
		return matches[0], nil
	default:
		return model.Category{}, fmt.Errorf("category name %q is ambiguous; use its ID", ref)
	}
}

func budgetForCategory(ctx context.Context, categoryID string) (*model.Budget, error) {
	budgets, err := svc.client.Budgets(ctx)
	if err != nil {
		return nil, err
	}
	for i := range budgets {
		if budgets[i].CategoryID == categoryID {
			return &budgets[i], nil
		}
	}
	return nil, nil
}
