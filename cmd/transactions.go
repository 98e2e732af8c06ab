package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/theirongolddev/budget/internal/cli"
	"github.com/theirongolddev/budget/internal/model"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	flagTxCategory  string
	flagTxSince     string
	flagTxUntil     string
	flagTxLimit     int
	flagTxOffset    int
	flagTxDesc      string
	flagTxDate      string
	flagTxMethod    string
	flagTxRecurring bool
)

var transactionsCmd = &cobra.Command{
	Use:     "transactions",
	Aliases: []string{"tx"},
	Short:   "List and record transactions",
	Args:    cobra.NoArgs,
	PreRunE: requireSession,
	RunE:    runTransactionsList,
}

var transactionsListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List recent transactions",
	Args:    cobra.NoArgs,
	PreRunE: requireSession,
	RunE:    runTransactionsList,
}

var transactionsAddCmd = &cobra.Command{
	Use:     "add AMOUNT",
	Short:   "Record a transaction",
	Example: "  budget tx add 42.10 --category Groceries --desc \"weekly shop\"",
	Args:    cobra.ExactArgs(1),
	PreRunE: requireSession,
	RunE:    runTransactionsAdd,
}

var transactionsDeleteCmd = &cobra.Command{
	Use:     "delete ID",
	Aliases: []string{"rm"},
	Short:   "Remove a transaction",
	Args:    cobra.ExactArgs(1),
	PreRunE: requireSession,
	RunE:    runTransactionsDelete,
}

func init() {
	for _, c := range []*cobra.Command{transactionsCmd, transactionsListCmd} {
		c.Flags().StringVarP(&flagTxCategory, "category", "c", "", "Filter to category (name or ID)")
		c.Flags().StringVar(&flagTxSince, "since", "", "Start date (YYYY-MM-DD)")
		c.Flags().StringVar(&flagTxUntil, "until", "", "End date (YYYY-MM-DD)")
		c.Flags().IntVarP(&flagTxLimit, "limit", "l", 20, "Maximum transactions to show (1-100)")
		c.Flags().IntVar(&flagTxOffset, "offset", 0, "Skip this many transactions (newest first)")
	}
	transactionsAddCmd.Flags().StringVarP(&flagTxCategory, "category", "c", "", "Category (name or ID)")
	transactionsAddCmd.Flags().StringVarP(&flagTxDesc, "desc", "d", "", "Description")
	transactionsAddCmd.Flags().StringVar(&flagTxDate, "date", "", "Transaction date (YYYY-MM-DD, default today)")
	transactionsAddCmd.Flags().StringVar(&flagTxMethod, "method", "", "Payment method")
	transactionsAddCmd.Flags().BoolVar(&flagTxRecurring, "recurring", false, "Mark as recurring")

	transactionsCmd.AddCommand(transactionsListCmd, transactionsAddCmd, transactionsDeleteCmd)
	rootCmd.AddCommand(transactionsCmd)
}

func checkDate(flag, v string) error {
	if v == "" {
		return nil
	}
	if _, err := time.Parse(time.DateOnly, v); err != nil {
		return fmt.Errorf("--%s %q: expected YYYY-MM-DD", flag, v)
	}
	return nil
}

func runTransactionsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if err := errors.Join(checkDate("since", flagTxSince), checkDate("until", flagTxUntil)); err != nil {
		return err
	}

	if flagTxLimit < 1 || flagTxLimit > 100 {
		return fmt.Errorf("--limit %d: must be between 1 and 100", flagTxLimit)
	}
	if flagTxOffset < 0 {
		return fmt.Errorf("--offset %d: must not be negative", flagTxOffset)
	}

	filter := model.TransactionFilter{
		Since:  flagTxSince,
		Until:  flagTxUntil,
		Limit:  flagTxLimit,
		Offset: flagTxOffset,
	}
	if flagTxCategory != "" {
		cat, err := resolveCategory(ctx, flagTxCategory)
		if err != nil {
			return err
		}
		filter.CategoryID = cat.ID
	}

	txs, err := svc.client.Transactions(ctx, filter)
	if err != nil {
		return err
	}
	names, err := categoryNames(ctx)
	if err != nil {
		return err
	}

	cur := currency()
	rows := make([][]string, 0, len(txs)+2)
	total := decimal.Zero
	for _, tx := range txs {
		desc := tx.Description
		if tx.IsRecurring {
			desc += cli.Muted(" ↻")
		}
		rows = append(rows, []string{
			cli.FormatDate(tx.TransactionDate.Time),
			cli.Truncate(desc, 32),
			names[tx.CategoryID],
			cli.FormatMoney(tx.Amount, cur),
			cli.Muted(tx.ID),
		})
		total = total.Add(tx.Amount)
	}
	if len(txs) > 0 {
		rows = append(rows, []string{"---"}, []string{"Total", "", "", cli.FormatMoney(total, cur), ""})
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   fmt.Sprintf("Transactions (%d)", len(txs)),
		Headers: []string{"Date", "Description", "Category", "Amount", "ID"},
		Rows:    rows,
	}))
	fmt.Println()
	return nil
}

func runTransactionsAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	amount, err := decimal.NewFromString(args[0])
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", args[0], err)
	}
	if !amount.IsPositive() {
		return errors.New("amount must be greater than zero")
	}
	if err := checkDate("date", flagTxDate); err != nil {
		return err
	}
	date := flagTxDate
	if date == "" {
		date = time.Now().Format(time.DateOnly)
	}

	in := model.TransactionInput{
		Amount:          amount,
		Description:     flagTxDesc,
		TransactionDate: date,
		PaymentMethod:   flagTxMethod,
		IsRecurring:     flagTxRecurring,
	}
	label := "uncategorized"
	if flagTxCategory != "" {
		cat, err := resolveCategory(ctx, flagTxCategory)
		if err != nil {
			return err
		}
		in.CategoryID = cat.ID
		label = cat.Name
	}

	tx, err := svc.client.CreateTransaction(ctx, in)
	if err != nil {
		return err
	}
	fmt.Printf("  Recorded %s (%s) on %s  %s\n",
		cli.FormatMoney(tx.Amount, currency()), label, date, cli.Muted(tx.ID))
	return nil
}

func runTransactionsDelete(cmd *cobra.Command, args []string) error {
	if err := svc.client.DeleteTransaction(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("  Deleted transaction %s\n", args[0])
	return nil
}

func categoryNames(ctx context.Context) (map[string]string, error) {
	cats, err := svc.client.Categories(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	return names, nil
}
