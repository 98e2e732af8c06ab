package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/theirongolddev/budget/internal/cli"
	"github.com/theirongolddev/budget/internal/model"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	flagIncome   string
	flagSavings  string
	flagGoals    string
	flagCurrency string
)

var profileCmd = &cobra.Command{
	Use:     "profile",
	Short:   "Show or update the financial profile",
	Args:    cobra.NoArgs,
	PreRunE: requireSession,
	RunE: func(_ *cobra.Command, _ []string) error {
		fmt.Println()
		printProfile(svc.session.View().Snapshot().FinancialProfile)
		return nil
	},
}

var profileSetCmd = &cobra.Command{
	Use:     "set",
	Short:   "Update income, savings, goals or currency",
	Example: "  budget profile set --income 4200 --currency EUR",
	Args:    cobra.NoArgs,
	PreRunE: requireSession,
	RunE:    runProfileSet,
}

func init() {
	f := profileSetCmd.Flags()
	f.StringVar(&flagIncome, "income", "", "Monthly income")
	f.StringVar(&flagSavings, "savings", "", "Current savings")
	f.StringVar(&flagGoals, "goals", "", "Financial goals, free text")
	f.StringVar(&flagCurrency, "currency", "", "ISO currency code (default: keep current)")

	profileCmd.AddCommand(profileSetCmd)
	rootCmd.AddCommand(profileCmd)
}

func runProfileSet(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	if !flags.Changed("income") && !flags.Changed("savings") && !flags.Changed("goals") && !flags.Changed("currency") {
		return errors.New("nothing to update: pass --income, --savings, --goals or --currency")
	}

	in, err := profileInput(svc.session.View().Snapshot().FinancialProfile,
		optional(flags.Changed("income"), flagIncome),
		optional(flags.Changed("savings"), flagSavings),
		optional(flags.Changed("goals"), flagGoals),
		flagCurrency)
	if err != nil {
		return err
	}

	p, err := svc.client.UpdateFinancialProfile(cmd.Context(), in)
	if err != nil {
		return err
	}
	fmt.Println("  Profile updated.")
	fmt.Println()
	printProfile(&p)
	return nil
}

func optional(set bool, v string) *string {
	if !set {
		return nil
	}
	return &v
}

// profileInput builds an update from the flags that were given. The service
// overwrites currency on every update, so the current one is carried forward
// unless a new one is named.
func profileInput(current *model.FinancialProfile, income, savings, goals *string, currencyCode string) (model.FinancialProfileInput, error) {
	in := model.FinancialProfileInput{FinancialGoals: goals}

	var errs []error
	in.MonthlyIncome, errs = parseAmount("income", income, errs)
	in.CurrentSavings, errs = parseAmount("savings", savings, errs)
	if err := errors.Join(errs...); err != nil {
		return model.FinancialProfileInput{}, err
	}

	switch {
	case currencyCode != "":
		code := strings.ToUpper(strings.TrimSpace(currencyCode))
		if len(code) != 3 {
			return model.FinancialProfileInput{}, fmt.Errorf("--currency %q: expected a three-letter code", currencyCode)
		}
		in.Currency = code
	case current != nil && current.Currency != "":
		in.Currency = current.Currency
	default:
		in.Currency = "USD"
	}
	return in, nil
}

func parseAmount(flag string, raw *string, errs []error) (*decimal.Decimal, []error) {
	if raw == nil {
		return nil, errs
	}
	d, err := decimal.NewFromString(strings.TrimSpace(*raw))
	if err != nil {
		return nil, append(errs, fmt.Errorf("--%s %q: not a number", flag, *raw))
	}
	if d.IsNegative() {
		return nil, append(errs, fmt.Errorf("--%s %s: must not be negative", flag, d))
	}
	return &d, errs
}

func printProfile(p *model.FinancialProfile) {
	if p == nil {
		fmt.Println("  " + cli.Muted("No financial profile yet. Create one with `budget profile set`."))
		fmt.Println()
		return
	}
	printField("Currency", p.Currency)
	if p.MonthlyIncome != nil {
		printField("Monthly income", cli.FormatMoney(*p.MonthlyIncome, p.Currency))
	}
	if p.CurrentSavings != nil {
		printField("Savings", cli.FormatMoney(*p.CurrentSavings, p.Currency))
	}
	if p.FinancialGoals != "" {
		printField("Goals", p.FinancialGoals)
	}
	fmt.Println()
}
