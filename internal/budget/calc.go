// Package budget derives display metrics from raw budget status records.
// Everything here is pure.
package budget

import (
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/budget/internal/model"
)

// Severity bands for a budget's percentage used.
type Severity int

const (
	Normal Severity = iota
	Warning
	Critical
)

const (
	WarningThreshold  = 70.0
	CriticalThreshold = 90.0
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Critical:
		return "critical"
	default:
		return "normal"
	}
}

var (
	hundred     = decimal.NewFromInt(100)
	warningPct  = decimal.NewFromFloat(WarningThreshold)
	criticalPct = decimal.NewFromFloat(CriticalThreshold)
)

// PercentageUsed returns spent as a percentage of limit, unclamped, for
// display. A zero or negative limit yields 0.
func PercentageUsed(spent, limit decimal.Decimal) float64 {
	if !limit.IsPositive() {
		return 0
	}
	return spent.Mul(hundred).Div(limit).InexactFloat64()
}

// Classify maps a percentage to its severity band. Bands are half-open:
// [0,70) normal, [70,90) warning, [90,inf) critical.
func Classify(pct float64) Severity {
	switch {
	case pct >= CriticalThreshold:
		return Critical
	case pct >= WarningThreshold:
		return Warning
	default:
		return Normal
	}
}

// ClassifyAmounts is Classify computed on the raw amounts, so a ratio that
// only reaches a threshold after division rounding stays in the lower band.
// A zero or negative limit is Normal.
func ClassifyAmounts(spent, limit decimal.Decimal) Severity {
	if !limit.IsPositive() {
		return Normal
	}
	scaled := spent.Mul(hundred)
	switch {
	case scaled.Cmp(limit.Mul(criticalPct)) >= 0:
		return Critical
	case scaled.Cmp(limit.Mul(warningPct)) >= 0:
		return Warning
	default:
		return Normal
	}
}

// BarWidth is the fill percentage for a progress bar, clamped to [0, 100].
func BarWidth(pct float64) float64 {
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}

// Status is a budget status record with its derived metrics.
type Status struct {
	CategoryID     string
	CategoryName   string
	Limit          decimal.Decimal
	Spent          decimal.Decimal
	Remaining      decimal.Decimal
	PercentageUsed float64
	Severity       Severity
}

// OverBudget reports whether spend exceeds the limit.
func (s Status) OverBudget() bool {
	return s.Remaining.IsNegative()
}

// BarWidth is the clamped fill for this status.
func (s Status) BarWidth() float64 {
	return BarWidth(s.PercentageUsed)
}

// Derive computes remaining, percentage and severity from the raw limit and
// spend. The server's own percentage and remaining fields are ignored.
func Derive(b model.BudgetStatus) Status {
	pct := PercentageUsed(b.Spent, b.BudgetLimit)
	return Status{
		CategoryID:     b.CategoryID,
		CategoryName:   b.CategoryName,
		Limit:          b.BudgetLimit,
		Spent:          b.Spent,
		Remaining:      b.BudgetLimit.Sub(b.Spent),
		PercentageUsed: pct,
		Severity:       ClassifyAmounts(b.Spent, b.BudgetLimit),
	}
}

// DeriveAll derives every record, preserving order.
func DeriveAll(in []model.BudgetStatus) []Status {
	out := make([]Status, len(in))
	for i, b := range in {
		out[i] = Derive(b)
	}
	return out
}

// Totals summarizes a set of budgets.
type Totals struct {
	TotalBudget    decimal.Decimal
	TotalSpent     decimal.Decimal
	Remaining      decimal.Decimal
	PercentageUsed float64
	Severity       Severity
}

// Sum adds up limits and spend across statuses. An empty set sums to zero.
func Sum(statuses []Status) Totals {
	var t Totals
	for _, s := range statuses {
		t.TotalBudget = t.TotalBudget.Add(s.Limit)
		t.TotalSpent = t.TotalSpent.Add(s.Spent)
	}
	t.Remaining = t.TotalBudget.Sub(t.TotalSpent)
	t.PercentageUsed = PercentageUsed(t.TotalSpent, t.TotalBudget)
	t.Severity = ClassifyAmounts(t.TotalSpent, t.TotalBudget)
	return t
}

// FormatMoney renders an amount with exactly two decimals.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}
