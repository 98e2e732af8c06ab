package budget

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/budget/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		pct  float64
		want Severity
	}{
		{0, Normal},
		{69.999, Normal},
		{70, Warning},
		{89.999, Warning},
		{90, Critical},
		{150, Critical},
		{-5, Normal},
	}
	for _, tt := range tests {
		if got := Classify(tt.pct); got != tt.want {
			t.Errorf("Classify(%v) = %v, want %v", tt.pct, got, tt.want)
		}
	}
}

func TestClassifyAmountsIsExact(t *testing.T) {
	tests := []struct {
		spent, limit string
		want         Severity
	}{
		{"62", "90", Normal},
		{"70", "100", Warning},
		{"90", "100", Critical},
		{"27", "30", Critical},
		// 89.99999999999999999999666...% rounds to 90 once divided.
		{"2.69999999999999999999", "3", Warning},
		{"2.09999999999999999999", "3", Normal},
		{"5", "0", Normal},
		{"5", "-1", Normal},
	}
	for _, tt := range tests {
		if got := ClassifyAmounts(dec(tt.spent), dec(tt.limit)); got != tt.want {
			t.Errorf("ClassifyAmounts(%s, %s) = %v, want %v", tt.spent, tt.limit, got, tt.want)
		}
	}
}

func TestDeriveSeverityIgnoresDivisionRounding(t *testing.T) {
	s := Derive(model.BudgetStatus{
		CategoryID:  "c1",
		BudgetLimit: dec("3"),
		Spent:       dec("2.69999999999999999999"),
	})
	if s.Severity != Warning {
		t.Errorf("Severity = %v, want warning just under 90%%", s.Severity)
	}
	totals := Sum([]Status{s})
	if totals.Severity != Warning {
		t.Errorf("Totals.Severity = %v, want warning", totals.Severity)
	}
}

func TestPercentageUsed(t *testing.T) {
	tests := []struct {
		spent, limit string
		want         float64
	}{
		{"50", "100", 50},
		{"69.999", "100", 69.999},
		{"70", "100", 70},
		{"150", "100", 150},
		{"10", "0", 0},
		{"10", "-5", 0},
		{"0", "200", 0},
	}
	for _, tt := range tests {
		if got := PercentageUsed(dec(tt.spent), dec(tt.limit)); got != tt.want {
			t.Errorf("PercentageUsed(%s, %s) = %v, want %v", tt.spent, tt.limit, got, tt.want)
		}
	}
}

func TestBarWidthClamps(t *testing.T) {
	if got := BarWidth(150); got != 100 {
		t.Errorf("BarWidth(150) = %v, want 100", got)
	}
	if got := BarWidth(42.5); got != 42.5 {
		t.Errorf("BarWidth(42.5) = %v, want 42.5", got)
	}
	if got := BarWidth(-3); got != 0 {
		t.Errorf("BarWidth(-3) = %v, want 0", got)
	}
}

func TestDeriveOverBudget(t *testing.T) {
	s := Derive(model.BudgetStatus{
		CategoryID:   "c1",
		CategoryName: "Dining",
		BudgetLimit:  dec("200"),
		Spent:        dec("300"),
		// Server-side fields are deliberately inconsistent; Derive ignores them.
		Remaining:      dec("0"),
		PercentageUsed: 12,
	})

	if s.PercentageUsed != 150 {
		t.Errorf("PercentageUsed = %v, want 150", s.PercentageUsed)
	}
	if !s.Remaining.Equal(dec("-100")) {
		t.Errorf("Remaining = %s, want -100", s.Remaining)
	}
	if !s.OverBudget() {
		t.Error("OverBudget = false, want true")
	}
	if s.Severity != Critical {
		t.Errorf("Severity = %v, want critical", s.Severity)
	}
	if s.BarWidth() != 100 {
		t.Errorf("BarWidth = %v, want 100", s.BarWidth())
	}
}

func TestDeriveZeroLimit(t *testing.T) {
	s := Derive(model.BudgetStatus{BudgetLimit: dec("0"), Spent: dec("25")})
	if s.PercentageUsed != 0 || s.Severity != Normal {
		t.Errorf("zero limit: pct %v severity %v, want 0 normal", s.PercentageUsed, s.Severity)
	}
	if !s.Remaining.Equal(dec("-25")) {
		t.Errorf("Remaining = %s, want -25", s.Remaining)
	}
}

func TestSum(t *testing.T) {
	statuses := DeriveAll([]model.BudgetStatus{
		{CategoryName: "A", BudgetLimit: dec("100.10"), Spent: dec("50.05")},
		{CategoryName: "B", BudgetLimit: dec("200.20"), Spent: dec("230.00")},
		{CategoryName: "C", BudgetLimit: dec("0"), Spent: dec("10")},
	})
	if statuses[1].CategoryName != "B" {
		t.Fatalf("DeriveAll reordered: %v", statuses)
	}

	got := Sum(statuses)
	if !got.TotalBudget.Equal(dec("300.30")) {
		t.Errorf("TotalBudget = %s, want 300.30", got.TotalBudget)
	}
	if !got.TotalSpent.Equal(dec("290.05")) {
		t.Errorf("TotalSpent = %s, want 290.05", got.TotalSpent)
	}
	if !got.Remaining.Equal(dec("10.25")) {
		t.Errorf("Remaining = %s, want 10.25", got.Remaining)
	}
	if got.Severity != Critical {
		t.Errorf("Severity = %v, want critical (%.2f%%)", got.Severity, got.PercentageUsed)
	}
}

func TestSumEmpty(t *testing.T) {
	got := Sum(nil)
	if !got.TotalBudget.IsZero() || !got.TotalSpent.IsZero() || got.PercentageUsed != 0 {
		t.Errorf("Sum(nil) = %+v", got)
	}
}

func TestFormatMoney(t *testing.T) {
	tests := map[string]string{
		"0":       "0.00",
		"12.5":    "12.50",
		"-100":    "-100.00",
		"99.999":  "100.00",
		"1234.56": "1234.56",
	}
	for in, want := range tests {
		if got := FormatMoney(dec(in)); got != want {
			t.Errorf("FormatMoney(%s) = %q, want %q", in, got, want)
		}
	}
}
