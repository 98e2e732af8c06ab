package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/theirongolddev/budget/internal/budget"
	"github.com/theirongolddev/budget/internal/tui/theme"
)

func init() {
	// Force TrueColor output so ANSI codes are generated in tests
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestLayoutRowSumsToTotal(t *testing.T) {
	for _, total := range []int{80, 81, 100, 119} {
		for n := 1; n <= 4; n++ {
			sum := 0
			for _, w := range LayoutRow(total, n) {
				sum += w
			}
			if sum != total {
				t.Errorf("LayoutRow(%d, %d) sums to %d", total, n, sum)
			}
		}
	}
	if LayoutRow(10, 0) != nil {
		t.Error("LayoutRow(10, 0) != nil")
	}
}

func TestMetricRowWidth(t *testing.T) {
	theme.SetActive("flexoki-dark")
	row := MetricRow([]Metric{
		{Label: "Budget", Value: "$600.00"},
		{Label: "Spent", Value: "$420.00", Color: theme.Active.Yellow},
		{Label: "Remaining", Value: "$180.00", Note: "30% left"},
	}, 90)

	for i, line := range strings.Split(row, "\n") {
		if w := lipgloss.Width(line); w != 90 {
			t.Errorf("line %d width = %d, want 90", i, w)
		}
	}
}

func TestBudgetBarShowsTruePercent(t *testing.T) {
	theme.SetActive("flexoki-dark")
	out := BudgetBar("Dining", 150, budget.Critical, "$300 / $200", 12, 20)
	if !strings.Contains(out, "150.0%") {
		t.Errorf("bar does not show unclamped percent: %q", out)
	}
	if !strings.Contains(out, "Dining") {
		t.Errorf("bar missing label: %q", out)
	}
}

func TestFitWidth(t *testing.T) {
	if got := fitWidth("Groceries and more", 8); got != "Groceri…" {
		t.Errorf("fitWidth truncate = %q", got)
	}
	if got := fitWidth("Fun", 6); got != "Fun   " {
		t.Errorf("fitWidth pad = %q", got)
	}
}

func TestTabIdxByKey(t *testing.T) {
	if TabIdxByKey('a') != 2 || TabIdxByKey('d') != 0 || TabIdxByKey('z') != -1 {
		t.Error("TabIdxByKey mismatch")
	}
	bar := RenderTabBar(0, "3")
	if !strings.Contains(bar, "3") {
		t.Error("tab bar missing badge")
	}
}
