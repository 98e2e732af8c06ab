package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/theirongolddev/budget/internal/cli"
	"github.com/theirongolddev/budget/internal/dashboard"
	"github.com/theirongolddev/budget/internal/tui/components"
	"github.com/theirongolddev/budget/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// maxDashboardBars is how many budget bars the overview shows before
// deferring to the budgets tab.
const maxDashboardBars = 6

func (a App) renderDashboardTab(cw int) string {
	t := theme.Active
	if !a.hasDash {
		return a.renderLoadState(cw)
	}
	vm := a.dash
	cur := a.currency()
	var b strings.Builder

	// Row 1: totals
	totals := vm.Totals
	metrics := []components.Metric{
		{Label: "Budgeted", Value: cli.FormatMoney(totals.TotalBudget, cur), Note: fmt.Sprintf("%d categories", len(vm.Budgets))},
		{Label: "Spent", Value: cli.FormatMoney(totals.TotalSpent, cur), Note: cli.FormatPercent(totals.PercentageUsed) + " used", Color: t.ForSeverity(totals.Severity)},
		{Label: "Remaining", Value: cli.FormatMoney(totals.Remaining, cur), Color: remainingColor(totals.Remaining.IsNegative())},
		{Label: "Transactions", Value: cli.FormatNumber(int64(vm.Summary.TotalTransactions)), Note: cli.FormatMoney(vm.Summary.TotalSpent, cur) + " total"},
	}
	b.WriteString(components.MetricRow(metrics, cw))
	b.WriteString("\n")

	// Row 2: budget bars, most consumed first
	budgets := append(vm.Budgets[:0:0], vm.Budgets...)
	sort.SliceStable(budgets, func(i, j int) bool {
		return budgets[i].PercentageUsed > budgets[j].PercentageUsed
	})
	var bars strings.Builder
	if len(budgets) == 0 {
		bars.WriteString(lipgloss.NewStyle().Foreground(t.TextMuted).Render(sectionEmpty(vm, dashboard.SectionBudgets, "No budgets set")))
	}
	innerW := components.CardInnerWidth(cw)
	labelW, barW := barLayout(innerW)
	for i, s := range budgets {
		if i == maxDashboardBars {
			fmt.Fprintf(&bars, "\n%s", lipgloss.NewStyle().Foreground(t.TextDim).Render(
				fmt.Sprintf("+%d more on the budgets tab", len(budgets)-maxDashboardBars)))
			break
		}
		if i > 0 {
			bars.WriteString("\n")
		}
		detail := cli.FormatMoney(s.Spent, cur) + " / " + cli.FormatMoney(s.Limit, cur)
		bars.WriteString(components.BudgetBar(s.CategoryName, s.PercentageUsed, s.Severity, detail, labelW, barW))
	}
	b.WriteString(components.ContentCard("Budgets", bars.String(), cw))
	b.WriteString("\n")

	// Row 3: alerts | insights
	halves := components.LayoutRow(cw, 2)
	alertsCard := components.ContentCard("Unread Alerts", a.renderAlertDigest(components.CardInnerWidth(halves[0])), halves[0])
	insightsCard := components.ContentCard("Insights", a.renderInsights(components.CardInnerWidth(halves[1])), halves[1])
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, alertsCard, insightsCard))

	if vm.Degraded() {
		b.WriteString("\n")
		b.WriteString(renderSectionErrors(vm))
	}
	return b.String()
}

func (a App) renderAlertDigest(w int) string {
	t := theme.Active
	if len(a.dash.Alerts) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextMuted).Render(sectionEmpty(a.dash, dashboard.SectionAlerts, "Nothing new"))
	}
	lines := make([]string, 0, len(a.dash.Alerts))
	for _, al := range a.dash.Alerts {
		dot := lipgloss.NewStyle().Foreground(t.ForAlert(al.Severity)).Render("●")
		lines = append(lines, dot+" "+cli.Truncate(al.Title, w-2))
	}
	return strings.Join(lines, "\n")
}

func (a App) renderInsights(w int) string {
	t := theme.Active
	if len(a.dash.Insights) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextMuted).Render(sectionEmpty(a.dash, dashboard.SectionInsights, "No insights yet"))
	}
	lines := make([]string, 0, len(a.dash.Insights))
	for _, in := range a.dash.Insights {
		lines = append(lines, lipgloss.NewStyle().Foreground(t.Cyan).Render("›")+" "+cli.Truncate(in.Content, w-2))
	}
	return strings.Join(lines, "\n")
}

func (a App) renderLoadState(cw int) string {
	t := theme.Active
	if a.dashErr != nil {
		msg := lipgloss.NewStyle().Foreground(t.Red).Render("Could not load the dashboard: "+errorText(a.dashErr)) +
			"\n" + lipgloss.NewStyle().Foreground(t.TextDim).Render("press r to retry")
		return components.ContentCard("Dashboard", msg, cw)
	}
	return components.ContentCard("Dashboard", a.spinner.View()+" Loading...", cw)
}

// sectionEmpty distinguishes a failed per-source section from an empty one.
func sectionEmpty(vm dashboard.ViewModel, s dashboard.Section, empty string) string {
	if _, failed := vm.Errors[s]; failed {
		return "Unavailable"
	}
	return empty
}

func renderSectionErrors(vm dashboard.ViewModel) string {
	t := theme.Active
	names := make([]string, 0, len(vm.Errors))
	for s := range vm.Errors {
		names = append(names, string(s))
	}
	sort.Strings(names)
	return lipgloss.NewStyle().Foreground(t.Orange).Render("Some sections failed to load: " + strings.Join(names, ", "))
}

func remainingColor(negative bool) lipgloss.Color {
	if negative {
		return theme.Active.Red
	}
	return theme.Active.Green
}

// barLayout splits a card's inner width between label and bar, leaving room
// for the percentage and the money detail.
func barLayout(innerW int) (labelW, barW int) {
	labelW = 18
	barW = innerW - labelW - 34
	if barW < 10 {
		barW = 10
	}
	return labelW, barW
}
