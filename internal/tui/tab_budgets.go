package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/budget/internal/cli"
	"github.com/theirongolddev/budget/internal/dashboard"
	"github.com/theirongolddev/budget/internal/tui/components"
	"github.com/theirongolddev/budget/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderBudgetsTab(cw int) string {
	t := theme.Active
	if !a.hasDash {
		return a.renderLoadState(cw)
	}
	cur := a.currency()

	innerW := components.CardInnerWidth(cw)
	labelW, barW := barLayout(innerW)

	var b strings.Builder
	if len(a.dash.Budgets) == 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(t.TextMuted).Render(
			sectionEmpty(a.dash, dashboard.SectionBudgets, "No budgets set. Add one with `budget budgets set`.")))
	}
	over := 0
	for i, s := range a.dash.Budgets {
		if i > 0 {
			b.WriteString("\n")
		}
		detail := cli.FormatMoney(s.Spent, cur) + " / " + cli.FormatMoney(s.Limit, cur)
		if s.OverBudget() {
			over++
			detail += lipgloss.NewStyle().Foreground(t.Red).Render("  over by " + cli.FormatMoney(s.Remaining.Neg(), cur))
		} else {
			detail += "  " + cli.FormatMoney(s.Remaining, cur) + " left"
		}
		b.WriteString(components.BudgetBar(s.CategoryName, s.PercentageUsed, s.Severity, detail, labelW, barW))
	}

	title := fmt.Sprintf("Budgets (%d)", len(a.dash.Budgets))
	if over > 0 {
		title += fmt.Sprintf(" · %d over", over)
	}
	return components.ContentCard(title, b.String(), cw)
}
