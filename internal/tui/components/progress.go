package components

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/budget/internal/budget"
	"github.com/theirongolddev/budget/internal/tui/theme"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// BudgetBar renders "label [bar] pct  detail". The bar fill is clamped at
// 100% while the percentage and color reflect the real value.
func BudgetBar(label string, pct float64, sev budget.Severity, detail string, labelW, barWidth int) string {
	t := theme.Active
	color := t.ForSeverity(sev)

	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextPrimary)
	pctStyle := lipgloss.NewStyle().Foreground(color).Bold(true)
	detailStyle := lipgloss.NewStyle().Foreground(t.TextMuted)

	return labelStyle.Render(fitWidth(label, labelW)) + " " +
		bar.ViewAs(budget.BarWidth(pct)/100) + " " +
		pctStyle.Render(fmt.Sprintf("%5.1f%%", pct)) + "  " +
		detailStyle.Render(detail)
}

// fitWidth pads or truncates s to exactly w cells.
func fitWidth(s string, w int) string {
	r := []rune(s)
	if len(r) > w {
		if w <= 1 {
			return string(r[:w])
		}
		return string(r[:w-1]) + "…"
	}
	return s + strings.Repeat(" ", w-lipgloss.Width(s))
}
