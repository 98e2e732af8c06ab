package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/budget/internal/cli"
	"github.com/theirongolddev/budget/internal/tui/components"
	"github.com/theirongolddev/budget/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderAlertsTab(cw int) string {
	t := theme.Active
	list := a.deps.Alerts.List(a.alertFilter)
	innerW := components.CardInnerWidth(cw)
	now := time.Now()

	var b strings.Builder
	if len(list) == 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(t.TextMuted).Render("No alerts"))
	}
	for i, al := range list {
		if i > 0 {
			b.WriteString("\n")
		}
		cursor := "  "
		rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary)
		if i == a.alertCursor {
			cursor = lipgloss.NewStyle().Foreground(t.Accent).Render("▸ ")
			rowStyle = rowStyle.Bold(true)
		}
		if al.IsRead {
			rowStyle = rowStyle.Foreground(t.TextMuted)
		}

		sev := lipgloss.NewStyle().Foreground(t.ForAlert(al.Severity)).Render(fmt.Sprintf("%-8s", al.Severity))
		age := cli.FormatAge(al.CreatedAt.Time, now)
		titleW := max(innerW-2-9-10, 10)
		b.WriteString(cursor + sev + " " + rowStyle.Render(fitCell(cli.Truncate(al.Title, titleW), titleW)) + " " +
			lipgloss.NewStyle().Foreground(t.TextDim).Render(age))

		if i == a.alertCursor && al.Message != "" {
			b.WriteString("\n")
			b.WriteString(lipgloss.NewStyle().Foreground(t.TextMuted).PaddingLeft(11).Render(cli.Truncate(al.Message, innerW-11)))
		}
	}

	title := fmt.Sprintf("Alerts · %s (%d)", a.alertFilter, len(list))
	hints := lipgloss.NewStyle().Foreground(t.TextDim).Render("[enter] read  [x] dismiss  [R] read all  [f] filter")
	return components.ContentCard(title, b.String()+"\n\n"+hints, cw)
}

func fitCell(s string, w int) string {
	if pad := w - lipgloss.Width(s); pad > 0 {
		return s + strings.Repeat(" ", pad)
	}
	return s
}
