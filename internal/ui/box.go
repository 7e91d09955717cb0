package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderTitledBox draws a frame with the title set into the top border:
//
//	┌─── Title ───┐
//
// Focused boxes use the focus border and background.
func (m Model) renderTitledBox(title, content string, width, height int, focused bool) string {
	borderColor, bgColor := m.theme.Border, m.theme.SurfaceAlt
	if focused {
		borderColor, bgColor = m.theme.BorderFocus, m.theme.FocusBg
	}
	if width < 4 {
		width = 4
	}
	if height < 2 {
		height = 2
	}
	bg := NewBgStyle(bgColor)
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(borderColor))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Text))

	inner := width - 2
	title = truncate(title, inner-4)
	titleWidth := lipgloss.Width(title) + 2
	left := (inner - titleWidth) / 2
	right := inner - titleWidth - left
	if left < 0 {
		left, right = 0, 0
	}

	var b strings.Builder
	b.WriteString(bg.Render("┌"+strings.Repeat("─", left), borderStyle))
	b.WriteString(bg.Render(" "+title+" ", titleStyle))
	b.WriteString(bg.Render(strings.Repeat("─", right)+"┐", borderStyle))
	b.WriteString("\n")

	line := lipgloss.NewStyle().Width(inner).MaxWidth(inner).Background(lipgloss.Color(bgColor))
	lines := strings.Split(content, "\n")
	for i := 0; i < height-2; i++ {
		var text string
		if i < len(lines) {
			text = lines[i]
		}
		b.WriteString(bg.Render("│", borderStyle))
		b.WriteString(line.Render(text))
		b.WriteString(bg.Render("│", borderStyle))
		b.WriteString("\n")
	}
	b.WriteString(bg.Render("└"+strings.Repeat("─", inner)+"┘", borderStyle))
	return b.String()
}

func joinHorizontal(left, right string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}
