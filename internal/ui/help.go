package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderHelp renders the help overlay.
func (m Model) renderHelp() string {
	styles := m.theme.Styles()

	sections := []helpSection{
		{
			title: "Views",
			items: []helpItem{
				{"1-6", "Market/History/Search/Companies/Profile/Logs"},
				{"tab", "Next view"},
				{"j/k", "Move up/down"},
				{"g/G", "Go to top/bottom"},
			},
		},
		{
			title: "Market",
			items: []helpItem{
				{"h/l", "Previous/next trading date"},
				{".", "Latest trading date"},
				{"r", "Refresh"},
			},
		},
		{
			title: "History & Companies",
			items: []helpItem{
				{"e", "Edit query"},
				{"a/s", "Cycle adjust/source"},
				{"[/]", "Previous/next page"},
				{"+/-", "Page size"},
				{"x", "Export history PDF"},
			},
		},
		{
			title: "Profile",
			items: []helpItem{
				{"e", "Edit profile"},
				{"p", "Change password"},
				{"A", "Change avatar"},
				{"r", "Reload user"},
			},
		},
		{
			title: "Logs",
			items: []helpItem{
				{"Space", "Toggle follow mode"},
				{"/", "Search logs"},
				{"n/N", "Next/prev match"},
			},
		},
		{
			title: "General",
			items: []helpItem{
				{"L", "Sign in / sign out"},
				{"ctrl+r", "Switch sign in and register"},
				{"T", "Cycle theme"},
				{"?", "Toggle help"},
				{"q/ctrl+c", "Quit"},
			},
		},
	}

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Keyboard Shortcuts"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 30)))
	b.WriteString("\n\n")

	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Warning)).Width(12)
	for i, section := range sections {
		b.WriteString(styles.AccentText.Bold(true).Render(section.title))
		b.WriteString("\n")
		for _, item := range section.items {
			b.WriteString(keyStyle.Render(item.key))
			b.WriteString(styles.Text.Render(item.desc))
			b.WriteString("\n")
		}
		if i < len(sections)-1 {
			b.WriteString("\n")
		}
	}

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Width(60)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(m.theme.Background)),
	)
}

type helpSection struct {
	title string
	items []helpItem
}

type helpItem struct {
	key  string
	desc string
}
