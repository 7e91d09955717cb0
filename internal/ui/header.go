package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/tickerdeck/internal/api"
)

// renderHeader renders the status bar: user, market state and freshness.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < LayoutCompactWidth

	parts := []string{bg.Render("tickerdeck", styles.Logo)}

	if m.session.SignedIn {
		name := "signed in"
		if m.session.HasUser {
			name = m.session.User.DisplayName()
		}
		parts = append(parts, bg.Render("●", styles.SuccessText)+bg.Space()+bg.Render(truncate(name, 24), styles.Text))
	} else {
		parts = append(parts, bg.Render("○ signed out", styles.MutedText))
	}

	if m.snapshot.HasSummary {
		s := m.snapshot.Summary
		label := s.Status
		if label == "" {
			label = api.SummaryOK
		}
		parts = append(parts,
			bg.Render("Market:", styles.MutedText)+bg.Space()+
				bg.Render(orDash(formatTradeDate(s.Date)), styles.Text)+bg.Space()+
				styles.StatusStyle(label).Render(label))
		if !compact {
			parts = append(parts, bg.Render(fmt.Sprintf("%d rows", len(s.Data)), styles.FaintText))
		}
	} else if m.snapshot.LastError == nil {
		parts = append(parts, bg.Render("Loading market…", styles.WarningText))
	}

	if ts := m.formatTimestamp(); ts != "" {
		parts = append(parts, bg.Render(ts, styles.MutedText))
	}

	if m.snapshot.IsOffline() || m.snapshot.LastError != nil {
		maxErr := 60
		if compact {
			maxErr = 30
		}
		label := "ERROR"
		if m.snapshot.IsOffline() {
			label = "OFFLINE"
		}
		detail := ""
		if m.snapshot.LastError != nil {
			detail = truncate(m.snapshot.LastError.Error(), maxErr)
		}
		parts = append(parts, bg.Render(label, styles.DangerText)+bg.Space()+bg.Render(detail, styles.DangerText))
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		Render(bg.Join(parts, "  "))
}

// formatTimestamp formats the last poll time with a relative indicator.
func (m Model) formatTimestamp() string {
	updated := m.snapshot.LastUpdated
	if updated.IsZero() {
		return ""
	}

	since := time.Since(updated)
	out := updated.Format("15:04:05")
	switch {
	case since < time.Minute:
		out += " (now)"
	case since < time.Hour:
		out += fmt.Sprintf(" (%dm ago)", int(since.Minutes()))
	case since < 24*time.Hour:
		out += fmt.Sprintf(" (%dh ago)", int(since.Hours()))
	}
	return out
}

// renderCommandBar renders the key hints of the active view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch m.currentView {
	case ViewHistory:
		commands = []cmd{
			{"e", "Edit"},
			{"enter", "Load"},
			{"a", m.history.adjust},
			{"s", m.history.source},
			{"[/]", "Page"},
			{"+/-", "Size"},
			{"x", "PDF"},
		}
	case ViewSearch:
		commands = []cmd{
			{"/", "Type"},
			{"↑/↓", "Select"},
			{"enter", "Profile"},
			{"esc", "Clear"},
		}
	case ViewCompanies:
		commands = []cmd{
			{"/", "Filter"},
			{"enter", "Search"},
			{"[/]", "Page"},
			{"+/-", "Size"},
			{"r", "Reload"},
		}
	case ViewProfile:
		if m.session.SignedIn {
			commands = []cmd{{"e", "Edit"}, {"p", "Password"}, {"A", "Avatar"}, {"r", "Reload"}}
		} else {
			commands = []cmd{{"enter", "Sign in"}}
		}
	case ViewLogs:
		follow := "Pause"
		if !m.logs.follow {
			follow = "Follow"
		}
		commands = []cmd{
			{"space", follow},
			{"/", "Search"},
			{"n/N", "Next/Prev"},
			{"g/G", "Top/Bottom"},
		}
	default:
		commands = []cmd{
			{"←/→", "Date"},
			{".", "Latest"},
			{"r", "Refresh"},
			{"j/k", "Navigate"},
		}
	}

	account := "Sign in"
	if m.session.SignedIn {
		account = "Sign out"
	}
	commands = append(commands, cmd{"1-6", m.currentView.String()}, cmd{"L", account}, cmd{"?", "More"})

	segments := make([]string, 0, len(commands)+2)
	for _, c := range commands {
		segments = append(segments, keyHint(bg, styles, c.key, c.desc))
	}

	if m.currentView == ViewLogs && m.logs.searchQuery != "" {
		segments = append(segments, bg.Render("/"+truncate(m.logs.searchQuery, 18), styles.AccentText))
	}

	segments = append(segments,
		bg.Render("T", styles.AccentText)+bg.Render(":", styles.FaintText)+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(bg.Join(segments, "  "))
}

// renderFooter shows the newest active notices, most recent last.
func (m Model) renderFooter() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	if len(m.active) == 0 {
		return bg.FillLine("", m.width)
	}

	notices := m.active
	if len(notices) > 3 {
		notices = notices[len(notices)-3:]
	}
	parts := make([]string, 0, len(notices))
	budget := max(m.width/len(notices)-4, 10)
	for _, n := range notices {
		parts = append(parts, bg.Render(truncate(n.Message, budget), styles.NoticeStyle(n.Level)))
	}
	return bg.FillLine(bg.Space()+strings.Join(parts, bg.Render(" │ ", styles.FaintText)), m.width)
}
