package ui

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/tickerdeck/internal/logtail"
)

// logState holds all log-related state.
type logState struct {
	tail        *logtail.Tailer
	rawLines    []string
	follow      bool
	lastRefresh time.Time
	readErr     error

	// Search
	searchActive   bool
	searchQuery    string
	searchRegex    *regexp.Regexp
	searchInput    textinput.Model
	searchMatches  []int
	searchMatchIdx int

	// Re-render only when content or highlighting changed.
	contentVersion uint64
	lastRendered   uint64
}

type logLinesMsg struct {
	lines []string
	err   error
}

func newLogState(path string) logState {
	ti := textinput.New()
	ti.Placeholder = "Search logs..."
	ti.CharLimit = 100
	st := logState{follow: true, searchInput: ti}
	if path != "" {
		st.tail = logtail.NewTailer(path, LogBufferLimit)
	}
	return st
}

// readLogsCmd reads what was appended to the log file.
func readLogsCmd(tail *logtail.Tailer) tea.Cmd {
	return func() tea.Msg {
		raw, err := tail.Lines()
		return logLinesMsg{lines: formatLogLines(raw), err: err}
	}
}

// refreshLogs schedules a read unless one ran recently.
func (m *Model) refreshLogs(force bool) tea.Cmd {
	if m.logs.tail == nil {
		return nil
	}
	if !force && time.Since(m.logs.lastRefresh) < LogRefreshInterval {
		return nil
	}
	m.logs.lastRefresh = time.Now()
	return readLogsCmd(m.logs.tail)
}

func (m *Model) handleLogLines(msg logLinesMsg) {
	m.logs.readErr = msg.err
	if msg.err != nil {
		return
	}
	lines := msg.lines
	if len(lines) > LogBufferLimit {
		lines = lines[len(lines)-LogBufferLimit:]
	}
	if equalLines(lines, m.logs.rawLines) {
		return
	}
	m.logs.rawLines = lines
	m.findSearchMatches()
	m.logs.contentVersion++
	m.updateLogViewport()
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// updateLogViewport sizes the viewport and refreshes its content.
func (m *Model) updateLogViewport() {
	if m.width == 0 {
		return
	}
	// Box inner height: content area minus borders and the status line.
	width, height := m.width-2, m.contentHeight()-3
	if m.logViewport.Width == 0 {
		m.logViewport = viewport.New(width, height)
	}
	m.logViewport.Width = width
	m.logViewport.Height = max(height, 1)
	m.logViewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg))

	if m.logs.lastRendered == 0 || m.logs.contentVersion != m.logs.lastRendered {
		m.logViewport.SetContent(m.renderLogContent())
		m.logs.lastRendered = max(m.logs.contentVersion, 1)
	}
	if m.logs.follow {
		m.logViewport.GotoBottom()
	}
}

// renderLogs renders the log view.
func (m Model) renderLogs() string {
	bg := NewBgStyle(m.theme.Surface)
	styles := m.theme.Styles()
	height := m.contentHeight() - 1

	title := "Application Log"
	if m.logs.searchRegex != nil {
		title = "Application Log (search)"
	}
	box := m.renderTitledBox(title, m.logViewport.View(), m.width, height, true)
	return box + "\n" + bg.FillLine(m.renderLogStatus(styles.WithBackground(m.theme.Surface), bg), m.width)
}

// renderLogStatus renders the line below the log box.
func (m Model) renderLogStatus(styles Styles, bg BgStyle) string {
	if m.logs.searchActive {
		return bg.Render("/", styles.AccentText) + m.logs.searchInput.View()
	}
	if m.logs.searchRegex != nil && len(m.logs.searchMatches) > 0 {
		return bg.Render("/"+m.logs.searchQuery, styles.AccentText) +
			bg.Render(" - ", styles.FaintText) +
			bg.Render(fmt.Sprintf("%d/%d", m.logs.searchMatchIdx+1, len(m.logs.searchMatches)), styles.WarningText) +
			bg.Render(" - n next, N previous, Esc clears", styles.FaintText)
	}
	if m.logs.searchRegex != nil {
		return bg.Render("Pattern not found: "+m.logs.searchQuery, styles.DangerText)
	}
	if m.logs.readErr != nil {
		return bg.Render("read failed: "+m.logs.readErr.Error(), styles.DangerText)
	}

	autoTail := "off"
	if m.logs.follow {
		autoTail = "on"
	}
	parts := []string{
		bg.Render(fmt.Sprintf("%d lines auto-tail %s", len(m.logs.rawLines), autoTail), styles.FaintText),
	}
	if m.logs.tail != nil {
		parts = append(parts, bg.Render(truncateMiddle(m.logs.tail.Path(), max(m.width/2, 20)), styles.MutedText))
	}
	return bg.Join(parts, " • ")
}

// renderLogContent renders the colorized, numbered log lines.
func (m *Model) renderLogContent() string {
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()
	width := m.logViewport.Width

	if len(m.logs.rawLines) == 0 {
		return bg.FillLine(bg.Render("No log entries", styles.MutedText), width)
	}

	matchSet := make(map[int]bool, len(m.logs.searchMatches))
	for _, idx := range m.logs.searchMatches {
		matchSet[idx] = true
	}
	activeMatch := -1
	if m.logs.searchMatchIdx < len(m.logs.searchMatches) {
		activeMatch = m.logs.searchMatches[m.logs.searchMatchIdx]
	}

	var b strings.Builder
	for i, line := range m.logs.rawLines {
		gutter := fmt.Sprintf("%4d │ ", i+1)
		var content string
		switch {
		case i == activeMatch:
			hl := NewBgStyle(m.theme.Warning)
			ink := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Background))
			content = hl.Render(gutter, ink) + hl.Render(line, ink)
		case matchSet[i]:
			content = bg.Render(gutter, styles.AccentText) + bg.Render(line, styles.AccentText)
		default:
			content = bg.Render(gutter, styles.FaintText) + m.colorizeLine(line, styles, bg)
		}
		b.WriteString(bg.FillLine(content, width))
		if i < len(m.logs.rawLines)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Patterns matching the header produced by formatLogLine.
var (
	timestampRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})`)
	levelRe     = regexp.MustCompile(`^\s*(TRACE|DEBUG|INFO|WARN|ERROR|FATAL|PANIC)\b`)
	componentRe = regexp.MustCompile(`^\s*\[([^\]]+)\]`)
	separatorRe = regexp.MustCompile(`\s*–\s*`)
)

// colorizeLine styles the timestamp, level, component and message of a
// formatted line. Detail lines are indented plain text.
func (m *Model) colorizeLine(line string, styles Styles, bg BgStyle) string {
	if strings.TrimSpace(line) == "" {
		return line
	}
	if detail, ok := strings.CutPrefix(line, "    - "); ok {
		return bg.Spaces(6) + bg.Render(detail, styles.MutedText)
	}

	var out strings.Builder
	rest := line
	if loc := timestampRe.FindStringSubmatchIndex(rest); loc != nil {
		out.WriteString(bg.Render(rest[loc[2]:loc[3]], styles.FaintText))
		rest = rest[loc[1]:]
	}
	if loc := levelRe.FindStringSubmatchIndex(rest); loc != nil {
		level := rest[loc[2]:loc[3]]
		out.WriteString(bg.Space())
		out.WriteString(bg.Render(level, levelStyle(level, styles).Bold(true)))
		rest = rest[loc[1]:]
	}
	if loc := componentRe.FindStringSubmatchIndex(rest); loc != nil {
		out.WriteString(bg.Space())
		out.WriteString(bg.Render(rest[loc[2]:loc[3]], styles.AccentText))
		rest = rest[loc[1]:]
	}
	if parts := separatorRe.Split(rest, 2); len(parts) == 2 {
		out.WriteString(bg.Space())
		out.WriteString(bg.Render("–", styles.FaintText))
		out.WriteString(bg.Space())
		out.WriteString(bg.Render(strings.TrimSpace(parts[1]), styles.Text))
	} else {
		out.WriteString(bg.Render(rest, styles.Text))
	}
	return out.String()
}

func levelStyle(level string, styles Styles) lipgloss.Style {
	switch level {
	case "INFO":
		return styles.SuccessText
	case "WARN":
		return styles.WarningText
	case "ERROR", "FATAL", "PANIC":
		return styles.DangerText
	case "DEBUG", "TRACE":
		return styles.InfoText
	default:
		return styles.Text
	}
}

// handleLogsKey processes keyboard input for the log view.
func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.logs.searchActive {
		return m.handleLogSearchInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.logs.follow = !m.logs.follow
		m.updateLogViewport()
		return m, m.refreshLogs(true)

	case key.Matches(msg, m.keys.Refresh):
		return m, m.refreshLogs(true)

	case key.Matches(msg, m.keys.Search):
		m.logs.searchActive = true
		m.logs.searchInput.SetValue("")
		return m, m.logs.searchInput.Focus()

	case key.Matches(msg, m.keys.NextMatch):
		m.stepSearchMatch(1)

	case key.Matches(msg, m.keys.PrevMatch):
		m.stepSearchMatch(-1)

	case key.Matches(msg, m.keys.Escape):
		if m.logs.searchRegex != nil {
			m.clearLogSearch()
			m.updateLogViewport()
		}

	case key.Matches(msg, m.keys.Top):
		m.logViewport.GotoTop()
		m.logs.follow = false

	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
		m.logs.follow = true

	case key.Matches(msg, m.keys.Down):
		m.logViewport.ScrollDown(1)
		m.logs.follow = false

	case key.Matches(msg, m.keys.Up):
		m.logViewport.ScrollUp(1)
		m.logs.follow = false

	case key.Matches(msg, m.keys.PageDown):
		m.logViewport.HalfPageDown()
		m.logs.follow = false

	case key.Matches(msg, m.keys.PageUp):
		m.logViewport.HalfPageUp()
		m.logs.follow = false
	}
	return m, nil
}

// handleLogSearchInput handles keyboard input while typing a pattern.
func (m Model) handleLogSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		query := m.logs.searchInput.Value()
		m.logs.searchActive = false
		m.logs.searchInput.Blur()
		if query == "" {
			return m, nil
		}
		re, err := regexp.Compile("(?i)" + query)
		if err != nil {
			m.logs.searchQuery = query
			m.logs.searchRegex = nil
			m.logs.readErr = fmt.Errorf("invalid pattern: %w", err)
			return m, nil
		}
		m.logs.searchRegex = re
		m.logs.searchQuery = query
		m.findSearchMatches()
		if len(m.logs.searchMatches) > 0 {
			m.logs.searchMatchIdx = 0
			m.scrollToSearchMatch()
		}
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		m.logs.searchActive = false
		m.logs.searchInput.Blur()
		m.logs.searchInput.SetValue("")
		return m, nil
	}

	var cmd tea.Cmd
	m.logs.searchInput, cmd = m.logs.searchInput.Update(msg)
	return m, cmd
}

func (m *Model) clearLogSearch() {
	m.logs.searchRegex = nil
	m.logs.searchQuery = ""
	m.logs.searchMatches = nil
	m.logs.searchMatchIdx = 0
	m.logs.contentVersion++
}

// findSearchMatches records the lines matching the current pattern.
func (m *Model) findSearchMatches() {
	m.logs.searchMatches = nil
	if m.logs.searchRegex == nil {
		return
	}
	for i, line := range m.logs.rawLines {
		if m.logs.searchRegex.MatchString(line) {
			m.logs.searchMatches = append(m.logs.searchMatches, i)
		}
	}
	if m.logs.searchMatchIdx >= len(m.logs.searchMatches) {
		m.logs.searchMatchIdx = 0
	}
	m.logs.contentVersion++
}

func (m *Model) stepSearchMatch(delta int) {
	n := len(m.logs.searchMatches)
	if n == 0 {
		return
	}
	m.logs.searchMatchIdx = (m.logs.searchMatchIdx + delta + n) % n
	m.logs.contentVersion++
	m.scrollToSearchMatch()
	m.updateLogViewport()
}

// scrollToSearchMatch centers the current match when possible.
func (m *Model) scrollToSearchMatch() {
	if m.logs.searchMatchIdx >= len(m.logs.searchMatches) {
		return
	}
	target := m.logs.searchMatches[m.logs.searchMatchIdx]
	m.logs.follow = false
	m.logViewport.SetYOffset(max(target-m.logViewport.Height/2, 0))
}
