package ui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/tickerdeck/internal/api"
)

// marketState tracks the selected trading date. An empty date follows the
// latest summary kept by the poller.
type marketState struct {
	date     string
	summary  *api.DailySummary
	loading  bool
	selected int
}

type summaryMsg struct {
	date    string
	summary *api.DailySummary
	err     error
}

func fetchSummaryCmd(ctx context.Context, client *api.Client, date string) tea.Cmd {
	return func() tea.Msg {
		summary, err := client.DailySummary(ctx, date)
		return summaryMsg{date: date, summary: summary, err: err}
	}
}

// shownSummary returns the summary the market view displays.
func (m Model) shownSummary() (api.DailySummary, bool) {
	if m.market.date == "" {
		return m.snapshot.Summary, m.snapshot.HasSummary
	}
	if m.market.summary == nil {
		return api.DailySummary{Date: m.market.date}, false
	}
	return *m.market.summary, true
}

// shownDate returns the trading date on screen, falling back to the latest
// known trading day.
func (m Model) shownDate() string {
	if m.market.date != "" {
		return m.market.date
	}
	if m.snapshot.HasSummary && m.snapshot.Summary.Date != "" {
		return m.snapshot.Summary.Date
	}
	return m.snapshot.LatestTradeDate(time.Now())
}

// stepTradeDate returns the trading date delta days away from current, or
// "" when there is none.
func stepTradeDate(dates []string, current string, delta int) string {
	if len(dates) == 0 {
		return ""
	}
	i := sort.SearchStrings(dates, current)
	switch {
	case delta < 0:
		i--
	case i < len(dates) && dates[i] == current:
		i++
	}
	if i < 0 || i >= len(dates) {
		return ""
	}
	return dates[i]
}

func (m Model) handleMarketKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Left), key.Matches(msg, m.keys.Right):
		delta := 1
		if key.Matches(msg, m.keys.Left) {
			delta = -1
		}
		next := stepTradeDate(m.snapshot.TradeDates, m.shownDate(), delta)
		if next == "" {
			return m, nil
		}
		if latest := m.snapshot.LatestTradeDate(time.Now()); next == latest && m.snapshot.HasSummary && m.snapshot.Summary.Date == latest {
			m.market = marketState{}
			return m, nil
		}
		m.market = marketState{date: next, loading: true}
		return m, fetchSummaryCmd(m.ctx, m.client, next)

	case key.Matches(msg, m.keys.Latest):
		m.market = marketState{}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		m.market.loading = true
		return m, fetchSummaryCmd(m.ctx, m.client, m.market.date)

	case key.Matches(msg, m.keys.Up):
		m.market.selected = max(m.market.selected-1, 0)
	case key.Matches(msg, m.keys.Down):
		summary, _ := m.shownSummary()
		m.market.selected = min(m.market.selected+1, max(len(summary.Data)-1, 0))
	case key.Matches(msg, m.keys.Top):
		m.market.selected = 0
	case key.Matches(msg, m.keys.Bottom):
		summary, _ := m.shownSummary()
		m.market.selected = max(len(summary.Data)-1, 0)
	}
	return m, nil
}

func (m Model) handleSummary(msg summaryMsg) Model {
	if msg.date != m.market.date {
		return m
	}
	m.market.loading = false
	if msg.err != nil {
		return m
	}
	if msg.date == "" {
		if msg.summary != nil && m.store != nil {
			m.store.Update(nil, msg.summary, nil)
			m.snapshot = m.store.Snapshot()
		}
		return m
	}
	m.market.summary = msg.summary
	return m
}

// renderMarket renders the daily summary of the shown trading date.
func (m Model) renderMarket() string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	bg := NewBgStyle(m.theme.FocusBg)
	height := m.contentHeight()
	inner := m.width - 2

	summary, ok := m.shownSummary()
	date := m.shownDate()
	title := "Market · " + orDash(formatTradeDate(date))
	if m.market.date == "" {
		title += " (latest)"
	}

	var lines []string
	status := summary.Status
	if status == "" && ok {
		status = api.SummaryOK
	}
	statusLine := []string{}
	if status != "" {
		statusLine = append(statusLine, m.theme.Styles().StatusStyle(status).Render(strings.ToUpper(status)))
	}
	if msgText := strings.TrimSpace(summary.Message); msgText != "" {
		statusLine = append(statusLine, bg.Render(msgText, styles.MutedText))
	}
	if summary.LastOpenDate != "" && summary.LastOpenDate != summary.Date {
		statusLine = append(statusLine, bg.Render("last open "+formatTradeDate(summary.LastOpenDate), styles.FaintText))
	}
	if m.market.loading {
		statusLine = append(statusLine, bg.Render("loading…", styles.WarningText))
	}
	lines = append(lines, bg.Join(statusLine, "  "), "")

	switch {
	case !ok && m.snapshot.LastError != nil && m.market.date == "":
		lines = append(lines, bg.Render("Backend unreachable: "+m.snapshot.LastError.Error(), styles.DangerText))
	case !ok:
		lines = append(lines, bg.Render("Waiting for the daily summary…", styles.MutedText))
	case len(summary.Data) == 0:
		lines = append(lines, bg.Render("No figures for this date", styles.MutedText))
	default:
		cols := summary.Columns()
		tcols := make([]column, len(cols))
		for i, c := range cols {
			tcols[i] = column{title: c, right: i > 0}
		}
		rows := make([][]cell, len(summary.Data))
		for r, record := range summary.Data {
			rows[r] = make([]cell, len(cols))
			for i, c := range cols {
				rows[r][i] = plain(api.FormatValue(record[c]))
			}
		}
		lines = append(lines, m.renderTable(tcols, rows, m.market.selected, inner, height-2-len(lines), m.theme.FocusBg))
	}

	if dates := m.snapshot.TradeDates; len(dates) > 0 {
		footer := fmt.Sprintf("%d trading days %s – %s", len(dates), formatTradeDate(dates[0]), formatTradeDate(dates[len(dates)-1]))
		content := strings.Join(lines, "\n")
		return m.renderTitledBox(title, content+"\n\n"+bg.Render(footer, styles.FaintText), m.width, height, true)
	}
	return m.renderTitledBox(title, strings.Join(lines, "\n"), m.width, height, true)
}
