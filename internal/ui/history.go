package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/tickerdeck/internal/api"
	"github.com/five82/tickerdeck/internal/form"
	"github.com/five82/tickerdeck/internal/notify"
	"github.com/five82/tickerdeck/internal/paging"
	"github.com/five82/tickerdeck/internal/report"
)

const historyDateLayout = "20060102"

// pageSizes is the ladder +/- steps through.
var pageSizes = []int{10, 20, 50, 100}

// barBuffer holds the last loaded history series. The pager pages over it
// locally.
type barBuffer struct {
	mu   sync.Mutex
	bars []api.Bar
}

func (b *barBuffer) set(bars []api.Bar) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bars = append([]api.Bar(nil), bars...)
}

func (b *barBuffer) all() []api.Bar {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]api.Bar(nil), b.bars...)
}

func (b *barBuffer) page(_ context.Context, page, size int) (paging.Page[api.Bar], error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	start := min((page-1)*size, len(b.bars))
	end := min(start+size, len(b.bars))
	return paging.Page[api.Bar]{Items: append([]api.Bar(nil), b.bars[start:end]...), Total: len(b.bars)}, nil
}

type historyState struct {
	fields   fieldSet
	adjust   string
	source   string
	form     *form.Form[api.HistoryQuery, []api.Bar]
	buffer   *barBuffer
	pager    *paging.Pager[api.Bar]
	loaded   api.HistoryQuery
	hasData  bool
	stats    report.Stats
	errs     map[string]string
	loading  bool
	selected int
}

// pageMsg reports that a pager settled.
type pageMsg struct {
	view View
	err  error
}

type exportMsg struct {
	path string
	err  error
}

func pagerCmd(ctx context.Context, view View, run func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return pageMsg{view: view, err: run(ctx)}
	}
}

func newHistoryState(ctx context.Context, client *api.Client, notifier notify.Notifier, pageSize int, source, adjust string, now time.Time) historyState {
	buffer := &barBuffer{}
	fields := newFieldSet(
		fieldSpec{key: "code", label: "Code", placeholder: "600519", limit: 12},
		fieldSpec{key: "start", label: "Start", placeholder: "YYYYMMDD", limit: 8},
		fieldSpec{key: "end", label: "End", placeholder: "YYYYMMDD", limit: 8},
	)
	fields.SetValue("start", now.AddDate(0, -3, 0).Format(historyDateLayout))
	fields.SetValue("end", now.Format(historyDateLayout))

	return historyState{
		fields: fields,
		adjust: adjust,
		source: source,
		buffer: buffer,
		form: form.New(form.Options[api.HistoryQuery, []api.Bar]{
			Validate:       historyFieldErrors,
			Notifier:       notifier,
			SuccessMessage: "history loaded",
			FailureMessage: "failed to load history, please retry",
			OnSuccess:      buffer.set,
			Submit: func(ctx context.Context, q api.HistoryQuery) ([]api.Bar, error) {
				return client.History(ctx, q)
			},
		}),
		pager: paging.New(ctx, paging.Options[api.Bar]{
			Fetch:           buffer.page,
			InitialPageSize: pageSize,
			Notifier:        notifier,
		}),
	}
}

// historyFieldErrors checks what the backend would reject, keyed by input.
func historyFieldErrors(q api.HistoryQuery) map[string]string {
	errs := map[string]string{}
	if strings.TrimSpace(q.Code) == "" {
		errs["code"] = "required"
	}
	for k, d := range map[string]string{"start": q.StartDate, "end": q.EndDate} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(historyDateLayout, d); err != nil {
			errs[k] = "use YYYYMMDD"
		}
	}
	if len(errs) == 0 {
		if err := q.Validate(); err != nil {
			errs[""] = strings.TrimPrefix(err.Error(), api.ErrInvalidQuery.Error()+": ")
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// query builds the request from the inputs.
func (h historyState) query() api.HistoryQuery {
	return api.HistoryQuery{
		Code:      strings.TrimSpace(h.fields.Value("code")),
		StartDate: strings.TrimSpace(h.fields.Value("start")),
		EndDate:   strings.TrimSpace(h.fields.Value("end")),
		Adjust:    h.adjust,
		Source:    h.source,
	}
}

func (m Model) submitHistory() (Model, tea.Cmd) {
	q := m.history.query()
	m.history.form.Update(func(v *api.HistoryQuery) { *v = q })
	m.history.loading = true
	m.history.errs = nil
	return m, submitCmd(m.ctx, "history", m.history.form)
}

func (m Model) handleHistoryResult(msg formResultMsg) (Model, tea.Cmd) {
	m.history.loading = false
	switch {
	case msg.err == nil:
		m.history.loaded = m.history.form.Values()
		m.history.stats = report.Summarize(m.history.buffer.all())
		m.history.hasData = true
		m.history.selected = 0
		pager := m.history.pager
		// Back to page 1 of the new series, keeping the page size.
		return m, pagerCmd(m.ctx, ViewHistory, func(ctx context.Context) error {
			return pager.ChangePageSize(ctx, pager.State().PageSize)
		})
	case errors.Is(msg.err, form.ErrInvalid):
		m.history.errs = msg.fields
	}
	return m, nil
}

func (m Model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	h := &m.history
	if h.fields.Editing() {
		switch {
		case key.Matches(msg, m.keys.Escape):
			h.fields.Blur()
			return m, nil
		case key.Matches(msg, m.keys.Confirm):
			h.fields.Blur()
			return m.submitHistory()
		case key.Matches(msg, m.keys.NextField):
			return m, h.fields.Next()
		case key.Matches(msg, m.keys.PrevField):
			return m, h.fields.Prev()
		}
		cmd, _ := h.fields.Update(msg)
		return m, cmd
	}

	pager := h.pager
	switch {
	case key.Matches(msg, m.keys.Edit):
		return m, h.fields.Focus(0)
	case key.Matches(msg, m.keys.Confirm), key.Matches(msg, m.keys.Refresh):
		return m.submitHistory()
	case key.Matches(msg, m.keys.Adjust):
		h.adjust = cycleValue(api.AdjustModes(), h.adjust)
		m.prefs.HistoryAdjust = h.adjust
		m.savePrefs()
	case key.Matches(msg, m.keys.Source):
		h.source = cycleValue(api.HistorySources(), h.source)
		m.prefs.HistorySource = h.source
		m.savePrefs()
	case key.Matches(msg, m.keys.NextPage):
		h.selected = 0
		return m, pagerCmd(m.ctx, ViewHistory, pager.NextPage)
	case key.Matches(msg, m.keys.PrevPage):
		h.selected = 0
		return m, pagerCmd(m.ctx, ViewHistory, pager.PrevPage)
	case key.Matches(msg, m.keys.Grow), key.Matches(msg, m.keys.Shrink):
		size := stepPageSize(pager.State().PageSize, key.Matches(msg, m.keys.Grow))
		h.selected = 0
		return m, pagerCmd(m.ctx, ViewHistory, func(ctx context.Context) error {
			return pager.ChangePageSize(ctx, size)
		})
	case key.Matches(msg, m.keys.Up):
		h.selected = max(h.selected-1, 0)
	case key.Matches(msg, m.keys.Down):
		h.selected = min(h.selected+1, max(len(pager.State().Items)-1, 0))
	case key.Matches(msg, m.keys.Export):
		bars := h.buffer.all()
		if !h.hasData || len(bars) == 0 {
			m.notifier().Notify(notify.Warning, "load a history series before exporting")
			return m, nil
		}
		return m, exportHistoryCmd(m.exportDir, h.loaded, bars)
	}
	return m, nil
}

// cycleValue returns the value after current in values, wrapping.
func cycleValue(values []string, current string) string {
	for i, v := range values {
		if v == current {
			return values[(i+1)%len(values)]
		}
	}
	return values[0]
}

// stepPageSize moves one rung up or down the page size ladder.
func stepPageSize(current int, grow bool) int {
	if grow {
		for _, s := range pageSizes {
			if s > current {
				return s
			}
		}
		return pageSizes[len(pageSizes)-1]
	}
	for i := len(pageSizes) - 1; i >= 0; i-- {
		if pageSizes[i] < current {
			return pageSizes[i]
		}
	}
	return pageSizes[0]
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// historyFileName names the export after its query.
func historyFileName(q api.HistoryQuery) string {
	start, end := q.StartDate, q.EndDate
	if start == "" {
		start = "begin"
	}
	if end == "" {
		end = "latest"
	}
	name := fmt.Sprintf("history_%s_%s_%s.pdf", strings.TrimSpace(q.Code), start, end)
	return unsafeFileChars.ReplaceAllString(name, "_")
}

func exportHistoryCmd(dir string, q api.HistoryQuery, bars []api.Bar) tea.Cmd {
	return func() tea.Msg {
		path := filepath.Join(dir, historyFileName(q))
		file, err := os.Create(path)
		if err != nil {
			return exportMsg{path: path, err: fmt.Errorf("create export: %w", err)}
		}
		err = report.HistoryPDF(file, report.HistoryTitle(q), q, bars)
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(path)
		}
		return exportMsg{path: path, err: err}
	}
}

func (m Model) handleExport(msg exportMsg) Model {
	if msg.err != nil {
		m.log.Warn().Err(msg.err).Str("path", msg.path).Msg("history export failed")
		m.notifier().Notify(notify.Error, "export failed: "+msg.err.Error())
		return m
	}
	m.log.Info().Str("path", msg.path).Msg("history exported")
	m.notifier().Notify(notify.Success, "exported "+msg.path)
	return m
}

// renderHistory renders the query pane and the paged bars.
func (m Model) renderHistory() string {
	h := m.history
	height := m.contentHeight()
	queryHeight := 8

	focusBg := m.theme.SurfaceAlt
	if h.fields.Editing() {
		focusBg = m.theme.FocusBg
	}
	qstyles := m.theme.Styles().WithBackground(focusBg)
	qbg := NewBgStyle(focusBg)
	var q strings.Builder
	q.WriteString(h.fields.View(qstyles, qbg, m.width-4, h.errs))
	q.WriteString("\n")
	adjust := h.adjust
	if adjust == "" {
		adjust = "none"
	}
	q.WriteString(qbg.Join([]string{
		keyHint(qbg, qstyles, "a", "adjust "+adjust),
		keyHint(qbg, qstyles, "s", "source "+orDash(h.source)),
	}, "  "))
	if general := h.errs[""]; general != "" {
		q.WriteString("\n")
		q.WriteString(qbg.Render(general, qstyles.DangerText))
	} else if h.loading {
		q.WriteString("\n")
		q.WriteString(qbg.Render("loading…", qstyles.WarningText))
	}
	top := m.renderTitledBox("History query", q.String(), m.width, queryHeight, h.fields.Editing())

	st := h.pager.State()
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	bg := NewBgStyle(m.theme.FocusBg)
	title := "Bars"
	var body string
	if !h.hasData {
		body = bg.Render("Press e to enter a code, then enter to load", styles.MutedText)
	} else {
		s := h.stats
		title = fmt.Sprintf("%s · %s – %s", h.loaded.Code, formatTradeDate(s.From), formatTradeDate(s.To))
		summary := bg.Join([]string{
			bg.Render("close "+s.LastClose.StringFixed(2), styles.Text),
			bg.Render(formatSigned(s.Change, 2)+" ("+formatSigned(s.ChangePct, 2)+"%)", changeStyle(s.Change, styles)),
			bg.Render("high "+s.High.StringFixed(2)+" low "+s.Low.StringFixed(2), styles.MutedText),
			bg.Render("vol "+formatVolume(s.Volume), styles.MutedText),
			bg.Render(fmt.Sprintf("page %d/%d · %d rows · x export", st.CurrentPage, max(st.TotalPages(), 1), st.Total), styles.FaintText),
		}, "  ")
		body = summary + "\n" + m.renderBarTable(st.Items, h.selected, m.width-2, height-queryHeight-3)
	}
	bottom := m.renderTitledBox(title, body, m.width, height-queryHeight, !h.fields.Editing())
	return top + "\n" + bottom
}

func (m Model) renderBarTable(bars []api.Bar, selected, width, height int) string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	cols := []column{
		{title: "Date", width: 10},
		{title: "Open", right: true},
		{title: "High", right: true},
		{title: "Low", right: true},
		{title: "Close", right: true},
		{title: "Chg %", right: true},
		{title: "Volume", right: true},
		{title: "Amount", right: true},
	}
	rows := make([][]cell, len(bars))
	for i, b := range bars {
		rows[i] = []cell{
			plain(formatTradeDate(b.Date)),
			plain(b.Open.StringFixed(2)),
			plain(b.High.StringFixed(2)),
			plain(b.Low.StringFixed(2)),
			styled(b.Close.StringFixed(2), changeStyle(b.Change, styles)),
			styled(formatSigned(b.ChangePct, 2), changeStyle(b.ChangePct, styles)),
			plain(formatVolume(b.Volume)),
			plain(formatVolume(b.Amount)),
		}
	}
	return m.renderTable(cols, rows, selected, width, height, m.theme.FocusBg)
}
