package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/tickerdeck/internal/api"
	"github.com/five82/tickerdeck/internal/notify"
	"github.com/five82/tickerdeck/internal/search"
)

// searchState drives the stock autocomplete and the profile of the chosen
// suggestion.
type searchState struct {
	fields   fieldSet
	searcher *search.Searcher[api.Suggestion]
	selected int

	profileCode    string
	profile        *api.CompanyProfile
	loadingProfile bool
}

// searchDoneMsg is posted when a debounced search settles.
type searchDoneMsg struct{}

type profileMsg struct {
	code    string
	profile *api.CompanyProfile
	err     error
}

func newSearchState(client *api.Client, notifier notify.Notifier, debounce time.Duration, minLength int, events chan<- tea.Msg) searchState {
	return searchState{
		fields: newFieldSet(fieldSpec{key: "query", label: "Search", placeholder: "code, name or pinyin", limit: 32}),
		searcher: search.New(search.Options[api.Suggestion]{
			Debounce:  debounce,
			MinLength: minLength,
			Notifier:  notifier,
			Search: func(ctx context.Context, q string) ([]api.Suggestion, error) {
				return client.SearchStocks(ctx, q, suggestionLimit)
			},
			OnDone: func(search.State[api.Suggestion]) {
				post(events, searchDoneMsg{})
			},
		}),
	}
}

func fetchProfileCmd(ctx context.Context, client *api.Client, code string) tea.Cmd {
	return func() tea.Msg {
		profile, err := client.CompanyProfile(ctx, code)
		return profileMsg{code: code, profile: profile, err: err}
	}
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := &m.search
	results := s.searcher.State().Results

	// Arrow keys move through suggestions even while typing.
	switch msg.Type {
	case tea.KeyUp:
		s.selected = max(s.selected-1, 0)
		return m, nil
	case tea.KeyDown:
		s.selected = min(s.selected+1, max(len(results)-1, 0))
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Confirm):
		if s.selected >= len(results) {
			if s.fields.Editing() {
				return m, m.runSearchNow()
			}
			return m, nil
		}
		s.fields.Blur()
		code := string(results[s.selected].Code)
		s.profileCode = code
		s.profile = nil
		s.loadingProfile = true
		return m, fetchProfileCmd(m.ctx, m.client, code)
	}

	if s.fields.Editing() {
		if key.Matches(msg, m.keys.Escape) {
			s.fields.Blur()
			return m, nil
		}
		cmd, changed := s.fields.Update(msg)
		if changed {
			s.selected = 0
			s.searcher.Search(m.ctx, s.fields.Value("query"))
		}
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Edit), key.Matches(msg, m.keys.Search):
		return m, s.fields.Focus(0)
	case key.Matches(msg, m.keys.Up):
		s.selected = max(s.selected-1, 0)
	case key.Matches(msg, m.keys.Down):
		s.selected = min(s.selected+1, max(len(results)-1, 0))
	case key.Matches(msg, m.keys.Refresh):
		return m, m.runSearchNow()
	case key.Matches(msg, m.keys.Escape):
		s.searcher.Reset()
		s.fields.SetValue("query", "")
		s.selected = 0
		s.profile = nil
		s.profileCode = ""
	}
	return m, nil
}

// runSearchNow skips the debounce.
func (m Model) runSearchNow() tea.Cmd {
	searcher := m.search.searcher
	query := m.search.fields.Value("query")
	ctx := m.ctx
	return func() tea.Msg {
		searcher.SetQuery(query)
		_ = searcher.Execute(ctx)
		return nil
	}
}

func (m Model) handleProfile(msg profileMsg) Model {
	if msg.code != m.search.profileCode {
		return m
	}
	m.search.loadingProfile = false
	if msg.err == nil {
		m.search.profile = msg.profile
	}
	return m
}

// renderSearch renders the query box, suggestions and the chosen profile.
func (m Model) renderSearch() string {
	s := m.search
	height := m.contentHeight()
	st := s.searcher.State()

	inputBg := m.theme.SurfaceAlt
	if s.fields.Editing() {
		inputBg = m.theme.FocusBg
	}
	input := m.renderTitledBox("Stock search", s.fields.View(m.theme.Styles().WithBackground(inputBg), NewBgStyle(inputBg), m.width-4, nil), m.width, 3, s.fields.Editing())

	listWidth := m.width
	profileWidth := 0
	if m.width >= LayoutSplitWidth {
		listWidth = m.width * 2 / 5
		profileWidth = m.width - listWidth
	}
	bodyHeight := height - 3

	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	bg := NewBgStyle(m.theme.FocusBg)
	var list string
	switch {
	case st.Loading:
		list = bg.Render("searching…", styles.WarningText)
	case st.Err != nil:
		list = bg.Render("search failed", styles.DangerText)
	case len(st.Results) == 0 && strings.TrimSpace(st.Query) != "":
		list = bg.Render("no matches", styles.MutedText)
	case len(st.Results) == 0:
		list = bg.Render("Type to search, enter opens the company profile", styles.MutedText)
	default:
		rows := make([][]cell, len(st.Results))
		for i, r := range st.Results {
			rows[i] = []cell{plain(string(r.Code)), plain(r.Name), styled(r.Market, styles.FaintText)}
		}
		cols := []column{{title: "Code", width: 8}, {title: "Name"}, {title: "Market", width: 6}}
		list = m.renderTable(cols, rows, s.selected, listWidth-2, bodyHeight-2, m.theme.FocusBg)
	}
	listBox := m.renderTitledBox("Suggestions", list, listWidth, bodyHeight, !s.fields.Editing())
	if profileWidth == 0 {
		if s.profileCode == "" {
			return input + "\n" + listBox
		}
		return input + "\n" + m.renderCompanyProfile(m.width, bodyHeight)
	}
	return input + "\n" + joinHorizontal(listBox, m.renderCompanyProfile(profileWidth, bodyHeight))
}

func (m Model) renderCompanyProfile(width, height int) string {
	s := m.search
	styles := m.theme.Styles().WithBackground(m.theme.SurfaceAlt)
	bg := NewBgStyle(m.theme.SurfaceAlt)
	title := "Company profile"
	if s.profileCode != "" {
		title += " · " + s.profileCode
	}
	var body string
	switch {
	case s.loadingProfile:
		body = bg.Render("loading…", styles.WarningText)
	case s.profile == nil || len(s.profile.Fields) == 0:
		body = bg.Render("No profile selected", styles.MutedText)
	default:
		labelWidth := 0
		for _, f := range s.profile.Fields {
			labelWidth = min(max(labelWidth, len([]rune(f.Item))*2), 16)
		}
		lines := make([]string, 0, len(s.profile.Fields))
		for _, f := range s.profile.Fields {
			lines = append(lines, bg.Render(fitCell(f.Item, labelWidth, false), styles.MutedText)+bg.Spaces(2)+
				bg.Render(truncate(f.Value, width-labelWidth-6), styles.Text))
		}
		body = strings.Join(lines, "\n")
	}
	return m.renderTitledBox(title, body, width, height, false)
}
