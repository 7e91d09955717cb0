package ui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/tickerdeck/internal/api"
	"github.com/five82/tickerdeck/internal/notify"
	"github.com/five82/tickerdeck/internal/paging"
)

// companyFilter is read by the pager's fetch goroutine.
type companyFilter struct {
	mu       sync.Mutex
	query    string
	industry string
}

func (f *companyFilter) set(query, industry string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.query, f.industry = query, industry
}

func (f *companyFilter) get() (string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.query, f.industry
}

type companiesState struct {
	fields   fieldSet
	filter   *companyFilter
	pager    *paging.Pager[api.Company]
	selected int
	searched bool
}

func newCompaniesState(ctx context.Context, client *api.Client, notifier notify.Notifier, pageSize int) companiesState {
	filter := &companyFilter{}
	return companiesState{
		fields: newFieldSet(
			fieldSpec{key: "query", label: "Keyword", placeholder: "name, code or business", limit: 40},
			fieldSpec{key: "industry", label: "Industry", placeholder: "optional", limit: 40},
		),
		filter: filter,
		pager: paging.New(ctx, paging.Options[api.Company]{
			InitialPageSize: pageSize,
			Notifier:        notifier,
			FailureMessage:  "company search failed, please retry",
			Fetch: func(ctx context.Context, page, size int) (paging.Page[api.Company], error) {
				query, industry := filter.get()
				res, err := client.SearchCompanies(ctx, api.CompanyQuery{Query: query, Industry: industry, Page: page, PageSize: size})
				if err != nil {
					return paging.Page[api.Company]{}, err
				}
				return paging.Page[api.Company]{Items: res.Data, Total: res.Total}, nil
			},
		}),
	}
}

// applyCompanyFilter starts a new search from page 1.
func (m Model) applyCompanyFilter() (Model, tea.Cmd) {
	c := &m.companies
	query := strings.TrimSpace(c.fields.Value("query"))
	industry := strings.TrimSpace(c.fields.Value("industry"))
	if query == "" && industry == "" {
		c.pager.Reset()
		c.searched = false
		return m, nil
	}
	c.filter.set(query, industry)
	c.searched = true
	c.selected = 0
	pager := c.pager
	return m, pagerCmd(m.ctx, ViewCompanies, func(ctx context.Context) error {
		return pager.ChangePageSize(ctx, pager.State().PageSize)
	})
}

func (m Model) handleCompaniesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := &m.companies
	if c.fields.Editing() {
		switch {
		case key.Matches(msg, m.keys.Escape):
			c.fields.Blur()
			return m, nil
		case key.Matches(msg, m.keys.Confirm):
			c.fields.Blur()
			return m.applyCompanyFilter()
		case key.Matches(msg, m.keys.NextField):
			return m, c.fields.Next()
		case key.Matches(msg, m.keys.PrevField):
			return m, c.fields.Prev()
		}
		cmd, _ := c.fields.Update(msg)
		return m, cmd
	}

	pager := c.pager
	switch {
	case key.Matches(msg, m.keys.Edit), key.Matches(msg, m.keys.Search):
		return m, c.fields.Focus(0)
	case key.Matches(msg, m.keys.Confirm):
		return m.applyCompanyFilter()
	case !c.searched:
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		return m, pagerCmd(m.ctx, ViewCompanies, pager.Refresh)
	case key.Matches(msg, m.keys.NextPage):
		c.selected = 0
		return m, pagerCmd(m.ctx, ViewCompanies, pager.NextPage)
	case key.Matches(msg, m.keys.PrevPage):
		c.selected = 0
		return m, pagerCmd(m.ctx, ViewCompanies, pager.PrevPage)
	case key.Matches(msg, m.keys.Grow), key.Matches(msg, m.keys.Shrink):
		size := stepPageSize(pager.State().PageSize, key.Matches(msg, m.keys.Grow))
		c.selected = 0
		m.prefs.PageSize = size
		m.savePrefs()
		return m, pagerCmd(m.ctx, ViewCompanies, func(ctx context.Context) error {
			return pager.ChangePageSize(ctx, size)
		})
	case key.Matches(msg, m.keys.Up):
		c.selected = max(c.selected-1, 0)
	case key.Matches(msg, m.keys.Down):
		c.selected = min(c.selected+1, max(len(pager.State().Items)-1, 0))
	case key.Matches(msg, m.keys.Top):
		c.selected = 0
	case key.Matches(msg, m.keys.Bottom):
		c.selected = max(len(pager.State().Items)-1, 0)
	}
	return m, nil
}

// Keys already shown by the Code, Name and Industry columns.
var companyIdentityKeys = map[string]bool{
	"code": true, "股票代码": true, "ts_code": true, "symbol": true,
	"name": true, "股票简称": true, "company_name": true,
	"industry": true, "行业": true, "所属行业": true,
}

// companyColumns returns the record keys beyond the identity columns in
// first-seen order, sorting the new keys of each row.
func companyColumns(rows []api.Company) []string {
	seen := map[string]bool{}
	var cols []string
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			if !seen[k] && !companyIdentityKeys[k] {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			seen[k] = true
			cols = append(cols, k)
		}
	}
	return cols
}

// renderCompanies renders the filter pane and the current page.
func (m Model) renderCompanies() string {
	c := m.companies
	height := m.contentHeight()
	filterHeight := 4

	fbg := m.theme.SurfaceAlt
	if c.fields.Editing() {
		fbg = m.theme.FocusBg
	}
	top := m.renderTitledBox("Company search", c.fields.View(m.theme.Styles().WithBackground(fbg), NewBgStyle(fbg), m.width-4, nil), m.width, filterHeight, c.fields.Editing())

	st := c.pager.State()
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	bg := NewBgStyle(m.theme.FocusBg)
	bodyHeight := height - filterHeight
	title := "Companies"
	var body string
	switch {
	case !c.searched:
		body = bg.Render("Press e to enter a keyword or industry, then enter", styles.MutedText)
	case st.Loading && len(st.Items) == 0:
		body = bg.Render("loading…", styles.WarningText)
	case st.Err != nil:
		body = bg.Render("search failed, r to retry", styles.DangerText)
	case len(st.Items) == 0:
		body = bg.Render("no companies match", styles.MutedText)
	default:
		title = fmt.Sprintf("Companies · page %d/%d · %d total · %d per page", st.CurrentPage, max(st.TotalPages(), 1), st.Total, st.PageSize)
		cols := []column{{title: "Code", width: 8}, {title: "Name", width: 12}, {title: "Industry", width: 14}}
		extra := companyColumns(st.Items)
		if len(extra) > 3 {
			extra = extra[:3]
		}
		for _, k := range extra {
			cols = append(cols, column{title: k})
		}
		rows := make([][]cell, len(st.Items))
		for i, co := range st.Items {
			row := []cell{plain(co.Code()), plain(co.Name()), styled(co.Industry(), styles.MutedText)}
			for _, k := range extra {
				row = append(row, plain(api.FormatValue(co[k])))
			}
			rows[i] = row
		}
		body = m.renderTable(cols, rows, c.selected, m.width-2, bodyHeight-2, m.theme.FocusBg)
	}
	return top + "\n" + m.renderTitledBox(title, body, m.width, bodyHeight, !c.fields.Editing())
}
