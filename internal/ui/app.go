package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/five82/tickerdeck/internal/api"
	"github.com/five82/tickerdeck/internal/config"
	"github.com/five82/tickerdeck/internal/notify"
	"github.com/five82/tickerdeck/internal/prefs"
	"github.com/five82/tickerdeck/internal/session"
	"github.com/five82/tickerdeck/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewMarket View = iota
	ViewHistory
	ViewSearch
	ViewCompanies
	ViewProfile
	ViewLogs
)

var viewNames = [...]string{"Market", "History", "Search", "Companies", "Profile", "Logs"}

func (v View) String() string {
	if v < 0 || int(v) >= len(viewNames) {
		return "Unknown"
	}
	return viewNames[v]
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Client    *api.Client
	Auth      *session.Auth
	Store     *state.Store
	Notices   *notify.Center
	Config    *config.Config
	Prefs     prefs.Prefs
	PrefsPath string
	ExportDir string
	Logger    zerolog.Logger
	PollTick  time.Duration
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	client    *api.Client
	auth      *session.Auth
	store     *state.Store
	notices   *notify.Center
	config    *config.Config
	prefs     prefs.Prefs
	prefsPath string
	exportDir string
	log       zerolog.Logger
	pollTick  time.Duration
	keys      keyMap
	events    chan tea.Msg
	sessionCh chan struct{}

	// UI state
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool
	modal       Modal

	// Data state
	session      session.State
	lastUsername string
	snapshot     state.Snapshot
	active       []notify.Notice

	// Views
	market    marketState
	history   historyState
	search    searchState
	companies companiesState
	logs      logState

	logViewport viewport.Model
	forms       formSet
}

type (
	tickMsg     time.Time
	snapshotMsg state.Snapshot
	noticeMsg   notify.Notice
	sessionMsg  session.State
)

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = DefaultUIInterval
	}

	cfg := opts.Config
	if cfg == nil {
		defaults := config.Defaults()
		cfg = &defaults
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	p := opts.Prefs
	if p.HistorySource == "" {
		p.HistorySource = prefs.Defaults().HistorySource
	}
	pageSize := p.PageSize
	if pageSize <= 0 {
		pageSize = cfg.PageSize
	}

	m := Model{
		ctx:         ctx,
		client:      opts.Client,
		auth:        opts.Auth,
		store:       opts.Store,
		notices:     opts.Notices,
		config:      cfg,
		prefs:       p,
		prefsPath:   prefsPath,
		exportDir:   opts.ExportDir,
		log:         opts.Logger,
		pollTick:    pollTick,
		keys:        DefaultKeyMap(),
		events:      make(chan tea.Msg, 16),
		sessionCh:   make(chan struct{}, 1),
		theme:       GetTheme(p.Theme),
		currentView: ViewMarket,
		logs:        newLogState(cfg.LogPath()),
	}
	notifier := m.notifier()
	m.history = newHistoryState(ctx, m.client, notifier, pageSize, p.HistorySource, p.HistoryAdjust, time.Now())
	m.search = newSearchState(m.client, notifier, cfg.SearchDebounce, cfg.SearchMinLength, m.events)
	m.companies = newCompaniesState(ctx, m.client, notifier, pageSize)

	if m.auth != nil {
		m.forms = newFormSet(m.client, m.auth, notifier)
		sess := m.auth.Session()
		m.session = sess.State()
		changed := m.sessionCh
		sess.Subscribe(func(session.State) { signal(changed) })
	}
	if m.session.HasUser {
		m.lastUsername = m.session.User.Username
	}
	if m.store != nil {
		m.snapshot = m.store.Snapshot()
	}
	if m.auth != nil && !m.session.SignedIn {
		m.modal = m.loginDialog("")
	}
	return m
}

// notifier returns where views send their notices.
func (m Model) notifier() notify.Notifier {
	if m.notices == nil {
		return notify.Discard
	}
	return m.notices
}

func (m Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	m.prefs.Theme = m.theme.Name
	if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
		m.log.Warn().Err(err).Str("path", m.prefsPath).Msg("save preferences failed")
	}
}

// contentHeight is the height left for the active view.
func (m Model) contentHeight() int {
	return max(m.height-chromeHeight, 1)
}

// post delivers msg to the UI without blocking the sender. Messages are
// dropped while the buffer is full.
func post(ch chan<- tea.Msg, msg tea.Msg) {
	select {
	case ch <- msg:
	default:
	}
}

// signal marks ch pending. Repeated signals before a receive collapse into
// one; the receiver reads the current state.
func signal(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func waitForSession(ch <-chan struct{}, sess *session.Session) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return sessionMsg(sess.State())
	}
}

func waitForEvent(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

func waitForNotice(ch <-chan notify.Notice) tea.Cmd {
	return func() tea.Msg {
		return noticeMsg(<-ch)
	}
}

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		tickCmd(m.pollTick),
		waitForEvent(m.events),
	}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.notices != nil {
		cmds = append(cmds, waitForNotice(m.notices.C()))
	}
	if m.auth != nil {
		cmds = append(cmds, waitForSession(m.sessionCh, m.auth.Session()))
		if m.session.SignedIn && !m.session.HasUser {
			cmds = append(cmds, fetchUserCmd(m.ctx, m.auth))
		}
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.logViewport = viewport.New(m.width, m.contentHeight()-3)
		}
		m.ready = true
		m.updateLogViewport()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		return m, nil

	case noticeMsg:
		if m.notices == nil {
			return m, nil
		}
		m.active = m.notices.Active()
		return m, waitForNotice(m.notices.C())

	case sessionMsg:
		return m.handleSession(session.State(msg))

	case searchDoneMsg:
		return m, waitForEvent(m.events)

	case formResultMsg:
		return m.handleFormResult(msg)

	case summaryMsg:
		return m.handleSummary(msg), nil

	case profileMsg:
		return m.handleProfile(msg), nil

	case pageMsg:
		return m, nil

	case exportMsg:
		return m.handleExport(msg), nil

	case userMsg:
		if msg.err != nil {
			m.log.Debug().Err(msg.err).Msg("fetch user failed")
		}
		return m, nil

	case logoutMsg:
		if msg.err != nil {
			m.log.Warn().Err(msg.err).Msg("clear stored token failed")
		}
		m.notifier().Notify(notify.Info, "signed out")
		return m, nil

	case logLinesMsg:
		m.handleLogLines(msg)
		return m, nil
	}

	return m, nil
}

// handleSession applies a session change. Losing the session while signed
// in, by logout or by an expired token, asks for credentials again.
func (m Model) handleSession(st session.State) (tea.Model, tea.Cmd) {
	wasSignedIn := m.session.SignedIn
	m.session = st
	if st.HasUser {
		m.lastUsername = st.User.Username
	}
	var cmds []tea.Cmd
	if m.auth != nil {
		cmds = append(cmds, waitForSession(m.sessionCh, m.auth.Session()))
	}
	switch {
	case wasSignedIn && !st.SignedIn && m.modal == nil:
		m.modal = m.loginDialog(m.lastUsername)
	case !wasSignedIn && st.SignedIn && !st.HasUser:
		cmds = append(cmds, fetchUserCmd(m.ctx, m.auth))
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleFormResult(msg formResultMsg) (tea.Model, tea.Cmd) {
	if msg.id == "history" {
		return m.handleHistoryResult(msg)
	}
	if m.modal == nil {
		return m, nil
	}
	updated, cmd, done := m.modal.Update(msg, m.keys)
	if done {
		m.modal = nil
	} else {
		m.modal = updated
	}
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}

	return m.renderMain()
}

// editing reports whether the active view is capturing text input.
func (m Model) editing() bool {
	switch m.currentView {
	case ViewHistory:
		return m.history.fields.Editing()
	case ViewSearch:
		return m.search.fields.Editing()
	case ViewCompanies:
		return m.companies.fields.Editing()
	case ViewLogs:
		return m.logs.searchActive
	}
	return false
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	if m.modal != nil {
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		updated, cmd, done := m.modal.Update(msg, m.keys)
		if done {
			m.modal = nil
		} else {
			m.modal = updated
		}
		return m, cmd
	}

	if m.editing() {
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m.handleViewKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.Account):
		if m.auth == nil {
			return m, nil
		}
		if m.session.SignedIn {
			return m, logoutCmd(m.auth)
		}
		m.modal = m.loginDialog(m.lastUsername)
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		return m.switchView((m.currentView + 1) % View(len(viewNames)))

	case key.Matches(msg, m.keys.ShiftTab):
		return m.switchView((m.currentView + View(len(viewNames)) - 1) % View(len(viewNames)))

	case key.Matches(msg, m.keys.ViewMarket):
		return m.switchView(ViewMarket)
	case key.Matches(msg, m.keys.ViewHistory):
		return m.switchView(ViewHistory)
	case key.Matches(msg, m.keys.ViewSearch):
		return m.switchView(ViewSearch)
	case key.Matches(msg, m.keys.ViewCompanies):
		return m.switchView(ViewCompanies)
	case key.Matches(msg, m.keys.ViewProfile):
		return m.switchView(ViewProfile)
	case key.Matches(msg, m.keys.ViewLogs):
		return m.switchView(ViewLogs)
	}

	return m.handleViewKey(msg)
}

func (m Model) handleViewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.currentView {
	case ViewMarket:
		return m.handleMarketKey(msg)
	case ViewHistory:
		return m.handleHistoryKey(msg)
	case ViewSearch:
		return m.handleSearchKey(msg)
	case ViewCompanies:
		return m.handleCompaniesKey(msg)
	case ViewProfile:
		return m.handleProfileKey(msg)
	case ViewLogs:
		return m.handleLogsKey(msg)
	}
	return m, nil
}

func (m Model) switchView(v View) (tea.Model, tea.Cmd) {
	m.currentView = v
	switch v {
	case ViewSearch:
		return m, m.search.fields.Focus(0)
	case ViewLogs:
		m.updateLogViewport()
		return m, m.refreshLogs(true)
	}
	return m, nil
}

// handleTick processes the UI refresh tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.notices != nil {
		m.active = m.notices.Active()
	}
	if m.currentView == ViewLogs && m.logs.follow {
		if cmd := m.refreshLogs(false); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	cmds = append(cmds, tickCmd(m.pollTick))
	return m, tea.Batch(cmds...)
}

// renderMain renders the header, command bar, active view and footer.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderContent() string {
	switch m.currentView {
	case ViewHistory:
		return m.renderHistory()
	case ViewSearch:
		return m.renderSearch()
	case ViewCompanies:
		return m.renderCompanies()
	case ViewProfile:
		return m.renderProfile()
	case ViewLogs:
		return m.renderLogs()
	default:
		return m.renderMarket()
	}
}

// Run starts the Bubble Tea program and blocks until it exits.
func Run(opts Options) error {
	m := New(opts)
	defer m.search.searcher.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if err != nil && m.ctx.Err() != nil {
		return nil
	}
	return err
}
