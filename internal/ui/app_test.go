package ui

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/tickerdeck/internal/api"
	"github.com/five82/tickerdeck/internal/notify"
	"github.com/five82/tickerdeck/internal/session"
)

func newTestModel(t *testing.T, baseURL string, withAuth bool) Model {
	t.Helper()
	sess, err := session.Open(&session.MemoryStore{}, zerolog.Nop())
	require.NoError(t, err)
	client, err := api.NewClient(baseURL, api.WithCredentials(sess))
	require.NoError(t, err)

	opts := Options{Client: client, PrefsPath: t.TempDir() + "/prefs.toml", Notices: notify.NewCenter(time.Minute, zerolog.Nop())}
	if withAuth {
		opts.Auth = session.NewAuth(sess, client, zerolog.Nop())
	}
	m := New(opts)
	t.Cleanup(m.search.searcher.Close)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(Model)
}

// nextSession waits for the next session change and applies it.
func nextSession(t *testing.T, m Model) Model {
	t.Helper()
	updated, _ := m.Update(waitForSession(m.sessionCh, m.auth.Session())())
	return updated.(Model)
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		var updated tea.Model
		updated, cmd = m.Update(msg)
		m = updated.(Model)
	}
	return m, cmd
}

func TestViewSwitchingAndHelp(t *testing.T) {
	m := newTestModel(t, "http://127.0.0.1:1/api", false)
	require.Nil(t, m.modal, "no sign-in dialog without session actions")
	assert.Equal(t, ViewMarket, m.currentView)

	m, _ = press(t, m, "2")
	assert.Equal(t, ViewHistory, m.currentView)
	m, _ = press(t, m, "tab")
	assert.Equal(t, ViewSearch, m.currentView)
	assert.True(t, m.search.fields.Editing(), "entering search focuses the input")

	m, _ = press(t, m, "esc", "5")
	assert.Equal(t, ViewProfile, m.currentView)

	m, _ = press(t, m, "?")
	assert.True(t, m.showHelp)
	m, _ = press(t, m, "x")
	assert.False(t, m.showHelp)
	assert.Equal(t, ViewProfile, m.currentView, "closing help swallows the key")

	_, cmd := press(t, m, "q")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestEditingKeepsGlobalKeys(t *testing.T) {
	m := newTestModel(t, "http://127.0.0.1:1/api", false)
	m, _ = press(t, m, "3", "q", "2")

	assert.Equal(t, ViewSearch, m.currentView)
	assert.Equal(t, "q2", m.search.fields.Value("query"))
}

func TestSignedOutStartOpensLoginAndSignsIn(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/auth/login", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"access_token": "tok-1", "token_type": "bearer"})
	})
	router.GET("/api/users/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"username": "alice", "nickname": "Al"}})
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	m := newTestModel(t, server.URL+"/api", true)
	require.IsType(t, loginModal{}, m.modal)
	assert.Contains(t, m.View(), "Sign in")

	m, _ = press(t, m, "alice", "tab", "secret")
	m, cmd := press(t, m, "enter")
	require.NotNil(t, cmd)

	updated, _ := m.Update(cmd())
	m = updated.(Model)
	assert.Nil(t, m.modal)

	m = nextSession(t, m)
	for !m.session.HasUser {
		m = nextSession(t, m)
	}
	assert.True(t, m.session.SignedIn)
	assert.Equal(t, "Al", m.session.User.DisplayName())
	assert.Contains(t, m.renderHeader(), "Al")
}

func TestSessionLossReopensLogin(t *testing.T) {
	m := newTestModel(t, "http://127.0.0.1:1/api", true)
	m, _ = press(t, m, "esc")
	require.Nil(t, m.modal, "esc dismisses the dialog")

	updated, _ := m.Update(sessionMsg(session.State{SignedIn: true, HasUser: true, User: api.User{Username: "bob"}}))
	m = updated.(Model)
	require.Nil(t, m.modal)

	updated, _ = m.Update(sessionMsg(session.State{}))
	m = updated.(Model)
	login, ok := m.modal.(loginModal)
	require.True(t, ok)
	assert.Equal(t, "bob", login.inner.fields.Value("username"))
}

func TestSessionChangeSurvivesBusyEventQueue(t *testing.T) {
	m := newTestModel(t, "http://127.0.0.1:1/api", true)
	m, _ = press(t, m, "esc")
	sess := m.auth.Session()

	require.NoError(t, sess.SetToken("tok"))
	m = nextSession(t, m)
	require.True(t, m.session.SignedIn)

	for len(m.events) < cap(m.events) {
		post(m.events, searchDoneMsg{})
	}
	for range 5 {
		sess.SetUser(api.User{Username: "bob"})
	}
	require.NoError(t, sess.Clear())

	m = nextSession(t, m)
	assert.False(t, m.session.SignedIn)
	assert.False(t, m.session.HasUser)
	assert.IsType(t, loginModal{}, m.modal)
}

func TestViewString(t *testing.T) {
	assert.Equal(t, "Companies", ViewCompanies.String())
	assert.Equal(t, "Unknown", View(42).String())
}
