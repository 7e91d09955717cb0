package ui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/tickerdeck/internal/form"
)

// Modal is the interface for modal dialogs.
// Update returns the updated modal, a command, and whether the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

// formResultMsg reports a settled form submission.
type formResultMsg struct {
	id     string
	fields map[string]string
	err    error
}

// submitCmd runs f.Submit off the UI goroutine.
func submitCmd[T, R any](ctx context.Context, id string, f *form.Form[T, R]) tea.Cmd {
	return func() tea.Msg {
		_, err := f.Submit(ctx)
		return formResultMsg{id: id, fields: f.FieldErrors(), err: err}
	}
}

// formModal edits a fieldSet and submits it through a form.
type formModal struct {
	id      string
	title   string
	hint    string
	fields  fieldSet
	submit  func(fieldSet) tea.Cmd
	errs    map[string]string
	busy    bool
	failure string
}

func newFormModal(id, title string, fields fieldSet, submit func(fieldSet) tea.Cmd) formModal {
	fields.Focus(0)
	return formModal{id: id, title: title, fields: fields, submit: submit}
}

// Update implements Modal.
func (d formModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case formResultMsg:
		if msg.id != d.id {
			return d, nil, false
		}
		d.busy = false
		switch {
		case msg.err == nil:
			return d, nil, true
		case errors.Is(msg.err, form.ErrInvalid):
			d.errs = msg.fields
			d.failure = ""
		case errors.Is(msg.err, form.ErrBusy):
		default:
			d.errs = nil
			d.failure = msg.err.Error()
		}
		return d, nil, false

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Escape):
			return d, nil, true
		case key.Matches(msg, keys.Confirm):
			if d.busy || d.submit == nil {
				return d, nil, false
			}
			d.busy = true
			d.failure = ""
			return d, d.submit(d.fields), false
		case key.Matches(msg, keys.PrevField):
			return d, d.fields.Prev(), false
		case key.Matches(msg, keys.NextField):
			return d, d.fields.Next(), false
		}
		cmd, _ := d.fields.Update(msg)
		return d, cmd, false
	}
	return d, nil, false
}

// View implements Modal.
func (d formModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	bg := NewBgStyle(theme.Surface)
	body := d.fields.View(styles.WithBackground(theme.Surface), bg, modalWidth(width)-6, d.errs)
	return renderModal(theme, width, height, d.title, d.hint, body, d.status(styles))
}

func (d formModal) status(styles Styles) string {
	switch {
	case d.busy:
		return styles.WarningText.Render("submitting…")
	case d.failure != "":
		return styles.DangerText.Render(truncate(d.failure, 60))
	default:
		return styles.FaintText.Render("enter submit • tab next field • esc cancel")
	}
}

// loginMode selects the fields of the sign-in dialog.
type loginMode int

const (
	modeLogin loginMode = iota
	modeRegister
)

// loginModal signs in or registers. Registering switches back to sign-in
// with the username kept.
type loginModal struct {
	mode   loginMode
	inner  formModal
	login  func(fieldSet) tea.Cmd
	signup func(fieldSet) tea.Cmd
	notice string
}

func newLoginModal(login, signup func(fieldSet) tea.Cmd) loginModal {
	d := loginModal{login: login, signup: signup}
	d.setMode(modeLogin, "")
	return d
}

func (d *loginModal) setMode(mode loginMode, username string) {
	d.mode = mode
	specs := []fieldSpec{
		{key: "username", label: "Username", placeholder: "3-50 characters", limit: 50},
		{key: "password", label: "Password", secret: true, limit: 128},
	}
	id, title, submit := "login", "Sign in", d.login
	if mode == modeRegister {
		specs = append(specs, fieldSpec{key: "confirm", label: "Confirm", secret: true, limit: 128})
		id, title, submit = "register", "Create account", d.signup
	}
	fields := newFieldSet(specs...)
	fields.SetValue("username", username)
	d.inner = newFormModal(id, title, fields, submit)
	if username != "" {
		d.inner.fields.Focus(1)
	}
	d.inner.hint = "ctrl+r switches between sign in and register"
}

// Update implements Modal.
func (d loginModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	if k, ok := msg.(tea.KeyMsg); ok && key.Matches(k, keys.ToggleMode) && !d.inner.busy {
		next := modeRegister
		if d.mode == modeRegister {
			next = modeLogin
		}
		d.setMode(next, strings.TrimSpace(d.inner.fields.Value("username")))
		d.notice = ""
		return d, nil, false
	}
	if res, ok := msg.(formResultMsg); ok && res.id == "register" && res.err == nil {
		username := strings.TrimSpace(d.inner.fields.Value("username"))
		d.setMode(modeLogin, username)
		d.notice = "account created, sign in to continue"
		return d, nil, false
	}
	updated, cmd, done := d.inner.Update(msg, keys)
	d.inner = updated.(formModal)
	return d, cmd, done
}

// View implements Modal.
func (d loginModal) View(theme Theme, width, height int) string {
	if d.notice != "" && !d.inner.busy && d.inner.failure == "" {
		styles := theme.Styles()
		bg := NewBgStyle(theme.Surface)
		body := d.inner.fields.View(styles.WithBackground(theme.Surface), bg, modalWidth(width)-6, d.inner.errs)
		return renderModal(theme, width, height, d.inner.title, d.inner.hint, body, styles.SuccessText.Render(d.notice))
	}
	return d.inner.View(theme, width, height)
}

func modalWidth(width int) int {
	return min(max(width-8, 30), 64)
}

// renderModal centers a rounded dialog over the screen.
func renderModal(theme Theme, width, height int, title, hint, body, status string) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(title))
	b.WriteString("\n")
	if hint != "" {
		b.WriteString(styles.FaintText.Render(hint))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(body)
	b.WriteString("\n\n")
	b.WriteString(status)

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Accent)).
		Background(lipgloss.Color(theme.Surface)).
		Padding(1, 2).
		Width(modalWidth(width)).
		Render(b.String())

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		box,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}
