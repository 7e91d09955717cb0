package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/tickerdeck/internal/api"
	"github.com/five82/tickerdeck/internal/form"
	"github.com/five82/tickerdeck/internal/notify"
	"github.com/five82/tickerdeck/internal/session"
)

// registerValues adds the confirmation field the backend never sees.
type registerValues struct {
	api.RegisterRequest
	Confirm string `json:"confirm"`
}

type passwordValues struct {
	api.PasswordChange
	Confirm string `json:"confirm"`
}

// formSet holds the account forms. Each keeps its own submission state.
type formSet struct {
	login    *form.Form[api.LoginRequest, struct{}]
	register *form.Form[registerValues, struct{}]
	profile  *form.Form[api.ProfileUpdate, api.User]
	avatar   *form.Form[api.AvatarUpdate, api.User]
	password *form.Form[passwordValues, struct{}]
}

func confirmMatches(password, confirm string) map[string]string {
	if password != confirm {
		return map[string]string{"confirm": "does not match"}
	}
	return nil
}

func newFormSet(client *api.Client, auth *session.Auth, notifier notify.Notifier) formSet {
	setUser := func(u api.User) { auth.Session().SetUser(u) }
	return formSet{
		login: form.New(form.Options[api.LoginRequest, struct{}]{
			Notifier:       notifier,
			SuccessMessage: "signed in",
			FailureMessage: "sign in failed, please retry",
			Submit: func(ctx context.Context, v api.LoginRequest) (struct{}, error) {
				return struct{}{}, auth.Login(ctx, v.Username, v.Password)
			},
		}),
		register: form.New(form.Options[registerValues, struct{}]{
			Notifier:       notifier,
			SuccessMessage: "account created",
			FailureMessage: "registration failed, please retry",
			Validate:       func(v registerValues) map[string]string { return confirmMatches(v.Password, v.Confirm) },
			Submit: func(ctx context.Context, v registerValues) (struct{}, error) {
				return struct{}{}, auth.Register(ctx, v.Username, v.Password)
			},
		}),
		profile: form.New(form.Options[api.ProfileUpdate, api.User]{
			Notifier:       notifier,
			SuccessMessage: "profile updated",
			OnSuccess:      setUser,
			Submit:         client.UpdateProfile,
		}),
		avatar: form.New(form.Options[api.AvatarUpdate, api.User]{
			Notifier:       notifier,
			SuccessMessage: "avatar updated",
			OnSuccess:      setUser,
			Submit:         client.UpdateAvatar,
		}),
		password: form.New(form.Options[passwordValues, struct{}]{
			Notifier:       notifier,
			SuccessMessage: "password changed",
			Validate:       func(v passwordValues) map[string]string { return confirmMatches(v.NewPassword, v.Confirm) },
			Submit: func(ctx context.Context, v passwordValues) (struct{}, error) {
				return struct{}{}, client.ChangePassword(ctx, v.PasswordChange)
			},
		}),
	}
}

type userMsg struct{ err error }

type logoutMsg struct{ err error }

func fetchUserCmd(ctx context.Context, auth *session.Auth) tea.Cmd {
	return func() tea.Msg {
		return userMsg{err: auth.FetchUser(ctx)}
	}
}

func logoutCmd(auth *session.Auth) tea.Cmd {
	return func() tea.Msg {
		return logoutMsg{err: auth.Logout()}
	}
}

func (m Model) loginDialog(username string) loginModal {
	f, ctx := m.forms, m.ctx
	f.login.Reset()
	f.register.Reset()
	d := newLoginModal(
		func(fs fieldSet) tea.Cmd {
			f.login.Update(func(v *api.LoginRequest) {
				*v = api.LoginRequest{Username: strings.TrimSpace(fs.Value("username")), Password: fs.Value("password")}
			})
			return submitCmd(ctx, "login", f.login)
		},
		func(fs fieldSet) tea.Cmd {
			f.register.Update(func(v *registerValues) {
				v.Username = strings.TrimSpace(fs.Value("username"))
				v.Password = fs.Value("password")
				v.Confirm = fs.Value("confirm")
			})
			return submitCmd(ctx, "register", f.register)
		},
	)
	if username != "" {
		d.setMode(modeLogin, username)
	}
	return d
}

func (m Model) profileDialog() formModal {
	f, ctx := m.forms.profile, m.ctx
	f.Reset()
	u := m.session.User
	fields := newFieldSet(
		fieldSpec{key: "nickname", label: "Nickname", limit: 50},
		fieldSpec{key: "phone", label: "Phone", limit: 20},
		fieldSpec{key: "email", label: "Email", limit: 100},
		fieldSpec{key: "signature", label: "Signature", limit: 200},
	)
	fields.SetValue("nickname", u.Nickname)
	fields.SetValue("phone", u.Phone)
	fields.SetValue("email", u.Email)
	fields.SetValue("signature", u.Signature)
	return newFormModal("profile", "Edit profile", fields, func(fs fieldSet) tea.Cmd {
		f.Update(func(v *api.ProfileUpdate) {
			*v = api.ProfileUpdate{
				Nickname:  strings.TrimSpace(fs.Value("nickname")),
				Phone:     strings.TrimSpace(fs.Value("phone")),
				Email:     strings.TrimSpace(fs.Value("email")),
				Signature: strings.TrimSpace(fs.Value("signature")),
			}
		})
		return submitCmd(ctx, "profile", f)
	})
}

func (m Model) avatarDialog() formModal {
	f, ctx := m.forms.avatar, m.ctx
	f.Reset()
	fields := newFieldSet(fieldSpec{key: "avatar", label: "Avatar URL", placeholder: "https://…", limit: 500})
	fields.SetValue("avatar", m.session.User.Avatar)
	return newFormModal("avatar", "Change avatar", fields, func(fs fieldSet) tea.Cmd {
		f.Update(func(v *api.AvatarUpdate) { v.Avatar = strings.TrimSpace(fs.Value("avatar")) })
		return submitCmd(ctx, "avatar", f)
	})
}

func (m Model) passwordDialog() formModal {
	f, ctx := m.forms.password, m.ctx
	f.Reset()
	fields := newFieldSet(
		fieldSpec{key: "old_password", label: "Current", secret: true, limit: 128},
		fieldSpec{key: "new_password", label: "New", secret: true, limit: 128},
		fieldSpec{key: "confirm", label: "Confirm", secret: true, limit: 128},
	)
	return newFormModal("password", "Change password", fields, func(fs fieldSet) tea.Cmd {
		f.Update(func(v *passwordValues) {
			v.OldPassword = fs.Value("old_password")
			v.NewPassword = fs.Value("new_password")
			v.Confirm = fs.Value("confirm")
		})
		return submitCmd(ctx, "password", f)
	})
}

func (m Model) handleProfileKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !m.session.SignedIn {
		if key.Matches(msg, m.keys.Confirm) {
			m.modal = m.loginDialog(m.lastUsername)
		}
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Refresh):
		return m, fetchUserCmd(m.ctx, m.auth)
	case key.Matches(msg, m.keys.Edit):
		m.modal = m.profileDialog()
	case key.Matches(msg, m.keys.Password):
		m.modal = m.passwordDialog()
	case key.Matches(msg, m.keys.Avatar):
		m.modal = m.avatarDialog()
	}
	return m, nil
}

// renderProfile renders the signed-in user.
func (m Model) renderProfile() string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	bg := NewBgStyle(m.theme.FocusBg)
	height := m.contentHeight()

	if !m.session.SignedIn {
		body := bg.Render("Not signed in. Press enter or L to sign in.", styles.MutedText)
		return m.renderTitledBox("Profile", body, m.width, height, true)
	}
	if !m.session.HasUser {
		body := bg.Render("Loading user… (r to retry)", styles.WarningText)
		return m.renderTitledBox("Profile", body, m.width, height, true)
	}

	u := m.session.User
	rows := []struct{ label, value string }{
		{"Username", u.Username},
		{"Nickname", u.Nickname},
		{"Email", u.Email},
		{"Phone", u.Phone},
		{"Signature", u.Signature},
		{"Avatar", u.Avatar},
		{"Member since", u.CreatedAt},
	}
	if exp := m.session.ExpiresAt; !exp.IsZero() {
		rows = append(rows, struct{ label, value string }{"Session until", exp.In(time.Local).Format("2006-01-02 15:04")})
	}
	lines := make([]string, 0, len(rows)+2)
	for _, r := range rows {
		lines = append(lines, bg.Render(padRight(r.label, 14), styles.MutedText)+bg.Render(truncate(orDash(r.value), m.width-20), styles.Text))
	}
	lines = append(lines, "", bg.Join([]string{
		keyHint(bg, styles, "e", "edit profile"),
		keyHint(bg, styles, "p", "password"),
		keyHint(bg, styles, "A", "avatar"),
		keyHint(bg, styles, "r", "reload"),
		keyHint(bg, styles, "L", "sign out"),
	}, "  "))
	return m.renderTitledBox("Profile · "+u.DisplayName(), strings.Join(lines, "\n"), m.width, height, true)
}
