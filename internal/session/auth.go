package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/five82/tickerdeck/internal/api"
)

// Backend is the subset of the API the session actions need. *api.Client
// implements it.
type Backend interface {
	Login(ctx context.Context, req api.LoginRequest) (api.Token, error)
	Register(ctx context.Context, req api.RegisterRequest) error
	CurrentUser(ctx context.Context) (api.User, error)
}

var _ Backend = (*api.Client)(nil)

// Auth runs login, registration, user refresh and logout against a Session.
type Auth struct {
	session *Session
	backend Backend
	log     zerolog.Logger
}

// NewAuth binds session actions to a backend.
func NewAuth(session *Session, backend Backend, logger zerolog.Logger) *Auth {
	return &Auth{session: session, backend: backend, log: logger}
}

// Session returns the session the actions mutate.
func (a *Auth) Session() *Session {
	return a.session
}

// Login exchanges credentials for a token, stores it and loads the user.
func (a *Auth) Login(ctx context.Context, username, password string) error {
	token, err := a.backend.Login(ctx, api.LoginRequest{Username: strings.TrimSpace(username), Password: password})
	if err != nil {
		return err
	}
	if err := a.session.SetToken(strings.TrimSpace(token.AccessToken)); err != nil {
		a.log.Warn().Err(err).Msg("persist token")
	}
	if a.session.Token() == "" {
		return ErrNoToken
	}
	a.log.Info().Str("username", username).Msg("signed in")
	return a.FetchUser(ctx)
}

// Register creates an account without signing in.
func (a *Auth) Register(ctx context.Context, username, password string) error {
	return a.backend.Register(ctx, api.RegisterRequest{Username: strings.TrimSpace(username), Password: password})
}

// FetchUser loads the current user. It does nothing while signed out, and
// any failure is treated as an invalid token and signs out.
func (a *Auth) FetchUser(ctx context.Context) error {
	if a.session.Token() == "" {
		return nil
	}
	user, err := a.backend.CurrentUser(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("fetch current user failed, signing out")
		if clearErr := a.session.Clear(); clearErr != nil {
			a.log.Warn().Err(clearErr).Msg("clear stored token")
		}
		return fmt.Errorf("fetch current user: %w", err)
	}
	a.session.SetUser(user)
	return nil
}

// Logout clears the session and the stored token.
func (a *Auth) Logout() error {
	a.log.Info().Msg("signed out")
	return a.session.Clear()
}
