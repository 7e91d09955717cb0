package session

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/five82/tickerdeck/internal/api"
)

// ErrNoToken is returned when the backend accepted a login but sent no token.
var ErrNoToken = errors.New("login response carried no access token")

// State is a copy of the session visible to views.
type State struct {
	SignedIn  bool
	User      api.User
	HasUser   bool
	ExpiresAt time.Time // zero when the token carries no exp claim
}

// Session holds the authentication token and current user. It is created
// once per process and passed to whatever needs auth state. A user is only
// ever held alongside a token.
type Session struct {
	mu    sync.RWMutex
	token string
	user  *api.User
	exp   time.Time

	// writeMu orders each in-memory change with its store write, so the
	// stored token always matches the last change.
	writeMu sync.Mutex
	store   TokenStore
	log     zerolog.Logger
	now     func() time.Time

	subsMu sync.Mutex
	subs   []func(State)
}

// Ensure Session satisfies the request pipeline's credentials contract.
var _ api.Credentials = (*Session)(nil)

// Open restores the session from store. A token whose exp claim has already
// passed is discarded along with the stored copy.
func Open(store TokenStore, logger zerolog.Logger) (*Session, error) {
	if store == nil {
		store = &MemoryStore{}
	}
	s := &Session{store: store, log: logger, now: time.Now}

	token, err := store.Load()
	if err != nil {
		return nil, err
	}
	if token == "" {
		return s, nil
	}
	exp := tokenExpiry(token)
	if !exp.IsZero() && !s.now().Before(exp) {
		logger.Info().Time("expired_at", exp).Msg("stored token expired, discarding")
		if err := store.Clear(); err != nil {
			return nil, err
		}
		return s, nil
	}
	s.token = token
	s.exp = exp
	return s, nil
}

// Token returns the bearer token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	st := State{SignedIn: s.token != "", ExpiresAt: s.exp}
	if s.user != nil {
		st.User = *s.user
		st.HasUser = true
	}
	return st
}

// Expire clears the session after the backend rejected the token.
func (s *Session) Expire(reason string) {
	s.log.Info().Str("reason", reason).Msg("session expired")
	if err := s.Clear(); err != nil {
		s.log.Warn().Err(err).Msg("clear stored token")
	}
}

// Clear drops token and user and removes the stored token.
func (s *Session) Clear() error {
	s.writeMu.Lock()
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.exp = time.Time{}
	st := s.stateLocked()
	s.mu.Unlock()
	err := s.store.Clear()
	s.writeMu.Unlock()

	s.publish(st)
	return err
}

// SetToken installs a new token, persisting it, or removing the stored one
// when token is empty. Any previous user is dropped.
func (s *Session) SetToken(token string) error {
	if token == "" {
		return s.Clear()
	}
	s.writeMu.Lock()
	s.mu.Lock()
	s.token = token
	s.user = nil
	s.exp = tokenExpiry(token)
	st := s.stateLocked()
	s.mu.Unlock()
	err := s.store.Save(token)
	s.writeMu.Unlock()

	s.publish(st)
	return err
}

// SetUser records the current user. It is ignored while signed out.
func (s *Session) SetUser(user api.User) bool {
	s.mu.Lock()
	if s.token == "" {
		s.mu.Unlock()
		return false
	}
	u := user
	s.user = &u
	st := s.stateLocked()
	s.mu.Unlock()

	s.publish(st)
	return true
}

// Subscribe registers fn to be called after every change. fn runs on the
// goroutine that made the change and must not call back into Subscribe.
func (s *Session) Subscribe(fn func(State)) {
	if fn == nil {
		return
	}
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *Session) publish(st State) {
	s.subsMu.Lock()
	subs := slices.Clone(s.subs)
	s.subsMu.Unlock()
	for _, fn := range subs {
		fn(st)
	}
}

// tokenExpiry reads the exp claim without verifying the signature; the
// backend remains the authority on validity.
func tokenExpiry(token string) time.Time {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
