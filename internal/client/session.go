package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ailice/ailice/internal/token"
)

// LogoutRedirect is where the client navigates after logging out.
const LogoutRedirect = "/logreg"

// Session is the signed-in state shared by the client commands. It is built
// from the persisted token and is the only place that token is read or
// written.
type Session struct {
	store StateStore

	mu       sync.RWMutex
	identity token.Identity
	loggedIn bool
}

func NewSession(store StateStore) *Session {
	return &Session{store: store}
}

// Bootstrap restores the identity from the stored token. A missing or
// undecodable token leaves the session logged out without an error; only a
// failure to read the state file is reported.
func (s *Session) Bootstrap(ctx context.Context) error {
	tok, err := s.store.Get(ctx, TokenKey)
	if err != nil {
		if errors.Is(err, ErrNoValue) {
			return nil
		}
		return fmt.Errorf("read session token: %w", err)
	}
	if tok == "" {
		return nil
	}

	claims, err := token.DecodeUnverified(tok)
	if err != nil {
		return nil
	}
	id := claims.Identity()
	if id.Email == "" && id.Username == "" {
		return nil
	}

	s.mu.Lock()
	s.identity = id
	s.loggedIn = true
	s.mu.Unlock()
	return nil
}

// Start persists a token received from the server and signs the session in.
func (s *Session) Start(ctx context.Context, tok string) error {
	if err := s.store.Set(ctx, TokenKey, tok); err != nil {
		return fmt.Errorf("save session token: %w", err)
	}
	s.mu.Lock()
	s.identity = token.Identity{}
	s.loggedIn = false
	s.mu.Unlock()
	return s.Bootstrap(ctx)
}

// Logout clears the identity and the stored token and returns the screen to
// navigate to.
func (s *Session) Logout(ctx context.Context) (string, error) {
	s.mu.Lock()
	s.identity = token.Identity{}
	s.loggedIn = false
	s.mu.Unlock()

	if err := s.store.Delete(ctx, TokenKey); err != nil {
		return LogoutRedirect, fmt.Errorf("remove session token: %w", err)
	}
	return LogoutRedirect, nil
}

// Identity returns the displayed identity and whether the session is signed in.
func (s *Session) Identity() (token.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, s.loggedIn
}

// LoggedIn reports whether a usable token was restored.
func (s *Session) LoggedIn() bool {
	_, ok := s.Identity()
	return ok
}

// Token returns the raw stored token, or ErrNoValue.
func (s *Session) Token(ctx context.Context) (string, error) {
	return s.store.Get(ctx, TokenKey)
}

// Status renders the header line shown while signed in.
func (s *Session) Status() string {
	id, ok := s.Identity()
	if !ok {
		return "not logged in"
	}
	return fmt.Sprintf("Logged in as: %s (%s)", id.Email, id.Username)
}
