package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ailice/ailice/internal/events"
	"github.com/ailice/ailice/internal/store"
	"github.com/ailice/ailice/internal/token"
	"github.com/ailice/ailice/types"
	"github.com/rs/zerolog/log"
)

// LoginRedirect is where a client goes after a successful login.
const LoginRedirect = "/chat"

var (
	// ErrConfig is returned when the server cannot issue tokens.
	ErrConfig = errors.New("server is not configured to issue tokens")
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("email or password incorrect")
	// ErrUserExists is returned when the email or username is taken.
	ErrUserExists = errors.New("email or username already exists")
)

// UserStore hands out one user-collection connection per request.
type UserStore interface {
	Acquire(ctx context.Context) (store.UserConn, error)
}

// TokenIssuer signs and verifies session tokens.
type TokenIssuer interface {
	Configured() bool
	Issue(id token.Identity) (string, error)
	Verify(tokenString string) (token.Claims, error)
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	Token      string
	RedirectTo string
	User       types.User
}

// AuthService implements login and registration against the user store.
type AuthService struct {
	users     UserStore
	tokens    TokenIssuer
	passwords PasswordScheme
	events    events.Publisher
}

func NewAuthService(users UserStore, tokens TokenIssuer, passwords PasswordScheme, publisher events.Publisher) *AuthService {
	if passwords == nil {
		passwords = PlainPasswords{}
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		events:    publisher,
	}
}

// Login checks the credentials and issues a session token. The signing
// secret is checked before the store is touched.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if !s.tokens.Configured() {
		return LoginResult{}, ErrConfig
	}

	conn, err := s.users.Acquire(ctx)
	if err != nil {
		return LoginResult{}, err
	}
	defer release(conn)

	user, err := conn.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("find user: %w", err)
	}

	if !s.passwords.Matches(user.Password, password) {
		return LoginResult{}, ErrInvalidCredentials
	}

	tok, err := s.tokens.Issue(token.Identity{Email: user.Email, Username: user.Username})
	if err != nil {
		if errors.Is(err, token.ErrMissingSecret) {
			return LoginResult{}, ErrConfig
		}
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}

	s.publish(ctx, events.Event{
		Type:     events.TypeLoggedIn,
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
	})

	return LoginResult{Token: tok, RedirectTo: LoginRedirect, User: user}, nil
}

// Register inserts a new user and returns its id. The existence check and
// the insert are not atomic; the store's unique constraints catch the race
// and it surfaces as ErrUserExists as well.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (string, error) {
	conn, err := s.users.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release(conn)

	exists, err := conn.ExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		return "", fmt.Errorf("check user: %w", err)
	}
	if exists {
		return "", ErrUserExists
	}

	stored, err := s.passwords.Prepare(password)
	if err != nil {
		return "", fmt.Errorf("prepare password: %w", err)
	}

	id, err := conn.Insert(ctx, types.User{
		Username: username,
		Email:    email,
		Password: stored,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return "", ErrUserExists
		}
		return "", fmt.Errorf("insert user: %w", err)
	}

	s.publish(ctx, events.Event{
		Type:     events.TypeRegistered,
		UserID:   id,
		Email:    email,
		Username: username,
	})

	return id, nil
}

// Authenticate verifies a token presented to a protected endpoint.
func (s *AuthService) Authenticate(tokenString string) (token.Claims, error) {
	claims, err := s.tokens.Verify(tokenString)
	if err != nil {
		if errors.Is(err, token.ErrMissingSecret) {
			return token.Claims{}, ErrConfig
		}
		return token.Claims{}, err
	}
	return claims, nil
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if err := s.events.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Str("event", event.Type).Msg("failed to publish account event")
	}
}

func release(conn store.UserConn) {
	if err := conn.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to release user store connection")
	}
}
