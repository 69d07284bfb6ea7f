// Package token issues and reads the signed session tokens handed out on login.
package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the fixed lifetime of a session token.
const DefaultTTL = time.Hour

var (
	// ErrMissingSecret is returned when no signing secret is configured.
	ErrMissingSecret = errors.New("token signing secret is not configured")
	// ErrInvalidToken is returned for tokens that cannot be parsed or verified.
	ErrInvalidToken = errors.New("invalid token")
)

// Identity is the pair of identity fields carried in a session token.
type Identity struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Claims is the full token payload.
type Claims struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Identity returns the identity part of the claims.
func (c Claims) Identity() Identity {
	return Identity{Email: c.Email, Username: c.Username}
}

// Issuer signs and verifies session tokens with an HMAC secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer constructs an Issuer. An empty secret is allowed; Issue and
// Verify then fail with ErrMissingSecret.
func NewIssuer(secret string) *Issuer {
	return &Issuer{
		secret: []byte(strings.TrimSpace(secret)),
		ttl:    DefaultTTL,
		now:    time.Now,
	}
}

// Configured reports whether a signing secret is present.
func (i *Issuer) Configured() bool {
	return len(i.secret) > 0
}

// Issue signs a token for the identity, valid for one hour from now.
func (i *Issuer) Issue(id Identity) (string, error) {
	if !i.Configured() {
		return "", ErrMissingSecret
	}
	now := i.now()
	claims := Claims{
		Email:    id.Email,
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Verify checks signature, signing method and expiry and returns the claims.
func (i *Issuer) Verify(tokenString string) (Claims, error) {
	if !i.Configured() {
		return Claims{}, ErrMissingSecret
	}
	claims := Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	token, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Email) == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// DecodeUnverified extracts the claims without checking the signature or
// expiry. Only for display on the client that received the token directly
// from the server; never use it to authorize anything.
func DecodeUnverified(tokenString string) (Claims, error) {
	claims := Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(strings.TrimSpace(tokenString), &claims); err != nil {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
