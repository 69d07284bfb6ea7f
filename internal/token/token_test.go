package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueDecodeRoundTrip(t *testing.T) {
	issuer := NewIssuer("secret")
	ids := []Identity{
		{Email: "a@x.com", Username: "al"},
		{Email: "ÜNICODE@example.org", Username: "名前"},
		{Email: "", Username: ""},
		{Email: "with space@x", Username: "a b c"},
	}
	for _, id := range ids {
		tok, err := issuer.Issue(id)
		require.NoError(t, err)

		claims, err := DecodeUnverified(tok)
		require.NoError(t, err)
		assert.Equal(t, id, claims.Identity())
	}
}

func TestIssueExpiresInOneHour(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	issuer := NewIssuer("secret")
	issuer.now = func() time.Time { return now }

	tok, err := issuer.Issue(Identity{Email: "a@x.com", Username: "al"})
	require.NoError(t, err)

	claims, err := DecodeUnverified(tok)
	require.NoError(t, err)
	require.NotNil(t, claims.ExpiresAt)
	require.NotNil(t, claims.IssuedAt)
	assert.Equal(t, now.Add(time.Hour), claims.ExpiresAt.Time.UTC())
	assert.Equal(t, now, claims.IssuedAt.Time.UTC())
}

func TestIssueWithoutSecret(t *testing.T) {
	issuer := NewIssuer("   ")
	assert.False(t, issuer.Configured())

	_, err := issuer.Issue(Identity{Email: "a@x.com"})
	assert.ErrorIs(t, err, ErrMissingSecret)

	_, err = issuer.Verify("anything")
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestVerify(t *testing.T) {
	issuer := NewIssuer("secret")
	tok, err := issuer.Issue(Identity{Email: "a@x.com", Username: "al"})
	require.NoError(t, err)

	claims, err := issuer.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, Identity{Email: "a@x.com", Username: "al"}, claims.Identity())
}

func TestVerifyRejectsOtherSecret(t *testing.T) {
	tok, err := NewIssuer("other").Issue(Identity{Email: "a@x.com", Username: "al"})
	require.NoError(t, err)

	_, err = NewIssuer("secret").Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	issuer := NewIssuer("secret")
	issued := time.Now().Add(-2 * time.Hour)
	issuer.now = func() time.Time { return issued }
	tok, err := issuer.Issue(Identity{Email: "a@x.com", Username: "al"})
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Display decoding still works for an expired token.
	claims, err := DecodeUnverified(tok)
	require.NoError(t, err)
	assert.Equal(t, "al", claims.Username)
}

func TestVerifyRejectsUnsignedToken(t *testing.T) {
	claims := Claims{
		Email:    "a@x.com",
		Username: "al",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewIssuer("secret").Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDecodeUnverifiedGarbage(t *testing.T) {
	for _, in := range []string{"", "not-a-token", "a.b.c"} {
		_, err := DecodeUnverified(in)
		assert.ErrorIs(t, err, ErrInvalidToken, in)
	}
}
