package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPlainPasswords(t *testing.T) {
	scheme := PlainPasswords{}
	stored, err := scheme.Prepare("abc12345")
	require.NoError(t, err)
	assert.Equal(t, "abc12345", stored)

	assert.True(t, scheme.Matches(stored, "abc12345"))
	assert.False(t, scheme.Matches(stored, "ABC12345"))
	assert.False(t, scheme.Matches(stored, "abc1234"))
	assert.False(t, scheme.Matches(stored, ""))
}

func TestBcryptPasswords(t *testing.T) {
	scheme := BcryptPasswords{Cost: bcrypt.MinCost}
	stored, err := scheme.Prepare("abc12345")
	require.NoError(t, err)
	assert.NotEqual(t, "abc12345", stored)

	assert.True(t, scheme.Matches(stored, "abc12345"))
	assert.False(t, scheme.Matches(stored, "abc12346"))
	assert.False(t, scheme.Matches("abc12345", "abc12345"))
}

func TestNewPasswordScheme(t *testing.T) {
	s, err := NewPasswordScheme("")
	require.NoError(t, err)
	assert.IsType(t, PlainPasswords{}, s)

	s, err = NewPasswordScheme("bcrypt")
	require.NoError(t, err)
	assert.IsType(t, BcryptPasswords{}, s)

	_, err = NewPasswordScheme("md5")
	assert.Error(t, err)
}
