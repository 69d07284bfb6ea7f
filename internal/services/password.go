package services

import (
	"crypto/subtle"
	"fmt"

	"github.com/ailice/ailice/config"
	"golang.org/x/crypto/bcrypt"
)

// PasswordScheme decides what is stored for a password and how a login
// attempt is compared against it.
type PasswordScheme interface {
	Prepare(password string) (string, error)
	Matches(stored, attempt string) bool
}

// NewPasswordScheme returns the scheme registered under name.
func NewPasswordScheme(name string) (PasswordScheme, error) {
	switch name {
	case "", config.PasswordSchemePlain:
		return PlainPasswords{}, nil
	case config.PasswordSchemeBcrypt:
		return BcryptPasswords{Cost: bcrypt.DefaultCost}, nil
	default:
		return nil, fmt.Errorf("unknown password scheme %q", name)
	}
}

// PlainPasswords stores the submitted password verbatim and compares it
// exactly. This is the legacy behaviour of the accounts collection and is
// not safe for production; prefer BcryptPasswords.
type PlainPasswords struct{}

func (PlainPasswords) Prepare(password string) (string, error) {
	return password, nil
}

func (PlainPasswords) Matches(stored, attempt string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(attempt)) == 1
}

// BcryptPasswords stores a bcrypt hash of the password.
type BcryptPasswords struct {
	Cost int
}

func (b BcryptPasswords) Prepare(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), b.Cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (BcryptPasswords) Matches(stored, attempt string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(attempt)) == nil
}
