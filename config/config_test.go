package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"SERVER_PORT", "JWT_SECRET", "PASSWORD_SCHEME", "DATABASE_URL", "EVENTS_BACKEND", "AILICE_API_URL"} {
		t.Setenv(key, "")
	}
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("PASSWORD_SCHEME", "BCRYPT")
	t.Setenv("AILICE_API_URL", "http://example.test/")

	cfg := LoadConfig()

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Empty(t, cfg.JWTSecret)
	assert.Equal(t, PasswordSchemeBcrypt, cfg.PasswordScheme)
	assert.Empty(t, cfg.Database.URL)
	assert.Equal(t, "", cfg.Events.Backend)
	assert.Equal(t, "http://example.test", cfg.Client.APIURL)
}

func TestLoadConfigSecretTrimmed(t *testing.T) {
	t.Setenv("JWT_SECRET", "  s3cret \n")
	cfg := LoadConfig()
	assert.Equal(t, "s3cret", cfg.JWTSecret)
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("AILICE_TEST_BOOL", "true")
	assert.True(t, getEnvBool("AILICE_TEST_BOOL", false))

	t.Setenv("AILICE_TEST_BOOL", "nope")
	assert.False(t, getEnvBool("AILICE_TEST_BOOL", false))

	assert.True(t, getEnvBool("AILICE_TEST_BOOL_MISSING", true))
}
