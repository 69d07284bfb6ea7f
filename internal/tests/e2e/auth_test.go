//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ailice/ailice/config"
	"github.com/ailice/ailice/internal/client"
	"github.com/ailice/ailice/internal/db"
	"github.com/ailice/ailice/internal/server"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	serverPort = 18080
)

var baseURL = fmt.Sprintf("http://localhost:%d", serverPort)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	setTestEnv()

	if err := dockerCompose(ctx, root, "up", "-d", "postgres"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown(context.Background())
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown(context.Background())
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestRegisterLoginSession(t *testing.T) {
	ctx := context.Background()
	suffix := time.Now().UnixNano()
	username := fmt.Sprintf("al_%d", suffix)
	email := fmt.Sprintf("a_%d@x.com", suffix)

	api := client.NewAPI(baseURL, nil)
	form := client.RegistrationForm{Username: username, Email: email, Password: "abc12345", ConfirmPassword: "abc12345"}
	require.NoError(t, form.Validate())

	id, err := api.Register(ctx, form)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	res, err := api.Login(ctx, email, "abc12345")
	require.NoError(t, err)
	assert.Equal(t, "/chat", res.RedirectTo)

	store, err := client.OpenSQLiteStore(ctx, filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer store.Close()

	session := client.NewSession(store)
	require.NoError(t, session.Start(ctx, res.Token))
	identity, ok := session.Identity()
	require.True(t, ok)
	assert.Equal(t, email, identity.Email)
	assert.Equal(t, username, identity.Username)

	me, err := api.Me(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, username, me.Username)

	_, err = api.Login(ctx, email, "ABC12345")
	assert.EqualError(t, err, client.NoticeBadCredentials)
}

func TestRegisterSameEmailTwice(t *testing.T) {
	suffix := time.Now().UnixNano()
	body := map[string]string{
		"username": fmt.Sprintf("dup_%d", suffix),
		"email":    fmt.Sprintf("dup_%d@x.com", suffix),
		"password": "abc12345",
	}

	status, _ := postJSON(t, "/api/register", body)
	require.Equal(t, http.StatusCreated, status)

	body["username"] = body["username"] + "_2"
	status, resp := postJSON(t, "/api/register", body)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Email or username already exists", resp["error"])
}

func TestConcurrentRegistrationsCreateOneUser(t *testing.T) {
	suffix := time.Now().UnixNano()
	email := fmt.Sprintf("race_%d@x.com", suffix)

	const attempts = 8
	var wg sync.WaitGroup
	statuses := make([]int, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			data, _ := json.Marshal(map[string]string{
				"username": fmt.Sprintf("race_%d_%d", suffix, i),
				"email":    email,
				"password": "abc12345",
			})
			resp, err := http.Post(baseURL+"/api/register", "application/json", bytes.NewReader(data))
			if err != nil {
				return
			}
			_ = resp.Body.Close()
			statuses[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	created := 0
	for _, s := range statuses {
		switch s {
		case http.StatusCreated:
			created++
		case http.StatusBadRequest:
		default:
			t.Fatalf("unexpected status %d", s)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, countUsersByEmail(t, email))
}

func postJSON(t *testing.T, path string, body any) (int, map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(baseURL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func countUsersByEmail(t *testing.T, email string) int {
	t.Helper()
	conn, err := sql.Open("postgres", db.DSN(config.LoadConfig().Database))
	require.NoError(t, err)
	defer conn.Close()

	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(1) FROM users WHERE email = $1`, email).Scan(&n))
	return n
}

func setTestEnv() {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "ailice")
	_ = os.Setenv("DB_PASSWORD", "ailice")
	_ = os.Setenv("DB_NAME", "accounts")
	_ = os.Setenv("DB_SSL", "false")
	_ = os.Setenv("EVENTS_BACKEND", "none")
}

func waitForPostgres(ctx context.Context) error {
	conn, err := sql.Open("postgres", db.DSN(config.LoadConfig().Database))
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := conn.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	httpClient := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := httpClient.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func runMigrations(root string) error {
	migrationsURL := "file://" + filepath.Join(root, "internal", "db", "migrations")

	migrator, err := migrate.New(migrationsURL, db.DSN(config.LoadConfig().Database))
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func startServer(ctx context.Context) (*server.Server, error) {
	srv, err := server.New(ctx, config.LoadConfig())
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
