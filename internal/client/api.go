package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultHTTPTimeout = 15 * time.Second

// API calls the auth endpoints of the server.
type API struct {
	baseURL string
	http    *http.Client
}

// NewAPI returns a client for the server at baseURL. A nil httpClient gets a
// client with a default timeout.
func NewAPI(baseURL string, httpClient *http.Client) *API {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// LoginResult is the successful answer of POST /api/login.
type LoginResult struct {
	Token      string `json:"token"`
	RedirectTo string `json:"redirectTo"`
}

type loginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	LoginResult
}

type registerResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
	Error   string `json:"error"`
}

// Me is the answer of GET /api/me.
type Me struct {
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login posts the credentials. Any non-2xx answer becomes the fixed
// bad-credentials notice; transport failures become the internal notice.
func (a *API) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var resp loginResponse
	status, err := a.do(ctx, http.MethodPost, "/api/login", "", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		log.Debug().Err(err).Msg("login request failed")
		return LoginResult{}, Notice(NoticeInternal)
	}
	if !isSuccess(status) || resp.Token == "" {
		log.Debug().Int("status", status).Str("message", resp.Message).Msg("login refused")
		return LoginResult{}, Notice(NoticeBadCredentials)
	}
	return resp.LoginResult, nil
}

// Register posts the form fields the server accepts and returns the new
// user id. The form should already have passed Validate.
func (a *API) Register(ctx context.Context, form RegistrationForm) (string, error) {
	var resp registerResponse
	status, err := a.do(ctx, http.MethodPost, "/api/register", "", map[string]string{
		"username": form.Username,
		"email":    form.Email,
		"password": form.Password,
	}, &resp)
	if err != nil {
		log.Debug().Err(err).Msg("register request failed")
		return "", Notice(NoticeInternal)
	}
	if !isSuccess(status) {
		log.Debug().Int("status", status).Str("error", resp.Error).Msg("register refused")
		return "", Notice(NoticeUserExists)
	}
	return resp.UserID, nil
}

// Me asks the server to verify the token and describe its holder.
func (a *API) Me(ctx context.Context, tok string) (Me, error) {
	var resp Me
	status, err := a.do(ctx, http.MethodGet, "/api/me", tok, nil, &resp)
	if err != nil {
		return Me{}, Notice(NoticeInternal)
	}
	if !isSuccess(status) {
		return Me{}, fmt.Errorf("session rejected by server (status %d)", status)
	}
	return resp, nil
}

func (a *API) do(ctx context.Context, method, path, bearer string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && isSuccess(resp.StatusCode) {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
