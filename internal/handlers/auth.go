package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ailice/ailice/internal/services"
	"github.com/go-chi/chi/v5"
)

const (
	msgInternal         = "Internal server error"
	msgBadCredentials   = "Email or password incorrect"
	msgUserExists       = "Email or username already exists"
	msgInvalidRequest   = "Invalid request"
	msgMissingFields    = "Missing required fields"
	msgRegistered       = "User registered successfully"
	msgUnauthorized     = "unauthorized"
	maxRequestBodyBytes = 1 << 20
)

// AuthHandler serves the login, register and identity endpoints.
type AuthHandler struct {
	auth *services.AuthService
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, auth *services.AuthService) {
	handler := NewAuthHandler(auth)

	r.Post("/login", handler.Login)
	r.Post("/register", handler.Register)
	r.With(handler.RequireAuth).Get("/me", handler.Me)
}

// RequireAuth verifies the bearer token and injects its claims into the
// request context.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}

		claims, err := h.auth.Authenticate(tokenString)
		if err != nil {
			if errors.Is(err, services.ErrConfig) {
				requestLogger(r).Error().Err(err).Msg("cannot verify token")
				writeError(w, http.StatusInternalServerError, msgInternal)
				return
			}
			writeError(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

// Login verifies credentials and returns a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, LoginResponse{Success: false, Message: msgInvalidRequest})
		return
	}

	logger := requestLogger(r)
	logger.Info().Str("email", req.Email).Msg("login attempt")

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			logger.Info().Str("email", req.Email).Msg("login rejected")
			writeJSON(w, http.StatusUnauthorized, LoginResponse{Success: false, Message: msgBadCredentials})
			return
		}
		logger.Error().Err(err).Str("email", req.Email).Msg("login failed")
		writeJSON(w, http.StatusInternalServerError, LoginResponse{Success: false, Message: msgInternal})
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Success:    true,
		Token:      res.Token,
		RedirectTo: res.RedirectTo,
	})
}

// Register creates a new user account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, msgMissingFields)
		return
	}

	logger := requestLogger(r)

	id, err := h.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrUserExists) {
			writeError(w, http.StatusBadRequest, msgUserExists)
			return
		}
		logger.Error().Err(err).Str("email", req.Email).Msg("register failed")
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	logger.Info().Str("user_id", id).Msg("user registered")
	writeJSON(w, http.StatusCreated, RegisterResponse{Message: msgRegistered, UserID: id})
}

// Me returns the identity carried by the verified token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	resp := MeResponse{Email: claims.Email, Username: claims.Username}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	writeJSON(w, http.StatusOK, resp)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success    bool   `json:"success"`
	Token      string `json:"token,omitempty"`
	RedirectTo string `json:"redirectTo,omitempty"`
	Message    string `json:"message,omitempty"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

type MeResponse struct {
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
