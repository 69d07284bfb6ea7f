package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ailice/ailice/internal/token"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type contextKey string

const contextClaimsKey contextKey = "claims"

func withClaims(ctx context.Context, claims token.Claims) context.Context {
	return context.WithValue(ctx, contextClaimsKey, claims)
}

func claimsFromContext(ctx context.Context) (token.Claims, error) {
	claims, ok := ctx.Value(contextClaimsKey).(token.Claims)
	if !ok {
		return token.Claims{}, errors.New("missing claims")
	}
	return claims, nil
}

// requestLogger returns the global logger tagged with the chi request id.
func requestLogger(r *http.Request) *zerolog.Logger {
	logger := log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
	return &logger
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// ErrorResponse is the body of register and protected-route failures.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
