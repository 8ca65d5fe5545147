package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/daway0/pors/internal/auth"
	"github.com/daway0/pors/internal/database"
)

// AuthStore defines the database methods needed by auth handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AuthStore interface {
	GetUserByTokenHash(ctx context.Context, tokenHash string) (database.User, error)
}

// AuthHandler exchanges the opaque token the company SSO hands each
// personnel for a short-lived JWT. Only the token's hash is stored.
type AuthHandler struct {
	store     AuthStore
	jwtSecret string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store AuthStore, jwtSecret string) *AuthHandler {
	return &AuthHandler{store: store, jwtSecret: jwtSecret}
}

// RegisterRoutes registers auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/token", h.Exchange)
}

type exchangeRequest struct {
	Token string `json:"token"`
}

type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	User        userResponse `json:"user"`
}

type userResponse struct {
	Personnel string `json:"personnel"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	IsAdmin   bool   `json:"is_admin"`
}

// Exchange handles POST /auth/token.
func (h *AuthHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_request_body", Code: "VALIDATION"})
		return
	}
	if req.Token == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "token_required", Code: "VALIDATION"})
		return
	}

	user, err := h.store.GetUserByTokenHash(r.Context(), auth.HashPersonnelToken(req.Token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid_credentials", Code: "UNAUTHORIZED"})
			return
		}
		writeServiceError(w, "exchange token", err)
		return
	}

	accessToken, err := auth.GenerateToken(h.jwtSecret, user.Personnel, user.IsAdmin)
	if err != nil {
		writeServiceError(w, "generate token", err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: accessToken,
		User: userResponse{
			Personnel: user.Personnel,
			FullName:  user.FullName,
			Email:     user.Email,
			IsAdmin:   user.IsAdmin,
		},
	})
}
