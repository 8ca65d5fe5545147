package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/daway0/pors/internal/auth"
	"github.com/daway0/pors/internal/database"
	"github.com/daway0/pors/internal/handler"
)

type mockAuthStore struct {
	users map[string]database.User // keyed by token hash
}

func (m *mockAuthStore) GetUserByTokenHash(_ context.Context, tokenHash string) (database.User, error) {
	u, ok := m.users[tokenHash]
	if !ok {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func setupAuthRouter(store *mockAuthStore) *chi.Mux {
	h := handler.NewAuthHandler(store, testSecret)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestExchange_ValidToken(t *testing.T) {
	store := &mockAuthStore{users: map[string]database.User{
		auth.HashPersonnelToken("sso-opaque-token"): {
			Personnel: "10234", FullName: "رضا احمدی", Email: "reza@example.org",
			IsAdmin: false, IsActive: true,
		},
	}}
	router := setupAuthRouter(store)

	rr := doRequest(t, router, "POST", "/auth/token", map[string]string{"token": "sso-opaque-token"}, "", false)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["access_token"] == "" || resp["access_token"] == nil {
		t.Error("expected an access token")
	}
	user := resp["user"].(map[string]interface{})
	if user["personnel"] != "10234" || user["is_admin"] != false {
		t.Errorf("user: got %+v", user)
	}

	claims, err := auth.ValidateToken(testSecret, resp["access_token"].(string))
	if err != nil {
		t.Fatalf("returned token does not validate: %v", err)
	}
	if claims.Personnel != "10234" {
		t.Errorf("claims personnel: got %v", claims.Personnel)
	}
}

func TestExchange_UnknownToken(t *testing.T) {
	router := setupAuthRouter(&mockAuthStore{users: map[string]database.User{}})

	rr := doRequest(t, router, "POST", "/auth/token", map[string]string{"token": "nope"}, "", false)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestExchange_MissingToken(t *testing.T) {
	router := setupAuthRouter(&mockAuthStore{users: map[string]database.User{}})

	rr := doRequest(t, router, "POST", "/auth/token", map[string]string{}, "", false)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}
