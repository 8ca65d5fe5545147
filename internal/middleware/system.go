package middleware

import (
	"context"
	"log"
	"net/http"

	"github.com/daway0/pors/internal/database"
)

// SettingsStore reads the single system settings row.
type SettingsStore interface {
	GetSystemSetting(ctx context.Context) (database.SystemSetting, error)
}

// SystemOpen rejects mutating requests while the system switch is off.
// Reads stay available so the calendar keeps rendering during maintenance.
// The switch is split: admins may stay open while personnel are closed.
func SystemOpen(store SettingsStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			settings, err := store.GetSystemSetting(r.Context())
			if err != nil {
				log.Printf("ERROR: read system settings: %v", err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
				return
			}

			claims := ClaimsFromContext(r.Context())
			isAdmin := claims != nil && claims.IsAdmin
			if (isAdmin && settings.OpenForAdmins) || (!isAdmin && settings.OpenForPersonnel) {
				next.ServeHTTP(w, r)
				return
			}
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "ordering is closed"})
		})
	}
}
