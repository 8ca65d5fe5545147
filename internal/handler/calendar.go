package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/daway0/pors/internal/jcal"
	"github.com/daway0/pors/internal/service"
)

// CalendarServicer defines the service methods needed by calendar handlers.
// Satisfied by *service.CalendarService; narrow interface for testability.
type CalendarServicer interface {
	MonthView(ctx context.Context, personnel string, year, month int) (*service.MonthView, error)
	DayOrders(ctx context.Context, personnel, date string) (*service.DayOrders, error)
}

// SubsidyStore defines the database methods needed for subsidy lookups.
// Satisfied by *database.Queries; narrow interface for testability.
type SubsidyStore interface {
	GetSubsidyAmount(ctx context.Context, date string) (pgtype.Numeric, error)
}

// CalendarHandler serves the personnel month view and day breakdowns.
type CalendarHandler struct {
	svc   CalendarServicer
	store SubsidyStore
}

// NewCalendarHandler creates a new CalendarHandler.
func NewCalendarHandler(svc CalendarServicer, store SubsidyStore) *CalendarHandler {
	return &CalendarHandler{svc: svc, store: store}
}

// RegisterRoutes registers calendar endpoints on the given Chi router.
func (h *CalendarHandler) RegisterRoutes(r chi.Router) {
	r.Get("/calendar/{year}/{month}", h.Month)
	r.Get("/calendar/day/{date}", h.Day)
	r.Get("/subsidy/{date}", h.Subsidy)
}

// Month handles GET /calendar/{year}/{month}.
func (h *CalendarHandler) Month(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "not_authenticated", Code: "UNAUTHORIZED"})
		return
	}

	year, errY := strconv.Atoi(chi.URLParam(r, "year"))
	month, errM := strconv.Atoi(chi.URLParam(r, "month"))
	if errY != nil || errM != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_date", Code: "VALIDATION"})
		return
	}

	view, err := h.svc.MonthView(r.Context(), identity.Personnel, year, month)
	if err != nil {
		writeServiceError(w, "month view", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Day handles GET /calendar/day/{date}.
func (h *CalendarHandler) Day(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "not_authenticated", Code: "UNAUTHORIZED"})
		return
	}

	day, err := h.svc.DayOrders(r.Context(), identity.Personnel, chi.URLParam(r, "date"))
	if err != nil {
		writeServiceError(w, "day orders", err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

// Subsidy handles GET /subsidy/{date}: the daily subsidy in effect.
func (h *CalendarHandler) Subsidy(w http.ResponseWriter, r *http.Request) {
	d, ok := jcal.Parse(chi.URLParam(r, "date"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_date", Code: "VALIDATION"})
		return
	}

	amount, err := h.store.GetSubsidyAmount(r.Context(), d.String())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "no_subsidy_for_date", Code: "NOT_FOUND"})
			return
		}
		writeServiceError(w, "get subsidy", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":   d.String(),
		"amount": numericToDecimal(amount),
	})
}
