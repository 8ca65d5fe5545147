package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/daway0/pors/internal/deadline"
	"github.com/daway0/pors/internal/enum"
	"github.com/daway0/pors/internal/jcal"
	"github.com/daway0/pors/internal/middleware"
	"github.com/daway0/pors/internal/service"
)

// DeadlineServicer defines the service methods needed by deadline handlers.
// Satisfied by *service.DeadlineService; narrow interface for testability.
type DeadlineServicer interface {
	Table(ctx context.Context) (deadline.Table, error)
	FirstOrderableDate(ctx context.Context) (jcal.Date, error)
	UpdateDeadlines(ctx context.Context, req service.UpdateDeadlinesRequest) error
}

// DeadlineHandler exposes the deadline table and the first-orderable-date
// probe the panels poll before rendering the order form.
type DeadlineHandler struct {
	svc DeadlineServicer
}

// NewDeadlineHandler creates a new DeadlineHandler.
func NewDeadlineHandler(svc DeadlineServicer) *DeadlineHandler {
	return &DeadlineHandler{svc: svc}
}

// RegisterRoutes registers deadline endpoints on the given Chi router.
func (h *DeadlineHandler) RegisterRoutes(r chi.Router) {
	r.Get("/deadlines", h.List)
	r.Get("/deadlines/first-orderable-date", h.FirstOrderableDate)
	r.With(middleware.RequireAdmin).Put("/deadlines", h.Update)
}

type deadlineRowResponse struct {
	Weekday     int    `json:"weekday"`
	WeekdayName string `json:"weekday_name"`
	MealType    string `json:"meal_type"`
	Days        int    `json:"days"`
	Hour        int    `json:"hour"`
}

type updateDeadlinesRequest struct {
	Changes []deadlineChangeRequest `json:"changes"`
	Notify  bool                    `json:"notify"`
}

type deadlineChangeRequest struct {
	Weekday  int    `json:"weekday"`
	MealType string `json:"meal_type"`
	Days     int    `json:"days"`
	Hour     int    `json:"hour"`
}

// List handles GET /deadlines.
func (h *DeadlineHandler) List(w http.ResponseWriter, r *http.Request) {
	table, err := h.svc.Table(r.Context())
	if err != nil {
		writeServiceError(w, "deadline table", err)
		return
	}

	rows := make([]deadlineRowResponse, 0, 14)
	for _, mt := range enum.MealTypes {
		for wd := 0; wd < 7; wd++ {
			d, err := table.Get(wd, mt)
			if err != nil {
				writeServiceError(w, "deadline table", err)
				return
			}
			rows = append(rows, deadlineRowResponse{
				Weekday:     wd,
				WeekdayName: jcal.WeekdayName(wd),
				MealType:    mt,
				Days:        d.Days,
				Hour:        d.Hour,
			})
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deadlines": rows})
}

// FirstOrderableDate handles GET /deadlines/first-orderable-date.
func (h *DeadlineHandler) FirstOrderableDate(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.FirstOrderableDate(r.Context())
	if err != nil {
		writeServiceError(w, "first orderable date", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"date": d.String()})
}

// Update handles PUT /deadlines.
func (h *DeadlineHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "not_authenticated", Code: "UNAUTHORIZED"})
		return
	}

	var req updateDeadlinesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_request_body", Code: "VALIDATION"})
		return
	}
	if len(req.Changes) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "changes_required", Code: "VALIDATION"})
		return
	}

	changes := make([]service.DeadlineChange, len(req.Changes))
	for i, c := range req.Changes {
		changes[i] = service.DeadlineChange{
			Weekday:  c.Weekday,
			MealType: c.MealType,
			Days:     c.Days,
			Hour:     c.Hour,
		}
	}

	err := h.svc.UpdateDeadlines(r.Context(), service.UpdateDeadlinesRequest{
		Admin:   identity.Personnel,
		Changes: changes,
		Notify:  req.Notify,
	})
	if err != nil {
		writeServiceError(w, "update deadlines", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
