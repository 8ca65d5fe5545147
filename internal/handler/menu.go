package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/daway0/pors/internal/database"
	"github.com/daway0/pors/internal/jcal"
	"github.com/daway0/pors/internal/middleware"
	"github.com/daway0/pors/internal/service"
)

// MenuServicer defines the service methods needed by menu curation handlers.
// Satisfied by *service.MenuService; narrow interface for testability.
type MenuServicer interface {
	AddMenuItem(ctx context.Context, req service.AddMenuItemRequest) (*database.MenuItem, error)
	RemoveMenuItem(ctx context.Context, req service.RemoveMenuItemRequest) error
}

// MenuStore defines the database methods needed by menu read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	ListMenuByDate(ctx context.Context, availableDate string) ([]database.MenuEntryRow, error)
	ListActiveItems(ctx context.Context) ([]database.ListItemsRow, error)
}

// MenuHandler handles the daily menu: personnel reads, admin curation.
type MenuHandler struct {
	svc   MenuServicer
	store MenuStore
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(svc MenuServicer, store MenuStore) *MenuHandler {
	return &MenuHandler{svc: svc, store: store}
}

// RegisterRoutes registers menu endpoints on the given Chi router. The
// mutating endpoints are expected to sit behind the admin middleware.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/menu/{date}", h.List)
	r.Get("/items", h.ListItems)
	r.With(middleware.RequireAdmin).Post("/menu", h.Add)
	r.With(middleware.RequireAdmin).Delete("/menu/{date}/{itemID}", h.Remove)
}

type menuEntryResponse struct {
	ItemID       int32           `json:"item_id"`
	ItemName     string          `json:"item_name"`
	MealType     string          `json:"meal_type"`
	Category     string          `json:"category"`
	CategoryKind string          `json:"category_kind"`
	Price        decimal.Decimal `json:"price"`
	// OrdersLeft is nil for unlimited capacity.
	OrdersLeft *int32 `json:"orders_left"`
}

type itemResponse struct {
	ID           int32           `json:"id"`
	Name         string          `json:"name"`
	MealType     string          `json:"meal_type"`
	Description  string          `json:"description,omitempty"`
	Category     string          `json:"category"`
	CategoryKind string          `json:"category_kind"`
	Price        decimal.Decimal `json:"price"`
}

type addMenuItemRequest struct {
	AvailableDate      string `json:"available_date"`
	ItemID             int32  `json:"item_id"`
	TotalOrdersAllowed *int32 `json:"total_orders_allowed"`
}

type menuItemResponse struct {
	AvailableDate      string `json:"available_date"`
	ItemID             int32  `json:"item_id"`
	TotalOrdersAllowed *int32 `json:"total_orders_allowed"`
	TotalOrdersLeft    *int32 `json:"total_orders_left"`
}

// List handles GET /menu/{date}.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	d, ok := jcal.Parse(chi.URLParam(r, "date"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_date", Code: "VALIDATION"})
		return
	}

	rows, err := h.store.ListMenuByDate(r.Context(), d.String())
	if err != nil {
		writeServiceError(w, "list menu", err)
		return
	}

	resp := make([]menuEntryResponse, len(rows))
	for i, row := range rows {
		resp[i] = menuEntryResponse{
			ItemID:       row.ItemID,
			ItemName:     row.ItemName,
			MealType:     row.MealType,
			Category:     row.CategoryName,
			CategoryKind: row.CategoryKind,
			Price:        numericToDecimal(row.CurrentPrice),
		}
		if row.TotalOrdersLeft.Valid {
			left := row.TotalOrdersLeft.Int32
			resp[i].OrdersLeft = &left
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"date": d.String(), "entries": resp})
}

// ListItems handles GET /items: every active item, for the curation picker.
func (h *MenuHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListActiveItems(r.Context())
	if err != nil {
		writeServiceError(w, "list items", err)
		return
	}

	resp := make([]itemResponse, len(rows))
	for i, row := range rows {
		resp[i] = itemResponse{
			ID:           row.ID,
			Name:         row.Name,
			MealType:     row.MealType,
			Category:     row.CategoryName,
			CategoryKind: row.CategoryKind,
			Price:        numericToDecimal(row.CurrentPrice),
		}
		if row.Description.Valid {
			resp[i].Description = row.Description.String
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": resp})
}

// Add handles POST /menu.
func (h *MenuHandler) Add(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "not_authenticated", Code: "UNAUTHORIZED"})
		return
	}

	var req addMenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_request_body", Code: "VALIDATION"})
		return
	}
	if req.ItemID <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "item_id_required", Code: "VALIDATION"})
		return
	}
	if req.TotalOrdersAllowed != nil && *req.TotalOrdersAllowed <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_capacity", Code: "VALIDATION"})
		return
	}

	entry, err := h.svc.AddMenuItem(r.Context(), service.AddMenuItemRequest{
		Admin:              identity.Personnel,
		AvailableDate:      req.AvailableDate,
		ItemID:             req.ItemID,
		TotalOrdersAllowed: req.TotalOrdersAllowed,
	})
	if err != nil {
		writeServiceError(w, "add menu item", err)
		return
	}

	writeJSON(w, http.StatusCreated, toMenuItemResponse(entry))
}

// Remove handles DELETE /menu/{date}/{itemID}.
func (h *MenuHandler) Remove(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "not_authenticated", Code: "UNAUTHORIZED"})
		return
	}

	itemID, ok := parseItemID(chi.URLParam(r, "itemID"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_item_id", Code: "VALIDATION"})
		return
	}

	err := h.svc.RemoveMenuItem(r.Context(), service.RemoveMenuItemRequest{
		Admin:         identity.Personnel,
		AvailableDate: chi.URLParam(r, "date"),
		ItemID:        itemID,
	})
	if err != nil {
		writeServiceError(w, "remove menu item", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toMenuItemResponse(m *database.MenuItem) menuItemResponse {
	resp := menuItemResponse{
		AvailableDate: m.AvailableDate,
		ItemID:        m.ItemID,
	}
	if m.TotalOrdersAllowed.Valid {
		v := m.TotalOrdersAllowed.Int32
		resp.TotalOrdersAllowed = &v
	}
	if m.TotalOrdersLeft.Valid {
		v := m.TotalOrdersLeft.Int32
		resp.TotalOrdersLeft = &v
	}
	return resp
}
