package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/daway0/pors/internal/database"
)

// DirectoryStore defines the database methods needed by directory handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type DirectoryStore interface {
	ListBuildingsWithFloors(ctx context.Context) ([]database.BuildingWithFloorsRow, error)
}

// DirectoryHandler serves the HR building/floor directory the breakfast
// delivery picker is populated from.
type DirectoryHandler struct {
	store DirectoryStore
}

// NewDirectoryHandler creates a new DirectoryHandler.
func NewDirectoryHandler(store DirectoryStore) *DirectoryHandler {
	return &DirectoryHandler{store: store}
}

// RegisterRoutes registers directory endpoints on the given Chi router.
func (h *DirectoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/directory/buildings", h.Buildings)
}

type floorResponse struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type buildingResponse struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Floors []floorResponse `json:"floors"`
}

// Buildings handles GET /directory/buildings.
func (h *DirectoryHandler) Buildings(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListBuildingsWithFloors(r.Context())
	if err != nil {
		writeServiceError(w, "list buildings", err)
		return
	}

	// Rows arrive sorted by building; fold the join back into a tree.
	var resp []buildingResponse
	for _, row := range rows {
		if len(resp) == 0 || resp[len(resp)-1].Code != row.BuildingCode {
			resp = append(resp, buildingResponse{Code: row.BuildingCode, Name: row.BuildingName})
		}
		b := &resp[len(resp)-1]
		b.Floors = append(b.Floors, floorResponse{Code: row.FloorCode, Name: row.FloorName})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"buildings": resp})
}
