package handler

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/daway0/pors/internal/database"
	"github.com/daway0/pors/internal/jcal"
	"github.com/daway0/pors/internal/report"
)

// ReportStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportStore interface {
	ItemsDailyReport(ctx context.Context, arg database.DateRange) ([]database.ItemsDailyReportRow, error)
	PersonnelFinancialReport(ctx context.Context, arg database.DateRange) ([]database.PersonnelFinancialRow, error)
	ItemOrderingPersonnelList(ctx context.Context, arg database.MenuItemKey) ([]database.ItemOrderingPersonnelRow, error)
}

// ReportHandler serves the admin reports, as JSON for the panel or as a
// CSV/XLSX download via ?format=.
type ReportHandler struct {
	store ReportStore
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(store ReportStore) *ReportHandler {
	return &ReportHandler{store: store}
}

// RegisterRoutes registers report endpoints on the given Chi router.
// All of them are expected to be mounted behind the admin middleware.
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/reports/items-daily", h.ItemsDaily)
	r.Get("/reports/financial", h.Financial)
	r.Get("/reports/item-personnel", h.ItemPersonnel)
}

type itemsDailyRowResponse struct {
	DeliveryDate string `json:"delivery_date"`
	ItemName     string `json:"item_name"`
	MealType     string `json:"meal_type"`
	Quantity     int64  `json:"quantity"`
}

type financialRowResponse struct {
	Personnel     string          `json:"personnel"`
	FullName      string          `json:"full_name"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	SubsidyAmount decimal.Decimal `json:"subsidy_amount"`
	PersonnelDebt decimal.Decimal `json:"personnel_debt"`
}

type itemPersonnelRowResponse struct {
	Personnel string `json:"personnel"`
	FullName  string `json:"full_name"`
	Quantity  int32  `json:"quantity"`
	Building  string `json:"delivery_building"`
	Floor     string `json:"delivery_floor"`
}

// ItemsDaily handles GET /reports/items-daily?from=&to=.
func (h *ReportHandler) ItemsDaily(w http.ResponseWriter, r *http.Request) {
	span, ok := parseDateRange(w, r)
	if !ok {
		return
	}

	rows, err := h.store.ItemsDailyReport(r.Context(), span)
	if err != nil {
		writeServiceError(w, "items daily report", err)
		return
	}

	if format := r.URL.Query().Get("format"); format != "" && format != "json" {
		writeReportFile(w, r, report.ItemsDaily(rows), "items-daily")
		return
	}

	resp := make([]itemsDailyRowResponse, len(rows))
	for i, row := range rows {
		resp[i] = itemsDailyRowResponse{
			DeliveryDate: row.DeliveryDate,
			ItemName:     row.ItemName,
			MealType:     row.MealType,
			Quantity:     row.TotalQuantity,
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rows": resp})
}

// Financial handles GET /reports/financial?from=&to=.
func (h *ReportHandler) Financial(w http.ResponseWriter, r *http.Request) {
	span, ok := parseDateRange(w, r)
	if !ok {
		return
	}

	rows, err := h.store.PersonnelFinancialReport(r.Context(), span)
	if err != nil {
		writeServiceError(w, "financial report", err)
		return
	}

	if format := r.URL.Query().Get("format"); format != "" && format != "json" {
		writeReportFile(w, r, report.PersonnelFinancial(rows), "financial")
		return
	}

	resp := make([]financialRowResponse, len(rows))
	for i, row := range rows {
		resp[i] = financialRowResponse{
			Personnel:     row.Personnel,
			FullName:      row.FullName,
			TotalPrice:    numericToDecimal(row.TotalPrice),
			SubsidyAmount: numericToDecimal(row.SubsidyAmount),
			PersonnelDebt: numericToDecimal(row.PersonnelDebt),
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rows": resp})
}

// ItemPersonnel handles GET /reports/item-personnel?date=&item_id=.
func (h *ReportHandler) ItemPersonnel(w http.ResponseWriter, r *http.Request) {
	d, ok := jcal.Parse(r.URL.Query().Get("date"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_date", Code: "VALIDATION"})
		return
	}
	itemID, ok := parseItemID(r.URL.Query().Get("item_id"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_item_id", Code: "VALIDATION"})
		return
	}

	rows, err := h.store.ItemOrderingPersonnelList(r.Context(), database.MenuItemKey{
		AvailableDate: d.String(),
		ItemID:        itemID,
	})
	if err != nil {
		writeServiceError(w, "item personnel report", err)
		return
	}

	if format := r.URL.Query().Get("format"); format != "" && format != "json" {
		writeReportFile(w, r, report.ItemOrderingPersonnel(rows), "item-personnel")
		return
	}

	resp := make([]itemPersonnelRowResponse, len(rows))
	for i, row := range rows {
		resp[i] = itemPersonnelRowResponse{
			Personnel: row.Personnel,
			FullName:  row.FullName,
			Quantity:  row.Quantity,
			Building:  row.DeliveryBuilding,
			Floor:     row.DeliveryFloor,
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rows": resp})
}

func parseDateRange(w http.ResponseWriter, r *http.Request) (database.DateRange, bool) {
	from, okFrom := jcal.Parse(r.URL.Query().Get("from"))
	to, okTo := jcal.Parse(r.URL.Query().Get("to"))
	if !okFrom || !okTo || jcal.Compare(from, to) > 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_date_range", Code: "VALIDATION"})
		return database.DateRange{}, false
	}
	return database.DateRange{From: from.String(), To: to.String()}, true
}

// writeReportFile streams a table as the requested download format.
func writeReportFile(w http.ResponseWriter, r *http.Request, t report.Table, filename string) {
	switch r.URL.Query().Get("format") {
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", filename))
		if err := t.WriteCSV(w); err != nil {
			// Headers already went out; nothing left but the log line.
			log.Printf("ERROR: write csv report: %v", err)
		}
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.xlsx", filename))
		if err := t.WriteXLSX(w); err != nil {
			log.Printf("ERROR: write xlsx report: %v", err)
		}
	default:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "unknown_format", Code: "VALIDATION"})
	}
}
