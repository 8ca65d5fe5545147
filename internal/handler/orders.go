package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/daway0/pors/internal/service"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	PlaceOrder(ctx context.Context, req service.PlaceOrderRequest) (*service.OrderResult, error)
	PlaceBreakfastOrder(ctx context.Context, req service.PlaceOrderRequest) (*service.OrderResult, error)
	CancelOrder(ctx context.Context, req service.CancelOrderRequest) (*service.OrderResult, error)
	ChangeDeliveryLocation(ctx context.Context, req service.ChangeDeliveryLocationRequest) error
}

// OrderHandler handles order placement, cancellation and delivery changes.
type OrderHandler struct {
	svc OrderServicer
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// RegisterRoutes registers order endpoints on the given Chi router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/orders/lunch", h.PlaceLunch)
	r.Post("/orders/breakfast", h.PlaceBreakfast)
	r.Delete("/orders", h.Cancel)
	r.Patch("/orders/delivery", h.ChangeDelivery)
}

type placeOrderRequest struct {
	overrideFields
	DeliveryDate string `json:"delivery_date"`
	ItemID       int32  `json:"item_id"`

	// Breakfast only; empty means the last-used location.
	Building string `json:"building"`
	Floor    string `json:"floor"`
}

type cancelOrderRequest struct {
	overrideFields
	DeliveryDate string `json:"delivery_date"`
	ItemID       int32  `json:"item_id"`
}

type changeDeliveryRequest struct {
	overrideFields
	DeliveryDate string `json:"delivery_date"`
	Building     string `json:"building"`
	Floor        string `json:"floor"`
}

type orderLineResponse struct {
	Personnel    string          `json:"personnel"`
	DeliveryDate string          `json:"delivery_date"`
	ItemID       int32           `json:"item_id"`
	ItemName     string          `json:"item_name"`
	Quantity     int32           `json:"quantity"`
	PricePerOne  decimal.Decimal `json:"price_per_one"`
	Building     string          `json:"delivery_building,omitempty"`
	Floor        string          `json:"delivery_floor,omitempty"`
	Removed      bool            `json:"removed,omitempty"`
}

// PlaceLunch handles POST /orders/lunch.
func (h *OrderHandler) PlaceLunch(w http.ResponseWriter, r *http.Request) {
	h.place(w, r, h.svc.PlaceOrder)
}

// PlaceBreakfast handles POST /orders/breakfast.
func (h *OrderHandler) PlaceBreakfast(w http.ResponseWriter, r *http.Request) {
	h.place(w, r, h.svc.PlaceBreakfastOrder)
}

func (h *OrderHandler) place(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, req service.PlaceOrderRequest) (*service.OrderResult, error)) {

	identity, ok := identityFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "not_authenticated", Code: "UNAUTHORIZED"})
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_request_body", Code: "VALIDATION"})
		return
	}
	if req.ItemID <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "item_id_required", Code: "VALIDATION"})
		return
	}

	actor, err := service.ResolveActor(identity, req.Personnel, req.Reason, req.Comment)
	if err != nil {
		writeServiceError(w, "resolve actor", err)
		return
	}

	result, err := fn(r.Context(), service.PlaceOrderRequest{
		Actor:        actor,
		DeliveryDate: req.DeliveryDate,
		ItemID:       req.ItemID,
		Building:     req.Building,
		Floor:        req.Floor,
	})
	if err != nil {
		writeServiceError(w, "place order", err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderLineResponse(result))
}

// Cancel handles DELETE /orders. One unit at a time, mirroring placement.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "not_authenticated", Code: "UNAUTHORIZED"})
		return
	}

	var req cancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_request_body", Code: "VALIDATION"})
		return
	}
	if req.ItemID <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "item_id_required", Code: "VALIDATION"})
		return
	}

	actor, err := service.ResolveActor(identity, req.Personnel, req.Reason, req.Comment)
	if err != nil {
		writeServiceError(w, "resolve actor", err)
		return
	}

	result, err := h.svc.CancelOrder(r.Context(), service.CancelOrderRequest{
		Actor:        actor,
		DeliveryDate: req.DeliveryDate,
		ItemID:       req.ItemID,
	})
	if err != nil {
		writeServiceError(w, "cancel order", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderLineResponse(result))
}

// ChangeDelivery handles PATCH /orders/delivery: moves all of one day's
// breakfast rows to a new building/floor.
func (h *OrderHandler) ChangeDelivery(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromRequest(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "not_authenticated", Code: "UNAUTHORIZED"})
		return
	}

	var req changeDeliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_request_body", Code: "VALIDATION"})
		return
	}

	actor, err := service.ResolveActor(identity, req.Personnel, req.Reason, req.Comment)
	if err != nil {
		writeServiceError(w, "resolve actor", err)
		return
	}

	err = h.svc.ChangeDeliveryLocation(r.Context(), service.ChangeDeliveryLocationRequest{
		Actor:        actor,
		DeliveryDate: req.DeliveryDate,
		Building:     req.Building,
		Floor:        req.Floor,
	})
	if err != nil {
		writeServiceError(w, "change delivery location", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toOrderLineResponse(result *service.OrderResult) orderLineResponse {
	o := result.Order
	resp := orderLineResponse{
		Personnel:    o.Personnel,
		DeliveryDate: o.DeliveryDate,
		ItemID:       o.ItemID,
		ItemName:     result.ItemName,
		Quantity:     o.Quantity,
		PricePerOne:  numericToDecimal(o.PricePerOne),
		Building:     o.DeliveryBuilding,
		Floor:        o.DeliveryFloor,
		Removed:      result.Removed,
	}
	if result.Removed {
		resp.Quantity = 0
	}
	return resp
}
