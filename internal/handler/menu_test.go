package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/daway0/pors/internal/database"
	"github.com/daway0/pors/internal/enum"
	"github.com/daway0/pors/internal/handler"
	"github.com/daway0/pors/internal/middleware"
	"github.com/daway0/pors/internal/service"
)

type mockMenuService struct {
	addMenuItemFn    func(ctx context.Context, req service.AddMenuItemRequest) (*database.MenuItem, error)
	removeMenuItemFn func(ctx context.Context, req service.RemoveMenuItemRequest) error
}

func (m *mockMenuService) AddMenuItem(ctx context.Context, req service.AddMenuItemRequest) (*database.MenuItem, error) {
	return m.addMenuItemFn(ctx, req)
}
func (m *mockMenuService) RemoveMenuItem(ctx context.Context, req service.RemoveMenuItemRequest) error {
	return m.removeMenuItemFn(ctx, req)
}

type mockMenuReadStore struct {
	listMenuByDateFn  func(ctx context.Context, availableDate string) ([]database.MenuEntryRow, error)
	listActiveItemsFn func(ctx context.Context) ([]database.ListItemsRow, error)
}

func (m *mockMenuReadStore) ListMenuByDate(ctx context.Context, availableDate string) ([]database.MenuEntryRow, error) {
	return m.listMenuByDateFn(ctx, availableDate)
}
func (m *mockMenuReadStore) ListActiveItems(ctx context.Context) ([]database.ListItemsRow, error) {
	return m.listActiveItemsFn(ctx)
}

func setupMenuRouter(svc *mockMenuService, store *mockMenuReadStore) *chi.Mux {
	h := handler.NewMenuHandler(svc, store)
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testSecret))
		h.RegisterRoutes(r)
	})
	return r
}

func TestMenuList_ReturnsEntries(t *testing.T) {
	store := &mockMenuReadStore{
		listMenuByDateFn: func(ctx context.Context, availableDate string) ([]database.MenuEntryRow, error) {
			if availableDate != "1402/09/11" {
				t.Errorf("date: got %s", availableDate)
			}
			left := pgtype.Int4{Int32: 12, Valid: true}
			return []database.MenuEntryRow{
				{ItemID: 7, ItemName: "khorak", MealType: enum.MealTypeLunch,
					CategoryName: "غذای اصلی", CategoryKind: enum.CategoryKindPrimary,
					CurrentPrice: makeNumeric(t, "95000.00"), TotalOrdersLeft: left},
				{ItemID: 3, ItemName: "nan panir", MealType: enum.MealTypeBreakfast,
					CategoryName: "صبحانه", CategoryKind: enum.CategoryKindSide,
					CurrentPrice: makeNumeric(t, "20000.00")},
			}, nil
		},
	}
	router := setupMenuRouter(&mockMenuService{}, store)

	rr := doRequest(t, router, "GET", "/menu/1402-09-11", nil, "10234", false)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	entries := resp["entries"].([]interface{})
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	first := entries[0].(map[string]interface{})
	if first["orders_left"].(float64) != 12 {
		t.Errorf("orders_left: got %v", first["orders_left"])
	}
	second := entries[1].(map[string]interface{})
	if second["orders_left"] != nil {
		t.Errorf("unlimited entry must carry null orders_left, got %v", second["orders_left"])
	}
}

func TestMenuList_BadDate(t *testing.T) {
	router := setupMenuRouter(&mockMenuService{}, &mockMenuReadStore{})

	rr := doRequest(t, router, "GET", "/menu/1402.09.11", nil, "10234", false)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestMenuAdd_AsAdmin(t *testing.T) {
	var got service.AddMenuItemRequest
	svc := &mockMenuService{
		addMenuItemFn: func(ctx context.Context, req service.AddMenuItemRequest) (*database.MenuItem, error) {
			got = req
			return &database.MenuItem{
				AvailableDate: req.AvailableDate, ItemID: req.ItemID,
				TotalOrdersAllowed: pgtype.Int4{Int32: 40, Valid: true},
				TotalOrdersLeft:    pgtype.Int4{Int32: 40, Valid: true},
			}, nil
		},
	}
	router := setupMenuRouter(svc, &mockMenuReadStore{})

	rr := doRequest(t, router, "POST", "/menu", map[string]interface{}{
		"available_date": "1402/09/11", "item_id": 7, "total_orders_allowed": 40,
	}, "90001", true)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	if got.Admin != "90001" || got.ItemID != 7 || got.TotalOrdersAllowed == nil || *got.TotalOrdersAllowed != 40 {
		t.Errorf("request: got %+v", got)
	}
	if resp := decodeResponse(t, rr); resp["total_orders_left"].(float64) != 40 {
		t.Errorf("response: got %+v", resp)
	}
}

func TestMenuAdd_NonAdmin(t *testing.T) {
	svc := &mockMenuService{
		addMenuItemFn: func(ctx context.Context, req service.AddMenuItemRequest) (*database.MenuItem, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}
	router := setupMenuRouter(svc, &mockMenuReadStore{})

	rr := doRequest(t, router, "POST", "/menu", map[string]interface{}{
		"available_date": "1402/09/11", "item_id": 7,
	}, "10234", false)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestMenuAdd_Duplicate(t *testing.T) {
	svc := &mockMenuService{
		addMenuItemFn: func(ctx context.Context, req service.AddMenuItemRequest) (*database.MenuItem, error) {
			return nil, service.ErrDuplicateMenuItem
		},
	}
	router := setupMenuRouter(svc, &mockMenuReadStore{})

	rr := doRequest(t, router, "POST", "/menu", map[string]interface{}{
		"available_date": "1402/09/11", "item_id": 7,
	}, "90001", true)
	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestMenuRemove_AsAdmin(t *testing.T) {
	var got service.RemoveMenuItemRequest
	svc := &mockMenuService{
		removeMenuItemFn: func(ctx context.Context, req service.RemoveMenuItemRequest) error {
			got = req
			return nil
		},
	}
	router := setupMenuRouter(svc, &mockMenuReadStore{})

	rr := doRequest(t, router, "DELETE", "/menu/1402-09-11/7", nil, "90001", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if got.ItemID != 7 || got.Admin != "90001" {
		t.Errorf("request: got %+v", got)
	}
}

func TestMenuRemove_WithOrders(t *testing.T) {
	svc := &mockMenuService{
		removeMenuItemFn: func(ctx context.Context, req service.RemoveMenuItemRequest) error {
			return service.ErrMenuItemInUse
		},
	}
	router := setupMenuRouter(svc, &mockMenuReadStore{})

	rr := doRequest(t, router, "DELETE", "/menu/1402-09-11/7", nil, "90001", true)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestListItems(t *testing.T) {
	store := &mockMenuReadStore{
		listActiveItemsFn: func(ctx context.Context) ([]database.ListItemsRow, error) {
			return []database.ListItemsRow{
				{ID: 7, Name: "khorak", MealType: enum.MealTypeLunch,
					CategoryName: "غذای اصلی", CategoryKind: enum.CategoryKindPrimary,
					CurrentPrice: makeNumeric(t, "95000.00")},
			}, nil
		},
	}
	router := setupMenuRouter(&mockMenuService{}, store)

	rr := doRequest(t, router, "GET", "/items", nil, "10234", false)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeResponse(t, rr)
	items := resp["items"].([]interface{})
	if len(items) != 1 || items[0].(map[string]interface{})["name"] != "khorak" {
		t.Errorf("items: got %+v", items)
	}
}
