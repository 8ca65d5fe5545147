package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/daway0/pors/internal/database"
	"github.com/daway0/pors/internal/enum"
	"github.com/daway0/pors/internal/jcal"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error          { return m.commitErr }
func (m *mockTx) Rollback(ctx context.Context) error        { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// mockAudit implements AuditStore and records every insert.
type mockAudit struct {
	entries []database.InsertActionLogParams
	err     error
}

func (m *mockAudit) InsertActionLog(ctx context.Context, arg database.InsertActionLogParams) error {
	m.entries = append(m.entries, arg)
	return m.err
}

// mockResolver implements LocationResolver.
type mockResolver struct {
	found bool
	err   error
}

func (m *mockResolver) Resolve(ctx context.Context, building, floor string) (bool, error) {
	return m.found, m.err
}

// mockOrderStore implements OrderStore with configurable behavior.
type mockOrderStore struct {
	getItemForOrderFn            func(ctx context.Context, id int32) (database.ItemForOrderRow, error)
	getMenuItemForUpdateFn       func(ctx context.Context, arg database.MenuItemKey) (database.MenuItem, error)
	decrementMenuItemCapacityFn  func(ctx context.Context, arg database.MenuItemKey) error
	incrementMenuItemCapacityFn  func(ctx context.Context, arg database.MenuItemKey) error
	getPackageForItemFn          func(ctx context.Context, itemID int32) (database.Package, error)
	sumPackageQuantityFn         func(ctx context.Context, arg database.PackageQuantityParams) (int64, error)
	hasPrimaryLunchOrderFn       func(ctx context.Context, arg database.PersonnelDay) (bool, error)
	getOrderItemFn               func(ctx context.Context, arg database.OrderItemKey) (database.OrderItem, error)
	createOrderItemFn            func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	incrementOrderItemQuantityFn func(ctx context.Context, arg database.OrderItemKey) (database.OrderItem, error)
	decrementOrderItemQuantityFn func(ctx context.Context, arg database.OrderItemKey) (database.OrderItem, error)
	deleteOrderItemFn            func(ctx context.Context, arg database.OrderItemKey) (database.OrderItem, error)
	getDeadlineFn                func(ctx context.Context, arg database.DeadlineKey) (database.Deadline, error)
	getUserFn                    func(ctx context.Context, personnel string) (database.User, error)
	updateUserLastLocationFn     func(ctx context.Context, arg database.UpdateUserLastLocationParams) error
	listDeliveryLocationsFn      func(ctx context.Context, arg database.PersonnelDay, mealType string) ([]database.DeliveryLocationRow, error)
	updateDeliveryLocationFn     func(ctx context.Context, arg database.UpdateDeliveryLocationParams) (int64, error)
}

func (m *mockOrderStore) GetItemForOrder(ctx context.Context, id int32) (database.ItemForOrderRow, error) {
	return m.getItemForOrderFn(ctx, id)
}
func (m *mockOrderStore) GetMenuItemForUpdate(ctx context.Context, arg database.MenuItemKey) (database.MenuItem, error) {
	return m.getMenuItemForUpdateFn(ctx, arg)
}
func (m *mockOrderStore) DecrementMenuItemCapacity(ctx context.Context, arg database.MenuItemKey) error {
	return m.decrementMenuItemCapacityFn(ctx, arg)
}
func (m *mockOrderStore) IncrementMenuItemCapacity(ctx context.Context, arg database.MenuItemKey) error {
	return m.incrementMenuItemCapacityFn(ctx, arg)
}
func (m *mockOrderStore) GetPackageForItem(ctx context.Context, itemID int32) (database.Package, error) {
	return m.getPackageForItemFn(ctx, itemID)
}
func (m *mockOrderStore) SumPackageQuantity(ctx context.Context, arg database.PackageQuantityParams) (int64, error) {
	return m.sumPackageQuantityFn(ctx, arg)
}
func (m *mockOrderStore) HasPrimaryLunchOrder(ctx context.Context, arg database.PersonnelDay) (bool, error) {
	return m.hasPrimaryLunchOrderFn(ctx, arg)
}
func (m *mockOrderStore) GetOrderItem(ctx context.Context, arg database.OrderItemKey) (database.OrderItem, error) {
	return m.getOrderItemFn(ctx, arg)
}
func (m *mockOrderStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	return m.createOrderItemFn(ctx, arg)
}
func (m *mockOrderStore) IncrementOrderItemQuantity(ctx context.Context, arg database.OrderItemKey) (database.OrderItem, error) {
	return m.incrementOrderItemQuantityFn(ctx, arg)
}
func (m *mockOrderStore) DecrementOrderItemQuantity(ctx context.Context, arg database.OrderItemKey) (database.OrderItem, error) {
	return m.decrementOrderItemQuantityFn(ctx, arg)
}
func (m *mockOrderStore) DeleteOrderItem(ctx context.Context, arg database.OrderItemKey) (database.OrderItem, error) {
	return m.deleteOrderItemFn(ctx, arg)
}
func (m *mockOrderStore) GetDeadline(ctx context.Context, arg database.DeadlineKey) (database.Deadline, error) {
	return m.getDeadlineFn(ctx, arg)
}
func (m *mockOrderStore) GetUser(ctx context.Context, personnel string) (database.User, error) {
	return m.getUserFn(ctx, personnel)
}
func (m *mockOrderStore) UpdateUserLastLocation(ctx context.Context, arg database.UpdateUserLastLocationParams) error {
	return m.updateUserLastLocationFn(ctx, arg)
}
func (m *mockOrderStore) ListDeliveryLocations(ctx context.Context, arg database.PersonnelDay, mealType string) ([]database.DeliveryLocationRow, error) {
	return m.listDeliveryLocationsFn(ctx, arg, mealType)
}
func (m *mockOrderStore) UpdateDeliveryLocation(ctx context.Context, arg database.UpdateDeliveryLocationParams) (int64, error) {
	return m.updateDeliveryLocationFn(ctx, arg)
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

// Test fixture: 1402/09/09 is a Thursday (weekday 5), 1402/09/11 the
// following Saturday (weekday 0). The default clock is pinned to Thursday
// morning; the default deadline (0 days, 15 h) leaves every date from
// Thursday on open.
const (
	testPersonnel = "10234"
	testDate      = "1402/09/11"
	testItemID    = int32(7)
)

func fixedClock(date string, hour int) jcal.Clock {
	return jcal.Fixed{At: jcal.DateTime{Date: jcal.MustParse(date), Hour: hour}}
}

// defaultStore returns a mockOrderStore preloaded for a plain lunch order.
// Individual tests override the functions they care about.
func defaultStore() *mockOrderStore {
	return &mockOrderStore{
		getItemForOrderFn: func(ctx context.Context, id int32) (database.ItemForOrderRow, error) {
			if id == testItemID {
				return database.ItemForOrderRow{
					ID:           testItemID,
					Name:         "khorak",
					MealType:     enum.MealTypeLunch,
					CategoryKind: enum.CategoryKindSide,
					IsActive:     true,
					CurrentPrice: makeNumeric("50000.00"),
				}, nil
			}
			return database.ItemForOrderRow{}, pgx.ErrNoRows
		},
		getMenuItemForUpdateFn: func(ctx context.Context, arg database.MenuItemKey) (database.MenuItem, error) {
			return database.MenuItem{
				ID:            1,
				AvailableDate: arg.AvailableDate,
				ItemID:        arg.ItemID,
				IsActive:      true,
			}, nil
		},
		decrementMenuItemCapacityFn: func(ctx context.Context, arg database.MenuItemKey) error { return nil },
		incrementMenuItemCapacityFn: func(ctx context.Context, arg database.MenuItemKey) error { return nil },
		getPackageForItemFn: func(ctx context.Context, itemID int32) (database.Package, error) {
			return database.Package{}, pgx.ErrNoRows
		},
		sumPackageQuantityFn: func(ctx context.Context, arg database.PackageQuantityParams) (int64, error) {
			return 0, nil
		},
		hasPrimaryLunchOrderFn: func(ctx context.Context, arg database.PersonnelDay) (bool, error) {
			return false, nil
		},
		getOrderItemFn: func(ctx context.Context, arg database.OrderItemKey) (database.OrderItem, error) {
			return database.OrderItem{}, pgx.ErrNoRows
		},
		createOrderItemFn: func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
			return database.OrderItem{
				ID:               11,
				Personnel:        arg.Personnel,
				DeliveryDate:     arg.DeliveryDate,
				ItemID:           arg.ItemID,
				Quantity:         1,
				PricePerOne:      arg.PricePerOne,
				DeliveryBuilding: arg.DeliveryBuilding,
				DeliveryFloor:    arg.DeliveryFloor,
				PackageID:        arg.PackageID,
			}, nil
		},
		incrementOrderItemQuantityFn: func(ctx context.Context, arg database.OrderItemKey) (database.OrderItem, error) {
			panic("unexpected IncrementOrderItemQuantity")
		},
		decrementOrderItemQuantityFn: func(ctx context.Context, arg database.OrderItemKey) (database.OrderItem, error) {
			panic("unexpected DecrementOrderItemQuantity")
		},
		deleteOrderItemFn: func(ctx context.Context, arg database.OrderItemKey) (database.OrderItem, error) {
			panic("unexpected DeleteOrderItem")
		},
		getDeadlineFn: func(ctx context.Context, arg database.DeadlineKey) (database.Deadline, error) {
			return database.Deadline{Weekday: arg.Weekday, MealType: arg.MealType, Days: 0, Hour: 15}, nil
		},
		getUserFn: func(ctx context.Context, personnel string) (database.User, error) {
			return database.User{
				Personnel:    personnel,
				IsActive:     true,
				LastBuilding: pgtype.Text{String: "B2", Valid: true},
				LastFloor:    pgtype.Text{String: "F3", Valid: true},
			}, nil
		},
		updateUserLastLocationFn: func(ctx context.Context, arg database.UpdateUserLastLocationParams) error {
			return nil
		},
		listDeliveryLocationsFn: func(ctx context.Context, arg database.PersonnelDay, mealType string) ([]database.DeliveryLocationRow, error) {
			return nil, nil
		},
		updateDeliveryLocationFn: func(ctx context.Context, arg database.UpdateDeliveryLocationParams) (int64, error) {
			return 0, nil
		},
	}
}

// newTestService creates an OrderService with mocked dependencies.
func newTestService(store *mockOrderStore) (*OrderService, *mockAudit) {
	audit := &mockAudit{}
	pool := &mockTxBeginner{tx: &mockTx{}}
	newStore := func(db database.DBTX) OrderStore { return store }
	clock := fixedClock("1402/09/09", 10)
	return NewOrderService(pool, newStore, audit, clock, nil, nil), audit
}

func selfReq() PlaceOrderRequest {
	return PlaceOrderRequest{
		Actor:        Actor{Personnel: testPersonnel},
		DeliveryDate: testDate,
		ItemID:       testItemID,
	}
}

// =====================
// Placing orders
// =====================

func TestPlaceOrder_InsertsFirstUnit(t *testing.T) {
	store := defaultStore()

	var captured database.CreateOrderItemParams
	created := store.createOrderItemFn
	store.createOrderItemFn = func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
		captured = arg
		return created(ctx, arg)
	}

	svc, audit := newTestService(store)
	result, err := svc.PlaceOrder(context.Background(), selfReq())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured.Personnel != testPersonnel || captured.DeliveryDate != testDate || captured.ItemID != testItemID {
		t.Errorf("create params: got %s/%s/%d", captured.Personnel, captured.DeliveryDate, captured.ItemID)
	}
	if got := numericToDecimal(captured.PricePerOne).StringFixed(2); got != "50000.00" {
		t.Errorf("price_per_one: got %s, want 50000.00", got)
	}
	if captured.PackageID.Valid {
		t.Error("plain item should not carry a package id")
	}
	if result.Order.Quantity != 1 || result.Removed {
		t.Errorf("result: quantity %d removed %v, want 1 false", result.Order.Quantity, result.Removed)
	}
	if len(audit.entries) != 1 || audit.entries[0].ActionCode != enum.ActionOrderCreated {
		t.Fatalf("expected one ORDER_CREATED audit entry, got %+v", audit.entries)
	}
	if audit.entries[0].Actor != testPersonnel || audit.entries[0].OnBehalfOf.Valid {
		t.Errorf("self-service audit actor: got %+v", audit.entries[0])
	}
}

func TestPlaceOrder_MergesIntoExistingRow(t *testing.T) {
	store := defaultStore()
	store.getOrderItemFn = func(ctx context.Context, arg database.OrderItemKey) (database.OrderItem, error) {
		return database.OrderItem{Personnel: arg.Personnel, DeliveryDate: arg.DeliveryDate, ItemID: arg.ItemID, Quantity: 2}, nil
	}
	incremented := false
	store.incrementOrderItemQuantityFn = func(ctx context.Context, arg database.OrderItemKey) (database.OrderItem, error) {
		incremented = true
		return database.OrderItem{Personnel: arg.Personnel, DeliveryDate: arg.DeliveryDate, ItemID: arg.ItemID, Quantity: 3}, nil
	}
	store.createOrderItemFn = func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
		t.Fatal("existing row must be merged, not re-created")
		return database.OrderItem{}, nil
	}

	svc, _ := newTestService(store)
	result, err := svc.PlaceOrder(context.Background(), selfReq())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !incremented {
		t.Fatal("expected IncrementOrderItemQuantity call")
	}
	if result.Order.Quantity != 3 {
		t.Errorf("quantity: got %d, want 3", result.Order.Quantity)
	}
}

func TestPlaceOrder_InvalidDate(t *testing.T) {
	svc, _ := newTestService(defaultStore())
	req := selfReq()
	req.DeliveryDate = "1402/9/11"
	if _, err := svc.PlaceOrder(context.Background(), req); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got: %v", err)
	}
}

func TestPlaceOrder_ItemNotFound(t *testing.T) {
	svc, _ := newTestService(defaultStore())
	req := selfReq()
	req.ItemID = 404
	if _, err := svc.PlaceOrder(context.Background(), req); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got: %v", err)
	}
}

func TestPlaceOrder_InactiveItem(t *testing.T) {
	store := defaultStore()
	store.getItemForOrderFn = func(ctx context.Context, id int32) (database.ItemForOrderRow, error) {
		return database.ItemForOrderRow{ID: id, MealType: enum.MealTypeLunch, IsActive: false}, nil
	}
	svc, _ := newTestService(store)
	if _, err := svc.PlaceOrder(context.Background(), selfReq()); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got: %v", err)
	}
}

func TestPlaceOrder_WrongMealType(t *testing.T) {
	store := defaultStore()
	store.getItemForOrderFn = func(ctx context.Context, id int32) (database.ItemForOrderRow, error) {
		return database.ItemForOrderRow{ID: id, MealType: enum.MealTypeBreakfast, IsActive: true}, nil
	}
	svc, _ := newTestService(store)
	if _, err := svc.PlaceOrder(context.Background(), selfReq()); !errors.Is(err, ErrWrongMealType) {
		t.Fatalf("expected ErrWrongMealType, got: %v", err)
	}
}

func TestPlaceOrder_MenuEntryMissing(t *testing.T) {
	store := defaultStore()
	store.getMenuItemForUpdateFn = func(ctx context.Context, arg database.MenuItemKey) (database.MenuItem, error) {
		return database.MenuItem{}, pgx.ErrNoRows
	}
	svc, _ := newTestService(store)
	if _, err := svc.PlaceOrder(context.Background(), selfReq()); !errors.Is(err, ErrMenuItemNotFound) {
		t.Fatalf("expected ErrMenuItemNotFound, got: %v", err)
	}
}

// =====================
// Window enforcement
// =====================

func TestPlaceOrder_WindowClosed(t *testing.T) {
	store := defaultStore()
	// One day in advance, before 14:00. At 17:00 the day before, the
	// boundary has rolled past the target.
	store.getDeadlineFn = func(ctx context.Context, arg database.DeadlineKey) (database.Deadline, error) {
		return database.Deadline{Weekday: arg.Weekday, MealType: arg.MealType, Days: 1, Hour: 14}, nil
	}
	audit := &mockAudit{}
	pool := &mockTxBeginner{tx: &mockTx{}}
	newStore := func(db database.DBTX) OrderStore { return store }
	svc := NewOrderService(pool, newStore, audit, fixedClock("1402/09/09", 17), nil, nil)

	req := selfReq()
	req.DeliveryDate = "1402/09/10"
	if _, err := svc.PlaceOrder(context.Background(), req); !errors.Is(err, ErrWindowClosed) {
		t.Fatalf("expected ErrWindowClosed, got: %v", err)
	}
	if len(audit.entries) != 0 {
		t.Error("rejected order must not be audited")
	}
}

func TestPlaceOrder_AdminOverrideSkipsWindow(t *testing.T) {
	store := defaultStore()
	store.getDeadlineFn = func(ctx context.Context, arg database.DeadlineKey) (database.Deadline, error) {
		t.Fatal("override must not consult the deadline table")
		return database.Deadline{}, nil
	}
	audit := &mockAudit{}
	pool := &mockTxBeginner{tx: &mockTx{}}
	newStore := func(db database.DBTX) OrderStore { return store }
	svc := NewOrderService(pool, newStore, audit, fixedClock("1402/09/09", 17), nil, nil)

	req := selfReq()
	req.DeliveryDate = "1402/09/10"
	req.Actor = Actor{Personnel: testPersonnel, Admin: "90001", Reason: enum.ReasonPersonnelRequest}
	if _, err := svc.PlaceOrder(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(audit.entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(audit.entries))
	}
	e := audit.entries[0]
	if e.Actor != "90001" || !e.OnBehalfOf.Valid || e.OnBehalfOf.String != testPersonnel {
		t.Errorf("override audit identity: got %+v", e)
	}
	if !e.AdminReason.Valid || e.AdminReason.String != enum.ReasonPersonnelRequest {
		t.Errorf("override audit reason: got %+v", e.AdminReason)
	}
}

// =====================
// Capacity
// =====================

func TestPlaceOrder_CapacityExceeded(t *testing.T) {
	store := defaultStore()
	attempts := 0
	store.decrementMenuItemCapacityFn = func(ctx context.Context, arg database.MenuItemKey) error {
		attempts++
		return &pgconn.PgError{
			Code:           database.PgCodeCheckViolation,
			ConstraintName: database.CapacityConstraint,
		}
	}

	svc, audit := newTestService(store)
	_, err := svc.PlaceOrder(context.Background(), selfReq())
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got: %v", err)
	}
	if attempts != maxCapacityRetries {
		t.Errorf("expected %d attempts (one retry), got %d", maxCapacityRetries, attempts)
	}
	if len(audit.entries) != 0 {
		t.Error("failed order must not be audited")
	}
}

func TestPlaceOrder_OtherCheckViolationNotRetried(t *testing.T) {
	store := defaultStore()
	attempts := 0
	store.decrementMenuItemCapacityFn = func(ctx context.Context, arg database.MenuItemKey) error {
		attempts++
		return &pgconn.PgError{Code: database.PgCodeCheckViolation, ConstraintName: "something_else"}
	}
	svc, _ := newTestService(store)
	_, err := svc.PlaceOrder(context.Background(), selfReq())
	if err == nil || errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected plain error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("unrelated constraint must not retry: got %d attempts", attempts)
	}
}

// =====================
// Primary exclusivity and packages
// =====================

func TestPlaceOrder_PrimaryItemLimit(t *testing.T) {
	store := defaultStore()
	store.getItemForOrderFn = func(ctx context.Context, id int32) (database.ItemForOrderRow, error) {
		return database.ItemForOrderRow{
			ID: id, Name: "ghorme", MealType: enum.MealTypeLunch,
			CategoryKind: enum.CategoryKindPrimary, IsActive: true,
			CurrentPrice: makeNumeric("120000.00"),
		}, nil
	}
	store.hasPrimaryLunchOrderFn = func(ctx context.Context, arg database.PersonnelDay) (bool, error) {
		return true, nil
	}
	svc, _ := newTestService(store)
	if _, err := svc.PlaceOrder(context.Background(), selfReq()); !errors.Is(err, ErrPrimaryItemLimit) {
		t.Fatalf("expected ErrPrimaryItemLimit, got: %v", err)
	}
}

func TestPlaceOrder_PackageCap(t *testing.T) {
	store := defaultStore()
	store.getPackageForItemFn = func(ctx context.Context, itemID int32) (database.Package, error) {
		return database.Package{ID: 4, ContainerItemID: 99, FreeItemCount: 2, IsActive: true}, nil
	}
	store.sumPackageQuantityFn = func(ctx context.Context, arg database.PackageQuantityParams) (int64, error) {
		return 2, nil
	}
	svc, _ := newTestService(store)
	if _, err := svc.PlaceOrder(context.Background(), selfReq()); !errors.Is(err, ErrPackageCapExceeded) {
		t.Fatalf("expected ErrPackageCapExceeded, got: %v", err)
	}
}

func TestPlaceOrder_FirstPackageItemInsertsContainer(t *testing.T) {
	store := defaultStore()
	store.getPackageForItemFn = func(ctx context.Context, itemID int32) (database.Package, error) {
		return database.Package{ID: 4, ContainerItemID: 99, FreeItemCount: 2, IsActive: true}, nil
	}

	var created []database.CreateOrderItemParams
	base := store.createOrderItemFn
	store.createOrderItemFn = func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
		created = append(created, arg)
		return base(ctx, arg)
	}

	svc, _ := newTestService(store)
	if _, err := svc.PlaceOrder(context.Background(), selfReq()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(created) != 2 {
		t.Fatalf("expected container + item rows, got %d creates", len(created))
	}
	container, item := created[0], created[1]
	if container.ItemID != 99 {
		t.Errorf("container item id: got %d, want 99", container.ItemID)
	}
	for _, arg := range created {
		if got := numericToDecimal(arg.PricePerOne).StringFixed(2); got != "0.00" {
			t.Errorf("bundled row %d priced %s, want 0.00", arg.ItemID, got)
		}
		if !arg.PackageID.Valid || arg.PackageID.Int32 != 4 {
			t.Errorf("bundled row %d package id: got %+v", arg.ItemID, arg.PackageID)
		}
	}
	if item.ItemID != testItemID {
		t.Errorf("item row id: got %d, want %d", item.ItemID, testItemID)
	}
}

func TestPlaceOrder_SecondPackageItemSkipsContainer(t *testing.T) {
	store := defaultStore()
	store.getPackageForItemFn = func(ctx context.Context, itemID int32) (database.Package, error) {
		return database.Package{ID: 4, ContainerItemID: 99, FreeItemCount: 3, IsActive: true}, nil
	}
	store.sumPackageQuantityFn = func(ctx context.Context, arg database.PackageQuantityParams) (int64, error) {
		return 1, nil
	}
	store.getOrderItemFn = func(ctx context.Context, arg database.OrderItemKey) (database.OrderItem, error) {
		if arg.ItemID == 99 {
			return database.OrderItem{ItemID: 99, Quantity: 1}, nil
		}
		return database.OrderItem{}, pgx.ErrNoRows
	}

	creates := 0
	base := store.createOrderItemFn
	store.createOrderItemFn = func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
		creates++
		return base(ctx, arg)
	}

	svc, _ := newTestService(store)
	if _, err := svc.PlaceOrder(context.Background(), selfReq()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if creates != 1 {
		t.Errorf("existing container must not be re-created: got %d creates", creates)
	}
}

// =====================
// Breakfast delivery location
// =====================

func TestPlaceBreakfastOrder_DefaultsToLastLocation(t *testing.T) {
	store := defaultStore()
	store.getItemForOrderFn = func(ctx context.Context, id int32) (database.ItemForOrderRow, error) {
		return database.ItemForOrderRow{
			ID: id, Name: "nan panir", MealType: enum.MealTypeBreakfast,
			CategoryKind: enum.CategoryKindSide, IsActive: true,
			CurrentPrice: makeNumeric("20000.00"),
		}, nil
	}

	var captured database.CreateOrderItemParams
	base := store.createOrderItemFn
	store.createOrderItemFn = func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
		captured = arg
		return base(ctx, arg)
	}
	var remembered database.UpdateUserLastLocationParams
	store.updateUserLastLocationFn = func(ctx context.Context, arg database.UpdateUserLastLocationParams) error {
		remembered = arg
		return nil
	}

	svc, _ := newTestService(store)
	if _, err := svc.PlaceBreakfastOrder(context.Background(), selfReq()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.DeliveryBuilding != "B2" || captured.DeliveryFloor != "F3" {
		t.Errorf("delivery location: got %s/%s, want B2/F3", captured.DeliveryBuilding, captured.DeliveryFloor)
	}
	if remembered.Building != "B2" || remembered.Floor != "F3" {
		t.Errorf("remembered location: got %+v", remembered)
	}
}

func TestPlaceBreakfastOrder_NoDefaultLocation(t *testing.T) {
	store := defaultStore()
	store.getItemForOrderFn = func(ctx context.Context, id int32) (database.ItemForOrderRow, error) {
		return database.ItemForOrderRow{ID: id, MealType: enum.MealTypeBreakfast, CategoryKind: enum.CategoryKindSide, IsActive: true}, nil
	}
	store.getUserFn = func(ctx context.Context, personnel string) (database.User, error) {
		return database.User{Personnel: personnel, IsActive: true}, nil
	}
	svc, _ := newTestService(store)
	if _, err := svc.PlaceBreakfastOrder(context.Background(), selfReq()); !errors.Is(err, ErrNoDefaultLocation) {
		t.Fatalf("expected ErrNoDefaultLocation, got: %v", err)
	}
}

func TestPlaceBreakfastOrder_UnknownExplicitLocation(t *testing.T) {
	store := defaultStore()
	store.getItemForOrderFn = func(ctx context.Context, id int32) (database.ItemForOrderRow, error) {
		return database.ItemForOrderRow{ID: id, MealType: enum.MealTypeBreakfast, CategoryKind: enum.CategoryKindSide, IsActive: true}, nil
	}
	pool := &mockTxBeginner{tx: &mockTx{}}
	newStore := func(db database.DBTX) OrderStore { return store }
	svc := NewOrderService(pool, newStore, &mockAudit{}, fixedClock("1402/09/09", 10), nil, &mockResolver{found: false})

	req := selfReq()
	req.Building, req.Floor = "ZZ", "F9"
	if _, err := svc.PlaceBreakfastOrder(context.Background(), req); !errors.Is(err, ErrUnknownLocation) {
		t.Fatalf("expected ErrUnknownLocation, got: %v", err)
	}
}

// =====================
// Cancelling orders
// =====================

func TestCancelOrder_NotFound(t *testing.T) {
	svc, _ := newTestService(defaultStore())
	_, err := svc.CancelOrder(context.Background(), CancelOrderRequest{
		Actor:        Actor{Personnel: testPersonnel},
		DeliveryDate: testDate,
		ItemID:       testItemID,
	})
	if !errors.Is(err, ErrOrderItemNotFound) {
		t.Fatalf("expected ErrOrderItemNotFound, got: %v", err)
	}
}

func TestCancelOrder_DecrementsQuantity(t *testing.T) {
	store := defaultStore()
	store.getOrderItemFn = func(ctx context.Context, arg database.OrderItemKey) (database.OrderItem, error) {
		return database.OrderItem{Personnel: arg.Personnel, DeliveryDate: arg.DeliveryDate, ItemID: arg.ItemID, Quantity: 3}, nil
	}
	store.decrementOrderItemQuantityFn = func(ctx context.Context, arg database.OrderItemKey) (database.OrderItem, error) {
		return database.OrderItem{Personnel: arg.Personnel, DeliveryDate: arg.DeliveryDate, ItemID: arg.ItemID, Quantity: 2}, nil
	}
	restored := false
	store.incrementMenuItemCapacityFn = func(ctx context.Context, arg database.MenuItemKey) error {
		restored = true
		return nil
	}

	svc, audit := newTestService(store)
	result, err := svc.CancelOrder(context.Background(), CancelOrderRequest{
		Actor: Actor{Personnel: testPersonnel}, DeliveryDate: testDate, ItemID: testItemID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Order.Quantity != 2 || result.Removed {
		t.Errorf("result: quantity %d removed %v, want 2 false", result.Order.Quantity, result.Removed)
	}
	if !restored {
		t.Error("expected capacity to be restored")
	}
	if len(audit.entries) != 1 || audit.entries[0].ActionCode != enum.ActionOrderCancelled {
		t.Fatalf("expected one ORDER_CANCELLED audit entry, got %+v", audit.entries)
	}
}

func TestCancelOrder_LastUnitDeletesRow(t *testing.T) {
	store := defaultStore()
	store.getOrderItemFn = func(ctx context.Context, arg database.OrderItemKey) (database.OrderItem, error) {
		return database.OrderItem{Personnel: arg.Personnel, DeliveryDate: arg.DeliveryDate, ItemID: arg.ItemID, Quantity: 1}, nil
	}
	store.deleteOrderItemFn = func(ctx context.Context, arg database.OrderItemKey) (database.OrderItem, error) {
		return database.OrderItem{Personnel: arg.Personnel, DeliveryDate: arg.DeliveryDate, ItemID: arg.ItemID, Quantity: 1}, nil
	}

	svc, _ := newTestService(store)
	result, err := svc.CancelOrder(context.Background(), CancelOrderRequest{
		Actor: Actor{Personnel: testPersonnel}, DeliveryDate: testDate, ItemID: testItemID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Removed {
		t.Error("expected the row to be removed")
	}
}

func TestCancelOrder_LastPackageItemDropsContainer(t *testing.T) {
	store := defaultStore()
	pkgID := pgtype.Int4{Int32: 4, Valid: true}
	store.getOrderItemFn = func(ctx context.Context, arg database.OrderItemKey) (database.OrderItem, error) {
		return database.OrderItem{
			Personnel: arg.Personnel, DeliveryDate: arg.DeliveryDate,
			ItemID: arg.ItemID, Quantity: 1, PackageID: pkgID,
		}, nil
	}
	store.getPackageForItemFn = func(ctx context.Context, itemID int32) (database.Package, error) {
		return database.Package{ID: 4, ContainerItemID: 99, FreeItemCount: 2, IsActive: true}, nil
	}

	var deleted []int32
	store.deleteOrderItemFn = func(ctx context.Context, arg database.OrderItemKey) (database.OrderItem, error) {
		deleted = append(deleted, arg.ItemID)
		return database.OrderItem{Personnel: arg.Personnel, DeliveryDate: arg.DeliveryDate, ItemID: arg.ItemID, Quantity: 1}, nil
	}

	svc, _ := newTestService(store)
	_, err := svc.CancelOrder(context.Background(), CancelOrderRequest{
		Actor: Actor{Personnel: testPersonnel}, DeliveryDate: testDate, ItemID: testItemID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deleted) != 2 || deleted[0] != testItemID || deleted[1] != 99 {
		t.Errorf("deleted rows: got %v, want [%d 99]", deleted, testItemID)
	}
}

func TestCancelOrder_WindowClosed(t *testing.T) {
	store := defaultStore()
	store.getOrderItemFn = func(ctx context.Context, arg database.OrderItemKey) (database.OrderItem, error) {
		return database.OrderItem{Personnel: arg.Personnel, DeliveryDate: arg.DeliveryDate, ItemID: arg.ItemID, Quantity: 1}, nil
	}
	store.getDeadlineFn = func(ctx context.Context, arg database.DeadlineKey) (database.Deadline, error) {
		return database.Deadline{Weekday: arg.Weekday, MealType: arg.MealType, Days: 1, Hour: 14}, nil
	}
	pool := &mockTxBeginner{tx: &mockTx{}}
	newStore := func(db database.DBTX) OrderStore { return store }
	svc := NewOrderService(pool, newStore, &mockAudit{}, fixedClock("1402/09/09", 17), nil, nil)

	_, err := svc.CancelOrder(context.Background(), CancelOrderRequest{
		Actor: Actor{Personnel: testPersonnel}, DeliveryDate: "1402/09/10", ItemID: testItemID,
	})
	if !errors.Is(err, ErrWindowClosed) {
		t.Fatalf("expected ErrWindowClosed, got: %v", err)
	}
}

// =====================
// Delivery location change
// =====================

func TestChangeDeliveryLocation_Updates(t *testing.T) {
	store := defaultStore()
	store.listDeliveryLocationsFn = func(ctx context.Context, arg database.PersonnelDay, mealType string) ([]database.DeliveryLocationRow, error) {
		return []database.DeliveryLocationRow{{DeliveryBuilding: "B1", DeliveryFloor: "F1"}}, nil
	}
	var captured database.UpdateDeliveryLocationParams
	store.updateDeliveryLocationFn = func(ctx context.Context, arg database.UpdateDeliveryLocationParams) (int64, error) {
		captured = arg
		return 2, nil
	}

	pool := &mockTxBeginner{tx: &mockTx{}}
	newStore := func(db database.DBTX) OrderStore { return store }
	audit := &mockAudit{}
	svc := NewOrderService(pool, newStore, audit, fixedClock("1402/09/09", 10), nil, &mockResolver{found: true})

	err := svc.ChangeDeliveryLocation(context.Background(), ChangeDeliveryLocationRequest{
		Actor: Actor{Personnel: testPersonnel}, DeliveryDate: testDate, Building: "B2", Floor: "F3",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.Building != "B2" || captured.Floor != "F3" || captured.MealType != enum.MealTypeBreakfast {
		t.Errorf("update params: got %+v", captured)
	}
	if len(audit.entries) != 1 || audit.entries[0].ActionCode != enum.ActionDeliveryChanged {
		t.Fatalf("expected one DELIVERY_CHANGED audit entry, got %+v", audit.entries)
	}
}

func TestChangeDeliveryLocation_SameLocation(t *testing.T) {
	store := defaultStore()
	store.listDeliveryLocationsFn = func(ctx context.Context, arg database.PersonnelDay, mealType string) ([]database.DeliveryLocationRow, error) {
		return []database.DeliveryLocationRow{{DeliveryBuilding: "B2", DeliveryFloor: "F3"}}, nil
	}
	svc, _ := newTestService(store)
	err := svc.ChangeDeliveryLocation(context.Background(), ChangeDeliveryLocationRequest{
		Actor: Actor{Personnel: testPersonnel}, DeliveryDate: testDate, Building: "B2", Floor: "F3",
	})
	if !errors.Is(err, ErrSameDeliveryLocation) {
		t.Fatalf("expected ErrSameDeliveryLocation, got: %v", err)
	}
}

func TestChangeDeliveryLocation_NoOrders(t *testing.T) {
	svc, _ := newTestService(defaultStore())
	err := svc.ChangeDeliveryLocation(context.Background(), ChangeDeliveryLocationRequest{
		Actor: Actor{Personnel: testPersonnel}, DeliveryDate: testDate, Building: "B2", Floor: "F3",
	})
	if !errors.Is(err, ErrOrderItemNotFound) {
		t.Fatalf("expected ErrOrderItemNotFound, got: %v", err)
	}
}
