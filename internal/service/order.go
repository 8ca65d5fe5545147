package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/daway0/pors/internal/database"
	"github.com/daway0/pors/internal/enum"
	"github.com/daway0/pors/internal/jcal"
)

// One retry after a capacity conflict: the first attempt may lose the race
// for the last unit, the re-read on the second attempt settles it.
const maxCapacityRetries = 2

// OrderStore defines the DB methods the order pipelines need.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetItemForOrder(ctx context.Context, id int32) (database.ItemForOrderRow, error)
	GetMenuItemForUpdate(ctx context.Context, arg database.MenuItemKey) (database.MenuItem, error)
	DecrementMenuItemCapacity(ctx context.Context, arg database.MenuItemKey) error
	IncrementMenuItemCapacity(ctx context.Context, arg database.MenuItemKey) error
	GetPackageForItem(ctx context.Context, itemID int32) (database.Package, error)
	SumPackageQuantity(ctx context.Context, arg database.PackageQuantityParams) (int64, error)
	HasPrimaryLunchOrder(ctx context.Context, arg database.PersonnelDay) (bool, error)
	GetOrderItem(ctx context.Context, arg database.OrderItemKey) (database.OrderItem, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	IncrementOrderItemQuantity(ctx context.Context, arg database.OrderItemKey) (database.OrderItem, error)
	DecrementOrderItemQuantity(ctx context.Context, arg database.OrderItemKey) (database.OrderItem, error)
	DeleteOrderItem(ctx context.Context, arg database.OrderItemKey) (database.OrderItem, error)
	GetDeadline(ctx context.Context, arg database.DeadlineKey) (database.Deadline, error)
	GetUser(ctx context.Context, personnel string) (database.User, error)
	UpdateUserLastLocation(ctx context.Context, arg database.UpdateUserLastLocationParams) error
	ListDeliveryLocations(ctx context.Context, arg database.PersonnelDay, mealType string) ([]database.DeliveryLocationRow, error)
	UpdateDeliveryLocation(ctx context.Context, arg database.UpdateDeliveryLocationParams) (int64, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// LocationResolver checks delivery location codes against the HR directory.
type LocationResolver interface {
	Resolve(ctx context.Context, building, floor string) (bool, error)
}

// PlaceOrderRequest is the validated input for placing one unit of an item.
type PlaceOrderRequest struct {
	Actor        Actor
	DeliveryDate string
	ItemID       int32

	// Explicit delivery location, breakfast only. When empty the user's
	// last-used location is the default.
	Building string
	Floor    string
}

// CancelOrderRequest removes one unit of an ordered item.
type CancelOrderRequest struct {
	Actor        Actor
	DeliveryDate string
	ItemID       int32
}

// OrderResult is the order row after a transition, with the item named for
// display and the feed.
type OrderResult struct {
	Order    database.OrderItem
	ItemName string
	// Removed is set when a cancellation deleted the row entirely.
	Removed bool
}

// OrderService runs the per-(personnel, date, item) order state machine:
// absent -> qty=1 -> qty=n -> absent. Every transition is one transaction;
// capacity is held by the locked menu row and the non-negative CHECK.
type OrderService struct {
	pool      TxBeginner
	newStore  NewOrderStore
	audit     AuditStore
	clock     jcal.Clock
	feed      Feed
	locations LocationResolver
}

// NewOrderService creates a new OrderService. feed may be nil.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, audit AuditStore, clock jcal.Clock, feed Feed, locations LocationResolver) *OrderService {
	return &OrderService{
		pool:      pool,
		newStore:  newStore,
		audit:     audit,
		clock:     clock,
		feed:      feed,
		locations: locations,
	}
}

// PlaceOrder places one unit of a lunch item.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*OrderResult, error) {
	return s.place(ctx, req, enum.MealTypeLunch)
}

// PlaceBreakfastOrder places one unit of a breakfast item, delivered to a
// building/floor rather than the restaurant.
func (s *OrderService) PlaceBreakfastOrder(ctx context.Context, req PlaceOrderRequest) (*OrderResult, error) {
	return s.place(ctx, req, enum.MealTypeBreakfast)
}

func (s *OrderService) place(ctx context.Context, req PlaceOrderRequest, mealType string) (*OrderResult, error) {
	target, ok := jcal.Parse(req.DeliveryDate)
	if !ok {
		return nil, ErrInvalidDate
	}

	var lastErr error
	for attempt := 0; attempt < maxCapacityRetries; attempt++ {
		result, before, err := s.placeTx(ctx, req, target, mealType)
		if err == nil {
			s.afterCommit(ctx, req.Actor, enum.ActionOrderCreated, result, before)
			return result, nil
		}
		if isCapacityViolation(err) {
			lastErr = ErrCapacityExceeded
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

func (s *OrderService) placeTx(ctx context.Context, req PlaceOrderRequest, target jcal.Date, mealType string) (*OrderResult, int32, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	date := target.String()

	// --- Item exists and is active ---
	item, err := store.GetItemForOrder(ctx, req.ItemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, ErrItemNotFound
		}
		return nil, 0, fmt.Errorf("get item: %w", err)
	}
	if !item.IsActive {
		return nil, 0, ErrItemNotFound
	}
	if item.MealType != mealType {
		return nil, 0, ErrWrongMealType
	}

	// --- Menu entry exists, lock it for the capacity transition ---
	menuKey := database.MenuItemKey{AvailableDate: date, ItemID: req.ItemID}
	menu, err := store.GetMenuItemForUpdate(ctx, menuKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, ErrMenuItemNotFound
		}
		return nil, 0, fmt.Errorf("get menu item: %w", err)
	}
	if !menu.IsActive {
		return nil, 0, ErrMenuItemNotFound
	}

	// --- Delivery location (breakfast only) ---
	building, floor := "", ""
	if mealType == enum.MealTypeBreakfast {
		building, floor, err = s.resolveLocation(ctx, store, req)
		if err != nil {
			return nil, 0, err
		}
	}

	// --- Package membership and per-day cap ---
	price := numericToDecimal(item.CurrentPrice)
	packageID := pgtype.Int4{}
	var pkg database.Package
	inPackage := false
	pkg, err = store.GetPackageForItem(ctx, req.ItemID)
	switch {
	case err == nil:
		inPackage = true
		packageID = pgtype.Int4{Int32: pkg.ID, Valid: true}
		price = decimal.Zero
	case errors.Is(err, pgx.ErrNoRows):
		// plain item
	default:
		return nil, 0, fmt.Errorf("get package: %w", err)
	}
	if inPackage {
		used, err := store.SumPackageQuantity(ctx, database.PackageQuantityParams{
			Personnel:    req.Actor.Personnel,
			DeliveryDate: date,
			PackageID:    pkg.ID,
		})
		if err != nil {
			return nil, 0, fmt.Errorf("sum package quantity: %w", err)
		}
		if used >= int64(pkg.FreeItemCount) {
			return nil, 0, ErrPackageCapExceeded
		}
	}

	// --- Primary-item exclusivity (lunch) ---
	if mealType == enum.MealTypeLunch && item.CategoryKind == enum.CategoryKindPrimary {
		has, err := store.HasPrimaryLunchOrder(ctx, database.PersonnelDay{
			Personnel:    req.Actor.Personnel,
			DeliveryDate: date,
		})
		if err != nil {
			return nil, 0, fmt.Errorf("check primary order: %w", err)
		}
		if has {
			return nil, 0, ErrPrimaryItemLimit
		}
	}

	// --- Submission window, unless an admin overrides ---
	if !req.Actor.IsOverride() {
		if err := checkWindow(ctx, store, s.clock.Now(), target, mealType); err != nil {
			return nil, 0, err
		}
	}

	// --- Take one unit of capacity. Sold-out pools trip the CHECK. ---
	if err := store.DecrementMenuItemCapacity(ctx, menuKey); err != nil {
		return nil, 0, fmt.Errorf("decrement capacity: %w", err)
	}

	// --- First bundled order of the day inserts the container row ---
	if inPackage {
		containerKey := database.OrderItemKey{
			Personnel:    req.Actor.Personnel,
			DeliveryDate: date,
			ItemID:       pkg.ContainerItemID,
		}
		if _, err := store.GetOrderItem(ctx, containerKey); err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return nil, 0, fmt.Errorf("get container row: %w", err)
			}
			_, err = store.CreateOrderItem(ctx, database.CreateOrderItemParams{
				Personnel:        req.Actor.Personnel,
				DeliveryDate:     date,
				ItemID:           pkg.ContainerItemID,
				PricePerOne:      decimalToNumeric(decimal.Zero),
				DeliveryBuilding: building,
				DeliveryFloor:    floor,
				PackageID:        packageID,
			})
			if err != nil {
				return nil, 0, fmt.Errorf("create container row: %w", err)
			}
		}
	}

	// --- Merge into the unique row or insert it ---
	key := database.OrderItemKey{
		Personnel:    req.Actor.Personnel,
		DeliveryDate: date,
		ItemID:       req.ItemID,
	}
	var before int32
	var row database.OrderItem
	existing, err := store.GetOrderItem(ctx, key)
	switch {
	case err == nil:
		before = existing.Quantity
		row, err = store.IncrementOrderItemQuantity(ctx, key)
		if err != nil {
			return nil, 0, fmt.Errorf("increment quantity: %w", err)
		}
	case errors.Is(err, pgx.ErrNoRows):
		row, err = store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			Personnel:        req.Actor.Personnel,
			DeliveryDate:     date,
			ItemID:           req.ItemID,
			PricePerOne:      decimalToNumeric(price),
			DeliveryBuilding: building,
			DeliveryFloor:    floor,
			PackageID:        packageID,
		})
		if err != nil {
			return nil, 0, fmt.Errorf("create order item: %w", err)
		}
	default:
		return nil, 0, fmt.Errorf("get order item: %w", err)
	}

	if mealType == enum.MealTypeBreakfast {
		err = store.UpdateUserLastLocation(ctx, database.UpdateUserLastLocationParams{
			Personnel: req.Actor.Personnel,
			Building:  building,
			Floor:     floor,
		})
		if err != nil {
			return nil, 0, fmt.Errorf("update last location: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, fmt.Errorf("commit tx: %w", err)
	}
	return &OrderResult{Order: row, ItemName: item.Name}, before, nil
}

// resolveLocation picks the explicit location or falls back to the user's
// last-used one. Explicit codes are checked against the directory.
func (s *OrderService) resolveLocation(ctx context.Context, store OrderStore, req PlaceOrderRequest) (string, string, error) {
	if req.Building != "" && req.Floor != "" {
		if s.locations != nil {
			ok, err := s.locations.Resolve(ctx, req.Building, req.Floor)
			if err != nil {
				return "", "", fmt.Errorf("resolve location: %w", err)
			}
			if !ok {
				return "", "", ErrUnknownLocation
			}
		}
		return req.Building, req.Floor, nil
	}
	user, err := store.GetUser(ctx, req.Actor.Personnel)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", ErrUserNotFound
		}
		return "", "", fmt.Errorf("get user: %w", err)
	}
	if !user.LastBuilding.Valid || !user.LastFloor.Valid {
		return "", "", ErrNoDefaultLocation
	}
	return user.LastBuilding.String, user.LastFloor.String, nil
}

// CancelOrder removes one unit of an ordered item, restoring its capacity.
// The last unit deletes the row; the last bundled item of a package also
// removes the zero-priced container row.
func (s *OrderService) CancelOrder(ctx context.Context, req CancelOrderRequest) (*OrderResult, error) {
	target, ok := jcal.Parse(req.DeliveryDate)
	if !ok {
		return nil, ErrInvalidDate
	}

	result, before, err := s.cancelTx(ctx, req, target)
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, req.Actor, enum.ActionOrderCancelled, result, before)
	return result, nil
}

func (s *OrderService) cancelTx(ctx context.Context, req CancelOrderRequest, target jcal.Date) (*OrderResult, int32, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	date := target.String()
	key := database.OrderItemKey{
		Personnel:    req.Actor.Personnel,
		DeliveryDate: date,
		ItemID:       req.ItemID,
	}

	existing, err := store.GetOrderItem(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, ErrOrderItemNotFound
		}
		return nil, 0, fmt.Errorf("get order item: %w", err)
	}
	before := existing.Quantity

	item, err := store.GetItemForOrder(ctx, req.ItemID)
	if err != nil {
		return nil, 0, fmt.Errorf("get item: %w", err)
	}

	if !req.Actor.IsOverride() {
		if err := checkWindow(ctx, store, s.clock.Now(), target, item.MealType); err != nil {
			return nil, 0, err
		}
	}

	menuKey := database.MenuItemKey{AvailableDate: date, ItemID: req.ItemID}
	result := &OrderResult{ItemName: item.Name}
	if existing.Quantity > 1 {
		row, err := store.DecrementOrderItemQuantity(ctx, key)
		if err != nil {
			return nil, 0, fmt.Errorf("decrement quantity: %w", err)
		}
		result.Order = row
	} else {
		row, err := store.DeleteOrderItem(ctx, key)
		if err != nil {
			return nil, 0, fmt.Errorf("delete order item: %w", err)
		}
		result.Order = row
		result.Removed = true

		// Last bundled item gone: drop the container row too.
		if existing.PackageID.Valid {
			if err := s.dropEmptyContainer(ctx, store, existing); err != nil {
				return nil, 0, err
			}
		}
	}

	// Unlimited pools and off-menu container items are no-ops here.
	if err := store.IncrementMenuItemCapacity(ctx, menuKey); err != nil {
		return nil, 0, fmt.Errorf("increment capacity: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, fmt.Errorf("commit tx: %w", err)
	}
	return result, before, nil
}

func (s *OrderService) dropEmptyContainer(ctx context.Context, store OrderStore, removed database.OrderItem) error {
	pkg, err := store.GetPackageForItem(ctx, removed.ItemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The removed row was the container itself.
			return nil
		}
		return fmt.Errorf("get package: %w", err)
	}
	left, err := store.SumPackageQuantity(ctx, database.PackageQuantityParams{
		Personnel:    removed.Personnel,
		DeliveryDate: removed.DeliveryDate,
		PackageID:    pkg.ID,
	})
	if err != nil {
		return fmt.Errorf("sum package quantity: %w", err)
	}
	if left > 0 {
		return nil
	}
	_, err = store.DeleteOrderItem(ctx, database.OrderItemKey{
		Personnel:    removed.Personnel,
		DeliveryDate: removed.DeliveryDate,
		ItemID:       pkg.ContainerItemID,
	})
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("delete container row: %w", err)
	}
	return nil
}

// afterCommit writes the audit record and broadcasts the feed event. Both
// are best-effort and never fail the committed transition.
func (s *OrderService) afterCommit(ctx context.Context, actor Actor, action string, result *OrderResult, beforeQty int32) {
	afterQty := result.Order.Quantity
	if result.Removed {
		afterQty = 0
	}
	actorName, onBehalfOf, reason, comment := auditActor(actor)
	recordAudit(ctx, s.audit, database.InsertActionLogParams{
		Actor:        actorName,
		OnBehalfOf:   onBehalfOf,
		ActionCode:   action,
		TableName:    "order_items",
		RecordRef:    fmt.Sprintf("%s/%s/%d", actor.Personnel, result.Order.DeliveryDate, result.Order.ItemID),
		Detail:       fmt.Sprintf("%s quantity %d -> %d", result.ItemName, beforeQty, afterQty),
		AdminReason:  reason,
		AdminComment: comment,
		OldData:      auditJSON(map[string]any{"quantity": beforeQty}),
	})
	if s.feed != nil {
		s.feed.PublishOrderEvent(result.Order.DeliveryDate, OrderEvent{
			Action:       action,
			Personnel:    actor.Personnel,
			DeliveryDate: result.Order.DeliveryDate,
			ItemID:       result.Order.ItemID,
			ItemName:     result.ItemName,
			Quantity:     afterQty,
		})
	}
}
