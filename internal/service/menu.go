package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/daway0/pors/internal/database"
	"github.com/daway0/pors/internal/enum"
	"github.com/daway0/pors/internal/jcal"
)

// MenuStore defines the DB methods menu curation needs.
type MenuStore interface {
	GetItemForOrder(ctx context.Context, id int32) (database.ItemForOrderRow, error)
	GetMenuItem(ctx context.Context, arg database.MenuItemKey) (database.MenuItem, error)
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	DeleteMenuItem(ctx context.Context, arg database.MenuItemKey) (database.MenuItem, error)
	CountOrdersForMenuItem(ctx context.Context, arg database.MenuItemKey) (int64, error)
	GetDeadline(ctx context.Context, arg database.DeadlineKey) (database.Deadline, error)
}

// NewMenuStore creates a MenuStore from a DBTX (pool or tx).
type NewMenuStore func(db database.DBTX) MenuStore

// AddMenuItemRequest lists an item on one day's menu. TotalOrdersAllowed
// nil means unlimited capacity.
type AddMenuItemRequest struct {
	Admin              string
	AvailableDate      string
	ItemID             int32
	TotalOrdersAllowed *int32
}

// RemoveMenuItemRequest delists an item from one day's menu.
type RemoveMenuItemRequest struct {
	Admin         string
	AvailableDate string
	ItemID        int32
}

// MenuService curates the daily menus. Curation is admin work but still
// bound by the submission window; there is no on-behalf-of concept here.
type MenuService struct {
	pool     TxBeginner
	newStore NewMenuStore
	audit    AuditStore
	clock    jcal.Clock
}

// NewMenuService creates a new MenuService.
func NewMenuService(pool TxBeginner, newStore NewMenuStore, audit AuditStore, clock jcal.Clock) *MenuService {
	return &MenuService{pool: pool, newStore: newStore, audit: audit, clock: clock}
}

// AddMenuItem lists an active item on a date. Fails on unknown or inactive
// items, duplicate listings and closed windows.
func (s *MenuService) AddMenuItem(ctx context.Context, req AddMenuItemRequest) (*database.MenuItem, error) {
	target, ok := jcal.Parse(req.AvailableDate)
	if !ok {
		return nil, ErrInvalidDate
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	key := database.MenuItemKey{AvailableDate: target.String(), ItemID: req.ItemID}

	item, err := store.GetItemForOrder(ctx, req.ItemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	if !item.IsActive {
		return nil, ErrItemNotFound
	}

	if _, err := store.GetMenuItem(ctx, key); err == nil {
		return nil, ErrDuplicateMenuItem
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get menu item: %w", err)
	}

	if err := checkWindow(ctx, store, s.clock.Now(), target, item.MealType); err != nil {
		return nil, err
	}

	allowed := pgtype.Int4{}
	if req.TotalOrdersAllowed != nil {
		allowed = pgtype.Int4{Int32: *req.TotalOrdersAllowed, Valid: true}
	}
	entry, err := store.CreateMenuItem(ctx, database.CreateMenuItemParams{
		AvailableDate:      key.AvailableDate,
		ItemID:             key.ItemID,
		TotalOrdersAllowed: allowed,
	})
	if err != nil {
		// Lost a race with another admin listing the same item.
		if isUniqueViolation(err) {
			return nil, ErrDuplicateMenuItem
		}
		return nil, fmt.Errorf("create menu item: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	recordAudit(ctx, s.audit, database.InsertActionLogParams{
		Actor:      req.Admin,
		ActionCode: enum.ActionMenuItemAdded,
		TableName:  "menu_items",
		RecordRef:  fmt.Sprintf("%s/%d", key.AvailableDate, key.ItemID),
		Detail:     fmt.Sprintf("%s listed", item.Name),
	})
	return &entry, nil
}

// RemoveMenuItem delists an entry. Entries someone already ordered from
// stay put until the orders are cancelled.
func (s *MenuService) RemoveMenuItem(ctx context.Context, req RemoveMenuItemRequest) error {
	target, ok := jcal.Parse(req.AvailableDate)
	if !ok {
		return ErrInvalidDate
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	key := database.MenuItemKey{AvailableDate: target.String(), ItemID: req.ItemID}

	if _, err := store.GetMenuItem(ctx, key); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrMenuItemNotFound
		}
		return fmt.Errorf("get menu item: %w", err)
	}

	orders, err := store.CountOrdersForMenuItem(ctx, key)
	if err != nil {
		return fmt.Errorf("count orders: %w", err)
	}
	if orders > 0 {
		return ErrMenuItemInUse
	}

	item, err := store.GetItemForOrder(ctx, req.ItemID)
	if err != nil {
		return fmt.Errorf("get item: %w", err)
	}
	if err := checkWindow(ctx, store, s.clock.Now(), target, item.MealType); err != nil {
		return err
	}

	removed, err := store.DeleteMenuItem(ctx, key)
	if err != nil {
		return fmt.Errorf("delete menu item: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	recordAudit(ctx, s.audit, database.InsertActionLogParams{
		Actor:      req.Admin,
		ActionCode: enum.ActionMenuItemRemoved,
		TableName:  "menu_items",
		RecordRef:  fmt.Sprintf("%s/%d", key.AvailableDate, key.ItemID),
		Detail:     fmt.Sprintf("%s delisted", item.Name),
		OldData:    auditJSON(removed),
	})
	return nil
}
