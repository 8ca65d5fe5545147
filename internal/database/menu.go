package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

type MenuItemKey struct {
	AvailableDate string
	ItemID        int32
}

const menuItemColumns = `id, available_date, item_id, is_active, total_orders_allowed, total_orders_left`

func scanMenuItem(row interface{ Scan(dest ...any) error }) (MenuItem, error) {
	var m MenuItem
	err := row.Scan(&m.ID, &m.AvailableDate, &m.ItemID, &m.IsActive, &m.TotalOrdersAllowed, &m.TotalOrdersLeft)
	return m, err
}

func (q *Queries) GetMenuItem(ctx context.Context, arg MenuItemKey) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, `
		SELECT `+menuItemColumns+`
		FROM menu_items
		WHERE available_date = $1 AND item_id = $2`,
		arg.AvailableDate, arg.ItemID))
}

// GetMenuItemForUpdate locks the menu row for the duration of the enclosing
// transaction. Capacity-affecting transitions take this lock first so two
// orders racing for the last unit serialize on it.
func (q *Queries) GetMenuItemForUpdate(ctx context.Context, arg MenuItemKey) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, `
		SELECT `+menuItemColumns+`
		FROM menu_items
		WHERE available_date = $1 AND item_id = $2
		FOR UPDATE`,
		arg.AvailableDate, arg.ItemID))
}

type CreateMenuItemParams struct {
	AvailableDate      string
	ItemID             int32
	TotalOrdersAllowed pgtype.Int4
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, `
		INSERT INTO menu_items (available_date, item_id, is_active, total_orders_allowed, total_orders_left)
		VALUES ($1, $2, true, $3, $3)
		RETURNING `+menuItemColumns,
		arg.AvailableDate, arg.ItemID, arg.TotalOrdersAllowed))
}

func (q *Queries) DeleteMenuItem(ctx context.Context, arg MenuItemKey) (MenuItem, error) {
	return scanMenuItem(q.db.QueryRow(ctx, `
		DELETE FROM menu_items
		WHERE available_date = $1 AND item_id = $2
		RETURNING `+menuItemColumns,
		arg.AvailableDate, arg.ItemID))
}

// DecrementMenuItemCapacity takes one unit from a limited pool. Unlimited
// rows (NULL counter) are untouched. When the pool is exhausted the CHECK
// constraint fires and the enclosing transaction rolls back; callers map
// that 23514 to a capacity error.
func (q *Queries) DecrementMenuItemCapacity(ctx context.Context, arg MenuItemKey) error {
	_, err := q.db.Exec(ctx, `
		UPDATE menu_items
		SET total_orders_left = total_orders_left - 1
		WHERE available_date = $1 AND item_id = $2 AND total_orders_left IS NOT NULL`,
		arg.AvailableDate, arg.ItemID)
	return err
}

func (q *Queries) IncrementMenuItemCapacity(ctx context.Context, arg MenuItemKey) error {
	_, err := q.db.Exec(ctx, `
		UPDATE menu_items
		SET total_orders_left = total_orders_left + 1
		WHERE available_date = $1 AND item_id = $2 AND total_orders_left IS NOT NULL`,
		arg.AvailableDate, arg.ItemID)
	return err
}

// MenuEntryRow is a daily menu entry joined with its item for menu reads.
type MenuEntryRow struct {
	ItemID          int32
	ItemName        string
	MealType        string
	CategoryName    string
	CategoryKind    string
	CurrentPrice    pgtype.Numeric
	TotalOrdersLeft pgtype.Int4
}

func (q *Queries) ListMenuByDate(ctx context.Context, availableDate string) ([]MenuEntryRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT i.id, i.name, i.meal_type, c.name, c.kind, i.current_price, m.total_orders_left
		FROM menu_items m
		JOIN items i ON i.id = m.item_id
		JOIN categories c ON c.id = i.category_id
		WHERE m.available_date = $1 AND m.is_active
		ORDER BY c.name, i.name`,
		availableDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MenuEntryRow
	for rows.Next() {
		var r MenuEntryRow
		if err := rows.Scan(&r.ItemID, &r.ItemName, &r.MealType, &r.CategoryName, &r.CategoryKind, &r.CurrentPrice, &r.TotalOrdersLeft); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type DateRange struct {
	From string
	To   string
}

func (q *Queries) ListDatesWithMenu(ctx context.Context, arg DateRange) ([]string, error) {
	rows, err := q.db.Query(ctx, `
		SELECT DISTINCT available_date
		FROM menu_items
		WHERE available_date BETWEEN $1 AND $2 AND is_active
		ORDER BY available_date`,
		arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CountOrdersForMenuItem counts order rows referencing a menu entry; menu
// removal is only legal at zero.
func (q *Queries) CountOrdersForMenuItem(ctx context.Context, arg MenuItemKey) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM order_items
		WHERE delivery_date = $1 AND item_id = $2`,
		arg.AvailableDate, arg.ItemID).Scan(&n)
	return n, err
}
