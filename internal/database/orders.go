package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

type OrderItemKey struct {
	Personnel    string
	DeliveryDate string
	ItemID       int32
}

const orderItemColumns = `id, personnel, delivery_date, item_id, quantity, price_per_one, delivery_building, delivery_floor, package_id`

func scanOrderItem(row interface{ Scan(dest ...any) error }) (OrderItem, error) {
	var o OrderItem
	err := row.Scan(&o.ID, &o.Personnel, &o.DeliveryDate, &o.ItemID, &o.Quantity,
		&o.PricePerOne, &o.DeliveryBuilding, &o.DeliveryFloor, &o.PackageID)
	return o, err
}

func (q *Queries) GetOrderItem(ctx context.Context, arg OrderItemKey) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, `
		SELECT `+orderItemColumns+`
		FROM order_items
		WHERE personnel = $1 AND delivery_date = $2 AND item_id = $3`,
		arg.Personnel, arg.DeliveryDate, arg.ItemID))
}

type CreateOrderItemParams struct {
	Personnel        string
	DeliveryDate     string
	ItemID           int32
	PricePerOne      pgtype.Numeric
	DeliveryBuilding string
	DeliveryFloor    string
	PackageID        pgtype.Int4
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, `
		INSERT INTO order_items (personnel, delivery_date, item_id, quantity, price_per_one, delivery_building, delivery_floor, package_id)
		VALUES ($1, $2, $3, 1, $4, $5, $6, $7)
		RETURNING `+orderItemColumns,
		arg.Personnel, arg.DeliveryDate, arg.ItemID, arg.PricePerOne,
		arg.DeliveryBuilding, arg.DeliveryFloor, arg.PackageID))
}

func (q *Queries) IncrementOrderItemQuantity(ctx context.Context, arg OrderItemKey) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, `
		UPDATE order_items
		SET quantity = quantity + 1
		WHERE personnel = $1 AND delivery_date = $2 AND item_id = $3
		RETURNING `+orderItemColumns,
		arg.Personnel, arg.DeliveryDate, arg.ItemID))
}

func (q *Queries) DecrementOrderItemQuantity(ctx context.Context, arg OrderItemKey) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, `
		UPDATE order_items
		SET quantity = quantity - 1
		WHERE personnel = $1 AND delivery_date = $2 AND item_id = $3 AND quantity > 1
		RETURNING `+orderItemColumns,
		arg.Personnel, arg.DeliveryDate, arg.ItemID))
}

func (q *Queries) DeleteOrderItem(ctx context.Context, arg OrderItemKey) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, `
		DELETE FROM order_items
		WHERE personnel = $1 AND delivery_date = $2 AND item_id = $3
		RETURNING `+orderItemColumns,
		arg.Personnel, arg.DeliveryDate, arg.ItemID))
}

type PackageQuantityParams struct {
	Personnel    string
	DeliveryDate string
	PackageID    int32
}

// SumPackageQuantity totals the bundled (non-container) quantities a
// personnel has ordered against a package for one day.
func (q *Queries) SumPackageQuantity(ctx context.Context, arg PackageQuantityParams) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(oi.quantity), 0)
		FROM order_items oi
		JOIN packages p ON p.id = oi.package_id
		WHERE oi.personnel = $1 AND oi.delivery_date = $2 AND oi.package_id = $3
		  AND oi.item_id <> p.container_item_id`,
		arg.Personnel, arg.DeliveryDate, arg.PackageID).Scan(&n)
	return n, err
}

type PersonnelDay struct {
	Personnel    string
	DeliveryDate string
}

// HasPrimaryLunchOrder reports whether the personnel already holds a
// primary-category lunch item for the date.
func (q *Queries) HasPrimaryLunchOrder(ctx context.Context, arg PersonnelDay) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM order_items oi
			JOIN items i ON i.id = oi.item_id
			JOIN categories c ON c.id = i.category_id
			WHERE oi.personnel = $1 AND oi.delivery_date = $2
			  AND i.meal_type = 'LNC' AND c.kind = 'PRIMARY'
		)`,
		arg.Personnel, arg.DeliveryDate).Scan(&exists)
	return exists, err
}

// OrderLineRow is one order line joined with its item, for day views and
// reports.
type OrderLineRow struct {
	ItemID           int32
	ItemName         string
	MealType         string
	Quantity         int32
	PricePerOne      pgtype.Numeric
	DeliveryBuilding string
	DeliveryFloor    string
	PackageID        pgtype.Int4
}

func (q *Queries) ListOrderLinesByDay(ctx context.Context, arg PersonnelDay) ([]OrderLineRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT oi.item_id, i.name, i.meal_type, oi.quantity, oi.price_per_one,
		       oi.delivery_building, oi.delivery_floor, oi.package_id
		FROM order_items oi
		JOIN items i ON i.id = oi.item_id
		WHERE oi.personnel = $1 AND oi.delivery_date = $2
		ORDER BY i.meal_type, i.name`,
		arg.Personnel, arg.DeliveryDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderLineRow
	for rows.Next() {
		var r OrderLineRow
		if err := rows.Scan(&r.ItemID, &r.ItemName, &r.MealType, &r.Quantity, &r.PricePerOne,
			&r.DeliveryBuilding, &r.DeliveryFloor, &r.PackageID); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type ListOrderDaysParams struct {
	Personnel string
	From      string
	To        string
}

// DaySummaryRow comes from the orders view: one row per ordered day with
// the subsidy split applied.
type DaySummaryRow struct {
	DeliveryDate  string
	TotalPrice    pgtype.Numeric
	SubsidyAmount pgtype.Numeric
	PersonnelDebt pgtype.Numeric
}

func (q *Queries) ListOrderDays(ctx context.Context, arg ListOrderDaysParams) ([]DaySummaryRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT delivery_date, total_price, subsidy_amount, personnel_debt
		FROM orders
		WHERE personnel = $1 AND delivery_date BETWEEN $2 AND $3
		ORDER BY delivery_date`,
		arg.Personnel, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DaySummaryRow
	for rows.Next() {
		var r DaySummaryRow
		if err := rows.Scan(&r.DeliveryDate, &r.TotalPrice, &r.SubsidyAmount, &r.PersonnelDebt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type DeliveryLocationRow struct {
	DeliveryBuilding string
	DeliveryFloor    string
}

// ListDeliveryLocations returns the distinct delivery locations on a
// personnel's order rows for one date and meal type.
func (q *Queries) ListDeliveryLocations(ctx context.Context, arg PersonnelDay, mealType string) ([]DeliveryLocationRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT DISTINCT oi.delivery_building, oi.delivery_floor
		FROM order_items oi
		JOIN items i ON i.id = oi.item_id
		WHERE oi.personnel = $1 AND oi.delivery_date = $2 AND i.meal_type = $3`,
		arg.Personnel, arg.DeliveryDate, mealType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DeliveryLocationRow
	for rows.Next() {
		var r DeliveryLocationRow
		if err := rows.Scan(&r.DeliveryBuilding, &r.DeliveryFloor); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type UpdateDeliveryLocationParams struct {
	Personnel    string
	DeliveryDate string
	MealType     string
	Building     string
	Floor        string
}

// UpdateDeliveryLocation rewrites the location on every matching order row
// and reports how many rows changed.
func (q *Queries) UpdateDeliveryLocation(ctx context.Context, arg UpdateDeliveryLocationParams) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE order_items oi
		SET delivery_building = $4, delivery_floor = $5
		FROM items i
		WHERE i.id = oi.item_id
		  AND oi.personnel = $1 AND oi.delivery_date = $2 AND i.meal_type = $3`,
		arg.Personnel, arg.DeliveryDate, arg.MealType, arg.Building, arg.Floor)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
