package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

type ItemsDailyReportRow struct {
	DeliveryDate  string
	ItemName      string
	MealType      string
	TotalQuantity int64
}

// ItemsDailyReport aggregates ordered quantities per item per day over a
// date range, for the kitchen's daily headcount sheet.
func (q *Queries) ItemsDailyReport(ctx context.Context, arg DateRange) ([]ItemsDailyReportRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT oi.delivery_date, i.name, i.meal_type, SUM(oi.quantity)
		FROM order_items oi
		JOIN items i ON i.id = oi.item_id
		WHERE oi.delivery_date BETWEEN $1 AND $2
		GROUP BY oi.delivery_date, i.name, i.meal_type
		ORDER BY oi.delivery_date, i.meal_type, i.name`,
		arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ItemsDailyReportRow
	for rows.Next() {
		var r ItemsDailyReportRow
		if err := rows.Scan(&r.DeliveryDate, &r.ItemName, &r.MealType, &r.TotalQuantity); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type PersonnelFinancialRow struct {
	Personnel     string
	FullName      string
	TotalPrice    pgtype.Numeric
	SubsidyAmount pgtype.Numeric
	PersonnelDebt pgtype.Numeric
}

// PersonnelFinancialReport sums each personnel's spending, subsidy share
// and remaining debt over a date range, via the orders view.
func (q *Queries) PersonnelFinancialReport(ctx context.Context, arg DateRange) ([]PersonnelFinancialRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT o.personnel, u.full_name,
		       SUM(o.total_price), SUM(o.subsidy_amount), SUM(o.personnel_debt)
		FROM orders o
		JOIN users u ON u.personnel = o.personnel
		WHERE o.delivery_date BETWEEN $1 AND $2
		GROUP BY o.personnel, u.full_name
		ORDER BY u.full_name`,
		arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PersonnelFinancialRow
	for rows.Next() {
		var r PersonnelFinancialRow
		if err := rows.Scan(&r.Personnel, &r.FullName, &r.TotalPrice, &r.SubsidyAmount, &r.PersonnelDebt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type ItemOrderingPersonnelRow struct {
	Personnel        string
	FullName         string
	Quantity         int32
	DeliveryBuilding string
	DeliveryFloor    string
}

// ItemOrderingPersonnelList names everyone who ordered a given item on a
// given date, with quantities and delivery locations.
func (q *Queries) ItemOrderingPersonnelList(ctx context.Context, arg MenuItemKey) ([]ItemOrderingPersonnelRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT oi.personnel, u.full_name, oi.quantity, oi.delivery_building, oi.delivery_floor
		FROM order_items oi
		JOIN users u ON u.personnel = oi.personnel
		WHERE oi.delivery_date = $1 AND oi.item_id = $2
		ORDER BY u.full_name`,
		arg.AvailableDate, arg.ItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ItemOrderingPersonnelRow
	for rows.Next() {
		var r ItemOrderingPersonnelRow
		if err := rows.Scan(&r.Personnel, &r.FullName, &r.Quantity, &r.DeliveryBuilding, &r.DeliveryFloor); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
