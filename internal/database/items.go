package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// ItemForOrderRow carries everything the order pipelines need to know about
// an item in one read.
type ItemForOrderRow struct {
	ID           int32
	Name         string
	MealType     string
	CategoryKind string
	IsActive     bool
	CurrentPrice pgtype.Numeric
}

func (q *Queries) GetItemForOrder(ctx context.Context, id int32) (ItemForOrderRow, error) {
	var r ItemForOrderRow
	err := q.db.QueryRow(ctx, `
		SELECT i.id, i.name, i.meal_type, c.kind, i.is_active, i.current_price
		FROM items i
		JOIN categories c ON c.id = i.category_id
		WHERE i.id = $1`,
		id).Scan(&r.ID, &r.Name, &r.MealType, &r.CategoryKind, &r.IsActive, &r.CurrentPrice)
	return r, err
}

type ListItemsRow struct {
	ID           int32
	Name         string
	MealType     string
	Description  pgtype.Text
	CategoryName string
	CategoryKind string
	CurrentPrice pgtype.Numeric
}

func (q *Queries) ListActiveItems(ctx context.Context) ([]ListItemsRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT i.id, i.name, i.meal_type, i.description, c.name, c.kind, i.current_price
		FROM items i
		JOIN categories c ON c.id = i.category_id
		WHERE i.is_active
		ORDER BY c.name, i.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ListItemsRow
	for rows.Next() {
		var r ListItemsRow
		if err := rows.Scan(&r.ID, &r.Name, &r.MealType, &r.Description, &r.CategoryName, &r.CategoryKind, &r.CurrentPrice); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetPackageForItem resolves the active package bundling an item, if any.
// pgx.ErrNoRows means the item is not part of a package.
func (q *Queries) GetPackageForItem(ctx context.Context, itemID int32) (Package, error) {
	var p Package
	err := q.db.QueryRow(ctx, `
		SELECT p.id, p.name, p.container_item_id, p.free_item_count, p.is_active
		FROM packages p
		JOIN package_items pi ON pi.package_id = p.id
		WHERE pi.item_id = $1 AND p.is_active`,
		itemID).Scan(&p.ID, &p.Name, &p.ContainerItemID, &p.FreeItemCount, &p.IsActive)
	return p, err
}
