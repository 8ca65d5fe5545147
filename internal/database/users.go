package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `personnel, full_name, email, is_admin, is_active, token_hash, last_building, last_floor`

func scanUser(row interface{ Scan(dest ...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.Personnel, &u.FullName, &u.Email, &u.IsAdmin, &u.IsActive,
		&u.TokenHash, &u.LastBuilding, &u.LastFloor)
	return u, err
}

func (q *Queries) GetUser(ctx context.Context, personnel string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE personnel = $1 AND is_active`,
		personnel))
}

// GetUserByTokenHash resolves the SSO-issued personnel token to a user.
func (q *Queries) GetUserByTokenHash(ctx context.Context, tokenHash string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE token_hash = $1 AND is_active`,
		tokenHash))
}

func (q *Queries) ListActiveUserEmails(ctx context.Context) ([]string, error) {
	rows, err := q.db.Query(ctx, `
		SELECT email
		FROM users
		WHERE is_active AND email <> ''
		ORDER BY personnel`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type UsersWithoutOrderParams struct {
	DeliveryDate string
	MealType     pgtype.Text // NULL means any meal type
}

// ListUsersWithoutOrder returns the e-mail addresses of active users who
// have no order line for the date (optionally restricted to one meal type).
// Feeds the reminder job.
func (q *Queries) ListUsersWithoutOrder(ctx context.Context, arg UsersWithoutOrderParams) ([]string, error) {
	rows, err := q.db.Query(ctx, `
		SELECT u.email
		FROM users u
		WHERE u.is_active AND u.email <> ''
		  AND NOT EXISTS (
			SELECT 1
			FROM order_items oi
			JOIN items i ON i.id = oi.item_id
			WHERE oi.personnel = u.personnel
			  AND oi.delivery_date = $1
			  AND ($2::text IS NULL OR i.meal_type = $2)
		  )
		ORDER BY u.personnel`,
		arg.DeliveryDate, arg.MealType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type UpdateUserLastLocationParams struct {
	Personnel string
	Building  string
	Floor     string
}

// UpdateUserLastLocation caches the most recently used delivery location so
// the next breakfast order can default to it.
func (q *Queries) UpdateUserLastLocation(ctx context.Context, arg UpdateUserLastLocationParams) error {
	_, err := q.db.Exec(ctx, `
		UPDATE users
		SET last_building = $2, last_floor = $3
		WHERE personnel = $1`,
		arg.Personnel, arg.Building, arg.Floor)
	return err
}
