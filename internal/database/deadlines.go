package database

import "context"

func (q *Queries) ListDeadlines(ctx context.Context) ([]Deadline, error) {
	rows, err := q.db.Query(ctx, `
		SELECT weekday, meal_type, days, hour
		FROM deadlines
		ORDER BY meal_type, weekday`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Deadline
	for rows.Next() {
		var d Deadline
		if err := rows.Scan(&d.Weekday, &d.MealType, &d.Days, &d.Hour); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type DeadlineKey struct {
	Weekday  int32
	MealType string
}

func (q *Queries) GetDeadline(ctx context.Context, arg DeadlineKey) (Deadline, error) {
	var d Deadline
	err := q.db.QueryRow(ctx, `
		SELECT weekday, meal_type, days, hour
		FROM deadlines
		WHERE weekday = $1 AND meal_type = $2`,
		arg.Weekday, arg.MealType).Scan(&d.Weekday, &d.MealType, &d.Days, &d.Hour)
	return d, err
}

type UpdateDeadlineParams struct {
	Weekday  int32
	MealType string
	Days     int32
	Hour     int32
}

func (q *Queries) UpdateDeadline(ctx context.Context, arg UpdateDeadlineParams) (Deadline, error) {
	var d Deadline
	err := q.db.QueryRow(ctx, `
		UPDATE deadlines
		SET days = $3, hour = $4
		WHERE weekday = $1 AND meal_type = $2
		RETURNING weekday, meal_type, days, hour`,
		arg.Weekday, arg.MealType, arg.Days, arg.Hour).Scan(&d.Weekday, &d.MealType, &d.Days, &d.Hour)
	return d, err
}
