package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

func (q *Queries) GetSystemSetting(ctx context.Context) (SystemSetting, error) {
	var s SystemSetting
	err := q.db.QueryRow(ctx, `
		SELECT open_for_personnel, open_for_admins, brf_reminder, lnc_reminder, remind_before_minutes
		FROM system_settings`).
		Scan(&s.OpenForPersonnel, &s.OpenForAdmins, &s.BrfReminder, &s.LncReminder, &s.RemindBeforeMinutes)
	return s, err
}

func (q *Queries) ListHolidaysBetween(ctx context.Context, arg DateRange) ([]Holiday, error) {
	rows, err := q.db.Query(ctx, `
		SELECT holiday_date, title
		FROM holidays
		WHERE holiday_date BETWEEN $1 AND $2
		ORDER BY holiday_date`,
		arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Holiday
	for rows.Next() {
		var h Holiday
		if err := rows.Scan(&h.HolidayDate, &h.Title); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// GetSubsidyAmount returns the subsidy in effect on a date. Range bounds
// are inclusive; the open-ended row (NULL until_date) is the current one.
func (q *Queries) GetSubsidyAmount(ctx context.Context, date string) (pgtype.Numeric, error) {
	var amount pgtype.Numeric
	err := q.db.QueryRow(ctx, `
		SELECT amount
		FROM subsidies
		WHERE from_date <= $1 AND (until_date IS NULL OR until_date >= $1)
		ORDER BY from_date DESC
		LIMIT 1`,
		date).Scan(&amount)
	return amount, err
}

type ReminderKey struct {
	RemindDate string
	MealType   string
}

func (q *Queries) HasReminderBeenSent(ctx context.Context, arg ReminderKey) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM reminder_history
			WHERE remind_date = $1 AND meal_type = $2
		)`,
		arg.RemindDate, arg.MealType).Scan(&exists)
	return exists, err
}

func (q *Queries) RecordReminderSent(ctx context.Context, arg ReminderKey) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO reminder_history (remind_date, meal_type)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`,
		arg.RemindDate, arg.MealType)
	return err
}
