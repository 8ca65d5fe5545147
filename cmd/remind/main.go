// Command remind is the cron-invoked order-reminder job. It finds the first
// date an order placed now could target, and for each meal type whose
// reminder is switched on and whose submission deadline falls inside the
// configured lead window, mails every active user who has no order for that
// date yet. A history table keeps each (date, meal type) pair to at most one
// reminder.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	ptime "github.com/yaa110/go-persian-calendar"

	"github.com/daway0/pors/internal/config"
	"github.com/daway0/pors/internal/database"
	"github.com/daway0/pors/internal/deadline"
	"github.com/daway0/pors/internal/enum"
	"github.com/daway0/pors/internal/jcal"
	"github.com/daway0/pors/internal/notify"
	"github.com/daway0/pors/internal/service"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	queries := database.New(pool)
	clock := jcal.NewClock()
	mailer := notify.NewMailer(cfg.SMTPAddr, cfg.SMTPFrom, cfg.NotifyMaxTries)

	settings, err := queries.GetSystemSetting(ctx)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}
	if !settings.BrfReminder && !settings.LncReminder {
		log.Println("Reminders are switched off, nothing to do")
		return
	}

	deadlines := service.NewDeadlineService(
		pool, pool,
		func(db database.DBTX) service.DeadlineStore { return database.New(db) },
		queries, clock, nil,
	)
	table, err := deadlines.Table(ctx)
	if err != nil {
		log.Fatalf("Failed to load deadline table: %v", err)
	}
	target, err := table.FirstOrderableDate(clock.Now())
	if err != nil {
		log.Fatalf("Failed to find first orderable date: %v", err)
	}

	enabled := map[string]bool{
		enum.MealTypeBreakfast: settings.BrfReminder,
		enum.MealTypeLunch:     settings.LncReminder,
	}
	lead := time.Duration(settings.RemindBeforeMinutes) * time.Minute
	now := time.Now().In(ptime.Iran())

	for _, mealType := range enum.MealTypes {
		if !enabled[mealType] {
			continue
		}
		d, err := table.Get(target.Weekday(), mealType)
		if err != nil {
			log.Fatalf("Failed to read deadline for %s: %v", mealType, err)
		}

		due := deadlineMoment(target, d)
		if now.After(due) || now.Before(due.Add(-lead)) {
			continue
		}

		if err := remind(ctx, queries, mailer, target, mealType, due); err != nil {
			log.Printf("ERROR: remind %s %s: %v", target, mealType, err)
		}
	}
}

// deadlineMoment converts a deadline pair into the wall-clock instant after
// which orders for the target date are rejected.
func deadlineMoment(target jcal.Date, d deadline.Deadline) time.Time {
	day := target.AddDays(-d.Days)
	return ptime.Date(day.Year, ptime.Month(day.Month), day.Day, d.Hour, 0, 0, 0, ptime.Iran()).Time()
}

func remind(ctx context.Context, queries *database.Queries, mailer *notify.Mailer, target jcal.Date, mealType string, due time.Time) error {
	key := database.ReminderKey{RemindDate: target.String(), MealType: mealType}
	sent, err := queries.HasReminderBeenSent(ctx, key)
	if err != nil {
		return fmt.Errorf("check history: %w", err)
	}
	if sent {
		log.Printf("Reminder for %s %s already sent, skipping", key.RemindDate, mealType)
		return nil
	}

	emails, err := queries.ListUsersWithoutOrder(ctx, database.UsersWithoutOrderParams{
		DeliveryDate: target.String(),
		MealType:     pgtype.Text{String: mealType, Valid: true},
	})
	if err != nil {
		return fmt.Errorf("list users without order: %w", err)
	}

	if len(emails) > 0 {
		meal, reason := "ناهار", enum.EmailReasonReminderLunch
		if mealType == enum.MealTypeBreakfast {
			meal, reason = "صبحانه", enum.EmailReasonReminderBreakfast
		}
		subject := fmt.Sprintf("یادآوری ثبت سفارش %s", meal)
		body := fmt.Sprintf("مهلت ثبت سفارش %s برای تاریخ %s تا ساعت %d امروز است.",
			meal, key.RemindDate, due.In(ptime.Iran()).Hour())
		if err := mailer.Send(ctx, emails, reason, subject, body); err != nil {
			return fmt.Errorf("send: %w", err)
		}
	}

	// Record even a zero-recipient run so the pair never fires twice.
	if err := queries.RecordReminderSent(ctx, key); err != nil {
		return fmt.Errorf("record history: %w", err)
	}
	log.Printf("Reminded %d users for %s %s", len(emails), key.RemindDate, mealType)
	return nil
}
