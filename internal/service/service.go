package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/daway0/pors/internal/database"
	"github.com/daway0/pors/internal/deadline"
	"github.com/daway0/pors/internal/jcal"
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// AuditStore writes audit records outside the mutation transaction.
type AuditStore interface {
	InsertActionLog(ctx context.Context, arg database.InsertActionLogParams) error
}

// Feed receives order events for the live admin panel. Implementations must
// not block; a nil Feed disables broadcasting.
type Feed interface {
	PublishOrderEvent(deliveryDate string, event OrderEvent)
}

// OrderEvent is one order transition as broadcast to the admin feed.
type OrderEvent struct {
	Action       string `json:"action"`
	Personnel    string `json:"personnel"`
	DeliveryDate string `json:"delivery_date"`
	ItemID       int32  `json:"item_id"`
	ItemName     string `json:"item_name"`
	Quantity     int32  `json:"quantity"`
}

// deadlineReader is the slice of a store the window check needs.
type deadlineReader interface {
	GetDeadline(ctx context.Context, arg database.DeadlineKey) (database.Deadline, error)
}

// checkWindow enforces the per-weekday, per-meal-type submission deadline
// for the target date at the given moment.
func checkWindow(ctx context.Context, store deadlineReader, now jcal.DateTime, target jcal.Date, mealType string) error {
	row, err := store.GetDeadline(ctx, database.DeadlineKey{
		Weekday:  int32(target.Weekday()),
		MealType: mealType,
	})
	if err != nil {
		return fmt.Errorf("get deadline: %w", err)
	}
	ok, err := deadline.IsWithinWindow(now, target, deadline.Deadline{
		Days: int(row.Days),
		Hour: int(row.Hour),
	})
	if err != nil {
		return fmt.Errorf("window check: %w", err)
	}
	if !ok {
		return ErrWindowClosed
	}
	return nil
}

// recordAudit writes one audit row after the mutation committed. Audit is
// best-effort: a failed insert is logged, never surfaced to the caller.
func recordAudit(ctx context.Context, store AuditStore, arg database.InsertActionLogParams) {
	if err := store.InsertActionLog(ctx, arg); err != nil {
		log.Printf("ERROR: insert action log %s %s/%s: %v", arg.ActionCode, arg.TableName, arg.RecordRef, err)
	}
}

// auditActor fills the acting-identity columns from a resolved Actor.
func auditActor(a Actor) (actor string, onBehalfOf, reason, comment pgtype.Text) {
	actor = a.Personnel
	if a.IsOverride() {
		actor = a.Admin
		onBehalfOf = pgtype.Text{String: a.Personnel, Valid: true}
		reason = pgtype.Text{String: a.Reason, Valid: true}
		if a.Comment != "" {
			comment = pgtype.Text{String: a.Comment, Valid: true}
		}
	}
	return actor, onBehalfOf, reason, comment
}

func auditJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// isCapacityViolation checks for the CHECK constraint guarding
// menu_items.total_orders_left against going negative.
func isCapacityViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == database.PgCodeCheckViolation &&
			pgErr.ConstraintName == database.CapacityConstraint
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == database.PgCodeUniqueViolation
	}
	return false
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
