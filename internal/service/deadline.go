package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/daway0/pors/internal/database"
	"github.com/daway0/pors/internal/deadline"
	"github.com/daway0/pors/internal/enum"
	"github.com/daway0/pors/internal/jcal"
)

// DeadlineStore defines the DB methods deadline management needs.
type DeadlineStore interface {
	ListDeadlines(ctx context.Context) ([]database.Deadline, error)
	GetDeadline(ctx context.Context, arg database.DeadlineKey) (database.Deadline, error)
	UpdateDeadline(ctx context.Context, arg database.UpdateDeadlineParams) (database.Deadline, error)
	ListActiveUserEmails(ctx context.Context) ([]string, error)
}

// NewDeadlineStore creates a DeadlineStore from a DBTX (pool or tx).
type NewDeadlineStore func(db database.DBTX) DeadlineStore

// Notifier delivers an e-mail to a set of recipients. Implementations
// retry internally; callers treat delivery as best-effort.
type Notifier interface {
	Send(ctx context.Context, to []string, reason, subject, body string) error
}

// DeadlineChange is one requested (weekday, meal type) deadline update.
type DeadlineChange struct {
	Weekday  int
	MealType string
	Days     int
	Hour     int
}

// UpdateDeadlinesRequest applies a set of deadline changes. Rows equal to
// the stored pair are skipped. Notify broadcasts the change to all active
// users, naming the affected weekdays in words.
type UpdateDeadlinesRequest struct {
	Admin   string
	Changes []DeadlineChange
	Notify  bool
}

// DeadlineService manages the 14-row deadline table and answers the
// first-orderable-date question.
type DeadlineService struct {
	db       database.DBTX // pool, for reads outside a transaction
	pool     TxBeginner
	newStore NewDeadlineStore
	audit    AuditStore
	clock    jcal.Clock
	notifier Notifier
}

// NewDeadlineService creates a new DeadlineService. notifier may be nil.
func NewDeadlineService(db database.DBTX, pool TxBeginner, newStore NewDeadlineStore, audit AuditStore, clock jcal.Clock, notifier Notifier) *DeadlineService {
	return &DeadlineService{db: db, pool: pool, newStore: newStore, audit: audit, clock: clock, notifier: notifier}
}

// Table loads the stored deadline rows into an indexed table.
func (s *DeadlineService) Table(ctx context.Context) (deadline.Table, error) {
	rows, err := s.newStore(s.db).ListDeadlines(ctx)
	if err != nil {
		return deadline.Table{}, fmt.Errorf("list deadlines: %w", err)
	}
	var t deadline.Table
	for _, r := range rows {
		if r.Weekday < 0 || r.Weekday > 6 {
			return deadline.Table{}, fmt.Errorf("stored deadline weekday %d outside [0, 6]", r.Weekday)
		}
		d := deadline.Deadline{Days: int(r.Days), Hour: int(r.Hour)}
		switch r.MealType {
		case enum.MealTypeBreakfast:
			t.Breakfast[r.Weekday] = d
		case enum.MealTypeLunch:
			t.Lunch[r.Weekday] = d
		default:
			return deadline.Table{}, fmt.Errorf("stored deadline meal type %q unknown", r.MealType)
		}
	}
	return t, nil
}

// FirstOrderableDate returns the earliest date both meal types would
// accept an order placed right now.
func (s *DeadlineService) FirstOrderableDate(ctx context.Context) (jcal.Date, error) {
	t, err := s.Table(ctx)
	if err != nil {
		return jcal.Date{}, err
	}
	return t.FirstOrderableDate(s.clock.Now())
}

type appliedChange struct {
	change DeadlineChange
	old    database.Deadline
}

// UpdateDeadlines applies the differing rows in one transaction, audits
// each applied change with the prior pair, and optionally broadcasts.
func (s *DeadlineService) UpdateDeadlines(ctx context.Context, req UpdateDeadlinesRequest) error {
	for _, c := range req.Changes {
		if c.Weekday < 0 || c.Weekday > 6 || !enum.IsMealType(c.MealType) {
			return ErrInvalidDeadline
		}
		if c.Days < 0 || c.Hour < 0 || c.Hour > 24 {
			return ErrInvalidDeadline
		}
	}

	applied, err := s.updateTx(ctx, req)
	if err != nil {
		return err
	}

	for _, a := range applied {
		recordAudit(ctx, s.audit, database.InsertActionLogParams{
			Actor:      req.Admin,
			ActionCode: enum.ActionDeadlineChanged,
			TableName:  "deadlines",
			RecordRef:  fmt.Sprintf("%d/%s", a.change.Weekday, a.change.MealType),
			Detail: fmt.Sprintf("(%d days, %d h) -> (%d days, %d h)",
				a.old.Days, a.old.Hour, a.change.Days, a.change.Hour),
			OldData: auditJSON(a.old),
		})
	}

	if req.Notify && s.notifier != nil && len(applied) > 0 {
		s.broadcast(ctx, applied)
	}
	return nil
}

func (s *DeadlineService) updateTx(ctx context.Context, req UpdateDeadlinesRequest) ([]appliedChange, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	var applied []appliedChange
	for _, c := range req.Changes {
		key := database.DeadlineKey{Weekday: int32(c.Weekday), MealType: c.MealType}
		old, err := store.GetDeadline(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("get deadline %d/%s: %w", c.Weekday, c.MealType, err)
		}
		if int(old.Days) == c.Days && int(old.Hour) == c.Hour {
			continue
		}
		_, err = store.UpdateDeadline(ctx, database.UpdateDeadlineParams{
			Weekday:  key.Weekday,
			MealType: key.MealType,
			Days:     int32(c.Days),
			Hour:     int32(c.Hour),
		})
		if err != nil {
			return nil, fmt.Errorf("update deadline %d/%s: %w", c.Weekday, c.MealType, err)
		}
		applied = append(applied, appliedChange{change: c, old: old})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return applied, nil
}

// broadcast mails all active users about the applied changes. Delivery is
// fire-and-forget so a slow SMTP server never blocks the admin request.
func (s *DeadlineService) broadcast(ctx context.Context, applied []appliedChange) {
	emails, err := s.newStore(s.db).ListActiveUserEmails(ctx)
	if err != nil {
		log.Printf("ERROR: list active user emails: %v", err)
		return
	}
	if len(emails) == 0 {
		return
	}

	var lines []string
	for _, a := range applied {
		meal := "ناهار"
		if a.change.MealType == enum.MealTypeBreakfast {
			meal = "صبحانه"
		}
		lines = append(lines, fmt.Sprintf("%s %s: %d روز قبل، تا ساعت %d",
			meal, jcal.WeekdayName(a.change.Weekday), a.change.Days, a.change.Hour))
	}
	body := strings.Join(lines, "\n")

	go func() {
		err := s.notifier.Send(context.WithoutCancel(ctx), emails,
			enum.EmailReasonDeadlineChanged, "تغییر مهلت ثبت سفارش", body)
		if err != nil {
			log.Printf("ERROR: deadline change notification: %v", err)
		}
	}()
}
