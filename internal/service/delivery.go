package service

import (
	"context"
	"fmt"

	"github.com/daway0/pors/internal/database"
	"github.com/daway0/pors/internal/enum"
	"github.com/daway0/pors/internal/jcal"
)

// ChangeDeliveryLocationRequest rewrites the delivery location on every
// breakfast order row of one personnel/date.
type ChangeDeliveryLocationRequest struct {
	Actor        Actor
	DeliveryDate string
	Building     string
	Floor        string
}

// ChangeDeliveryLocation validates the new location against the directory,
// rejects a no-op change, checks the breakfast submission window (unless an
// admin overrides) and updates all matching rows plus the user's remembered
// location.
func (s *OrderService) ChangeDeliveryLocation(ctx context.Context, req ChangeDeliveryLocationRequest) error {
	target, ok := jcal.Parse(req.DeliveryDate)
	if !ok {
		return ErrInvalidDate
	}
	if req.Building == "" || req.Floor == "" {
		return ErrUnknownLocation
	}
	if s.locations != nil {
		found, err := s.locations.Resolve(ctx, req.Building, req.Floor)
		if err != nil {
			return fmt.Errorf("resolve location: %w", err)
		}
		if !found {
			return ErrUnknownLocation
		}
	}

	if err := s.changeDeliveryTx(ctx, req, target); err != nil {
		return err
	}

	actorName, onBehalfOf, reason, comment := auditActor(req.Actor)
	recordAudit(ctx, s.audit, database.InsertActionLogParams{
		Actor:        actorName,
		OnBehalfOf:   onBehalfOf,
		ActionCode:   enum.ActionDeliveryChanged,
		TableName:    "order_items",
		RecordRef:    fmt.Sprintf("%s/%s", req.Actor.Personnel, target.String()),
		Detail:       fmt.Sprintf("delivery moved to %s/%s", req.Building, req.Floor),
		AdminReason:  reason,
		AdminComment: comment,
	})
	return nil
}

func (s *OrderService) changeDeliveryTx(ctx context.Context, req ChangeDeliveryLocationRequest, target jcal.Date) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	date := target.String()
	day := database.PersonnelDay{Personnel: req.Actor.Personnel, DeliveryDate: date}

	current, err := store.ListDeliveryLocations(ctx, day, enum.MealTypeBreakfast)
	if err != nil {
		return fmt.Errorf("list delivery locations: %w", err)
	}
	if len(current) == 0 {
		return ErrOrderItemNotFound
	}
	if len(current) == 1 && current[0].DeliveryBuilding == req.Building && current[0].DeliveryFloor == req.Floor {
		return ErrSameDeliveryLocation
	}

	if !req.Actor.IsOverride() {
		if err := checkWindow(ctx, store, s.clock.Now(), target, enum.MealTypeBreakfast); err != nil {
			return err
		}
	}

	_, err = store.UpdateDeliveryLocation(ctx, database.UpdateDeliveryLocationParams{
		Personnel:    req.Actor.Personnel,
		DeliveryDate: date,
		MealType:     enum.MealTypeBreakfast,
		Building:     req.Building,
		Floor:        req.Floor,
	})
	if err != nil {
		return fmt.Errorf("update delivery location: %w", err)
	}

	err = store.UpdateUserLastLocation(ctx, database.UpdateUserLastLocationParams{
		Personnel: req.Actor.Personnel,
		Building:  req.Building,
		Floor:     req.Floor,
	})
	if err != nil {
		return fmt.Errorf("update last location: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
