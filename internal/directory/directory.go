// Package directory resolves delivery locations against the read-only HR
// building/floor tables.
package directory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/daway0/pors/internal/database"
)

// FloorStore is the slice of the database layer the resolver needs.
// Satisfied by *database.Queries.
type FloorStore interface {
	GetFloor(ctx context.Context, arg database.FloorKey) (database.Floor, error)
}

// Resolver answers "does this building/floor pair exist?" for order
// placement and delivery changes.
type Resolver struct {
	store FloorStore
}

func NewResolver(store FloorStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve reports whether the floor exists in the given building. An
// unknown pair is not an error; the caller turns it into a validation
// failure.
func (r *Resolver) Resolve(ctx context.Context, building, floor string) (bool, error) {
	_, err := r.store.GetFloor(ctx, database.FloorKey{
		BuildingCode: building,
		FloorCode:    floor,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
