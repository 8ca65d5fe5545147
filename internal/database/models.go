package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// User mirrors the users table. Personnel is the HR personnel code and the
// primary key everywhere a user is referenced.
type User struct {
	Personnel    string
	FullName     string
	Email        string
	IsAdmin      bool
	IsActive     bool
	TokenHash    string
	LastBuilding pgtype.Text
	LastFloor    pgtype.Text
}

type Category struct {
	ID   int32
	Name string
	Kind string
}

type Item struct {
	ID           int32
	Name         string
	CategoryID   int32
	MealType     string
	Description  pgtype.Text
	IsActive     bool
	CurrentPrice pgtype.Numeric
}

// Package bundles items sharing one per-personnel daily free-quantity cap.
// ContainerItemID is the zero-priced representative row inserted alongside
// the first bundled order of a day.
type Package struct {
	ID              int32
	Name            string
	ContainerItemID int32
	FreeItemCount   int32
	IsActive        bool
}

// MenuItem is one daily menu entry. TotalOrdersLeft NULL means unlimited
// capacity; zero means sold out. Identity is (AvailableDate, ItemID).
type MenuItem struct {
	ID                 int32
	AvailableDate      string
	ItemID             int32
	IsActive           bool
	TotalOrdersAllowed pgtype.Int4
	TotalOrdersLeft    pgtype.Int4
}

// OrderItem is one personnel's order line for a date. Identity is
// (Personnel, DeliveryDate, ItemID); repeat orders bump Quantity.
type OrderItem struct {
	ID               int32
	Personnel        string
	DeliveryDate     string
	ItemID           int32
	Quantity         int32
	PricePerOne      pgtype.Numeric
	DeliveryBuilding string
	DeliveryFloor    string
	PackageID        pgtype.Int4
}

type Deadline struct {
	Weekday  int32
	MealType string
	Days     int32
	Hour     int32
}

type Holiday struct {
	HolidayDate string
	Title       string
}

type SystemSetting struct {
	OpenForPersonnel    bool
	OpenForAdmins       bool
	BrfReminder         bool
	LncReminder         bool
	RemindBeforeMinutes int32
}

type ActionLog struct {
	ID           uuid.UUID
	ActedAt      time.Time
	Actor        string
	OnBehalfOf   pgtype.Text
	ActionCode   string
	TableName    string
	RecordRef    string
	Detail       string
	AdminReason  pgtype.Text
	AdminComment pgtype.Text
	OldData      []byte
}
