package enum

// ── Group A: State-bearing values (CHECK constrained in DB) ──

const (
	MealTypeBreakfast = "BRF"
	MealTypeLunch     = "LNC"
)

const (
	CategoryKindPrimary = "PRIMARY"
	CategoryKindSide    = "SIDE"
)

// ── Group B: Audit action codes (extensible, no DB constraint) ──

const (
	ActionOrderCreated    = "ORDER_CREATED"
	ActionOrderCancelled  = "ORDER_CANCELLED"
	ActionMenuItemAdded   = "MENU_ITEM_ADDED"
	ActionMenuItemRemoved = "MENU_ITEM_REMOVED"
	ActionDeadlineChanged = "DEADLINE_CHANGED"
	ActionDeliveryChanged = "DELIVERY_CHANGED"
)

// ── Group C: Admin override reasons ──
// An admin acting on behalf of a personnel must record one of these.
// ReasonOther additionally requires a free-text comment.

const (
	ReasonPersonnelRequest = "PERSONNEL_REQUEST"
	ReasonSystemFailure    = "SYSTEM_FAILURE"
	ReasonOther            = "OTHER"
)

// ── Group D: Notification reasons ──

const (
	EmailReasonReminderBreakfast = "REMINDER_BRF"
	EmailReasonReminderLunch     = "REMINDER_LNC"
	EmailReasonReminderAll       = "REMINDER_ALL"
	EmailReasonDeadlineChanged   = "DEADLINE_CHANGED"
)

// SystemActor is recorded in the audit log when the system itself
// performs a state change (e.g. the reminder job).
const SystemActor = "SYSTEM"

// MealTypes lists every meal type; the deadline table carries one row per
// (weekday, meal type) pair.
var MealTypes = []string{MealTypeBreakfast, MealTypeLunch}

// IsMealType reports whether s is a known meal type.
func IsMealType(s string) bool {
	return s == MealTypeBreakfast || s == MealTypeLunch
}

// IsOverrideReason reports whether s is a known admin override reason.
func IsOverrideReason(s string) bool {
	switch s {
	case ReasonPersonnelRequest, ReasonSystemFailure, ReasonOther:
		return true
	}
	return false
}
