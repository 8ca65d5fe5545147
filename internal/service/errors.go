package service

// Machine codes attached to every user-facing failure. The HTTP layer maps
// a code to a status; clients map the message key to localized text.
const (
	CodeValidation       = "VALIDATION"
	CodeNotFound         = "NOT_FOUND"
	CodeWindowClosed     = "WINDOW_CLOSED"
	CodeCapacityExceeded = "CAPACITY_EXCEEDED"
	CodeDuplicate        = "DUPLICATE"
	CodePrimaryItemLimit = "PRIMARY_ITEM_LIMIT"
	CodePackageCap       = "PACKAGE_CAP"
	CodeUnauthorized     = "UNAUTHORIZED"
)

// Error couples a machine code with a message key. Sentinel values below are
// compared with errors.Is; wrapping with fmt.Errorf("%w") keeps both intact.
type Error struct {
	Code string
	Key  string
}

func (e *Error) Error() string { return e.Key }

// Errors returned by the services.
var (
	ErrInvalidDate          = &Error{CodeValidation, "invalid_date"}
	ErrWrongMealType        = &Error{CodeValidation, "wrong_meal_type"}
	ErrItemNotFound         = &Error{CodeNotFound, "item_not_found"}
	ErrMenuItemNotFound     = &Error{CodeNotFound, "menu_item_not_found"}
	ErrOrderItemNotFound    = &Error{CodeNotFound, "order_item_not_found"}
	ErrUserNotFound         = &Error{CodeNotFound, "user_not_found"}
	ErrDuplicateMenuItem    = &Error{CodeDuplicate, "menu_item_already_listed"}
	ErrMenuItemInUse        = &Error{CodeValidation, "menu_item_has_orders"}
	ErrWindowClosed         = &Error{CodeWindowClosed, "window_closed"}
	ErrCapacityExceeded     = &Error{CodeCapacityExceeded, "capacity_exceeded"}
	ErrPrimaryItemLimit     = &Error{CodePrimaryItemLimit, "primary_item_limit"}
	ErrPackageCapExceeded   = &Error{CodePackageCap, "package_cap_exceeded"}
	ErrNotAuthorized        = &Error{CodeUnauthorized, "not_authorized"}
	ErrReasonRequired       = &Error{CodeValidation, "override_reason_required"}
	ErrCommentRequired      = &Error{CodeValidation, "override_comment_required"}
	ErrNoDefaultLocation    = &Error{CodeValidation, "no_default_delivery_location"}
	ErrUnknownLocation      = &Error{CodeValidation, "unknown_delivery_location"}
	ErrSameDeliveryLocation = &Error{CodeValidation, "delivery_location_unchanged"}
	ErrInvalidDeadline      = &Error{CodeValidation, "invalid_deadline"}
)
