package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/daway0/pors/internal/middleware"
	"github.com/daway0/pors/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

// errorBody is the uniform failure payload: a message key the client
// localizes, plus the machine code.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func statusForCode(code string) int {
	switch code {
	case service.CodeValidation:
		return http.StatusBadRequest
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeUnauthorized:
		return http.StatusForbidden
	case service.CodeDuplicate,
		service.CodeWindowClosed,
		service.CodeCapacityExceeded,
		service.CodePrimaryItemLimit,
		service.CodePackageCap:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeServiceError maps a coded service error to its HTTP status. Anything
// uncoded is an internal failure: logged, hidden from the client.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var se *service.Error
	if errors.As(err, &se) {
		writeJSON(w, statusForCode(se.Code), errorBody{Error: se.Key, Code: se.Code})
		return
	}
	log.Printf("ERROR: %s: %v", op, err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal_error", Code: "INTERNAL"})
}

// identityFromRequest builds the caller identity from the JWT claims the
// auth middleware stored on the context.
func identityFromRequest(r *http.Request) (service.Identity, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		return service.Identity{}, false
	}
	return service.Identity{Personnel: claims.Personnel, IsAdmin: claims.IsAdmin}, true
}

// overrideFields ride along on every mutating request body. Personnel names
// the target when an admin acts on someone's behalf.
type overrideFields struct {
	Personnel string `json:"personnel"`
	Reason    string `json:"reason"`
	Comment   string `json:"comment"`
}

func parseItemID(s string) (int32, bool) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil || n <= 0 {
		return 0, false
	}
	return int32(n), true
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
