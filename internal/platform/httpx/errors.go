// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/shopdesk/shopdesk/internal/shared"
)

// Sentinel errors re-exported for handlers.
var (
	ErrNotFound   = shared.ErrNotFound
	ErrDuplicate  = shared.ErrDuplicate
	ErrValidation = shared.ErrValidation
	ErrConflict   = shared.ErrConflict
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// The error message is passed through as the problem detail so the dashboard
// can show it verbatim.
func RespondError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		ValidationProblem(w, verrs)
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", err.Error())
	}
}
