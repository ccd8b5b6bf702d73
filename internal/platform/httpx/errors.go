package httpx

import (
	"errors"
	"net/http"

	"github.com/countwise/countwise/internal/shared"
)

// RespondError maps workflow errors to HTTP responses using RFC7807.
// Every mapped response carries the offending field/ids or the
// expected-vs-actual status so the caller can render a precise message.
func RespondError(w http.ResponseWriter, err error) {
	var (
		validation *shared.ValidationError
		conflict   *shared.ConflictError
		notFound   *shared.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		Problem(w, http.StatusBadRequest, "Validation Failed", validation.Error())
	case errors.As(err, &conflict):
		Problem(w, http.StatusConflict, "Conflict", conflict.Error())
	case errors.As(err, &notFound):
		Problem(w, http.StatusNotFound, "Not Found", notFound.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
