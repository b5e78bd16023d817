package handlertools

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vitrinhq/vitrin/internal"
	"github.com/vitrinhq/vitrin/pkg/models"
)

var log = internal.GetLogger()

// IntFromQuery extracts a query string value and converts it to an int
// if it is not empty. If the value is empty, it returns 0.
func IntFromQuery[T ~int | int32 | int64](
	r *http.Request,
	param string,
) (T, error) {
	bitsize := 0

	p := r.URL.Query().Get(param)
	var pInt T
	if p != "" {
		switch any(pInt).(type) {
		case int:
		case int32:
			bitsize = 32
		case int64:
			bitsize = 64
		default:
			return 0, errors.New("unsupported type")
		}

		pInt, err := strconv.ParseInt(p, 10, bitsize)
		if err != nil {
			return 0, models.NewValidationError(param, "must be an integer")
		}
		return T(pInt), nil
	}
	return 0, nil
}

// IDFromURL parses a positive integer id from a Path parameter. If the id is invalid,
// an error is rendered and ok is false.
func IDFromURL(r *http.Request, w http.ResponseWriter, paramName string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, paramName), 10, 64)
	if err != nil || id < 1 {
		RenderError(
			w,
			models.NewValidationError(paramName, "must be a positive integer"),
			http.StatusBadRequest,
		)
		return 0, false
	}
	return id, true
}

// EncodeJSON encodes data into JSON and writes it to the response writer.
func EncodeJSON(w http.ResponseWriter, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(data)
}

// DecodeJSON decodes a JSON request body into the provided data struct.
func DecodeJSON(r *http.Request, data interface{}) error {
	return json.NewDecoder(r.Body).Decode(data)
}

// StatusFromError maps domain errors onto HTTP status codes. Unknown errors are
// reported with fallback.
func StatusFromError(err error, fallback int) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrEmptyCorpus):
		return http.StatusNoContent
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrUpstreamService):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrDimensionMismatch):
		return http.StatusInternalServerError
	}
	return fallback
}

// RenderError renders an error response. Domain errors override status.
func RenderError(w http.ResponseWriter, err error, status int) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		status = http.StatusRequestEntityTooLarge
		err = fmt.Errorf("request body too large. limit is %d bytes", maxBytesErr.Limit)
	}

	status = StatusFromError(err, status)

	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	if status != http.StatusNotFound {
		// Don't log not found errors
		log.Error(err)
	}

	http.Error(w, err.Error(), status)
}
