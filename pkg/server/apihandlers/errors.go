package apihandlers

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/vitrinhq/vitrin/pkg/models"
	"github.com/vitrinhq/vitrin/pkg/server/handlertools"
)

var validate = validator.New()

// APIError represents an error response. Used for swagger documentation.
type APIError struct {
	Message string `json:"message"`
}

// decodeRequest decodes the JSON body into req and validates it. Errors are
// rendered and false is returned.
func decodeRequest(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := handlertools.DecodeJSON(r, req); err != nil {
		handlertools.RenderError(
			w,
			fmt.Errorf("%w: unable to decode request: %w", models.ErrBadRequest, err),
			http.StatusBadRequest,
		)
		return false
	}
	if err := validate.Struct(req); err != nil {
		handlertools.RenderError(
			w,
			fmt.Errorf("%w: %w", models.ErrBadRequest, err),
			http.StatusBadRequest,
		)
		return false
	}
	return true
}
