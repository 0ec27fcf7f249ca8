package response

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/erp-backend-go/internal/pkg/apperror"
	"github.com/cmlabs-hris/erp-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	kind, ok := apperror.KindOf(err)
	if !ok {
		InternalServerError(w, "An unexpected error occurred")
		return
	}

	switch kind {
	case apperror.KindValidation:
		BadRequest(w, apperror.MessageOf(err), nil)
	case apperror.KindNotFound:
		NotFound(w, apperror.MessageOf(err))
	case apperror.KindBusinessRule:
		Conflict(w, apperror.MessageOf(err))
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
