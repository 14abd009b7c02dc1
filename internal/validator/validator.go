package validator

import (
	"github.com/go-playground/validator/v10"
	ierr "github.com/warebill/warebill/internal/errors"
)

var validate *validator.Validate

// NewValidator builds the process-wide validator instance. It is wired once
// through fx, but ValidateRequest falls back to lazy initialization so DTO
// validation also works in tests that never build the app graph.
func NewValidator() *validator.Validate {
	validate = validator.New()
	return validate
}

// ValidateRequest runs struct-tag validation on a request DTO and converts
// field failures into a single validation-marked error with per-field details.
func ValidateRequest(req interface{}) error {
	if validate == nil {
		NewValidator()
	}

	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	details := make(map[string]any)
	var fieldErrs validator.ValidationErrors
	if ierr.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			details[fe.Field()] = fe.Error()
		}
	}
	return ierr.WithError(err).
		WithHint("Request validation failed").
		WithReportableDetails(details).
		Mark(ierr.ErrValidation)
}
