// Package handler implements the HTTP endpoints: the auth lifecycle surface
// and the admin-gated user CRUD. Handlers bind and validate input once, call
// into the services and map results to response DTOs; error-to-status mapping
// lives in the shared HTTP error handler.
package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/user-auth-service/internal/apperr"
)

// Validator adapts go-playground/validator to Echo's Validator interface.
// Struct tags on the request DTOs are the single validation contract; the
// services never re-validate.
type Validator struct{ validate *validator.Validate }

func NewValidator() *Validator { return &Validator{validate: validator.New()} }

// Validate checks a bound request struct and converts violations into a
// ValidationFailed error with field-level detail safe to return to the client.
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Wrap(apperr.KindInternal, "validate request", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[strings.ToLower(fe.Field())] = fieldMessage(fe)
	}
	return apperr.New(apperr.KindValidation, "validation failed").WithFields(fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}
