package utils

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "thoughtgraph/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names so errors match the payload the caller sent
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// ValidateStruct validates a struct based on its validation tags. The first
// failing field is reported as a ValidationError.
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateVar validates a single value against a tag expression
func ValidateVar(field string, value interface{}, tag string) error {
	if err := validate.Var(value, tag); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok && len(validationErrors) > 0 {
			return pkgerrors.NewValidationError(field, fieldReason(validationErrors[0]))
		}
		return pkgerrors.NewValidationError(field, "is invalid")
	}
	return nil
}

// formatValidationError converts validator errors into a typed ValidationError
func formatValidationError(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrors) == 0 {
		return pkgerrors.NewValidationError("payload", err.Error())
	}

	first := validationErrors[0]
	appErr := pkgerrors.NewValidationError(first.Field(), fieldReason(first))
	if len(validationErrors) > 1 {
		all := make([]string, 0, len(validationErrors))
		for _, e := range validationErrors {
			all = append(all, fmt.Sprintf("%s %s", e.Field(), fieldReason(e)))
		}
		appErr.WithDetail("violations", all)
	}
	return appErr
}

// fieldReason formats a single field validation error
func fieldReason(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", e.Param())
	case "email":
		return "must be a valid email"
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	default:
		return "is invalid"
	}
}
