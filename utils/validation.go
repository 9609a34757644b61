package utils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the go-playground validator.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// ValidateStruct validates a struct using its `validate` tags.
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.validate.Struct(s)
}

// FormatValidationErrors maps field names to readable messages.
func FormatValidationErrors(err error) map[string]string {
	out := make(map[string]string)
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return out
	}
	for _, e := range validationErrs {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			out[field] = fmt.Sprintf("%s is required", e.Field())
		case "min":
			out[field] = fmt.Sprintf("%s must be at least %s", e.Field(), e.Param())
		case "max":
			out[field] = fmt.Sprintf("%s must be at most %s", e.Field(), e.Param())
		case "oneof":
			out[field] = fmt.Sprintf("%s must be one of: %s", e.Field(), e.Param())
		case "uuid":
			out[field] = fmt.Sprintf("%s must be a UUID", e.Field())
		default:
			out[field] = fmt.Sprintf("%s is invalid", e.Field())
		}
	}
	return out
}
