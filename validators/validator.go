package validators

import (
	"github.com/go-playground/validator/v10"
)

// CustomValidator adapts go-playground/validator to echo.Validator
type CustomValidator struct {
	validate *validator.Validate
}

// NewValidator creates a new CustomValidator
func NewValidator() *CustomValidator {
	return &CustomValidator{validate: validator.New()}
}

// Validate validates a struct against its `validate` tags
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validate.Struct(i)
}
