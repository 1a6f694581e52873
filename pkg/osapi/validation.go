package osapi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Static errors for err113 compliance.
var (
	ErrInvalidConfig  = errors.New("invalid config")
	ErrInvalidCatalog = errors.New("invalid catalog")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigRequired
	}

	return validationError(ErrInvalidConfig, validate.Struct(c))
}

// Validate checks that every service and endpoint of the catalog is well formed.
func (c *Catalog) Validate() error {
	if c == nil || len(c.Services) == 0 {
		return ErrEmptyCatalog
	}

	return validationError(ErrInvalidCatalog, validate.Struct(c))
}

// validationError flattens validator.ValidationErrors into one readable error
// wrapping kind.
func validationError(kind, err error) error {
	if err == nil {
		return nil
	}

	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return fmt.Errorf("%w: %w", kind, err)
	}

	messages := make([]string, 0, len(valErrs))
	for _, ve := range valErrs {
		messages = append(messages, ve.Namespace()+": "+formatValidationError(ve))
	}

	return fmt.Errorf("%w: %s", kind, strings.Join(messages, "; "))
}

// formatValidationError converts a validator.FieldError to a human-readable message.
func formatValidationError(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "required"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of " + ve.Param()
	case "gte":
		return "must be at least " + ve.Param()
	case "min":
		return fmt.Sprintf("must contain at least %s item(s)", ve.Param())
	default:
		return fmt.Sprintf("failed %q validation", ve.Tag())
	}
}
