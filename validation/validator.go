// Package validation checks outbound request payloads before they reach the network.
// It wraps go-playground/validator with the custom rules and messages used by the client.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator with the client's custom rules registered.
type Validator struct {
	validate *validator.Validate
}

var (
	defaultOnce      sync.Once
	defaultValidator *Validator
)

// New creates a Validator with custom rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	// notblank only fails on programmer error (duplicate tag), never at runtime
	_ = v.RegisterValidation("notblank", validateNotBlank)

	return &Validator{validate: v}
}

// Default returns a process-wide Validator.
func Default() *Validator {
	defaultOnce.Do(func() {
		defaultValidator = New()
	})
	return defaultValidator
}

// Struct validates s and returns *Error when any field fails.
func (v *Validator) Struct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return newError(validationErrors)
		}
		return err
	}
	return nil
}

// Error lists every field that failed validation.
type Error struct {
	Fields []FieldError `json:"errors"`
}

// FieldError describes a single failed field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func newError(errs validator.ValidationErrors) *Error {
	fields := make([]FieldError, 0, len(errs))
	for _, fe := range errs {
		fields = append(fields, FieldError{
			Field:   fe.Field(),
			Message: message(fe),
		})
	}
	return &Error{Fields: fields}
}

func (e *Error) Error() string {
	switch len(e.Fields) {
	case 0:
		return "validation failed"
	case 1:
		return e.Fields[0].Message
	default:
		msgs := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			msgs = append(msgs, f.Message)
		}
		return strings.Join(msgs, "; ")
	}
}

// FirstField returns the name of the first failed field, or "" when none.
func (e *Error) FirstField() string {
	if len(e.Fields) == 0 {
		return ""
	}
	return e.Fields[0].Field
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "eqfield":
		return fmt.Sprintf("%s must match %s", fe.Field(), fe.Param())
	case "fqdn", "hostname":
		return fmt.Sprintf("%s must be a valid domain name", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
