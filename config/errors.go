package config

import (
	"fmt"
	"strings"
)

// ConfigError describes a configuration problem and how to fix it.
// Messages are lowercase.
//
//nolint:revive // exported as config.ConfigError on purpose
type ConfigError struct {
	Category string // "missing" or "invalid"
	Field    string // koanf key, e.g. "api.baseurl"
	Message  string
	Action   string
}

func (e *ConfigError) Error() string {
	parts := make([]string, 0, 4)
	if e.Category != "" {
		parts = append(parts, fmt.Sprintf("config_%s:", e.Category))
	}
	for _, p := range []string{e.Field, e.Message, e.Action} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// NewMissingFieldError reports a required key with no value.
func NewMissingFieldError(field string) *ConfigError {
	return &ConfigError{
		Category: "missing",
		Field:    field,
		Message:  "required",
		Action:   fmt.Sprintf("set %s env var or add %s to config.yaml", EnvVarName(field), field),
	}
}

// NewInvalidFieldError reports a value outside its allowed set or range.
func NewInvalidFieldError(field, message string, validOptions []string) *ConfigError {
	err := &ConfigError{
		Category: "invalid",
		Field:    field,
		Message:  message,
	}
	if len(validOptions) > 0 {
		err.Action = fmt.Sprintf("must be one of: %s", strings.Join(validOptions, ", "))
	}
	return err
}

// EnvVarName returns the environment variable that sets a koanf key.
func EnvVarName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
