package logger

import (
	"net/url"
	"reflect"
	"strings"
)

const (
	// DefaultMaskValue replaces sensitive values in log output
	DefaultMaskValue = "***"
	// DefaultMaxDepth bounds recursion when filtering nested values
	DefaultMaxDepth = 8

	bearerPrefix = "Bearer "
)

// FilterConfig defines which field names are treated as sensitive.
type FilterConfig struct {
	// SensitiveFields are matched case-insensitively as substrings of the field name
	SensitiveFields []string
	// MaskValue replaces sensitive data (default: "***")
	MaskValue string
}

// DefaultFilterConfig returns the field list used by the helpdesk client.
// It covers credentials sent to the account API and the bearer token.
func DefaultFilterConfig() *FilterConfig {
	return &FilterConfig{
		SensitiveFields: []string{
			"password", "passwd",
			"secret", "api_key", "apikey",
			"token", "jwt",
			"authorization",
			"credential",
		},
		MaskValue: DefaultMaskValue,
	}
}

// SensitiveDataFilter masks sensitive values before they reach the log writer.
type SensitiveDataFilter struct {
	config *FilterConfig
}

// NewSensitiveDataFilter creates a new filter; a nil config selects the defaults.
func NewSensitiveDataFilter(config *FilterConfig) *SensitiveDataFilter {
	if config == nil {
		config = DefaultFilterConfig()
	}
	if config.MaskValue == "" {
		config.MaskValue = DefaultMaskValue
	}
	return &SensitiveDataFilter{config: config}
}

// FilterString masks value when key is sensitive.
// Bearer credentials keep their scheme so logs still show what kind of header was sent.
func (f *SensitiveDataFilter) FilterString(key, value string) string {
	if !f.isSensitiveField(key) || value == "" {
		return value
	}
	if strings.HasPrefix(value, bearerPrefix) {
		return bearerPrefix + f.config.MaskValue
	}
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return f.maskURL(value)
	}
	return f.config.MaskValue
}

// FilterValue masks sensitive data inside arbitrary values.
func (f *SensitiveDataFilter) FilterValue(key string, value any) any {
	return f.filterValue(key, value, DefaultMaxDepth)
}

// FilterFields filters a map of fields for sensitive data
func (f *SensitiveDataFilter) FilterFields(fields map[string]any) map[string]any {
	filtered := make(map[string]any, len(fields))
	for key, value := range fields {
		filtered[key] = f.FilterValue(key, value)
	}
	return filtered
}

func (f *SensitiveDataFilter) filterValue(key string, value any, depth int) any {
	if f.isSensitiveField(key) {
		if s, ok := value.(string); ok {
			return f.FilterString(key, s)
		}
		return f.config.MaskValue
	}
	if value == nil || depth <= 0 {
		return value
	}

	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, inner := range v {
			out[k] = f.filterValue(k, inner, depth-1)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, inner := range v {
			out[k] = f.FilterString(k, inner)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			out[i] = f.filterValue(key, inner, depth-1)
		}
		return out
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return value
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return value
	}
	return f.filterStruct(rv, depth)
}

// filterStruct renders a struct as a map keyed by json names so nested credentials can be masked.
func (f *SensitiveDataFilter) filterStruct(rv reflect.Value, depth int) map[string]any {
	rt := rv.Type()
	out := make(map[string]any, rv.NumField())
	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name := jsonFieldName(&field)
		if name == "" {
			continue
		}
		out[name] = f.filterValue(name, rv.Field(i).Interface(), depth-1)
	}
	return out
}

func jsonFieldName(field *reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return field.Name
	}
	return name
}

func (f *SensitiveDataFilter) isSensitiveField(fieldName string) bool {
	lower := strings.ToLower(fieldName)
	for _, sensitive := range f.config.SensitiveFields {
		if strings.Contains(lower, strings.ToLower(sensitive)) {
			return true
		}
	}
	return false
}

// maskURL hides the password in user info and keeps the rest of the URL readable.
func (f *SensitiveDataFilter) maskURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return f.config.MaskValue
	}
	if parsed.User == nil {
		return raw
	}
	if _, hasPassword := parsed.User.Password(); !hasPassword {
		return raw
	}

	var b strings.Builder
	b.WriteString(parsed.Scheme)
	b.WriteString("://")
	b.WriteString(parsed.User.Username())
	b.WriteByte(':')
	b.WriteString(f.config.MaskValue)
	b.WriteByte('@')
	b.WriteString(parsed.Host)
	b.WriteString(parsed.EscapedPath())
	if parsed.RawQuery != "" {
		b.WriteByte('?')
		b.WriteString(parsed.RawQuery)
	}
	return b.String()
}
