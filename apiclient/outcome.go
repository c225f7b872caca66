package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind classifies why a call failed.
type Kind int

const (
	KindTimeout Kind = iota + 1
	KindCancelled
	KindAuthenticationRequired
	KindAccessDenied
	KindRateLimited
	KindServerError
	KindMalformedPayload
	KindApplicationError
	KindInvalidToken
	KindPlanNotEligible
	KindNetwork
	KindValidation
	KindTokenNotFound
	KindStorage
)

var kindNames = map[Kind]string{
	KindTimeout:                "Timeout",
	KindCancelled:              "Cancelled",
	KindAuthenticationRequired: "AuthenticationRequired",
	KindAccessDenied:           "AccessDenied",
	KindRateLimited:            "RateLimited",
	KindServerError:            "ServerError",
	KindMalformedPayload:       "MalformedPayload",
	KindApplicationError:       "ApplicationError",
	KindInvalidToken:           "InvalidToken",
	KindPlanNotEligible:        "PlanNotEligible",
	KindNetwork:                "Network",
	KindValidation:             "Validation",
	KindTokenNotFound:          "TokenNotFound",
	KindStorage:                "Storage",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText renders the kind by name in JSON output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Messages shown for status-derived failures.
const (
	MessageAuthenticationRequired = "Authentication required"
	MessageAccessDenied           = "Access denied"
	MessageRateLimited            = "Rate limit exceeded. Please try again later."
	MessageServerError            = "Server error. Please try again later."
	MessageTimeout                = "Request timeout"
	MessageCancelled              = "Request cancelled"
	MessageNetwork                = "Network error. Please check your connection and try again."
	MessageInvalidToken           = "Invalid token provided"
	MessagePlanNotEligible        = "Service policy is available for Pro/Team plans only"
)

// Sentinels matched by errors.Is against a *Failure of the same kind.
var (
	ErrAuthenticationRequired = errors.New("apiclient: authentication required")
	ErrInvalidToken           = errors.New("apiclient: invalid token")
	ErrPlanNotEligible        = errors.New("apiclient: plan not eligible")
	ErrTokenNotFound          = errors.New("apiclient: token not found")
)

var kindSentinels = map[Kind]error{
	KindAuthenticationRequired: ErrAuthenticationRequired,
	KindInvalidToken:           ErrInvalidToken,
	KindPlanNotEligible:        ErrPlanNotEligible,
	KindTokenNotFound:          ErrTokenNotFound,
}

// Failure describes a failed call. Message is suitable for a human.
type Failure struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"error"`
	// Status is the HTTP status when a response was received, else 0.
	Status int   `json:"status,omitempty"`
	Err    error `json:"-"`
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Err }

// Is matches the kind sentinels.
func (f *Failure) Is(target error) bool {
	sentinel, ok := kindSentinels[f.Kind]
	return ok && sentinel == target
}

func newFailure(kind Kind, message string, status int, err error) *Failure {
	return &Failure{Kind: kind, Message: message, Status: status, Err: err}
}

// AsFailure extracts a *Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// Outcome is the uniform result of every call. Exactly one of Payload (on
// success) or Failure is meaningful; Raw keeps the response body either way.
type Outcome struct {
	Success bool
	Status  int
	Payload map[string]any
	Raw     json.RawMessage
	Failure *Failure

	value    any
	envelope Envelope
}

func succeeded(status int, raw []byte, value any, env Envelope) Outcome {
	out := Outcome{Success: true, Status: status, Raw: raw, value: value, envelope: env}
	if obj, ok := value.(map[string]any); ok {
		out.Payload = obj
	}
	return out
}

func failed(f *Failure, env Envelope) Outcome {
	return Outcome{Status: f.Status, Failure: f, envelope: env}
}

// Err returns the failure as an error, or nil on success.
func (o Outcome) Err() error {
	if o.Failure == nil {
		return nil
	}
	return o.Failure
}

// Message returns the failure message, or "" on success.
func (o Outcome) Message() string {
	if o.Failure == nil {
		return ""
	}
	return o.Failure.Message
}

// Kind returns the failure kind, or 0 on success.
func (o Outcome) Kind() Kind {
	if o.Failure == nil {
		return 0
	}
	return o.Failure.Kind
}

// Accepted reports whether the envelope's success flag, when present, is true.
func (o Outcome) Accepted() bool {
	if !o.Success {
		return false
	}
	if o.Payload == nil || o.envelope.SuccessField == "" {
		return true
	}
	flag, present := o.Payload[o.envelope.SuccessField]
	if !present {
		return true
	}
	b, ok := flag.(bool)
	return ok && b
}

// Data returns the envelope's data member, or the whole payload when the
// envelope has no data field or the payload lacks it.
func (o Outcome) Data() any {
	if !o.Success {
		return nil
	}
	if o.Payload == nil {
		return o.value
	}
	if o.envelope.DataField != "" {
		if data, ok := o.Payload[o.envelope.DataField]; ok {
			return data
		}
	}
	return o.Payload
}

// DataMap returns Data when it is a JSON object.
func (o Outcome) DataMap() map[string]any {
	m, _ := o.Data().(map[string]any)
	return m
}

// Decode decodes Data into v.
func (o Outcome) Decode(v any) error {
	if !o.Success {
		return o.Failure
	}
	b, err := json.Marshal(o.Data())
	if err != nil {
		return fmt.Errorf("apiclient: re-encode data: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("apiclient: decode data: %w", err)
	}
	return nil
}

// MarshalJSON renders the payload on success and {"success":false,"error":...} on failure.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.Failure != nil {
		return json.Marshal(struct {
			Success bool   `json:"success"`
			Error   string `json:"error"`
			Kind    Kind   `json:"kind"`
			Status  int    `json:"status,omitempty"`
		}{false, o.Failure.Message, o.Failure.Kind, o.Failure.Status})
	}
	if o.value == nil {
		return []byte(`{"success":true}`), nil
	}
	return json.Marshal(o.value)
}

// Envelope names the members of the API's response wrapper.
type Envelope struct {
	SuccessField string
	DataField    string
	// ErrorFields are consulted in order for the message of a non-2xx JSON body.
	ErrorFields []string
}

// DefaultEnvelope matches {success, data, error|message}.
func DefaultEnvelope() Envelope {
	return Envelope{
		SuccessField: "success",
		DataField:    "data",
		ErrorFields:  []string{"error", "message"},
	}
}

// errorMessage returns the first non-empty string among the error fields.
func (e Envelope) errorMessage(payload map[string]any) (string, bool) {
	for _, field := range e.ErrorFields {
		if s, ok := payload[field].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

func (e Envelope) isZero() bool {
	return e.SuccessField == "" && e.DataField == "" && len(e.ErrorFields) == 0
}
