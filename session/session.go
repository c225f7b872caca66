// Package session holds the persisted credential record of the signed-in user
// and the Store contract its backends implement.
package session

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// DefaultKey is the storage slot name used when none is configured.
const DefaultKey = "user"

// Subscription is the subscription value exactly as the API returned it,
// usually an object such as {"plan":"pro","status":"active"}. Only the plan
// is interpreted; every other field is carried verbatim. A nil Subscription
// encodes as null.
type Subscription []byte

// NewSubscription encodes v as a Subscription. nil and JSON null yield nil.
func NewSubscription(v any) (Subscription, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("session: encode subscription: %w", err)
	}
	if string(data) == "null" {
		return nil, nil
	}
	return Subscription(data), nil
}

// PlanSubscription returns {"plan":plan}.
func PlanSubscription(plan string) Subscription {
	data, _ := json.Marshal(map[string]string{"plan": plan})
	return Subscription(data)
}

// Plan returns the plan field of an object subscription, or the value itself
// when the API sent a bare plan name. Anything else yields "".
func (s Subscription) Plan() string {
	if len(s) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(s, &v); err != nil {
		return ""
	}
	switch sub := v.(type) {
	case string:
		return sub
	case map[string]any:
		plan, _ := sub["plan"].(string)
		return plan
	}
	return ""
}

// Fields decodes an object subscription. It returns nil for any other shape.
func (s Subscription) Fields() map[string]any {
	var m map[string]any
	if len(s) == 0 || json.Unmarshal(s, &m) != nil {
		return nil
	}
	return m
}

func (s Subscription) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte("null"), nil
	}
	return s, nil
}

func (s *Subscription) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = nil
		return nil
	}
	*s = append((*s)[0:0], data...)
	return nil
}

// Session is the single persisted record. An empty Token means signed out.
type Session struct {
	Token        string        `json:"token"`
	Email        string        `json:"email"`
	Domain       string        `json:"domain"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
	Subscription Subscription `json:"subscription"`
}

// Plan returns the lowercased subscription plan, or "" when there is none.
func (s *Session) Plan() string {
	if s == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(s.Subscription.Plan()))
}

// HasPlan reports whether the session's plan is one of plans (case-insensitive).
func (s *Session) HasPlan(plans ...string) bool {
	plan := s.Plan()
	if plan == "" {
		return false
	}
	return slices.ContainsFunc(plans, func(p string) bool { return strings.EqualFold(p, plan) })
}

// Authenticated reports whether the record carries a token.
func (s *Session) Authenticated() bool {
	return s != nil && strings.TrimSpace(s.Token) != ""
}

// Touch stamps UpdatedAt and fills CreatedAt when it was never set.
func (s *Session) Touch(now time.Time) {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Subscription = slices.Clone(s.Subscription)
	return &c
}

// Marshal encodes a session the way every backend stores it.
func Marshal(s *Session) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("session: nil record")
	}
	return json.Marshal(s)
}

// Unmarshal decodes a stored record. Undecodable data wraps ErrCorrupt.
func Unmarshal(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &s, nil
}
