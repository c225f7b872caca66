package apiclient

import (
	"fmt"
	"slices"
	"strings"
)

// KnownTokenFields are the member names searched for a token, in order.
var KnownTokenFields = []string{
	"token",
	"accessToken",
	"access_token",
	"jwt",
	"jwtToken",
	"authToken",
	"authorization",
}

// expectedLoginDataFields is the data shape the login endpoint is meant to return.
var expectedLoginDataFields = []string{"message", "user", "token", "expiresIn"}

// LoginAnalysis is a diagnosis of a login response.
type LoginAnalysis struct {
	HasResponse   bool     `json:"hasResponse"`
	Success       bool     `json:"success"`
	ResponseKeys  []string `json:"responseKeys"`
	HasData       bool     `json:"hasData"`
	DataKeys      []string `json:"dataKeys"`
	MissingFields []string `json:"missingFields,omitempty"`
	TokenFound    bool     `json:"tokenFound"`
	TokenLocation string   `json:"tokenLocation,omitempty"`
	TokenPreview  string   `json:"tokenPreview,omitempty"`
	Issues        []string `json:"issues"`
	Suggestions   []string `json:"suggestions"`
}

// AnalyzeLoginPayload looks for a token anywhere in a decoded login
// response and explains what is missing when there is none. A token found
// outside response.data is reported in preference to one inside it.
func AnalyzeLoginPayload(payload any) (a LoginAnalysis) {
	a = LoginAnalysis{Issues: []string{}}
	defer func() { a.Suggestions = a.suggestions() }()

	if payload == nil {
		a.Issues = append(a.Issues, "No response received")
		return a
	}
	a.HasResponse = true

	root, ok := payload.(map[string]any)
	if !ok {
		a.Issues = append(a.Issues, fmt.Sprintf("Response is not an object: %T", payload))
		return a
	}
	a.ResponseKeys = sortedKeys(root)

	if success, _ := root["success"].(bool); !success {
		a.Issues = append(a.Issues, "Response success flag is false or missing")
		return a
	}
	a.Success = true

	data, ok := root["data"].(map[string]any)
	if !ok {
		a.Issues = append(a.Issues, "Response missing data object")
		return a
	}
	a.HasData = true
	a.DataKeys = sortedKeys(data)

	if location, token, found := findToken(data, "response.data"); found {
		a.setToken(location, token)
	} else {
		a.Issues = append(a.Issues, "No token found in data object")
		for _, field := range expectedLoginDataFields {
			if _, present := data[field]; !present {
				a.MissingFields = append(a.MissingFields, field)
			}
		}
	}

	for _, key := range a.ResponseKeys {
		if key == "data" {
			continue
		}
		if location, token, found := findToken(map[string]any{key: root[key]}, "response"); found {
			a.setToken(location, token)
			break
		}
	}
	return a
}

func (a *LoginAnalysis) setToken(location, token string) {
	a.TokenFound = true
	a.TokenLocation = location
	a.TokenPreview = TokenPreview(token)
}

func (a *LoginAnalysis) suggestions() []string {
	out := []string{}
	if !a.TokenFound {
		out = append(out, "No token found in response. Check backend implementation.")
		if len(a.DataKeys) > 0 {
			out = append(out, "Available data fields: "+strings.Join(a.DataKeys, ", "))
		}
		out = append(out, "Common token field names: "+strings.Join(KnownTokenFields, ", "))
	}
	return out
}

// findToken searches obj's known fields first, then nested objects in key order.
func findToken(obj map[string]any, path string) (location, token string, found bool) {
	for _, field := range KnownTokenFields {
		if s, ok := obj[field].(string); ok && LooksLikeToken(s) {
			return path + "." + field, s, true
		}
	}
	for _, key := range sortedKeys(obj) {
		if nested, ok := obj[key].(map[string]any); ok {
			if location, token, found := findToken(nested, path+"."+key); found {
				return location, token, true
			}
		}
	}
	return "", "", false
}

// LooksLikeToken accepts JWT-shaped strings and strings of 20 to 2000 characters.
func LooksLikeToken(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if len(strings.Split(s, ".")) == 3 {
		return true
	}
	return len(s) >= 20 && len(s) <= 2000
}

// TokenPreview shows the first 20 and last 10 characters of longer tokens.
func TokenPreview(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return "N/A"
	}
	if len(token) <= 30 {
		return token
	}
	return token[:20] + "..." + token[len(token)-10:]
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
