package apiclient

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"net/url"
	"strings"

	"github.com/giihelpdesk/helpdesk-client/session"
)

// Notice titles used by Login.
const (
	TitleLoginFailed = "Login Failed"
	TitleLoginError  = "Login Error"
)

// RegisterRequest is the sign-up payload.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"notblank"`
	Domain   string `json:"domain" validate:"required,fqdn"`
	Name     string `json:"name,omitempty" validate:"omitempty,max=200"`
}

// Credentials is the sign-in payload.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"notblank"`
}

type forgotRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetRequest struct {
	Token           string `json:"token" validate:"notblank"`
	Password        string `json:"password" validate:"notblank"`
	ConfirmPassword string `json:"confirmPassword" validate:"eqfield=Password"`
}

type verifyRequest struct {
	Token string `json:"token" validate:"notblank"`
}

type domainQuery struct {
	Domain string `json:"domain" validate:"notblank"`
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) Outcome {
	if out, ok := c.validate(ctx, req); !ok {
		return out
	}
	return c.call(ctx, c.routes.Register, RequestOptions{Method: nethttp.MethodPost, Body: req}, false)
}

// ForgotPassword asks for a password reset mail.
func (c *Client) ForgotPassword(ctx context.Context, email string) Outcome {
	req := forgotRequest{Email: email}
	if out, ok := c.validate(ctx, req); !ok {
		return out
	}
	return c.call(ctx, c.routes.Forgot, RequestOptions{Method: nethttp.MethodPost, Body: req}, false)
}

// ResetPassword sets a new password using the token from the reset mail.
func (c *Client) ResetPassword(ctx context.Context, token, password, confirmPassword string) Outcome {
	req := resetRequest{Token: token, Password: password, ConfirmPassword: confirmPassword}
	if out, ok := c.validate(ctx, req); !ok {
		return out
	}
	return c.call(ctx, c.routes.Reset, RequestOptions{Method: nethttp.MethodPost, Body: req}, false)
}

// VerifyEmail confirms an address with the token from the verification mail.
func (c *Client) VerifyEmail(ctx context.Context, token string) Outcome {
	req := verifyRequest{Token: token}
	if out, ok := c.validate(ctx, req); !ok {
		return out
	}
	return c.call(ctx, c.routes.Verify, RequestOptions{Method: nethttp.MethodPost, Body: req}, false)
}

// CheckDomain asks whether a shop domain is still free.
func (c *Client) CheckDomain(ctx context.Context, domain string) Outcome {
	if out, ok := c.validate(ctx, domainQuery{Domain: domain}); !ok {
		return out
	}
	endpoint := c.routes.CheckDomain + "?domain=" + url.QueryEscape(domain)
	return c.call(ctx, endpoint, RequestOptions{}, true)
}

// Login signs in. On success the token is extracted from the response data,
// held, and persisted together with the user's email, domain and subscription.
func (c *Client) Login(ctx context.Context, creds Credentials) Outcome {
	if out, ok := c.validate(ctx, creds); !ok {
		return out
	}

	out := c.send(ctx, c.routes.Login, RequestOptions{Method: nethttp.MethodPost, Body: creds})
	if out.Failure != nil {
		if out.Failure.Kind == KindApplicationError {
			return c.loginRejected(ctx, out, out.Failure.Message)
		}
		c.report(ctx, TitleAPIError, out.Failure)
		return out
	}
	if !out.Accepted() {
		code, _ := c.envelope.errorMessage(out.Payload)
		return c.loginRejected(ctx, out, code)
	}

	data := out.Payload
	if c.envelope.DataField != "" {
		data, _ = out.Payload[c.envelope.DataField].(map[string]any)
	}
	token, location, found := ExtractLoginToken(data)
	if !found {
		analysis := AnalyzeLoginPayload(out.value)
		c.logger.WithContext(ctx).Error().
			Interface("issues", analysis.Issues).
			Interface("suggestions", analysis.Suggestions).
			Interface("data_keys", analysis.DataKeys).
			Msg("Login succeeded but no token was found")
		f := newFailure(KindTokenNotFound, tokenIssueMessage(out.Payload, data), out.Status, ErrTokenNotFound)
		c.report(ctx, TitleLoginError, f)
		return Outcome{Status: out.Status, Payload: out.Payload, Raw: out.Raw, Failure: f, envelope: c.envelope}
	}

	user, _ := data["user"].(map[string]any)
	email := stringField(user, "email")
	if email == "" {
		email = creds.Email
	}
	now := c.now().UTC()
	s := &session.Session{
		Token:        token,
		Email:        email,
		Domain:       stringField(user, "domain"),
		CreatedAt:    now,
		UpdatedAt:    now,
		Subscription: subscriptionFrom(user["subscription"]),
	}
	if err := c.signIn(ctx, s); err != nil {
		f, _ := AsFailure(err)
		c.report(ctx, TitleAPIError, f)
		return Outcome{Status: out.Status, Payload: out.Payload, Raw: out.Raw, Failure: f, envelope: c.envelope}
	}

	c.logger.WithContext(ctx).Info().
		Str("token_location", location).
		Int("token_length", len(token)).
		Str("email", email).
		Msg("Login successful")
	return out
}

func (c *Client) loginRejected(ctx context.Context, out Outcome, code string) Outcome {
	f := newFailure(KindApplicationError, LoginFailureMessage(code), out.Status, nil)
	if code != "" {
		f.Err = errors.New(code)
	}
	c.report(ctx, TitleLoginFailed, f)
	return Outcome{Status: out.Status, Payload: out.Payload, Raw: out.Raw, Failure: f, envelope: c.envelope}
}

// LoginFailureMessage turns a server error code into a sentence for the user.
func LoginFailureMessage(code string) string {
	switch code {
	case "INVALID_CREDENTIALS":
		return "Invalid email or password. Please check your credentials."
	case "EMAIL_NOT_VERIFIED":
		return "Please verify your email address before signing in."
	case "ACCOUNT_LOCKED":
		return "Your account has been locked due to multiple failed login attempts."
	case "SUBSCRIPTION_EXPIRED":
		return "Your subscription has expired. Please renew to continue."
	case "":
		return "Login failed. Please try again."
	default:
		return "Login error: " + code
	}
}

// tokenIssueMessage explains why a successful login yielded no usable token.
func tokenIssueMessage(payload, data map[string]any) string {
	switch {
	case payload == nil:
		return "No response received from server. Please check your connection."
	case data == nil:
		return "Unexpected response format. Please try again or contact support."
	case data["token"] != nil:
		return "Token found in data.token but not extracted. This is a system error."
	case data["accessToken"] != nil:
		return "Token found in data.accessToken but not extracted. This is a system error."
	default:
		return "Login successful but authentication token is missing. Please contact support."
	}
}

// loginTokenRules are tried in order against the login response data.
var loginTokenRules = [][]string{
	{"token"},
	{"token", "accessToken"},
	{"token", "token"},
	{"token", "jwt"},
}

// ExtractLoginToken applies the login token rules to data and returns the
// first non-blank string with its dotted location.
func ExtractLoginToken(data map[string]any) (token, location string, ok bool) {
	for _, path := range loginTokenRules {
		if s, found := lookupString(data, path); found {
			return s, "data." + strings.Join(path, "."), true
		}
	}
	return "", "", false
}

func lookupString(m map[string]any, path []string) (string, bool) {
	var cur any = m
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		cur = obj[key]
	}
	s, ok := cur.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// subscriptionFrom keeps the subscription the API sent verbatim, whatever
// its shape. Missing, null and empty values mean no subscription.
func subscriptionFrom(v any) session.Subscription {
	if str, ok := v.(string); ok && str == "" {
		return nil
	}
	sub, err := session.NewSubscription(v)
	if err != nil {
		return nil
	}
	return sub
}

// validate checks payload; on failure it notifies and returns ok=false.
func (c *Client) validate(ctx context.Context, payload any) (Outcome, bool) {
	if err := c.validator.Struct(payload); err != nil {
		f := newFailure(KindValidation, err.Error(), 0, fmt.Errorf("validate %T: %w", payload, err))
		c.report(ctx, TitleAPIError, f)
		return failed(f, c.envelope), false
	}
	return Outcome{}, true
}
