package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giihelpdesk/helpdesk-client/notify"
	"github.com/giihelpdesk/helpdesk-client/session"
)

func TestLoginRoundTrip(t *testing.T) {
	var body map[string]any
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth-login", r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &body)
		respond(http.StatusOK, `{"success":true,"data":{"token":{"accessToken":"t1"},"user":{"email":"a@b.com","domain":"b.com"}}}`)(w, r)
	})

	out := f.client.Login(context.Background(), Credentials{Email: "a@b.com", Password: "secret"})
	require.True(t, out.Success, out.Message())
	assert.Equal(t, map[string]any{"email": "a@b.com", "password": "secret"}, body)

	s := f.stored(t)
	assert.Equal(t, "t1", s.Token)
	assert.Equal(t, "a@b.com", s.Email)
	assert.Equal(t, "b.com", s.Domain)
	assert.Nil(t, s.Subscription)
	assert.True(t, s.CreatedAt.Equal(testNow))
	assert.Equal(t, "t1", f.client.Token())
	assert.Empty(t, f.notices.Notices())
}

func TestLoginTokenRules(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		token string
	}{
		{"string token", `{"token":"plain-token"}`, "plain-token"},
		{"accessToken", `{"token":{"accessToken":"a1","token":"t1"}}`, "a1"},
		{"nested token", `{"token":{"token":"t1","jwt":"j1"}}`, "t1"},
		{"jwt", `{"token":{"jwt":"j1"}}`, "j1"},
		{"blank accessToken falls through", `{"token":{"accessToken":"  ","jwt":"j1"}}`, "j1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var data map[string]any
			require.NoError(t, json.Unmarshal([]byte(tt.data), &data))
			token, _, ok := ExtractLoginToken(data)
			require.True(t, ok)
			assert.Equal(t, tt.token, token)
		})
	}

	for _, data := range []string{`{}`, `{"token":""}`, `{"token":42}`, `{"token":{"value":"x"}}`, `{"accessToken":"top-level"}`} {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(data), &m))
		_, _, ok := ExtractLoginToken(m)
		assert.False(t, ok, data)
	}
}

func TestLoginStoresSubscriptionAndFallsBackToCredentialsEmail(t *testing.T) {
	f := newFixture(t, respond(http.StatusOK,
		`{"success":true,"data":{"token":"tok","user":{"domain":"shop.example.com","subscription":{"plan":"Pro","status":"active","seats":3}}}}`))

	out := f.client.Login(context.Background(), Credentials{Email: "owner@example.com", Password: "pw"})
	require.True(t, out.Success)

	s := f.stored(t)
	assert.Equal(t, "owner@example.com", s.Email)
	assert.Equal(t, "shop.example.com", s.Domain)
	require.NotNil(t, s.Subscription)
	assert.JSONEq(t, `{"plan":"Pro","status":"active","seats":3}`, string(s.Subscription))
	assert.Equal(t, "pro", s.Plan())
}

func TestLoginReplacesPreviousSession(t *testing.T) {
	f := newFixture(t, respond(http.StatusOK, `{"success":true,"data":{"token":"new","user":{"email":"new@b.com"}}}`),
		withSession(&session.Session{Token: "old", Email: "old@b.com", Domain: "old.com", Subscription: session.PlanSubscription("team")}))

	require.True(t, f.client.Login(context.Background(), Credentials{Email: "new@b.com", Password: "pw"}).Success)
	s := f.stored(t)
	assert.Equal(t, "new", s.Token)
	assert.Empty(t, s.Domain)
	assert.Nil(t, s.Subscription)
}

func TestLoginTokenNotFound(t *testing.T) {
	f := newFixture(t, respond(http.StatusOK, `{"success":true,"data":{"user":{"email":"a@b.com"},"message":"ok"}}`))

	out := f.client.Login(context.Background(), Credentials{Email: "a@b.com", Password: "pw"})
	assert.False(t, out.Success)
	assert.Equal(t, KindTokenNotFound, out.Kind())
	assert.True(t, errors.Is(out.Err(), ErrTokenNotFound))
	assert.Equal(t, "Login successful but authentication token is missing. Please contact support.", out.Message())
	assert.NotNil(t, out.Payload, "payload kept for diagnosis")

	n := f.lastNotice(t)
	assert.Equal(t, TitleLoginError, n.Title)
	assert.Empty(t, f.client.Token())
	_, err := f.store.Load(context.Background())
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestLoginTokenPresentButUnusable(t *testing.T) {
	f := newFixture(t, respond(http.StatusOK, `{"success":true,"data":{"token":{"value":"x"}}}`))
	out := f.client.Login(context.Background(), Credentials{Email: "a@b.com", Password: "pw"})
	assert.Equal(t, KindTokenNotFound, out.Kind())
	assert.Equal(t, "Token found in data.token but not extracted. This is a system error.", out.Message())
}

func TestLoginFailureMessages(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"invalid credentials", 401, `{"error":"INVALID_CREDENTIALS"}`, MessageAuthenticationRequired},
		{"invalid credentials 400", 400, `{"error":"INVALID_CREDENTIALS"}`, "Invalid email or password. Please check your credentials."},
		{"not verified", 403, `{"error":"EMAIL_NOT_VERIFIED"}`, MessageAccessDenied},
		{"not verified in 200", 200, `{"success":false,"error":"EMAIL_NOT_VERIFIED"}`, "Please verify your email address before signing in."},
		{"locked", 400, `{"error":"ACCOUNT_LOCKED"}`, "Your account has been locked due to multiple failed login attempts."},
		{"expired", 400, `{"error":"SUBSCRIPTION_EXPIRED"}`, "Your subscription has expired. Please renew to continue."},
		{"other code", 400, `{"error":"WHATEVER"}`, "Login error: WHATEVER"},
		{"no code", 200, `{"success":false}`, "Login failed. Please try again."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, respond(tt.status, tt.body))
			out := f.client.Login(context.Background(), Credentials{Email: "a@b.com", Password: "pw"})
			assert.False(t, out.Success)
			assert.Equal(t, tt.message, out.Message())

			n := f.lastNotice(t)
			assert.Equal(t, notify.LevelError, n.Level)
			if out.Kind() == KindApplicationError {
				assert.Equal(t, TitleLoginFailed, n.Title)
			} else {
				assert.Equal(t, TitleAPIError, n.Title)
			}
			assert.Len(t, f.notices.Notices(), 1)
		})
	}
}

func TestLoginValidatesCredentials(t *testing.T) {
	f := newFixture(t, respond(http.StatusOK, `{}`))
	out := f.client.Login(context.Background(), Credentials{Email: "not-an-email", Password: " "})
	assert.Equal(t, KindValidation, out.Kind())
	assert.Contains(t, out.Message(), "email must be a valid email address")
	assert.Contains(t, out.Message(), "password is required")
	assert.Zero(t, f.requests.Load())
}

func TestAuthRequests(t *testing.T) {
	type captured struct {
		method, path, query string
		body                map[string]any
	}
	var got captured
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		got = captured{method: r.Method, path: r.URL.Path, query: r.URL.Query().Get("domain")}
		b, _ := io.ReadAll(r.Body)
		got.body = nil
		_ = json.Unmarshal(b, &got.body)
		respond(http.StatusOK, `{"success":true,"data":{"available":true}}`)(w, r)
	})
	ctx := context.Background()

	require.True(t, f.client.Register(ctx, RegisterRequest{Email: "a@b.com", Password: "pw", Domain: "shop.b.com", Name: "Ann"}).Success)
	assert.Equal(t, captured{http.MethodPost, "/auth-register", "",
		map[string]any{"email": "a@b.com", "password": "pw", "domain": "shop.b.com", "name": "Ann"}}, got)

	require.True(t, f.client.ForgotPassword(ctx, "a@b.com").Success)
	assert.Equal(t, "/auth-forgot", got.path)
	assert.Equal(t, map[string]any{"email": "a@b.com"}, got.body)

	require.True(t, f.client.ResetPassword(ctx, "rt", "pw2", "pw2").Success)
	assert.Equal(t, "/auth-reset", got.path)
	assert.Equal(t, map[string]any{"token": "rt", "password": "pw2", "confirmPassword": "pw2"}, got.body)

	require.True(t, f.client.VerifyEmail(ctx, "vt").Success)
	assert.Equal(t, "/auth-verify", got.path)

	out := f.client.CheckDomain(ctx, "my shop&co.com")
	require.True(t, out.Success)
	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/auth-check-domain", got.path)
	assert.Equal(t, "my shop&co.com", got.query)
	assert.Equal(t, map[string]any{"available": true}, out.Data())
}

func TestAuthValidation(t *testing.T) {
	f := newFixture(t, respond(http.StatusOK, `{}`))
	ctx := context.Background()

	assert.Equal(t, KindValidation, f.client.ResetPassword(ctx, "rt", "pw1", "pw2").Kind())
	assert.Equal(t, KindValidation, f.client.Register(ctx, RegisterRequest{Email: "a@b.com", Password: "pw", Domain: "not a domain"}).Kind())
	assert.Equal(t, KindValidation, f.client.ForgotPassword(ctx, "").Kind())
	assert.Equal(t, KindValidation, f.client.VerifyEmail(ctx, "").Kind())
	assert.Equal(t, KindValidation, f.client.CheckDomain(ctx, " ").Kind())
	assert.Zero(t, f.requests.Load())
	assert.Len(t, f.notices.Notices(), 5)
}

func TestLoginFailureMessageFunc(t *testing.T) {
	assert.Equal(t, "Login failed. Please try again.", LoginFailureMessage(""))
	assert.Equal(t, "Login error: X", LoginFailureMessage("X"))
}

