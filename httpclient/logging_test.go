package httpclient

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRestClientRequest  = "REST client request"
	testRestClientResponse = "REST client response"
)

func newLoggingClient(log *fakeLogger, payloads bool, maxBytes int) *client {
	return &client{logger: log, config: &Config{LogPayloads: payloads, MaxPayloadLogBytes: maxBytes}}
}

func TestClientLogRequest(t *testing.T) {
	t.Run("info line without payloads", func(t *testing.T) {
		log := &fakeLogger{}
		c := newLoggingClient(log, false, 1024)

		req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, "https://api.example.com/auth-login", http.NoBody)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer token")
		req.Header.Set("Content-Type", "application/json")
		body := []byte(`{"email":"a@b.com"}`)

		c.logRequest(req, body, "req-1")

		infos := log.eventsByLevel("info")
		require.Len(t, infos, 1)
		assert.Equal(t, testRestClientRequest, infos[0].message)
		assert.Equal(t, "outbound", infos[0].fields["direction"])
		assert.Equal(t, http.MethodPost, infos[0].fields["method"])
		assert.Equal(t, "https://api.example.com/auth-login", infos[0].fields["url"])
		assert.Equal(t, "req-1", infos[0].fields["request_id"])
		assert.Equal(t, 2, infos[0].fields["header_count"])
		assert.Equal(t, len(body), infos[0].fields["body_size"])
		assert.Empty(t, log.eventsByLevel("debug"))
	})

	t.Run("omits sizes for empty requests", func(t *testing.T) {
		log := &fakeLogger{}
		c := newLoggingClient(log, false, 0)

		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "https://api.example.com/account-me", http.NoBody)
		require.NoError(t, err)
		c.logRequest(req, nil, "req-2")

		infos := log.eventsByLevel("info")
		require.Len(t, infos, 1)
		assert.NotContains(t, infos[0].fields, "body_size")
		assert.NotContains(t, infos[0].fields, "header_count")
	})

	t.Run("payload preview truncates", func(t *testing.T) {
		log := &fakeLogger{}
		c := newLoggingClient(log, true, 10)

		req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, "https://api.example.com/uploadServicePolicy", http.NoBody)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer secret-token")
		body := []byte("a policy document that is longer than ten bytes")

		c.logRequest(req, body, "req-3")

		debugs := log.eventsByLevel("debug")
		require.Len(t, debugs, 1)
		assert.Equal(t, testRestClientRequest, debugs[0].message)
		assert.Equal(t, "true", debugs[0].fields["body_truncated"])
		assert.Equal(t, body[:10], debugs[0].fields["body_preview"])
		headers, ok := debugs[0].fields["headers"].(map[string]string)
		require.True(t, ok)
		assert.Equal(t, "Bearer secret-token", headers["Authorization"], "masking is the logger's job")
	})

	t.Run("zero limit uses default", func(t *testing.T) {
		log := &fakeLogger{}
		c := newLoggingClient(log, true, 0)

		req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, "https://api.example.com/x", http.NoBody)
		require.NoError(t, err)
		body := make([]byte, 1500)
		c.logRequest(req, body, "req-4")

		debugs := log.eventsByLevel("debug")
		require.Len(t, debugs, 1)
		assert.Len(t, debugs[0].fields["body_preview"], defaultMaxPayloadLogBytes)
	})
}

func TestClientLogResponse(t *testing.T) {
	response := &Response{
		StatusCode: 201,
		Body:       []byte(`{"success":true}`),
		Headers:    http.Header{"Content-Type": []string{"application/json"}},
		Stats:      Stats{ElapsedTime: 250 * time.Millisecond, CallCount: 5},
	}

	t.Run("info line", func(t *testing.T) {
		log := &fakeLogger{}
		newLoggingClient(log, false, 1024).logResponse(response, "req-5")

		infos := log.eventsByLevel("info")
		require.Len(t, infos, 1)
		assert.Equal(t, testRestClientResponse, infos[0].message)
		assert.Equal(t, "inbound", infos[0].fields["direction"])
		assert.Equal(t, 201, infos[0].fields["status"])
		assert.Equal(t, 250*time.Millisecond, infos[0].fields["elapsed"])
		assert.Equal(t, int64(5), infos[0].fields["call_count"])
		assert.Equal(t, len(response.Body), infos[0].fields["body_size"])
		assert.Empty(t, log.eventsByLevel("debug"))
	})

	t.Run("payload line", func(t *testing.T) {
		log := &fakeLogger{}
		newLoggingClient(log, true, 100).logResponse(response, "req-6")

		debugs := log.eventsByLevel("debug")
		require.Len(t, debugs, 1)
		assert.Equal(t, "false", debugs[0].fields["body_truncated"])
		assert.Equal(t, response.Body, debugs[0].fields["body_preview"])
		assert.NotNil(t, debugs[0].fields["headers"])
	})

	t.Run("empty body", func(t *testing.T) {
		log := &fakeLogger{}
		newLoggingClient(log, false, 0).logResponse(&Response{StatusCode: 204, Headers: http.Header{}}, "req-7")

		infos := log.eventsByLevel("info")
		require.Len(t, infos, 1)
		assert.NotContains(t, infos[0].fields, "body_size")
	})
}

func TestBuilderDefaults(t *testing.T) {
	built := NewBuilder(&fakeLogger{}).WithTimeout(5 * time.Second).Build()
	impl, ok := built.(*client)
	require.True(t, ok)

	assert.Equal(t, 5*time.Second, impl.config.Timeout)
	assert.False(t, impl.config.LogPayloads)
	assert.Equal(t, 1024, impl.config.MaxPayloadLogBytes)
	assert.Equal(t, HeaderXRequestID, impl.config.RequestIDHeader)
	assert.Nil(t, impl.limiter)
}
