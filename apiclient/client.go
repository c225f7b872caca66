// Package apiclient is the client of the giiHelpdesk account API. It sends
// authenticated, timeout-bounded and optionally retried calls, classifies
// every response into an Outcome and owns the signed-in user's Session.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	nethttp "net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/giihelpdesk/helpdesk-client/config"
	"github.com/giihelpdesk/helpdesk-client/httpclient"
	"github.com/giihelpdesk/helpdesk-client/logger"
	"github.com/giihelpdesk/helpdesk-client/notify"
	"github.com/giihelpdesk/helpdesk-client/session"
	"github.com/giihelpdesk/helpdesk-client/session/memstore"
	"github.com/giihelpdesk/helpdesk-client/trace"
	"github.com/giihelpdesk/helpdesk-client/validation"
)

// TitleAPIError is the notice title of every failed call.
const TitleAPIError = "API Error"

// Navigator reports where the user currently is and moves them elsewhere.
type Navigator interface {
	CurrentPath() string
	Redirect(path string)
}

// RequestOptions describes one call to Send.
type RequestOptions struct {
	// Method defaults to GET.
	Method string
	// Body is JSON encoded unless it is already []byte or json.RawMessage.
	Body any
	// Headers override the defaults, matched case-insensitively.
	Headers map[string]string
}

// Options configures New. Only API is required.
type Options struct {
	API        config.APIConfig
	Navigation config.NavigationConfig

	// Routes overrides the route style selected by API.Routes; empty entries keep their defaults.
	Routes   Routes
	Envelope Envelope

	Store     session.Store
	Notifier  notify.Notifier
	Navigator Navigator
	Logger    logger.Logger

	// HTTPClient replaces the transport built from API; it then owns the timeout.
	HTTPClient     httpclient.Client
	TracerProvider oteltrace.TracerProvider
	MeterProvider  metric.MeterProvider

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Client talks to the account API. It is safe for concurrent use.
type Client struct {
	api       config.APIConfig
	nav       config.NavigationConfig
	routes    Routes
	envelope  Envelope
	store     session.Store
	notifier  notify.Notifier
	navigator Navigator
	logger    logger.Logger
	http      httpclient.Client
	validator *validation.Validator
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error

	// mu guards token and serializes writes to the store.
	mu    sync.RWMutex
	token string
}

// New builds a Client and restores the stored Session. A stored token that
// has already expired is cleared; a corrupt record is discarded.
func New(ctx context.Context, opts Options) (*Client, error) {
	api := opts.API
	api.BaseURL = strings.TrimRight(strings.TrimSpace(api.BaseURL), "/")
	if err := checkBaseURL(api.BaseURL); err != nil {
		return nil, err
	}
	if api.RetryAttempts < 1 {
		api.RetryAttempts = 1
	}

	routes := opts.Routes
	if routes == (Routes{}) {
		var err error
		if routes, err = RoutesFor(api.Routes); err != nil {
			return nil, err
		}
	} else {
		routes = routes.withDefaults()
	}

	envelope := opts.Envelope
	if envelope.isZero() {
		envelope = DefaultEnvelope()
	}

	c := &Client{
		api:       api,
		nav:       opts.Navigation,
		routes:    routes,
		envelope:  envelope,
		store:     opts.Store,
		notifier:  opts.Notifier,
		navigator: opts.Navigator,
		logger:    opts.Logger,
		http:      opts.HTTPClient,
		validator: validation.Default(),
		now:       opts.Now,
		sleep:     opts.Sleep,
	}
	if c.logger == nil {
		c.logger = logger.Nop()
	}
	if c.notifier == nil {
		c.notifier = notify.Nop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.store == nil {
		store, err := memstore.New(session.DefaultKey)
		if err != nil {
			return nil, fmt.Errorf("apiclient: create memory store: %w", err)
		}
		c.store = store
	}
	if c.http == nil {
		c.http = c.buildTransport(opts)
	}

	if err := c.restore(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) buildTransport(opts Options) httpclient.Client {
	b := httpclient.NewBuilder(c.logger).
		WithTimeout(c.api.Timeout).
		WithDefaultHeader("Content-Type", "application/json").
		WithLogPayloads(c.api.LogPayloads).
		WithMaxPayloadLogBytes(c.api.MaxPayloadLogBytes).
		WithRequestIDHeader(c.api.RequestIDHeader).
		WithRateLimit(c.api.RateLimit, c.api.RateBurst)
	if opts.TracerProvider != nil {
		b = b.WithTracerProvider(opts.TracerProvider)
	}
	if opts.MeterProvider != nil {
		b = b.WithMeterProvider(opts.MeterProvider)
	}
	return b.Build()
}

func (c *Client) restore(ctx context.Context) error {
	stored, err := c.store.Load(ctx)
	switch {
	case errors.Is(err, session.ErrNotFound):
		return nil
	case errors.Is(err, session.ErrCorrupt):
		c.logger.Warn().Err(err).Msg("Discarding unreadable stored session")
		return c.deleteStored(ctx)
	case err != nil:
		return fmt.Errorf("apiclient: load session: %w", err)
	}

	if !stored.Authenticated() {
		return nil
	}
	if session.TokenExpired(stored.Token, c.now()) {
		c.logger.Info().Str("email", stored.Email).Msg("Stored token expired, signing out")
		return c.deleteStored(ctx)
	}
	c.token = stored.Token
	c.logger.Debug().Int("token_length", len(stored.Token)).Msg("Restored session token")
	return nil
}

func (c *Client) deleteStored(ctx context.Context) error {
	if err := c.store.Delete(ctx); err != nil {
		return fmt.Errorf("apiclient: delete session: %w", err)
	}
	return nil
}

// Routes returns the endpoint table in use.
func (c *Client) Routes() Routes { return c.routes }

// Send performs one attempt against baseURL+endpoint and classifies the result.
// Failures are also pushed to the notifier as "API Error".
func (c *Client) Send(ctx context.Context, endpoint string, opts RequestOptions) Outcome {
	out := c.send(ctx, endpoint, opts)
	if out.Failure != nil {
		c.report(ctx, TitleAPIError, out.Failure)
	}
	return out
}

// SendWithRetry calls fn until it succeeds, fails with a cancellation-class
// error, or the configured attempts are used up. The wait after failed attempt
// n is retryDelay*2^(n-1). The last failure is returned unchanged and nothing
// is notified.
func (c *Client) SendWithRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx = trace.WithRequestID(ctx, trace.EnsureRequestID(ctx))
	return httpclient.Retry(ctx, httpclient.RetryPolicy{
		Attempts:  c.api.RetryAttempts,
		BaseDelay: c.api.RetryDelay,
		MaxDelay:  c.api.MaxRetryDelay,
		Retryable: retryable,
		Sleep:     c.sleep,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			c.logger.WithContext(ctx).Warn().
				Int("attempt", attempt).
				Dur("delay", delay).
				Err(err).
				Msg("Retrying API call")
		},
	}, fn)
}

func retryable(err error) bool {
	if f, ok := AsFailure(err); ok {
		switch f.Kind {
		case KindTimeout, KindCancelled, KindValidation, KindInvalidToken, KindPlanNotEligible, KindAuthenticationRequired:
			return false
		}
		return true
	}
	return !httpclient.IsCancellation(err)
}

// call is the operation wrapper: optional retry, then a single notice on failure.
func (c *Client) call(ctx context.Context, endpoint string, opts RequestOptions, retry bool) Outcome {
	if !retry {
		return c.Send(ctx, endpoint, opts)
	}

	var out Outcome
	err := c.SendWithRetry(ctx, func(ctx context.Context) error {
		out = c.send(ctx, endpoint, opts)
		return out.Err()
	})
	if err != nil {
		if f, ok := AsFailure(err); !ok || f != out.Failure {
			out = failed(failureFromError(err), c.envelope)
		}
		c.report(ctx, TitleAPIError, out.Failure)
	}
	return out
}

func (c *Client) send(ctx context.Context, endpoint string, opts RequestOptions) Outcome {
	method := strings.ToUpper(strings.TrimSpace(opts.Method))
	if method == "" {
		method = nethttp.MethodGet
	}
	if err := checkEndpoint(endpoint); err != nil {
		return failed(newFailure(KindValidation, err.Error(), 0, err), c.envelope)
	}
	body, err := encodeBody(opts.Body)
	if err != nil {
		return failed(newFailure(KindValidation, err.Error(), 0, err), c.envelope)
	}

	resp, err := c.http.Do(ctx, method, &httpclient.Request{
		URL:     c.api.BaseURL + endpoint,
		Headers: c.headers(opts.Headers),
		Body:    body,
	})
	if resp == nil {
		return failed(failureFromError(err), c.envelope)
	}
	return c.classify(ctx, resp)
}

// headers merges the bearer token with caller headers; caller headers win.
func (c *Client) headers(extra map[string]string) map[string]string {
	headers := make(map[string]string, len(extra)+1)
	if token := c.Token(); token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	for key, value := range extra {
		headers[nethttp.CanonicalHeaderKey(key)] = value
	}
	return headers
}

// classify turns a response into an Outcome. Status checks come first so a
// 401 always signs out and a 5xx body is never parsed.
func (c *Client) classify(ctx context.Context, resp *httpclient.Response) Outcome {
	status := resp.StatusCode
	switch {
	case status == nethttp.StatusUnauthorized:
		c.forceSignOut(ctx)
		return failed(newFailure(KindAuthenticationRequired, MessageAuthenticationRequired, status, nil), c.envelope)
	case status == nethttp.StatusForbidden:
		return failed(newFailure(KindAccessDenied, MessageAccessDenied, status, nil), c.envelope)
	case status == nethttp.StatusTooManyRequests:
		return failed(newFailure(KindRateLimited, MessageRateLimited, status, nil), c.envelope)
	case status >= nethttp.StatusInternalServerError:
		return failed(newFailure(KindServerError, MessageServerError, status, nil), c.envelope)
	}

	var value any
	if err := json.Unmarshal(resp.Body, &value); err != nil {
		if !httpclient.IsSuccessStatus(status) {
			return failed(newFailure(KindMalformedPayload,
				fmt.Sprintf("HTTP %d: %s", status, resp.StatusText), status, err), c.envelope)
		}
		return succeeded(status, resp.Body, map[string]any{"success": true}, c.envelope)
	}

	if !httpclient.IsSuccessStatus(status) {
		message := fmt.Sprintf("HTTP %d", status)
		if obj, ok := value.(map[string]any); ok {
			if m, found := c.envelope.errorMessage(obj); found {
				message = m
			}
		}
		return failed(newFailure(KindApplicationError, message, status, nil), c.envelope)
	}
	return succeeded(status, resp.Body, value, c.envelope)
}

func (c *Client) forceSignOut(ctx context.Context) {
	if err := c.ClearToken(ctx); err != nil {
		c.logger.WithContext(ctx).Error().Err(err).Msg("Failed to clear session after 401")
	}
	c.redirectIfProtected()
}

func (c *Client) redirectIfProtected() {
	if c.navigator == nil || c.nav.ProtectedPrefix == "" || c.nav.LoginPath == "" {
		return
	}
	if strings.Contains(c.navigator.CurrentPath(), c.nav.ProtectedPrefix) {
		c.navigator.Redirect(c.nav.LoginPath)
	}
}

func (c *Client) report(ctx context.Context, title string, f *Failure) {
	c.logger.WithContext(ctx).Warn().
		Str("kind", f.Kind.String()).
		Int("status", f.Status).
		Str("title", title).
		Msg(f.Message)
	c.notifier.Notify(ctx, notify.Notice{Level: notify.LevelError, Title: title, Message: f.Message})
}

func failureFromError(err error) *Failure {
	if f, ok := AsFailure(err); ok {
		return f
	}
	switch {
	case httpclient.IsErrorType(err, httpclient.TimeoutError):
		return newFailure(KindTimeout, MessageTimeout, 0, err)
	case httpclient.IsCancellation(err):
		return newFailure(KindCancelled, MessageCancelled, 0, err)
	case httpclient.IsErrorType(err, httpclient.ValidationError):
		return newFailure(KindValidation, err.Error(), 0, err)
	default:
		return newFailure(KindNetwork, MessageNetwork, 0, err)
	}
}

func checkBaseURL(raw string) error {
	if raw == "" {
		return errors.New("apiclient: base URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("apiclient: invalid base URL %q", raw)
	}
	return nil
}

func checkEndpoint(endpoint string) error {
	if !strings.HasPrefix(endpoint, "/") || strings.HasPrefix(endpoint, "//") {
		return fmt.Errorf("endpoint %q must be a path starting with /", endpoint)
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fmt.Errorf("endpoint %q is not a valid relative path", endpoint)
	}
	return nil
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("request body is not serializable: %w", err)
	}
	return data, nil
}
