package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/giihelpdesk/helpdesk-client/logger"
)

type client struct {
	httpClient  *nethttp.Client
	logger      logger.Logger
	config      *Config
	limiter     *rate.Limiter
	instruments *instruments
	tracer      oteltrace.Tracer
	callCount   atomic.Int64
}

func (c *client) Get(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodGet, req)
}

func (c *client) Post(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPost, req)
}

func (c *client) Put(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPut, req)
}

func (c *client) Patch(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPatch, req)
}

func (c *client) Delete(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodDelete, req)
}

// Do performs a single attempt. The attempt runs under the configured timeout;
// when the timer fires first the in-flight request is aborted and a timeout
// error is returned. Non-2xx responses return both the Response and an HTTP error.
func (c *client) Do(ctx context.Context, method string, req *Request) (*Response, error) {
	if req == nil || req.URL == "" {
		return nil, NewValidationError("request URL is required", "url")
	}
	target, err := url.Parse(req.URL)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return nil, NewValidationError(fmt.Sprintf("invalid request URL %q", req.URL), "url")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, NewCancelledError("waiting for rate limiter", ctx.Err())
			}
			return nil, NewNetworkError("rate limiter", err)
		}
	}

	attemptCtx, cancel := c.attemptContext(ctx)
	defer cancel()

	attemptCtx, span := c.tracer.Start(attemptCtx, method,
		oteltrace.WithSpanKind(oteltrace.SpanKindClient),
		oteltrace.WithAttributes(
			attribute.String(attrHTTPRequestMethod, method),
			attribute.String(attrServerAddress, target.Hostname()),
			attribute.String(attrURLPath, target.Path),
		))
	defer span.End()

	httpReq, err := c.buildRequest(attemptCtx, method, req)
	if err != nil {
		return nil, c.failSpan(span, err)
	}
	requestID := c.ensureRequestID(ctx, httpReq)

	for _, interceptor := range c.config.RequestInterceptors {
		if err := interceptor(attemptCtx, httpReq); err != nil {
			return nil, c.failSpan(span, NewInterceptorError("request interceptor failed", "request", err))
		}
	}

	c.logRequest(httpReq, req.Body, requestID)

	callCount := c.callCount.Add(1)
	start := time.Now()
	c.instruments.requestStarted(ctx, method, target.Hostname())
	resp, body, err := c.exchange(ctx, attemptCtx, httpReq)
	elapsed := time.Since(start)
	c.instruments.requestFinished(ctx, method, target.Hostname())

	if err != nil {
		c.instruments.recordDuration(ctx, method, target.Hostname(), 0, elapsed, err)
		c.logger.WithContext(ctx).Warn().
			Str("method", method).
			Str("url", req.URL).
			Str("request_id", requestID).
			Dur("elapsed", elapsed).
			Err(err).
			Msg("REST client request failed")
		return nil, c.failSpan(span, err)
	}

	for _, interceptor := range c.config.ResponseInterceptors {
		if err := interceptor(attemptCtx, httpReq, resp); err != nil {
			return nil, c.failSpan(span, NewInterceptorError("response interceptor failed", "response", err))
		}
	}

	response := &Response{
		StatusCode: resp.StatusCode,
		StatusText: statusText(resp),
		Body:       body,
		Headers:    resp.Header,
		Stats: Stats{
			ElapsedTime: elapsed,
			CallCount:   callCount,
		},
	}
	c.logResponse(response, requestID)

	span.SetAttributes(attribute.Int(attrHTTPResponseStatus, resp.StatusCode))
	c.instruments.recordDuration(ctx, method, target.Hostname(), resp.StatusCode, elapsed, nil)

	if !IsSuccessStatus(resp.StatusCode) {
		if resp.StatusCode >= 500 {
			span.SetStatus(codes.Error, response.StatusText)
		}
		return response, NewHTTPError(
			fmt.Sprintf("%s %s returned %d %s", method, target.Path, resp.StatusCode, response.StatusText),
			resp.StatusCode, body)
	}
	return response, nil
}

func (c *client) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.config.Timeout)
}

func (c *client) buildRequest(ctx context.Context, method string, req *Request) (*nethttp.Request, error) {
	var body io.Reader = nethttp.NoBody
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := nethttp.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, NewValidationError(err.Error(), "method")
	}

	for key, value := range c.config.DefaultHeaders {
		httpReq.Header.Set(key, value)
	}
	// Set canonicalizes keys, so request headers replace defaults regardless of case.
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))
	return httpReq, nil
}

func (c *client) ensureRequestID(ctx context.Context, httpReq *nethttp.Request) string {
	header := c.config.RequestIDHeader
	if header == "" {
		header = HeaderXRequestID
	}
	if id := httpReq.Header.Get(header); id != "" {
		return id
	}
	id := EnsureTraceID(ctx)
	httpReq.Header.Set(header, id)
	return id
}

// exchange sends the request and reads the whole body under the attempt context.
func (c *client) exchange(parent, attemptCtx context.Context, httpReq *nethttp.Request) (*nethttp.Response, []byte, error) {
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, nil, c.classify(parent, attemptCtx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, c.classify(parent, attemptCtx, err)
	}
	return resp, body, nil
}

// classify maps a transport failure onto timeout, cancellation or network.
func (c *client) classify(parent, attemptCtx context.Context, err error) error {
	if parent.Err() != nil {
		return NewCancelledError("request aborted by caller", parent.Err())
	}
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return NewTimeoutError("request timed out", c.config.Timeout)
	}
	return NewNetworkError("request failed", err)
}

func (c *client) failSpan(span oteltrace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	var ce ClientError
	if errors.As(err, &ce) {
		span.SetAttributes(attribute.String(attrErrorType, ce.Type().String()))
	}
	return err
}

// statusText extracts the reason phrase from "404 Not Found".
func statusText(resp *nethttp.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = nethttp.StatusText(resp.StatusCode)
	}
	return text
}
