package httpclient

import (
	nethttp "net/http"
	"strings"
)

func (c *client) logRequest(req *nethttp.Request, body []byte, traceID string) {
	event := c.logger.WithContext(req.Context()).Info().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("request_id", traceID)
	if n := len(req.Header); n > 0 {
		event = event.Int("header_count", n)
	}
	if len(body) > 0 {
		event = event.Int("body_size", len(body))
	}
	event.Msg("REST client request")

	if !c.config.LogPayloads {
		return
	}
	preview, truncated := c.preview(body)
	c.logger.WithContext(req.Context()).Debug().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("request_id", traceID).
		Interface("headers", flattenHeaders(req.Header)).
		Int("body_size", len(body)).
		Str("body_truncated", boolString(truncated)).
		Bytes("body_preview", preview).
		Msg("REST client request")
}

func (c *client) logResponse(resp *Response, traceID string) {
	event := c.logger.Info().
		Str("direction", "inbound").
		Int("status", resp.StatusCode).
		Dur("elapsed", resp.Stats.ElapsedTime).
		Int64("call_count", resp.Stats.CallCount).
		Str("request_id", traceID)
	if len(resp.Body) > 0 {
		event = event.Int("body_size", len(resp.Body))
	}
	event.Msg("REST client response")

	if !c.config.LogPayloads {
		return
	}
	preview, truncated := c.preview(resp.Body)
	c.logger.Debug().
		Str("direction", "inbound").
		Int("status", resp.StatusCode).
		Str("request_id", traceID).
		Interface("headers", flattenHeaders(resp.Headers)).
		Int("body_size", len(resp.Body)).
		Str("body_truncated", boolString(truncated)).
		Bytes("body_preview", preview).
		Msg("REST client response")
}

func (c *client) preview(body []byte) ([]byte, bool) {
	limit := c.config.MaxPayloadLogBytes
	if limit <= 0 {
		limit = defaultMaxPayloadLogBytes
	}
	if len(body) > limit {
		return body[:limit], true
	}
	return body, false
}

// flattenHeaders turns headers into a plain map so the logger's
// sensitive-key filter can mask Authorization and friends.
func flattenHeaders(h nethttp.Header) map[string]string {
	out := make(map[string]string, len(h))
	for key, values := range h {
		out[key] = strings.Join(values, ", ")
	}
	return out
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
