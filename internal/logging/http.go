package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPLogger logs model provider traffic at debug level
type HTTPLogger struct {
	logger      *Logger
	maxBodySize int
}

// NewHTTPLogger creates a new HTTP logger
func NewHTTPLogger(logger *Logger) *HTTPLogger {
	return &HTTPLogger{
		logger:      logger,
		maxBodySize: 10000,
	}
}

// LogRequest logs an outgoing request with credentials redacted
func (h *HTTPLogger) LogRequest(req *http.Request, body []byte) {
	fields := Fields{
		"method":  req.Method,
		"url":     redactURL(req.URL),
		"headers": headerMap(req.Header, true),
	}
	if len(body) > 0 {
		fields["body"] = h.bodyField(body, true)
		fields["body_size"] = len(body)
	}
	h.logger.Debug("HTTP Request", fields)
}

// LogResponse logs a response received after duration
func (h *HTTPLogger) LogResponse(resp *http.Response, body []byte, duration time.Duration) {
	fields := Fields{
		"status":      resp.StatusCode,
		"duration_ms": duration.Milliseconds(),
	}
	if len(body) > 0 {
		fields["body"] = h.bodyField(body, false)
		fields["body_size"] = len(body)
	}
	h.logger.Debug("HTTP Response", fields)
}

// LogError logs a transport failure
func (h *HTTPLogger) LogError(err error, req *http.Request) {
	h.logger.Error("HTTP Error", err, Fields{
		"method": req.Method,
		"url":    redactURL(req.URL),
	})
}

func (h *HTTPLogger) bodyField(body []byte, redact bool) interface{} {
	if json.Valid(body) && len(body) <= h.maxBodySize {
		var parsed interface{}
		if err := json.Unmarshal(body, &parsed); err == nil {
			if redact {
				return redactSensitiveFields(parsed)
			}
			return parsed
		}
	}
	return truncateBody(body, h.maxBodySize)
}

// RoundTripperWrapper wraps an http.RoundTripper with logging
type RoundTripperWrapper struct {
	wrapped http.RoundTripper
	logger  *HTTPLogger
	logBody bool
}

// NewLoggingRoundTripper creates a new logging round tripper
func NewLoggingRoundTripper(wrapped http.RoundTripper, logger *HTTPLogger, logBody bool) *RoundTripperWrapper {
	if wrapped == nil {
		wrapped = http.DefaultTransport
	}
	return &RoundTripperWrapper{
		wrapped: wrapped,
		logger:  logger,
		logBody: logBody,
	}
}

// RoundTrip implements http.RoundTripper
func (rt *RoundTripperWrapper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	var reqBody []byte
	if rt.logBody && req.Body != nil {
		reqBody, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewBuffer(reqBody))
	}
	rt.logger.LogRequest(req, reqBody)

	resp, err := rt.wrapped.RoundTrip(req)
	duration := time.Since(start)
	if err != nil {
		rt.logger.LogError(err, req)
		return nil, err
	}

	var respBody []byte
	if rt.logBody {
		respBody, _ = io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		resp.Body = io.NopCloser(bytes.NewBuffer(respBody))
	}
	rt.logger.LogResponse(resp, respBody, duration)

	return resp, nil
}

func headerMap(h http.Header, redact bool) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if redact && isSensitiveHeader(k) {
			out[k] = "[REDACTED]"
		} else if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// isSensitiveHeader checks if a header should be redacted
func isSensitiveHeader(name string) bool {
	switch strings.ToLower(name) {
	case "authorization", "api-key", "x-api-key", "x-goog-api-key", "x-auth-token", "cookie", "set-cookie":
		return true
	}
	return false
}

// redactURL hides the "key" query parameter some providers use for credentials.
func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	q := u.Query()
	if q.Get("key") == "" {
		return u.String()
	}
	q.Set("key", "[REDACTED]")
	c := *u
	c.RawQuery = q.Encode()
	return c.String()
}

// truncateBody truncates body if too large
func truncateBody(body []byte, maxSize int) string {
	if len(body) <= maxSize {
		return string(body)
	}
	return string(body[:maxSize]) + "...[truncated]"
}

// redactSensitiveFields redacts sensitive fields in parsed JSON
func redactSensitiveFields(data interface{}) interface{} {
	sensitiveKeys := []string{
		"api_key", "apikey", "api-key",
		"password", "secret", "token",
		"authorization",
	}

	switch v := data.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for k, val := range v {
			keyLower := strings.ToLower(k)
			sensitive := false
			for _, s := range sensitiveKeys {
				if strings.Contains(keyLower, s) {
					sensitive = true
					break
				}
			}
			if sensitive {
				result[k] = "[REDACTED]"
			} else {
				result[k] = redactSensitiveFields(val)
			}
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = redactSensitiveFields(item)
		}
		return result
	default:
		return data
	}
}
