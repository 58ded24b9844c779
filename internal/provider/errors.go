// Package provider implements the HTTP client for the remote AI provider,
// including response classification, retry with backoff, rate-limit header
// tracking and the vector-store file operations built on top of it.
package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorKind classifies a failed request. The kind alone determines the retry
// policy; everything else on Error is diagnostic context.
type ErrorKind string

const (
	KindMissingCredential  ErrorKind = "missing_credential"
	KindBadRequest         ErrorKind = "bad_request"
	KindAuthFailed         ErrorKind = "auth_failed"
	KindNotFound           ErrorKind = "not_found"
	KindInsufficientQuota  ErrorKind = "insufficient_quota"
	KindRateLimitExceeded  ErrorKind = "rate_limit_exceeded"
	KindUnknown429         ErrorKind = "unknown_429"
	KindServerError        ErrorKind = "server_error"
	KindNetworkError       ErrorKind = "network_error"
	KindInvalidJSON        ErrorKind = "invalid_json"
	KindResponseIncomplete ErrorKind = "response_incomplete"
	KindMaxRetriesExceeded ErrorKind = "max_retries_exceeded"
	KindAPIError           ErrorKind = "api_error"
)

// Retryable reports whether another attempt may succeed.
// Unknown429 is treated as retryable by conservative default: an ambiguous
// provider code on a 429 is more likely throttling than billing.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindServerError, KindNetworkError, KindRateLimitExceeded, KindUnknown429:
		return true
	}
	return false
}

// maxErrorBody bounds how much raw response body is kept on an Error.
const maxErrorBody = 500

// Error is a classified provider failure. Context carries structured
// diagnostic fields (status, provider code, truncated body, rate limits,
// purpose/endpoint); credentials are never placed in it.
type Error struct {
	Kind    ErrorKind
	Message string
	Status  int            // HTTP status, 0 if no response was obtained
	Code    string         // provider error code from the response body
	Context map[string]any // open diagnostic map

	// WaitHint is an explicit server-supplied wait (Retry-After or
	// rate-limit reset). Zero means no hint; backoff falls back to
	// exponential delay.
	WaitHint time.Duration

	cause error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider: %s (%s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("provider: %s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying transport error, if any.
func (e *Error) Unwrap() error { return e.cause }

// Retryable reports whether the error's kind permits another attempt.
func (e *Error) Retryable() bool { return e.Kind.Retryable() }

// With adds a diagnostic field and returns the error for chaining.
func (e *Error) With(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// AsError extracts a classified *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// errorEnvelope is the provider's error body shape: {"error": {"message", "code"}}.
type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// classifyStatus maps a non-2xx response to a classified error. The body is
// parsed for the provider error envelope; on 429 the provider code decides
// between billing exhaustion (permanent) and throttling (transient).
func classifyStatus(status int, body []byte, header http.Header) *Error {
	var env errorEnvelope
	_ = json.Unmarshal(body, &env)

	e := &Error{
		Status:  status,
		Code:    env.Error.Code,
		Message: env.Error.Message,
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	e.With("status", status)
	if len(body) > 0 {
		e.With("body", truncate(string(body), maxErrorBody))
	}

	switch status {
	case http.StatusBadRequest:
		e.Kind = KindBadRequest
	case http.StatusUnauthorized, http.StatusForbidden:
		e.Kind = KindAuthFailed
	case http.StatusNotFound:
		e.Kind = KindNotFound
	case http.StatusTooManyRequests:
		e.WaitHint = retryAfterHint(header)
		switch env.Error.Code {
		case "insufficient_quota":
			e.Kind = KindInsufficientQuota
		case "":
			e.Kind = KindUnknown429
		default:
			e.Kind = KindRateLimitExceeded
		}
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		e.Kind = KindServerError
	default:
		e.Kind = KindAPIError
	}
	return e
}

// networkError wraps a transport failure where no response was obtained.
func networkError(err error) *Error {
	return &Error{
		Kind:    KindNetworkError,
		Message: err.Error(),
		cause:   err,
	}
}

// maxRetriesExceeded wraps the authoritative last error after the retry
// budget is spent, carrying its diagnostic context forward.
func maxRetriesExceeded(last *Error, attempts int) *Error {
	e := &Error{
		Kind:    KindMaxRetriesExceeded,
		Message: fmt.Sprintf("giving up after %d attempts: %s", attempts, last.Message),
		Status:  last.Status,
		Code:    last.Code,
		cause:   last,
	}
	for k, v := range last.Context {
		e.With(k, v)
	}
	return e.With("last_kind", string(last.Kind)).With("attempts", attempts)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
