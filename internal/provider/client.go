package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the provider API root including the version prefix.
	DefaultBaseURL = "https://api.openai.com/v1"

	// MaxRetries is the number of additional attempts after the first;
	// total attempts never exceed MaxRetries+1.
	MaxRetries = 3

	// shortAttempt is the wall-clock threshold under which a failed
	// retryable attempt is retried eagerly without becoming the
	// authoritative last error for final reporting.
	shortAttempt = 5 * time.Second
)

// Request purposes. A purpose selects the per-attempt timeout and names the
// operation in metrics and error context.
const (
	PurposeDefault = "default"
	PurposeStore   = "store"
	PurposeFiles   = "files"
	PurposeUpload  = "upload"
)

// purposeTimeouts maps a purpose to the per-attempt HTTP timeout.
var purposeTimeouts = map[string]time.Duration{
	PurposeDefault: 30 * time.Second,
	PurposeStore:   30 * time.Second,
	PurposeFiles:   60 * time.Second,
	PurposeUpload:  180 * time.Second,
}

// timeoutFor returns the timeout for a purpose; unknown purposes use the default.
func timeoutFor(purpose string) time.Duration {
	if d, ok := purposeTimeouts[purpose]; ok {
		return d
	}
	return purposeTimeouts[PurposeDefault]
}

// Metrics receives one observation per logical request (after retries).
type Metrics interface {
	RecordRequest(purpose string, elapsed time.Duration, retries int, err error)
}

// Config holds client configuration.
type Config struct {
	APIKey  string
	BaseURL string // defaults to DefaultBaseURL
	OrgID   string // optional organization header

	HTTPClient *http.Client // optional, timeouts come from the purpose table
	Sleeper    Sleeper      // optional, defaults to real timer sleeps
	Metrics    Metrics      // optional
	Logger     *slog.Logger // optional, defaults to slog.Default
}

// Client performs classified, retried requests against the provider.
type Client struct {
	apiKey  string
	baseURL string
	orgID   string

	http    *http.Client
	sleeper Sleeper
	metrics Metrics
	logger  *slog.Logger

	rates rateCache
}

// NewClient creates a provider client. A missing API key is not an error
// here; Request fails fast with MissingCredential so callers can surface a
// configuration problem at the point of use.
func NewClient(cfg Config) *Client {
	c := &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		orgID:   cfg.OrgID,
		http:    cfg.HTTPClient,
		sleeper: cfg.Sleeper,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.sleeper == nil {
		c.sleeper = timerSleeper{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// RateLimits returns the most recently observed rate-limit snapshot.
func (c *Client) RateLimits() RateLimits {
	return c.rates.snapshot()
}

// Response is a normalized success payload.
type Response struct {
	Status  int
	Body    []byte
	Elapsed time.Duration // wall clock of the successful attempt
	Limits  RateLimits
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Request performs one logical call against the provider, retrying transient
// failures per the classification policy. endpoint is relative to the base
// URL ("/files", "/vector_stores/vs_1/files"). payload is JSON-encoded,
// except *FileUpload which takes the multipart path. A nil payload sends no
// body.
func (c *Client) Request(ctx context.Context, method, endpoint string, payload any, purpose string) (*Response, error) {
	start := time.Now()
	resp, retries, err := c.request(ctx, method, endpoint, payload, purpose)
	if c.metrics != nil {
		c.metrics.RecordRequest(purpose, time.Since(start), retries, err)
	}
	return resp, err
}

func (c *Client) request(ctx context.Context, method, endpoint string, payload any, purpose string) (*Response, int, error) {
	if c.apiKey == "" {
		e := &Error{Kind: KindMissingCredential, Message: "no API key configured"}
		return nil, 0, e.With("endpoint", endpoint).With("purpose", purpose)
	}

	// prev drives the next backoff (wait hints); last is the authoritative
	// error reported when the budget runs out. A retryable attempt that
	// failed in under shortAttempt is retried eagerly and only becomes
	// authoritative when nothing slower was seen.
	var prev, last *Error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt, prev)
			c.logger.Debug("retrying provider request",
				"endpoint", endpoint, "purpose", purpose,
				"attempt", attempt+1, "backoff", delay, "last_kind", prev.Kind)
			if err := c.sleeper.Sleep(ctx, delay); err != nil {
				return nil, attempt, networkError(err).With("endpoint", endpoint).With("purpose", purpose)
			}
		}

		attemptStart := time.Now()
		resp, err := c.do(ctx, method, endpoint, payload, purpose)
		elapsed := time.Since(attemptStart)
		if err == nil {
			resp.Elapsed = elapsed
			return resp, attempt, nil
		}

		perr, _ := AsError(err)
		perr.With("endpoint", endpoint).With("purpose", purpose)
		if !perr.Retryable() {
			return nil, attempt, perr
		}

		prev = perr
		if last == nil || elapsed >= shortAttempt {
			last = perr
		}
		if attempt == MaxRetries {
			return nil, attempt, maxRetriesExceeded(last, attempt+1)
		}
	}
}

// do executes a single attempt and classifies the outcome.
func (c *Client) do(ctx context.Context, method, endpoint string, payload any, purpose string) (*Response, error) {
	var body io.Reader
	contentType := ""
	switch p := payload.(type) {
	case nil:
	case *FileUpload:
		b, ct, err := p.encode()
		if err != nil {
			return nil, (&Error{Kind: KindBadRequest, Message: err.Error(), cause: err})
		}
		body, contentType = bytes.NewReader(b), ct
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return nil, (&Error{Kind: KindBadRequest, Message: fmt.Sprintf("encode payload: %v", err), cause: err})
		}
		body, contentType = bytes.NewReader(b), "application/json"
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutFor(purpose))
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, (&Error{Kind: KindBadRequest, Message: err.Error(), cause: err})
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.orgID != "" {
		req.Header.Set("OpenAI-Organization", c.orgID)
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		// Connection or timeout failure before a response was obtained.
		return nil, networkError(err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, networkError(err)
	}

	limits := parseRateLimits(httpResp.Header)
	c.rates.store(limits)

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, classifyStatus(httpResp.StatusCode, raw, httpResp.Header)
	}

	// 2xx must carry valid JSON; anything else is a contract violation,
	// not transience. Non-object payloads (top-level arrays) are fine.
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		e := &Error{Kind: KindInvalidJSON, Message: "unparseable response body", Status: httpResp.StatusCode, cause: err}
		return nil, e.With("body", truncate(string(raw), maxErrorBody))
	}

	// Application-level incomplete condition on a transport success.
	if obj, ok := decoded.(map[string]any); ok {
		if reason := incompleteReason(obj); reason != "" {
			e := &Error{Kind: KindResponseIncomplete, Message: "provider signaled incomplete response", Status: httpResp.StatusCode}
			return nil, e.With("reason", reason)
		}
	}

	return &Response{Status: httpResp.StatusCode, Body: raw, Limits: limits}, nil
}

// incompleteReason extracts the nested incomplete reason, empty if the
// payload is complete.
func incompleteReason(payload map[string]any) string {
	if payload["status"] != "incomplete" {
		return ""
	}
	if details, ok := payload["incomplete_details"].(map[string]any); ok {
		if reason, ok := details["reason"].(string); ok {
			return reason
		}
	}
	return "unspecified"
}
