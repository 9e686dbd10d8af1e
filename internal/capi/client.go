// Package capi sends purchase events to Meta's Conversions API.
package capi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/trackai/internal/domain"
)

const (
	DefaultBaseURL      = "https://graph.facebook.com"
	DefaultGraphVersion = "v21.0"
	DefaultTimeout      = 3 * time.Second

	maxErrorBody = 64 << 10
)

// DefaultRetryDelays are waited between attempts; len+1 caps the attempts.
var DefaultRetryDelays = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
	8 * time.Second,
	16 * time.Second,
}

const DefaultMaxAttempts = 5

// AttemptRecorder persists one DispatchAttempt per try.
type AttemptRecorder interface {
	Create(ctx context.Context, a *domain.DispatchAttempt) error
}

// Sleeper waits d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Config holds the Graph API version and per-request timeout.
type Config struct {
	BaseURL      string
	GraphVersion string
	Timeout      time.Duration
	MaxAttempts  int
	RetryDelays  []time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithSleeper(s Sleeper) Option {
	return func(c *Client) { c.sleep = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client sends events to the Conversions API with retries.
type Client struct {
	creds    Credentials
	cfg      Config
	http     *http.Client
	attempts AttemptRecorder
	sleep    Sleeper
	logger   *slog.Logger
}

// NewClient creates a new CAPI client
func NewClient(creds Credentials, cfg Config, attempts AttemptRecorder, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.GraphVersion == "" {
		cfg.GraphVersion = DefaultGraphVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if len(cfg.RetryDelays) == 0 {
		cfg.RetryDelays = DefaultRetryDelays
	}

	c := &Client{
		creds:    creds,
		cfg:      cfg,
		http:     &http.Client{},
		attempts: attempts,
		sleep:    sleepContext,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PixelID is the fallback pixel when a tenant has none configured.
func (c *Client) PixelID() string {
	return c.creds.PixelID
}

// BuildPayload uses the tenant pixel, falling back to the credentials pixel.
func (c *Client) BuildPayload(pixelID string, conv *domain.Conversion) *EventPayload {
	if pixelID == "" {
		pixelID = c.creds.PixelID
	}
	return BuildPayload(pixelID, conv)
}

// ValidatePayload rejects events CAPI would refuse.
func (c *Client) ValidatePayload(p *EventPayload) error {
	return ValidatePayload(p)
}

// SendEvent posts the payload, retrying with the configured delays. Every
// try is recorded; the error after the last try wraps ErrDispatchFailed.
func (c *Client) SendEvent(ctx context.Context, tenantID, conversionID uuid.UUID, payload *EventPayload) (*Response, error) {
	if err := ValidatePayload(payload); err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	event := payload.Data[0]
	endpoint := c.endpoint(event.EventSourceID)

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		resp, err := c.post(ctx, endpoint, body)
		if err == nil {
			c.record(ctx, tenantID, conversionID, event.EventID, attempt, nil)
			return resp, nil
		}

		lastErr = err
		c.record(ctx, tenantID, conversionID, event.EventID, attempt, err)
		c.logger.Warn("capi attempt failed",
			"tenant_id", tenantID,
			"conversion_id", conversionID,
			"event_id", event.EventID,
			"attempt", attempt,
			"error", err,
		)

		if attempt == c.cfg.MaxAttempts {
			break
		}
		if err := c.sleep(ctx, c.delay(attempt)); err != nil {
			return nil, fmt.Errorf("%w after %d attempts: %v", ErrDispatchFailed, attempt, err)
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrDispatchFailed, c.cfg.MaxAttempts, lastErr)
}

func (c *Client) delay(attempt int) time.Duration {
	i := attempt - 1
	if i >= len(c.cfg.RetryDelays) {
		i = len(c.cfg.RetryDelays) - 1
	}
	return c.cfg.RetryDelays[i]
}

func (c *Client) endpoint(pixelID string) string {
	q := url.Values{}
	q.Set("access_token", c.creds.AccessToken)
	return fmt.Sprintf("%s/%s/%s/events?%s", c.cfg.BaseURL, c.cfg.GraphVersion, url.PathEscape(pixelID), q.Encode())
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "TrackAI-CAPI/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, redact(err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return nil, parseAPIError(resp.StatusCode, raw)
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func parseAPIError(status int, raw []byte) *APIError {
	var body struct {
		Error struct {
			Message   string `json:"message"`
			Type      string `json:"type"`
			Code      int    `json:"code"`
			FBTraceID string `json:"fbtrace_id"`
		} `json:"error"`
	}
	apiErr := &APIError{StatusCode: status}
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Message = body.Error.Message
		apiErr.Type = body.Error.Type
		apiErr.Code = body.Error.Code
		apiErr.TraceID = body.Error.FBTraceID
	}
	return apiErr
}

// url.Error embeds the request URL, which carries the access token.
func redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s graph api: %w", uerr.Op, uerr.Err)
	}
	return err
}

func (c *Client) record(ctx context.Context, tenantID, conversionID uuid.UUID, eventID string, attempt int, sendErr error) {
	if c.attempts == nil {
		return
	}

	a := &domain.DispatchAttempt{
		TenantID: tenantID,
		EventID:  eventID,
		Attempt:  attempt,
		Status:   domain.DispatchSuccess,
	}
	if conversionID != uuid.Nil {
		a.ConversionID = &conversionID
	}
	if sendErr != nil {
		msg := sendErr.Error()
		a.Status = domain.DispatchFailed
		a.Error = &msg
	}

	if err := c.attempts.Create(ctx, a); err != nil {
		c.logger.Error("failed to record dispatch attempt",
			"tenant_id", tenantID,
			"event_id", eventID,
			"attempt", attempt,
			"error", err,
		)
	}
}
