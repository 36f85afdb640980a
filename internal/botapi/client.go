// Package botapi implements the outbound Telegram Bot API client with
// retry, backoff, rate-limit compliance, and multipart file uploads.
package botapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/flemzord/botgate/internal/metrics"
)

const maxResponseBytes = 10 << 20 // prevent unbounded reads from API responses

// Config holds the outbound client configuration.
type Config struct {
	BaseURL   string        `yaml:"base_url"`
	Attempts  int           `yaml:"attempts"`
	BaseDelay time.Duration `yaml:"base_delay"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Defaults fills zero values with sensible defaults.
func (c *Config) Defaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.telegram.org"
	}
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}

// Client issues HTTP calls to the Telegram Bot API. It holds no cross-call
// state: concurrent calls for different tenants or methods proceed fully in
// parallel. Bind a token with Bot to call on a tenant's behalf.
type Client struct {
	cfg     Config
	http    *http.Client
	logger  *slog.Logger
	metrics *metrics.Metrics

	// sleep is swapped in tests to observe backoff without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates an outbound API client. metrics may be nil.
func NewClient(cfg Config, logger *slog.Logger, m *metrics.Metrics) *Client {
	cfg.Defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg: cfg,
		// No overall client timeout: the per-attempt timeout is applied via
		// context so a hung attempt cannot consume the whole retry budget.
		http:    &http.Client{},
		logger:  logger,
		metrics: m,
		sleep:   sleepContext,
	}
}

// Call invokes a Bot API method with the given token and parameters and
// always returns a response envelope. Rate limits and transport failures
// are retried up to the configured attempt budget; provider-level business
// errors (ok=false on a successful HTTP exchange) are returned immediately.
// After the budget is exhausted a synthesized envelope shaped like a
// provider error is returned, never an error value.
func (c *Client) Call(ctx context.Context, token, method string, params Params) *Response {
	if params == nil {
		params = Params{}
	}

	for attempt := 1; attempt <= c.cfg.Attempts; attempt++ {
		resp, retryAfter, err := c.attempt(ctx, token, method, params)

		switch {
		case err != nil:
			c.logger.Error("botapi: request failed",
				"method", method,
				"attempt", attempt,
				"error", err,
			)
			if attempt == c.cfg.Attempts {
				c.metrics.RecordOutbound(method, "transport_error")
				return failure(fmt.Sprintf("Request failed: %v", err))
			}
			c.metrics.RecordOutboundRetry(method, "transport")
			if serr := c.sleep(ctx, c.cfg.BaseDelay*time.Duration(attempt)); serr != nil {
				c.metrics.RecordOutbound(method, "transport_error")
				return failure(fmt.Sprintf("Request aborted: %v", serr))
			}

		case retryAfter > 0:
			c.logger.Warn("botapi: rate limit hit",
				"method", method,
				"retry_after", retryAfter.Seconds(),
				"attempt", attempt,
			)
			if attempt == c.cfg.Attempts {
				c.metrics.RecordOutbound(method, "rate_limited")
				return resp
			}
			c.metrics.RecordOutboundRetry(method, "rate_limit")
			if serr := c.sleep(ctx, retryAfter); serr != nil {
				c.metrics.RecordOutbound(method, "rate_limited")
				return failure(fmt.Sprintf("Request aborted: %v", serr))
			}

		default:
			if !resp.OK {
				// Business failure: returned as-is, never retried.
				c.logger.Warn("botapi: api error",
					"method", method,
					"error_code", resp.ErrorCode,
					"description", resp.Description,
				)
				c.metrics.RecordOutbound(method, "api_error")
				return resp
			}
			c.metrics.RecordOutbound(method, "ok")
			return resp
		}
	}

	c.metrics.RecordOutbound(method, "transport_error")
	return failure("Max retries exceeded")
}

// attempt performs a single HTTP exchange. It returns the decoded envelope,
// or a positive retryAfter for a 429 response, or an error for
// transport-level failures (which the caller retries with linear backoff).
func (c *Client) attempt(ctx context.Context, token, method string, params Params) (*Response, time.Duration, error) {
	body, contentType, err := params.encode()
	if err != nil {
		return nil, 0, err
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	url := fmt.Sprintf("%s/bot%s/%s", c.cfg.BaseURL, token, method)
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, body)
	if err != nil {
		return nil, 0, fmt.Errorf("botapi: create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", contentType)

	httpResp, err := c.http.Do(req)
	if err != nil {
		// Wrap without the URL so the token never reaches error text.
		return nil, 0, fmt.Errorf("botapi: %s request failed: %w", method, err)
	}

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	_ = httpResp.Body.Close()
	if err != nil {
		return nil, 0, fmt.Errorf("botapi: read %s response: %w", method, err)
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, 0, fmt.Errorf("botapi: decode %s response (status %d): %w", method, httpResp.StatusCode, err)
	}

	if httpResp.StatusCode == http.StatusTooManyRequests {
		return &resp, retryAfterOf(&resp, httpResp.Header), nil
	}
	return &resp, 0, nil
}

// retryAfterOf extracts the provider-specified wait for a 429: the
// parameters.retry_after body field is preferred, the Retry-After header is
// the fallback, and one second is the floor when neither is present.
func retryAfterOf(resp *Response, headers http.Header) time.Duration {
	if resp.Parameters != nil && resp.Parameters.RetryAfter > 0 {
		return time.Duration(resp.Parameters.RetryAfter) * time.Second
	}
	if header := headers.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return time.Second
}

// failure synthesizes a provider-shaped failure envelope for client-level
// failures so callers branch on one uniform shape.
func failure(description string) *Response {
	return &Response{
		OK:          false,
		ErrorCode:   500,
		Description: description,
	}
}

// sleepContext blocks for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
