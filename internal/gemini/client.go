// Package gemini is a minimal REST client for the Generative Language API,
// shared by the embedding and translation providers.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// ErrNoAPIKey is returned by calls on a client without credentials.
var ErrNoAPIKey = errors.New("gemini: no API key configured")

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 10 << 20

// Client calls the Gemini REST API with rate limiting and retry.
type Client struct {
	apiKey   string
	baseURL  string
	client   *http.Client
	limiter  *rate.Limiter
	backoffs []time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another endpoint (tests, proxies).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client.Timeout = d }
}

// WithRateLimit replaces the request limiter.
func WithRateLimit(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithBackoffs sets the retry delays; its length is the retry count.
func WithBackoffs(b ...time.Duration) Option {
	return func(c *Client) { c.backoffs = b }
}

// NewClient creates a Client. An empty apiKey yields a client whose
// Available reports false.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:   apiKey,
		baseURL:  DefaultBaseURL,
		client:   &http.Client{Timeout: 60 * time.Second},
		limiter:  rate.NewLimiter(rate.Every(100*time.Millisecond), 5),
		backoffs: []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Available returns true if an API key is configured.
func (c *Client) Available() bool {
	return c.apiKey != ""
}

// APIError is a non-2xx response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini: API error (status %d): %s", e.Status, e.Body)
}

// Retryable reports whether the status is worth retrying.
func (e *APIError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// post sends body to <baseURL>/models/<model>:<method> and decodes into out.
// Retries on 429, 5xx and truncated bodies; 429 honors Retry-After.
func (c *Client) post(ctx context.Context, model, method string, body, out any) error {
	if !c.Available() {
		return ErrNoAPIKey
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("gemini: marshal request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/models/%s:%s", c.baseURL, model, method)

	var lastErr error
	for attempt := 0; attempt <= len(c.backoffs); attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("gemini: rate limiter wait failed: %w", err)
		}

		delay, err := c.do(ctx, endpoint, payload, out)
		if err == nil {
			return nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return err
		}
		if ctx.Err() != nil {
			return fmt.Errorf("gemini: request cancelled: %w", ctx.Err())
		}
		lastErr = err

		if attempt == len(c.backoffs) {
			break
		}
		if delay == 0 {
			delay = c.backoffs[attempt]
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("gemini: request cancelled during retry: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("gemini: all retries exhausted: %w", lastErr)
}

// do performs one attempt. The returned delay is a server-requested wait.
func (c *Client) do(ctx context.Context, endpoint string, payload []byte, out any) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("gemini: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("gemini: request failed: %w", err)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	resp.Body.Close()
	if err != nil {
		return 0, fmt.Errorf("gemini: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return retryAfter(resp), &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return 0, fmt.Errorf("gemini: parse response: %w", err)
	}
	return 0, nil
}

// retryAfter reads a Retry-After seconds header on 429, capped at 30s.
func retryAfter(resp *http.Response) time.Duration {
	if resp.StatusCode != http.StatusTooManyRequests {
		return 0
	}
	seconds, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || seconds <= 0 {
		return 0
	}
	d := time.Duration(seconds) * time.Second
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}
