package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultProxyURL is an rss2json-compatible conversion endpoint. The feed URL
// is appended query-escaped.
const DefaultProxyURL = "https://api.rss2json.com/v1/api.json?rss_url="

// maxPayloadBytes caps how much of a proxy response is read.
const maxPayloadBytes = 10 << 20

// ProxyTransport fetches feeds through a JSON conversion service that
// answers {status, message, items[]}.
type ProxyTransport struct {
	base   string
	client *http.Client
}

// NewProxyTransport creates a ProxyTransport. An empty base uses DefaultProxyURL.
func NewProxyTransport(base string, timeout time.Duration) *ProxyTransport {
	if base == "" {
		base = DefaultProxyURL
	}
	return &ProxyTransport{
		base:   base,
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves the converted feed for locator.
func (t *ProxyTransport) Fetch(ctx context.Context, locator string) (Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.base+url.QueryEscape(locator), nil)
	if err != nil {
		return Payload{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return Payload{}, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return Payload{}, fmt.Errorf("read response: %w", err)
	}

	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		if resp.StatusCode != http.StatusOK {
			return Payload{}, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		return Payload{}, fmt.Errorf("decode payload: %w", err)
	}
	// rss2json reports errors in the body, sometimes with a 4xx/5xx status.
	if p.Status == "" && resp.StatusCode != http.StatusOK {
		p.Status = "error"
		p.Message = resp.Status
	}
	return p, nil
}
