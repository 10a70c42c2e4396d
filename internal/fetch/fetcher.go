package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

const userAgent = "Nexus/1.0 (+https://github.com/abelbrown/nexus)"

// DirectTransport fetches RSS, Atom or JSON Feed documents itself and parses
// them with gofeed. It never reports a non-ok status; failures are errors.
type DirectTransport struct {
	client *http.Client
}

// NewDirectTransport creates a DirectTransport with the given HTTP timeout.
func NewDirectTransport(timeout time.Duration) *DirectTransport {
	return &DirectTransport{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves and parses the feed at locator.
func (t *DirectTransport) Fetch(ctx context.Context, locator string) (Payload, error) {
	if ctx.Err() != nil {
		return Payload{}, ctx.Err()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return Payload{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return Payload{}, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Payload{}, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return Payload{}, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]RawItem, 0, len(feed.Items))
	for _, fi := range feed.Items {
		items = append(items, rawFromFeedItem(fi))
	}
	return Payload{Status: StatusOK, Items: items}, nil
}

// rawFromFeedItem flattens a gofeed item into the proxy record shape so both
// transports feed the same normalizer.
func rawFromFeedItem(fi *gofeed.Item) RawItem {
	raw := RawItem{
		Title:       fi.Title,
		Link:        fi.Link,
		Description: fi.Description,
		Content:     fi.Content,
	}
	switch {
	case fi.PublishedParsed != nil:
		raw.PubDate = fi.PublishedParsed.UTC().Format(time.RFC3339)
	case fi.UpdatedParsed != nil:
		raw.PubDate = fi.UpdatedParsed.UTC().Format(time.RFC3339)
	default:
		raw.PubDate = fi.Published
	}
	return raw
}
