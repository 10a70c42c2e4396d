package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func TestDirectTransportFetch(t *testing.T) {
	rss := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <item>
      <title>Article 1</title>
      <link>http://example.com/article1</link>
      <description>&lt;p&gt;First article&lt;/p&gt;</description>
      <pubDate>Mon, 01 Jan 2024 12:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Article 2</title>
      <link>http://example.com/article2</link>
      <description>Second article</description>
    </item>
  </channel>
</rss>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != userAgent {
			t.Errorf("unexpected user agent: %s", ua)
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rss))
	}))
	defer server.Close()

	tr := NewDirectTransport(5 * time.Second)
	p, err := tr.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if p.Status != StatusOK {
		t.Errorf("expected ok status, got %q", p.Status)
	}
	if len(p.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(p.Items))
	}
	if p.Items[0].Link != "http://example.com/article1" {
		t.Errorf("unexpected link: %s", p.Items[0].Link)
	}
	if p.Items[0].PubDate != "2024-01-01T12:00:00Z" {
		t.Errorf("unexpected pubDate: %s", p.Items[0].PubDate)
	}
	if p.Items[1].PubDate != "" {
		t.Errorf("missing date should stay empty, got %q", p.Items[1].PubDate)
	}
}

func TestDirectTransportFetch404(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewDirectTransport(5*time.Second).Fetch(context.Background(), server.URL)
	if err == nil {
		t.Error("expected error for 404 response")
	}
}

func TestDirectTransportInvalidXML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not valid xml"))
	}))
	defer server.Close()

	_, err := NewDirectTransport(5*time.Second).Fetch(context.Background(), server.URL)
	if err == nil {
		t.Error("expected error for invalid XML")
	}
}

func TestDirectTransportCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDirectTransport(time.Second).Fetch(ctx, "http://example.com/feed")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestProxyTransportFetch(t *testing.T) {
	const feedURL = "https://danluu.com/atom.xml"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("rss_url"); got != feedURL {
			t.Errorf("rss_url = %q, want %q", got, feedURL)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","items":[{"title":"T","link":"https://danluu.com/a","description":"<b>d</b>","pubDate":"2024-03-04 05:06:07"}]}`))
	}))
	defer server.Close()

	tr := NewProxyTransport(server.URL+"/?rss_url=", 5*time.Second)
	p, err := tr.Fetch(context.Background(), feedURL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if err := p.Check(); err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if len(p.Items) != 1 || p.Items[0].PubDate != "2024-03-04 05:06:07" {
		t.Errorf("unexpected items: %+v", p.Items)
	}
}

func TestProxyTransportErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"status":"error","message":"Cannot download this RSS feed"}`))
	}))
	defer server.Close()

	p, err := NewProxyTransport(server.URL+"/?u=", time.Second).Fetch(context.Background(), "http://x")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !errors.Is(p.Check(), ErrStatus) {
		t.Errorf("expected ErrStatus, got %v", p.Check())
	}
}

func TestProxyTransportMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":`))
	}))
	defer server.Close()

	_, err := NewProxyTransport(server.URL+"/?u=", time.Second).Fetch(context.Background(), "http://x")
	if err == nil {
		t.Error("expected decode error")
	}
}

func TestProxyURLEscaping(t *testing.T) {
	locator := "https://hnrss.org/newest?points=100"
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.RawQuery
		w.Write([]byte(`{"status":"ok","items":[]}`))
	}))
	defer server.Close()

	if _, err := NewProxyTransport(server.URL+"/?rss_url=", time.Second).Fetch(context.Background(), locator); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if got != "rss_url="+url.QueryEscape(locator) {
		t.Errorf("query = %q", got)
	}
}

func TestDefaultSources(t *testing.T) {
	sources := DefaultSources()
	if len(sources) == 0 {
		t.Fatal("expected non-empty source list")
	}
	seen := make(map[string]bool)
	for _, src := range sources {
		if src.ID == "" || src.Name == "" || src.URL == "" {
			t.Errorf("incomplete source: %+v", src)
		}
		if seen[src.ID] {
			t.Errorf("duplicate source id %q", src.ID)
		}
		seen[src.ID] = true
	}
}
