package fetch

import (
	"encoding/base64"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abelbrown/nexus/internal/model"
)

// ExcerptLimit is the maximum excerpt length in runes before the ellipsis.
const ExcerptLimit = 200

// tagRe strips markup in one non-greedy pass. A trailing unterminated "<..."
// is removed too.
var tagRe = regexp.MustCompile(`<[^>]*>?`)

// dateLayouts are tried in order after the first space is replaced by "T".
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	time.RFC822Z,
	time.RFC822,
	"2006-01-02",
}

// Normalize converts one raw record into an Item. It returns false only when
// nothing usable is present (no link, title, description or content).
// Unparseable dates fall back to now.
func Normalize(raw RawItem, src model.Source, now time.Time) (model.Item, bool) {
	if raw.Link == "" && raw.Title == "" && raw.Description == "" && raw.Content == "" {
		return model.Item{}, false
	}

	published := ParseDate(raw.PubDate, now)

	return model.Item{
		ID:         ItemID(raw.Link),
		SourceID:   src.ID,
		SourceName: src.Name,
		Title:      strings.TrimSpace(raw.Title),
		Link:       raw.Link,
		Excerpt:    Excerpt(raw.Description, raw.Content),
		Published:  published.UTC().Format(time.RFC3339),
		Timestamp:  published.UnixMilli(),
	}, true
}

// ItemID encodes link as base64 of its UTF-8 bytes. The same link always
// yields the same ID. Without a link a random payload is used, so such items
// are singletons for de-duplication and caching.
func ItemID(link string) string {
	if link == "" {
		link = uuid.NewString()
	}
	return base64.StdEncoding.EncodeToString([]byte(link))
}

// Excerpt picks description, or content when description is empty, strips
// markup and caps the result at ExcerptLimit runes plus "...".
func Excerpt(description, content string) string {
	body := description
	if body == "" {
		body = content
	}
	text := tagRe.ReplaceAllString(body, "")
	runes := []rune(text)
	if len(runes) <= ExcerptLimit {
		return text
	}
	return string(runes[:ExcerptLimit]) + "..."
}

// ParseDate parses a provider date string, returning fallback when the string
// is empty or in no known layout. Layouts without a zone are read as UTC.
func ParseDate(s string, fallback time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	// "2024-01-02 15:04:05" -> "2024-01-02T15:04:05"
	if len(s) > 10 && s[4] == '-' && s[10] == ' ' {
		s = s[:10] + "T" + s[11:]
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return fallback
}
