// Package model defines the canonical value types shared by the pipeline:
// sources, items, ranked items, favorites and view selectors.
//
// Items are value objects. Nothing in the pipeline mutates an Item after the
// normalizer produces it; translated or ranked views are new values.
package model

import "time"

// Item is one normalized piece of content from a feed.
type Item struct {
	ID         string // base64 of the origin link, stable across fetches
	SourceID   string
	SourceName string
	Title      string
	Link       string
	Excerpt    string // plain text, at most 200 runes plus "..."
	Published  string // RFC 3339 display form
	Timestamp  int64  // epoch milliseconds; the only ordering key
}

// Time returns the publication time.
func (i Item) Time() time.Time {
	return time.UnixMilli(i.Timestamp)
}

// WithTranslation returns a copy of i carrying translated text.
// Empty fields keep the original value.
func (i Item) WithTranslation(title, excerpt, sourceName string) Item {
	out := i
	if title != "" {
		out.Title = title
	}
	if excerpt != "" {
		out.Excerpt = excerpt
	}
	if sourceName != "" {
		out.SourceName = sourceName
	}
	return out
}

// RankedItem is an Item with a similarity score in [0, 1].
// Scores are only comparable within a single ranking call.
type RankedItem struct {
	Item
	Score float64
}

// Unranked wraps items with a zero score, preserving order.
func Unranked(items []Item) []RankedItem {
	out := make([]RankedItem, len(items))
	for i, it := range items {
		out[i] = RankedItem{Item: it}
	}
	return out
}

// Items strips scores, preserving order.
func Items(ranked []RankedItem) []Item {
	out := make([]Item, len(ranked))
	for i, r := range ranked {
		out[i] = r.Item
	}
	return out
}
