package translate

import (
	"context"

	"github.com/abelbrown/nexus/internal/model"
)

// Entry is the translatable projection of an item exchanged with a
// translation provider.
type Entry struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Snippet    string `json:"snippet"`
	SourceName string `json:"feedName"`
}

// Translator translates a batch of entries into locale. The response may
// be partial or reordered; entries are matched by ID.
type Translator interface {
	Translate(ctx context.Context, locale string, batch []Entry) ([]Entry, error)
}

// TranslatorFunc adapts a function to Translator.
type TranslatorFunc func(ctx context.Context, locale string, batch []Entry) ([]Entry, error)

// Translate calls f.
func (f TranslatorFunc) Translate(ctx context.Context, locale string, batch []Entry) ([]Entry, error) {
	return f(ctx, locale, batch)
}

// Entries projects items to translation entries.
func Entries(items []model.Item) []Entry {
	out := make([]Entry, len(items))
	for i, item := range items {
		out[i] = Entry{ID: item.ID, Title: item.Title, Snippet: item.Excerpt, SourceName: item.SourceName}
	}
	return out
}

// Merge applies resp to batch by ID. Response entries with unknown IDs
// are dropped; batch items without a response entry are returned unchanged.
func Merge(batch []model.Item, resp []Entry) []model.Item {
	byID := make(map[string]Entry, len(resp))
	for _, e := range resp {
		byID[e.ID] = e
	}

	out := make([]model.Item, len(batch))
	for i, item := range batch {
		if e, ok := byID[item.ID]; ok {
			out[i] = item.WithTranslation(e.Title, e.Snippet, e.SourceName)
		} else {
			out[i] = item
		}
	}
	return out
}
