// Package filter provides pure view filters over the corpus.
// All functions are simple: []Item in, []Item out. No side effects, and the
// input slice is never modified.
package filter

import (
	"time"

	"github.com/abelbrown/nexus/internal/model"
)

// RecencyWindow is the trailing window of the "today" view.
const RecencyWindow = 24 * time.Hour

// ByView returns the subset of corpus selected by sel. The "today" window is
// evaluated against now, so calling again later can shrink the result.
func ByView(corpus []model.Item, sel model.Selector, favs model.FavoriteSet, now time.Time) []model.Item {
	switch sel.View {
	case model.ViewToday:
		return ByAge(corpus, RecencyWindow, now)
	case model.ViewFavorites:
		return ByFavorites(corpus, favs)
	case model.ViewSource:
		if sel.SourceID == "" {
			return clone(corpus)
		}
		return BySource(corpus, sel.SourceID)
	default:
		return clone(corpus)
	}
}

// ByAge keeps items strictly newer than now-maxAge.
func ByAge(items []model.Item, maxAge time.Duration, now time.Time) []model.Item {
	cutoff := now.Add(-maxAge).UnixMilli()
	result := make([]model.Item, 0, len(items))
	for _, item := range items {
		if item.Timestamp > cutoff {
			result = append(result, item)
		}
	}
	return result
}

// ByFavorites keeps items whose ID is in favs.
func ByFavorites(items []model.Item, favs model.FavoriteSet) []model.Item {
	result := make([]model.Item, 0, len(favs))
	for _, item := range items {
		if favs.Has(item.ID) {
			result = append(result, item)
		}
	}
	return result
}

// BySource keeps items from the given source ID.
func BySource(items []model.Item, sourceID string) []model.Item {
	result := make([]model.Item, 0, len(items))
	for _, item := range items {
		if item.SourceID == sourceID {
			result = append(result, item)
		}
	}
	return result
}

func clone(items []model.Item) []model.Item {
	result := make([]model.Item, len(items))
	copy(result, items)
	return result
}
