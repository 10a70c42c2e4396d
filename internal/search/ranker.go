// Package search ranks a candidate set against a free-text query, by
// embedding similarity when an embedder is available and by keyword
// match otherwise.
package search

import (
	"context"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/nexus/internal/embed"
	"github.com/abelbrown/nexus/internal/logging"
	"github.com/abelbrown/nexus/internal/model"
)

// MaxCandidates bounds how many candidates are embedded per query.
const MaxCandidates = 30

// maxConcurrentEmbeds limits parallel candidate embedding calls.
const maxConcurrentEmbeds = 4

// vectorCacheSize is the number of candidate vectors kept between queries.
const vectorCacheSize = 512

// Ranker orders candidates by relevance to query.
type Ranker interface {
	Rank(ctx context.Context, query string, candidates []model.Item) []model.RankedItem
}

// Select returns an EmbeddingRanker when e is usable and a KeywordRanker
// otherwise. Called per query so a provider coming up or going away is
// picked up without a restart.
func Select(e embed.Embedder) Ranker {
	if e != nil && e.Available() {
		return NewEmbeddingRanker(e)
	}
	logging.Debug("no embedder available, using keyword search")
	return KeywordRanker{}
}

// Searcher keeps one EmbeddingRanker alive across queries so its vector
// cache is reused, and falls back to keyword ranking per query.
type Searcher struct {
	embedder embed.Embedder
	semantic *EmbeddingRanker
}

// NewSearcher creates a Searcher. e may be nil.
func NewSearcher(e embed.Embedder) *Searcher {
	s := &Searcher{embedder: e}
	if e != nil {
		s.semantic = NewEmbeddingRanker(e)
	}
	return s
}

// Ranker returns the strategy for the next query.
func (s *Searcher) Ranker() Ranker {
	if s.semantic != nil && s.embedder.Available() {
		return s.semantic
	}
	return Select(nil)
}

// Rank ranks with the strategy chosen for this call.
func (s *Searcher) Rank(ctx context.Context, query string, candidates []model.Item) []model.RankedItem {
	return s.Ranker().Rank(ctx, query, candidates)
}

// EmbeddingRanker scores candidates by cosine similarity to the query.
type EmbeddingRanker struct {
	embedder embed.Embedder
	vectors  *lru.Cache[string, []float32]
}

// NewEmbeddingRanker creates an EmbeddingRanker with its own vector cache.
func NewEmbeddingRanker(e embed.Embedder) *EmbeddingRanker {
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[string, []float32](vectorCacheSize)
	return &EmbeddingRanker{embedder: e, vectors: cache}
}

// EmbedText is the text embedded for a candidate.
func EmbedText(item model.Item) string {
	return item.Title + ": " + item.Excerpt
}

// Rank embeds the query and the first MaxCandidates candidates and returns
// them by descending similarity. Candidates that fail to embed are left
// out. A query embedding failure yields an empty result.
func (r *EmbeddingRanker) Rank(ctx context.Context, query string, candidates []model.Item) []model.RankedItem {
	start := time.Now()

	qvec, err := embed.Query(ctx, r.embedder, query)
	if err != nil {
		logging.Error("semantic search failed", "query", query, "error", err)
		return []model.RankedItem{}
	}

	if len(candidates) > MaxCandidates {
		candidates = candidates[:MaxCandidates]
	}

	vecs := make([][]float32, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentEmbeds)
	for i, item := range candidates {
		i, item := i, item
		g.Go(func() error {
			text := EmbedText(item)
			key := item.ID + "\x00" + text
			if v, ok := r.vectors.Get(key); ok {
				vecs[i] = v
				return nil
			}
			v, err := r.embedder.Embed(gctx, text)
			if err != nil {
				logging.Debug("skipping candidate, embedding failed", "id", item.ID, "error", err)
				return nil
			}
			r.vectors.Add(key, v)
			vecs[i] = v
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	results := make([]model.RankedItem, 0, len(candidates))
	for i, item := range candidates {
		if vecs[i] == nil {
			continue
		}
		// Scores are reported in [0, 1]; opposed vectors count as unrelated.
		score := max(embed.CosineSimilarity(qvec, vecs[i]), 0)
		results = append(results, model.RankedItem{Item: item, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	logging.Info("semantic search", "query", query, "candidates", len(candidates), "results", len(results), "duration", time.Since(start))
	return results
}

// KeywordRanker matches the query as a case-insensitive substring of the
// title or excerpt. Every match scores 1 and input order is kept.
type KeywordRanker struct{}

func (KeywordRanker) Rank(_ context.Context, query string, candidates []model.Item) []model.RankedItem {
	q := strings.ToLower(strings.TrimSpace(query))
	results := make([]model.RankedItem, 0)
	for _, item := range candidates {
		if strings.Contains(strings.ToLower(item.Title), q) || strings.Contains(strings.ToLower(item.Excerpt), q) {
			results = append(results, model.RankedItem{Item: item, Score: 1})
		}
	}
	return results
}
