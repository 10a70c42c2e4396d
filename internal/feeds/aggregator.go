// Package feeds fans out fetches to every configured source and merges the
// normalized results into one time-sorted corpus.
package feeds

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/nexus/internal/fetch"
	"github.com/abelbrown/nexus/internal/logging"
	"github.com/abelbrown/nexus/internal/model"
)

// PerSourceLimit caps how many items one source contributes.
const PerSourceLimit = 10

// DefaultFetchTimeout bounds a single source fetch unless configured.
const DefaultFetchTimeout = 30 * time.Second

// SourceStatus is the outcome of one source in the last aggregation.
type SourceStatus struct {
	ID       string
	Name     string
	Items    int
	Err      error
	Duration time.Duration
}

// Aggregator fetches all sources concurrently. A failing source contributes
// nothing and never affects the others.
type Aggregator struct {
	transport fetch.Transport
	timeout   time.Duration
	limit     int
	now       func() time.Time

	mu     sync.Mutex
	report []SourceStatus
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithTimeout sets the per-source fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithLimit sets the per-source item cap.
func WithLimit(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.limit = n
		}
	}
}

// WithClock injects the wall clock used for undated items.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAggregator creates an Aggregator over t.
func NewAggregator(t fetch.Transport, opts ...Option) *Aggregator {
	a := &Aggregator{
		transport: t,
		timeout:   DefaultFetchTimeout,
		limit:     PerSourceLimit,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate fetches every source and returns the merged corpus sorted by
// descending timestamp. It returns only after every fetch has settled.
func (a *Aggregator) Aggregate(ctx context.Context, sources []model.Source) []model.Item {
	results := make([][]model.Item, len(sources))
	report := make([]SourceStatus, len(sources))

	var g errgroup.Group
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			start := time.Now()
			items, err := a.fetchSource(ctx, src)
			results[i] = items
			report[i] = SourceStatus{
				ID:       src.ID,
				Name:     src.Name,
				Items:    len(items),
				Err:      err,
				Duration: time.Since(start),
			}
			return nil // never fail the group; errors are per source
		})
	}
	_ = g.Wait()

	a.mu.Lock()
	a.report = report
	a.mu.Unlock()

	total := 0
	for _, r := range results {
		total += len(r)
	}
	corpus := make([]model.Item, 0, total)
	for _, r := range results {
		corpus = append(corpus, r...)
	}
	SortByTime(corpus)

	logging.Info("aggregation complete", "sources", len(sources), "items", len(corpus))
	return corpus
}

// fetchSource fetches and normalizes one source. Any failure yields no items.
func (a *Aggregator) fetchSource(ctx context.Context, src model.Source) ([]model.Item, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	payload, err := a.transport.Fetch(fetchCtx, src.URL)
	if err == nil {
		err = payload.Check()
	}
	if err != nil {
		logging.Warn("feed fetch failed", "source", src.Name, "error", err)
		return nil, err
	}

	raw := payload.Items
	if len(raw) > a.limit {
		raw = raw[:a.limit]
	}

	now := a.now()
	items := make([]model.Item, 0, len(raw))
	for _, r := range raw {
		if item, ok := fetch.Normalize(r, src, now); ok {
			items = append(items, item)
		}
	}
	logging.Debug("feed fetched", "source", src.Name, "items", len(items))
	return items, nil
}

// Report returns per-source outcomes of the last Aggregate call, in source order.
func (a *Aggregator) Report() []SourceStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]SourceStatus, len(a.report))
	copy(out, a.report)
	return out
}

// SortByTime sorts items newest first. Equal timestamps keep their order.
func SortByTime(items []model.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp > items[j].Timestamp
	})
}
