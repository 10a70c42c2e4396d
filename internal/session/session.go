// Package session composes aggregation, view filtering, search and
// translation into the state a presentation layer renders.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/abelbrown/nexus/internal/embed"
	"github.com/abelbrown/nexus/internal/feeds"
	"github.com/abelbrown/nexus/internal/filter"
	"github.com/abelbrown/nexus/internal/logging"
	"github.com/abelbrown/nexus/internal/model"
	"github.com/abelbrown/nexus/internal/search"
	"github.com/abelbrown/nexus/internal/translate"
)

// Aggregator produces the corpus.
type Aggregator interface {
	Aggregate(ctx context.Context, sources []model.Source) []model.Item
	Report() []feeds.SourceStatus
}

// Store persists user preferences.
type Store interface {
	Favorites() (model.FavoriteSet, error)
	SaveFavorites(model.FavoriteSet) error
	Locale() (string, error)
	SaveLocale(string) error
}

// Deps are the collaborators a Session is built from. Embedder, Translator
// and Store may be nil.
type Deps struct {
	Aggregator Aggregator
	Sources    []model.Source
	Store      Store
	Embedder   embed.Embedder
	Translator translate.Translator
	Clock      func() time.Time
}

// Options tune a Session.
type Options struct {
	DefaultLocale      string
	TranslateBatchSize int
	TranslateDebounce  time.Duration
	// OnUpdate is called whenever background work changes what Display
	// returns. It must not block.
	OnUpdate func()
}

// Flags are the progress indicators shown to the user.
type Flags struct {
	Loading     bool
	Searching   bool
	Translating bool
}

// Session is the single owner of presentation state.
type Session struct {
	aggregator Aggregator
	sources    []model.Source
	store      Store
	clock      func() time.Time
	searcher   *search.Searcher
	filler     *translate.Filler
	onUpdate   func()

	mu        sync.Mutex
	corpus    []model.Item
	favs      model.FavoriteSet
	sel       model.Selector
	locale    string
	query     string
	results   []model.RankedItem // nil when no search is active
	searchSeq int
	loading   bool
	searching bool
	loaded    bool
}

// New creates a Session. Call Load before Display.
func New(d Deps, opts Options) *Session {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	locale := opts.DefaultLocale
	if locale == "" {
		locale = model.DefaultLocale
	}
	sources := make([]model.Source, len(d.Sources))
	copy(sources, d.Sources)

	s := &Session{
		aggregator: d.Aggregator,
		sources:    sources,
		store:      d.Store,
		clock:      d.Clock,
		searcher:   search.NewSearcher(d.Embedder),
		onUpdate:   opts.OnUpdate,
		favs:       model.NewFavoriteSet(),
		sel:        model.Selector{View: model.ViewToday},
		locale:     locale,
	}
	s.filler = translate.NewFiller(d.Translator, translate.Options{
		BatchSize: opts.TranslateBatchSize,
		Debounce:  opts.TranslateDebounce,
		OnUpdate:  s.notifyUpdate,
	})
	return s
}

// Load restores preferences and runs the initial aggregation. Calling it
// again is a no-op; use Refresh to re-fetch.
func (s *Session) Load(ctx context.Context) {
	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return
	}
	s.loaded = true
	s.mu.Unlock()

	s.loadPreferences()
	s.Refresh(ctx)
}

func (s *Session) loadPreferences() {
	if s.store == nil {
		return
	}
	favs, err := s.store.Favorites()
	if err != nil {
		logging.Warn("failed to load favorites", "error", err)
	}
	locale, err := s.store.Locale()
	if err != nil {
		logging.Warn("failed to load locale", "error", err)
	}

	s.mu.Lock()
	if favs != nil {
		s.favs = favs
	}
	if locale != "" {
		s.locale = locale
	}
	s.mu.Unlock()
}

// Refresh re-aggregates all sources and replaces the corpus.
func (s *Session) Refresh(ctx context.Context) {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	s.notifyUpdate()

	corpus := s.aggregator.Aggregate(ctx, s.sources)

	s.mu.Lock()
	s.corpus = corpus
	s.loading = false
	s.mu.Unlock()

	logging.Info("corpus loaded", "items", len(corpus), "sources", len(s.sources))
	s.displayChanged()
}

// Display returns the current display set: search results when a query is
// active, the selected view otherwise, translated for the active locale as
// far as the cache allows.
func (s *Session) Display() []model.RankedItem {
	s.mu.Lock()
	ranked, locale := s.baseLocked(), s.locale
	s.mu.Unlock()

	if model.IsDefaultLocale(locale) {
		return ranked
	}
	translated := s.filler.Resolve(model.Items(ranked), locale)
	for i := range ranked {
		ranked[i].Item = translated[i]
	}
	return ranked
}

// baseLocked returns a fresh, untranslated display set.
func (s *Session) baseLocked() []model.RankedItem {
	if s.results != nil {
		out := make([]model.RankedItem, len(s.results))
		copy(out, s.results)
		return out
	}
	return model.Unranked(filter.ByView(s.corpus, s.sel, s.favs, s.clock()))
}

// displayChanged hands the new display set to the translation filler and
// tells the presentation layer.
func (s *Session) displayChanged() {
	s.mu.Lock()
	items, locale := model.Items(s.baseLocked()), s.locale
	s.mu.Unlock()

	s.filler.Notify(items, locale)
	s.notifyUpdate()
}

func (s *Session) notifyUpdate() {
	if s.onUpdate != nil {
		s.onUpdate()
	}
}

// IsFavorite reports whether id is a favorite.
func (s *Session) IsFavorite(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.favs.Has(id)
}

// ToggleFavorite flips id's membership, persists the set and returns the
// new membership.
func (s *Session) ToggleFavorite(id string) bool {
	s.mu.Lock()
	on := s.favs.Toggle(id)
	favs := s.favs.Clone()
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.SaveFavorites(favs); err != nil {
			logging.Warn("failed to save favorites", "error", err)
		}
	}
	s.displayChanged()
	return on
}

// Favorites returns a copy of the favorite set.
func (s *Session) Favorites() model.FavoriteSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.favs.Clone()
}

// SelectView switches the view and clears any active search.
func (s *Session) SelectView(view model.View, sourceID string) {
	s.mu.Lock()
	s.sel = model.Selector{View: view, SourceID: sourceID}
	s.clearSearchLocked()
	s.mu.Unlock()
	s.displayChanged()
}

// Selector returns the active view.
func (s *Session) Selector() model.Selector {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel
}

// Search ranks the whole corpus against query. A blank query clears the
// search. When searches overlap, only the latest one's results are kept.
func (s *Session) Search(ctx context.Context, query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		s.ClearSearch()
		return
	}

	s.mu.Lock()
	s.searchSeq++
	seq := s.searchSeq
	s.query = query
	s.searching = true
	corpus := s.corpus
	s.mu.Unlock()
	s.notifyUpdate()

	results := s.searcher.Rank(ctx, query, corpus)

	s.mu.Lock()
	if seq != s.searchSeq {
		s.mu.Unlock()
		return
	}
	s.results = results
	s.searching = false
	s.mu.Unlock()

	s.displayChanged()
}

// ClearSearch drops the query and its results.
func (s *Session) ClearSearch() {
	s.mu.Lock()
	s.clearSearchLocked()
	s.mu.Unlock()
	s.displayChanged()
}

func (s *Session) clearSearchLocked() {
	s.searchSeq++
	s.query = ""
	s.results = nil
	s.searching = false
}

// Query returns the active search query, or "".
func (s *Session) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Locale returns the active locale.
func (s *Session) Locale() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locale
}

// SetLocale switches the display locale and persists it.
func (s *Session) SetLocale(locale string) {
	if locale == "" {
		locale = model.DefaultLocale
	}
	s.mu.Lock()
	s.locale = locale
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.SaveLocale(locale); err != nil {
			logging.Warn("failed to save locale", "error", err)
		}
	}
	s.displayChanged()
}

// ToggleLocale switches between English and Chinese.
func (s *Session) ToggleLocale() string {
	next := "zh"
	if !model.IsDefaultLocale(s.Locale()) {
		next = model.DefaultLocale
	}
	s.SetLocale(next)
	return next
}

// Flags returns the progress indicators.
func (s *Session) Flags() Flags {
	s.mu.Lock()
	f := Flags{Loading: s.loading, Searching: s.searching}
	s.mu.Unlock()
	f.Translating = s.filler.Translating()
	return f
}

// WaitTranslation blocks until no translation pass is scheduled or
// running, or ctx is done. Used by non-interactive commands.
func (s *Session) WaitTranslation(ctx context.Context) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for s.filler.State() != translate.Idle {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Sources returns the configured sources.
func (s *Session) Sources() []model.Source {
	out := make([]model.Source, len(s.sources))
	copy(out, s.sources)
	return out
}

// Report returns the per-source outcome of the last aggregation.
func (s *Session) Report() []feeds.SourceStatus {
	return s.aggregator.Report()
}

// Title names what Display currently shows.
func (s *Session) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.results != nil || s.searching {
		return "Search: " + s.query
	}
	switch s.sel.View {
	case model.ViewToday:
		return "Today"
	case model.ViewFavorites:
		return "Favorites"
	case model.ViewSource:
		if src, ok := model.SourceByID(s.sources, s.sel.SourceID); ok {
			return src.Name
		}
	}
	return "All Articles"
}

// Close stops background translation, waiting for a running batch.
func (s *Session) Close() {
	s.filler.Close()
}
