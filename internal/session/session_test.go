package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abelbrown/nexus/internal/feeds"
	"github.com/abelbrown/nexus/internal/model"
	"github.com/abelbrown/nexus/internal/store"
	"github.com/abelbrown/nexus/internal/translate"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

type fakeAggregator struct {
	items []model.Item
	calls atomic.Int32
}

func (f *fakeAggregator) Aggregate(ctx context.Context, sources []model.Source) []model.Item {
	f.calls.Add(1)
	out := make([]model.Item, len(f.items))
	copy(out, f.items)
	return out
}

func (f *fakeAggregator) Report() []feeds.SourceStatus { return nil }

func at(age time.Duration) int64 { return now.Add(-age).UnixMilli() }

func corpus() []model.Item {
	return []model.Item{
		{ID: "a", SourceID: "1", SourceName: "Coding Horror", Title: "React server components", Excerpt: "rendering", Timestamp: at(time.Hour)},
		{ID: "b", SourceID: "2", SourceName: "Dan Luu", Title: "Latency numbers", Excerpt: "tail latency", Timestamp: at(2 * time.Hour)},
		{ID: "c", SourceID: "1", SourceName: "Coding Horror", Title: "Old post", Excerpt: "about react hooks", Timestamp: at(48 * time.Hour)},
	}
}

var sources = []model.Source{
	{ID: "1", Name: "Coding Horror", URL: "https://blog.codinghorror.com/rss/"},
	{ID: "2", Name: "Dan Luu", URL: "https://danluu.com/atom.xml"},
}

func newSession(t *testing.T, tr translate.Translator, st Store) (*Session, *fakeAggregator) {
	t.Helper()
	agg := &fakeAggregator{items: corpus()}
	s := New(Deps{
		Aggregator: agg,
		Sources:    sources,
		Store:      st,
		Translator: tr,
		Clock:      clock,
	}, Options{TranslateDebounce: 5 * time.Millisecond})
	t.Cleanup(s.Close)
	return s, agg
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func ids(items []model.RankedItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within 2s")
}

func TestLoadShowsToday(t *testing.T) {
	s, agg := newSession(t, nil, nil)
	s.Load(context.Background())
	s.Load(context.Background())

	if n := agg.calls.Load(); n != 1 {
		t.Errorf("Aggregate calls = %d, want 1", n)
	}
	if got := ids(s.Display()); !equal(got, []string{"a", "b"}) {
		t.Errorf("Display() = %v, want [a b]", got)
	}
	if s.Title() != "Today" {
		t.Errorf("Title() = %q", s.Title())
	}
	if f := s.Flags(); f.Loading || f.Searching {
		t.Errorf("Flags() = %+v after load", f)
	}
}

func TestRefreshReaggregates(t *testing.T) {
	s, agg := newSession(t, nil, nil)
	s.Load(context.Background())
	s.Refresh(context.Background())
	if n := agg.calls.Load(); n != 2 {
		t.Errorf("Aggregate calls = %d, want 2", n)
	}
}

func TestSelectView(t *testing.T) {
	s, _ := newSession(t, nil, nil)
	s.Load(context.Background())

	tests := []struct {
		view   model.View
		source string
		want   []string
		title  string
	}{
		{model.ViewAll, "", []string{"a", "b", "c"}, "All Articles"},
		{model.ViewSource, "1", []string{"a", "c"}, "Coding Horror"},
		{model.ViewFavorites, "", []string{}, "Favorites"},
		{model.ViewToday, "", []string{"a", "b"}, "Today"},
	}
	for _, tt := range tests {
		s.SelectView(tt.view, tt.source)
		if got := ids(s.Display()); !equal(got, tt.want) {
			t.Errorf("%s/%s: Display() = %v, want %v", tt.view, tt.source, got, tt.want)
		}
		if s.Title() != tt.title {
			t.Errorf("%s: Title() = %q, want %q", tt.view, s.Title(), tt.title)
		}
	}
}

func TestSearchKeywordFallback(t *testing.T) {
	s, _ := newSession(t, nil, nil)
	s.Load(context.Background())

	s.Search(context.Background(), "react")

	got := s.Display()
	if !equal(ids(got), []string{"a", "c"}) {
		t.Fatalf("Display() = %v, want [a c]", ids(got))
	}
	for _, r := range got {
		if r.Score != 1 {
			t.Errorf("score = %v, want 1", r.Score)
		}
	}
	if s.Title() != "Search: react" || s.Query() != "react" {
		t.Errorf("Title() = %q, Query() = %q", s.Title(), s.Query())
	}
}

func TestSelectViewClearsSearch(t *testing.T) {
	s, _ := newSession(t, nil, nil)
	s.Load(context.Background())
	s.Search(context.Background(), "latency")

	s.SelectView(model.ViewAll, "")

	if s.Query() != "" {
		t.Errorf("Query() = %q after SelectView", s.Query())
	}
	if got := ids(s.Display()); len(got) != 3 {
		t.Errorf("Display() = %v, want full corpus", got)
	}
}

func TestBlankSearchClears(t *testing.T) {
	s, _ := newSession(t, nil, nil)
	s.Load(context.Background())
	s.Search(context.Background(), "latency")
	s.Search(context.Background(), "   ")

	if s.Query() != "" {
		t.Errorf("Query() = %q, want empty", s.Query())
	}
	if got := ids(s.Display()); !equal(got, []string{"a", "b"}) {
		t.Errorf("Display() = %v, want today view", got)
	}
}

func TestToggleFavoritePersists(t *testing.T) {
	st := openStore(t)
	s, _ := newSession(t, nil, st)
	s.Load(context.Background())

	if !s.ToggleFavorite("c") {
		t.Error("ToggleFavorite(c) = false, want true")
	}
	if !s.IsFavorite("c") {
		t.Error("IsFavorite(c) = false")
	}
	s.SelectView(model.ViewFavorites, "")
	if got := ids(s.Display()); !equal(got, []string{"c"}) {
		t.Errorf("favorites view = %v", got)
	}

	favs, err := st.Favorites()
	if err != nil || !favs.Has("c") {
		t.Errorf("stored favorites = %v, %v", favs.IDs(), err)
	}

	// A new session over the same store restores them.
	s2, _ := newSession(t, nil, st)
	s2.Load(context.Background())
	if !s2.IsFavorite("c") {
		t.Error("favorite not restored")
	}
}

func TestLocalePersistsAndToggles(t *testing.T) {
	st := openStore(t)
	s, _ := newSession(t, nil, st)
	s.Load(context.Background())

	if got := s.ToggleLocale(); got != "zh" {
		t.Errorf("ToggleLocale() = %q, want zh", got)
	}
	if got, _ := st.Locale(); got != "zh" {
		t.Errorf("stored locale = %q", got)
	}

	s2, _ := newSession(t, nil, st)
	s2.Load(context.Background())
	if s2.Locale() != "zh" {
		t.Errorf("restored locale = %q", s2.Locale())
	}
	if got := s2.ToggleLocale(); got != model.DefaultLocale {
		t.Errorf("ToggleLocale() = %q, want en", got)
	}
}

func TestTranslatedDisplay(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	tr := translate.TranslatorFunc(func(ctx context.Context, locale string, batch []translate.Entry) ([]translate.Entry, error) {
		out := make([]translate.Entry, 0, len(batch))
		mu.Lock()
		for _, e := range batch {
			seen = append(seen, e.ID)
			if e.ID == "b" {
				continue // provider omitted it
			}
			out = append(out, translate.Entry{ID: e.ID, Title: "译:" + e.Title})
		}
		mu.Unlock()
		return out, nil
	})

	s, _ := newSession(t, tr, nil)
	s.Load(context.Background())
	s.SetLocale("zh")

	waitFor(t, func() bool { return s.Display()[0].Title == "译:React server components" })
	waitFor(t, func() bool { return !s.Flags().Translating })

	got := s.Display()
	if got[1].Title != "Latency numbers" {
		t.Errorf("omitted item = %q, want original", got[1].Title)
	}
	if got[0].SourceName != "Coding Horror" {
		t.Errorf("empty translated field replaced original: %q", got[0].SourceName)
	}

	// Back to English shows originals without touching the cache.
	s.SetLocale(model.DefaultLocale)
	if s.Display()[0].Title != "React server components" {
		t.Errorf("default locale shows %q", s.Display()[0].Title)
	}

	mu.Lock()
	defer mu.Unlock()
	if !equal(seen, []string{"a", "b"}) {
		t.Errorf("translated ids = %v, want [a b]", seen)
	}
}

func TestTranslationFailureShowsOriginals(t *testing.T) {
	var calls atomic.Int32
	tr := translate.TranslatorFunc(func(ctx context.Context, locale string, batch []translate.Entry) ([]translate.Entry, error) {
		calls.Add(1)
		return nil, errors.New("quota exceeded")
	})

	s, _ := newSession(t, tr, nil)
	s.Load(context.Background())
	s.SetLocale("zh")

	waitFor(t, func() bool { return calls.Load() > 0 && !s.Flags().Translating })
	if got := s.Display(); got[0].Title != "React server components" {
		t.Errorf("Display()[0] = %q, want original", got[0].Title)
	}
}

func TestSearchResultsTranslated(t *testing.T) {
	tr := translate.TranslatorFunc(func(ctx context.Context, locale string, batch []translate.Entry) ([]translate.Entry, error) {
		out := make([]translate.Entry, len(batch))
		for i, e := range batch {
			out[i] = translate.Entry{ID: e.ID, Title: "译"}
		}
		return out, nil
	})

	s, _ := newSession(t, tr, nil)
	s.Load(context.Background())
	s.SetLocale("zh")
	s.Search(context.Background(), "react")

	waitFor(t, func() bool {
		got := s.Display()
		return len(got) == 2 && got[0].Title == "译" && got[1].Title == "译"
	})
	if got := s.Display(); got[0].Score != 1 {
		t.Errorf("score lost in translation: %v", got[0].Score)
	}
}

func TestOnUpdateCalled(t *testing.T) {
	var updates atomic.Int32
	s := New(Deps{Aggregator: &fakeAggregator{items: corpus()}, Sources: sources, Clock: clock},
		Options{OnUpdate: func() { updates.Add(1) }})
	defer s.Close()

	s.Load(context.Background())
	if updates.Load() == 0 {
		t.Error("OnUpdate not called on load")
	}
	if len(s.Sources()) != 2 {
		t.Errorf("Sources() = %v", s.Sources())
	}
}

func TestWaitTranslation(t *testing.T) {
	tr := translate.TranslatorFunc(func(ctx context.Context, locale string, batch []translate.Entry) ([]translate.Entry, error) {
		time.Sleep(20 * time.Millisecond)
		out := make([]translate.Entry, len(batch))
		for i, e := range batch {
			out[i] = translate.Entry{ID: e.ID, Title: "译"}
		}
		return out, nil
	})

	s, _ := newSession(t, tr, nil)
	s.Load(context.Background())
	s.SetLocale("zh")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.WaitTranslation(ctx); err != nil {
		t.Fatalf("WaitTranslation: %v", err)
	}
	for _, it := range s.Display() {
		if it.Title != "译" {
			t.Errorf("item %s not translated after wait: %q", it.ID, it.Title)
		}
	}
}

func TestWaitTranslationCancelled(t *testing.T) {
	block := make(chan struct{})
	tr := translate.TranslatorFunc(func(ctx context.Context, locale string, batch []translate.Entry) ([]translate.Entry, error) {
		<-block
		return nil, errors.New("cancelled")
	})

	s, _ := newSession(t, tr, nil)
	defer close(block)
	s.Load(context.Background())
	s.SetLocale("zh")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := s.WaitTranslation(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitTranslation() = %v, want deadline exceeded", err)
	}
}
