package translate

import (
	"context"
	"sync"
	"time"

	"github.com/abelbrown/nexus/internal/logging"
	"github.com/abelbrown/nexus/internal/model"
)

// DefaultBatchSize is the number of items sent per translation request.
const DefaultBatchSize = 10

// DefaultDebounce is the quiet period before a fill pass starts.
const DefaultDebounce = 500 * time.Millisecond

// State is the filler's lifecycle state.
type State int

const (
	Idle State = iota
	Scheduled
	Filling
)

func (s State) String() string {
	switch s {
	case Scheduled:
		return "scheduled"
	case Filling:
		return "filling"
	default:
		return "idle"
	}
}

// Options configures a Filler.
type Options struct {
	BatchSize int
	Debounce  time.Duration
	// OnUpdate is called after each merged batch and on every state change.
	// It runs on the filler's goroutine and must not block.
	OnUpdate func()
}

// Filler translates the current display set in the background.
//
// Display-set changes re-arm a single-slot debounce timer. When it
// expires a pass translates whatever is missing from the locale's cache,
// batch by batch. Passes never overlap: a timer that fires mid-pass sets
// a recheck flag and the running pass loops once more when done.
type Filler struct {
	translator Translator
	batchSize  int
	debounce   time.Duration
	onUpdate   func()

	mu      sync.Mutex
	caches  map[string]*Cache
	items   []model.Item
	locale  string
	state   State
	timer   *time.Timer
	timerID uint64 // identifies the armed timer; stale fires are ignored
	running bool
	recheck bool
	closed  bool
	wg      sync.WaitGroup
}

// NewFiller creates a Filler. A nil translator yields a filler that
// schedules passes but leaves every item untranslated.
func NewFiller(t Translator, opts Options) *Filler {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &Filler{
		translator: t,
		batchSize:  opts.BatchSize,
		debounce:   opts.Debounce,
		onUpdate:   opts.OnUpdate,
		caches:     make(map[string]*Cache),
		locale:     model.DefaultLocale,
	}
}

// Cache returns the cache for locale, creating it on first use.
func (f *Filler) Cache(locale string) *Cache {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cacheLocked(locale)
}

func (f *Filler) cacheLocked(locale string) *Cache {
	c, ok := f.caches[locale]
	if !ok {
		c = NewCache()
		f.caches[locale] = c
	}
	return c
}

// Resolve returns items with cached translations for locale substituted.
// The default locale returns items unchanged.
func (f *Filler) Resolve(items []model.Item, locale string) []model.Item {
	if model.IsDefaultLocale(locale) {
		return items
	}
	return f.Cache(locale).Resolve(items)
}

// Notify records the latest display set. For a non-default locale it
// (re)arms the debounce timer; for the default locale it cancels any
// pending pass.
func (f *Filler) Notify(items []model.Item, locale string) {
	snapshot := make([]model.Item, len(items))
	copy(snapshot, items)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.items = snapshot
	f.locale = locale

	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.timerID++

	changed := false
	if model.IsDefaultLocale(locale) {
		if !f.running && f.state != Idle {
			f.state = Idle
			changed = true
		}
	} else {
		id := f.timerID
		f.timer = time.AfterFunc(f.debounce, func() { f.fire(id) })
		if !f.running && f.state != Scheduled {
			f.state = Scheduled
			changed = true
		}
	}
	f.mu.Unlock()

	if changed {
		f.notifyUpdate()
	}
}

// fire runs when the debounce timer with the given id expires. A timer
// that was superseded while it waited for the lock does nothing.
func (f *Filler) fire(id uint64) {
	f.mu.Lock()
	if f.closed || id != f.timerID {
		f.mu.Unlock()
		return
	}
	f.timer = nil
	if f.running {
		f.recheck = true
		f.mu.Unlock()
		return
	}
	f.running = true
	f.state = Filling
	f.wg.Add(1)
	f.mu.Unlock()

	f.notifyUpdate()
	defer f.wg.Done()
	f.run()
}

// run executes passes until no recheck is pending.
func (f *Filler) run() {
	for {
		f.pass()

		f.mu.Lock()
		again := f.recheck && !f.closed
		f.recheck = false
		if !again {
			f.running = false
			if f.timer != nil {
				f.state = Scheduled
			} else {
				f.state = Idle
			}
		}
		f.mu.Unlock()

		if !again {
			f.notifyUpdate()
			return
		}
	}
}

// pass translates the uncached part of the latest display set.
func (f *Filler) pass() {
	f.mu.Lock()
	items, locale := f.items, f.locale
	cache := f.cacheLocked(locale)
	f.mu.Unlock()

	if model.IsDefaultLocale(locale) {
		return
	}
	missing := cache.Missing(items)
	if len(missing) == 0 {
		return
	}
	if f.translator == nil {
		logging.Debug("translation skipped, no translator", "items", len(missing))
		return
	}

	logging.Info("translation pass", "locale", locale, "items", len(missing))
	start := time.Now()
	translated := 0
	for i := 0; i < len(missing); i += f.batchSize {
		end := i + f.batchSize
		if end > len(missing) {
			end = len(missing)
		}
		batch := missing[i:end]

		// Provider calls run to completion; Close waits rather than cancels.
		resp, err := f.translator.Translate(context.Background(), locale, Entries(batch))
		if err != nil {
			logging.Warn("translation batch failed", "locale", locale, "batch", i/f.batchSize, "items", len(batch), "error", err)
			continue
		}
		cache.Merge(Merge(batch, resp))
		translated += len(batch)
		f.notifyUpdate()
	}
	logging.Info("translation pass complete", "locale", locale, "translated", translated, "missing", len(missing), "duration", time.Since(start))
}

func (f *Filler) notifyUpdate() {
	if f.onUpdate != nil {
		f.onUpdate()
	}
}

// State returns the current lifecycle state.
func (f *Filler) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Translating reports whether a pass is running.
func (f *Filler) Translating() bool {
	return f.State() == Filling
}

// Close stops the debounce timer and waits for a running pass to finish.
func (f *Filler) Close() {
	f.mu.Lock()
	f.closed = true
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.mu.Unlock()
	f.wg.Wait()
}
