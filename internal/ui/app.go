package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/nexus/internal/model"
	"github.com/abelbrown/nexus/internal/session"
)

// Backend is the session surface the TUI drives. *session.Session
// implements it.
type Backend interface {
	Load(ctx context.Context)
	Refresh(ctx context.Context)
	Display() []model.RankedItem
	IsFavorite(id string) bool
	ToggleFavorite(id string) bool
	SelectView(view model.View, sourceID string)
	Selector() model.Selector
	Search(ctx context.Context, query string)
	ClearSearch()
	Query() string
	ToggleLocale() string
	Locale() string
	Flags() session.Flags
	Sources() []model.Source
	Title() string
}

// App is the root Bubble Tea model.
// IMPORTANT: App owns no pipeline state. It re-reads Display from the
// backend whenever a message says the display set changed.
type App struct {
	backend Backend
	ctx     context.Context
	now     func() time.Time

	items   []model.RankedItem
	cursor  int
	width   int
	height  int
	ready   bool
	message string

	input     textinput.Model
	inputOpen bool
	spinner   spinner.Model
}

// NewApp creates a new App over backend. ctx bounds load, refresh and
// search commands.
func NewApp(ctx context.Context, backend Backend) App {
	ti := textinput.New()
	ti.Placeholder = "Semantic search..."
	ti.Prompt = "/ "
	ti.PromptStyle = lipgloss.NewStyle().Foreground(colorHighlight).Bold(true)
	ti.CharLimit = 200

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorHighlight)

	return App{
		backend: backend,
		ctx:     ctx,
		now:     time.Now,
		input:   ti,
		spinner: s,
	}
}

// Init starts the initial load and the spinner.
func (a App) Init() tea.Cmd {
	return tea.Batch(a.loadCmd(), a.spinner.Tick)
}

func (a App) loadCmd() tea.Cmd {
	b, ctx := a.backend, a.ctx
	return func() tea.Msg {
		b.Load(ctx)
		return Loaded{}
	}
}

func (a App) refreshCmd() tea.Cmd {
	b, ctx := a.backend, a.ctx
	return func() tea.Msg {
		b.Refresh(ctx)
		return Refreshed{}
	}
}

func (a App) searchCmd(query string) tea.Cmd {
	b, ctx := a.backend, a.ctx
	return func() tea.Msg {
		b.Search(ctx, query)
		return SearchDone{Query: query}
	}
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if a.inputOpen {
			return a.handleInputKey(msg)
		}
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = msg.Width - 20
		a.ready = true
		return a, nil

	case Loaded, Refreshed, DisplayChanged:
		a.sync()
		return a, nil

	case SearchDone:
		a.cursor = 0
		a.sync()
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	return a, nil
}

// sync re-reads the display set and clamps the cursor.
func (a *App) sync() {
	a.items = a.backend.Display()
	if a.cursor >= len(a.items) {
		a.cursor = len(a.items) - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

// resetTo switches what is displayed and puts the cursor on top.
func (a *App) resetTo() {
	a.cursor = 0
	a.message = ""
	a.sync()
}

func (a App) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		query := a.input.Value()
		a.inputOpen = false
		a.input.Blur()
		if query == "" {
			a.backend.ClearSearch()
			a.resetTo()
			return a, nil
		}
		return a, a.searchCmd(query)

	case tea.KeyEsc:
		a.inputOpen = false
		a.input.Blur()
		a.input.SetValue("")
		a.backend.ClearSearch()
		a.resetTo()
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// handleKeyMsg processes keyboard input.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit

	case "j", "down":
		if a.cursor < len(a.items)-1 {
			a.cursor++
		}
		return a, nil

	case "k", "up":
		if a.cursor > 0 {
			a.cursor--
		}
		return a, nil

	case "g", "home":
		a.cursor = 0
		return a, nil

	case "G", "end":
		if len(a.items) > 0 {
			a.cursor = len(a.items) - 1
		}
		return a, nil

	case "1":
		a.backend.SelectView(model.ViewToday, "")
		a.resetTo()
		return a, nil

	case "2":
		a.backend.SelectView(model.ViewAll, "")
		a.resetTo()
		return a, nil

	case "3":
		a.backend.SelectView(model.ViewFavorites, "")
		a.resetTo()
		return a, nil

	case "s":
		a.backend.SelectView(model.ViewSource, a.nextSource())
		a.resetTo()
		return a, nil

	case "/":
		a.inputOpen = true
		a.input.SetValue(a.backend.Query())
		a.input.CursorEnd()
		cmd := a.input.Focus()
		return a, cmd

	case "esc":
		a.input.SetValue("")
		a.backend.ClearSearch()
		a.resetTo()
		return a, nil

	case "f":
		if item, ok := a.selected(); ok {
			if a.backend.ToggleFavorite(item.ID) {
				a.message = "★ saved"
			} else {
				a.message = "removed from favorites"
			}
			a.sync()
		}
		return a, nil

	case "l":
		locale := a.backend.ToggleLocale()
		a.message = "language: " + locale
		a.sync()
		return a, nil

	case "r":
		return a, a.refreshCmd()

	case "enter":
		if item, ok := a.selected(); ok {
			a.message = item.Link
		}
		return a, nil
	}

	return a, nil
}

// nextSource returns the source after the one currently shown, wrapping.
func (a App) nextSource() string {
	sources := a.backend.Sources()
	if len(sources) == 0 {
		return ""
	}
	sel := a.backend.Selector()
	if sel.View != model.ViewSource {
		return sources[0].ID
	}
	for i, s := range sources {
		if s.ID == sel.SourceID {
			return sources[(i+1)%len(sources)].ID
		}
	}
	return sources[0].ID
}

func (a App) selected() (model.RankedItem, bool) {
	if a.cursor < 0 || a.cursor >= len(a.items) {
		return model.RankedItem{}, false
	}
	return a.items[a.cursor], true
}

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}

	flags := a.backend.Flags()
	progress := ""
	switch {
	case flags.Loading:
		progress = a.spinner.View() + " fetching feeds"
	case flags.Searching:
		progress = a.spinner.View() + " searching"
	case flags.Translating:
		progress = a.spinner.View() + " translating"
	}

	header := RenderHeader(a.backend.Title(), a.backend.Locale(), progress, a.width)

	searchActive := a.inputOpen || a.backend.Query() != ""
	contentHeight := a.height - 2
	searchBar := ""
	if searchActive {
		input := a.input.View()
		if !a.inputOpen {
			input = "/ " + a.backend.Query()
		}
		searchBar = RenderSearchBar(input, len(a.items), a.width, flags.Searching) + "\n"
		contentHeight--
	}

	stream := RenderStream(a.items, a.cursor, StreamOptions{
		Width:      a.width,
		Height:     contentHeight,
		ShowBands:  !searchActive,
		ShowScores: searchActive,
		IsFavorite: a.backend.IsFavorite,
		Now:        a.now(),
	})

	status := RenderStatusBar(a.cursor, len(a.items), a.width, a.message)

	return header + "\n" + searchBar + stream + status
}

// Cursor returns the current cursor position (for testing).
func (a App) Cursor() int {
	return a.cursor
}

// Items returns the current items (for testing).
func (a App) Items() []model.RankedItem {
	return a.items
}
