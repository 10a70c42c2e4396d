package ui

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/nexus/internal/model"
)

// TimeBand returns a display string for grouping items by age.
func TimeBand(published, now time.Time) string {
	age := now.Sub(published)
	switch {
	case age < 15*time.Minute:
		return "Just Now"
	case age < 1*time.Hour:
		return "Past Hour"
	case age < 24*time.Hour:
		return "Today"
	case age < 48*time.Hour:
		return "Yesterday"
	default:
		return "Older"
	}
}

// StreamOptions controls how the item list is drawn.
type StreamOptions struct {
	Width, Height int
	// ShowBands groups items under time band headers. Off for search
	// results, which are ordered by score.
	ShowBands  bool
	ShowScores bool
	IsFavorite func(id string) bool
	Now        time.Time
}

// RenderStream renders the item list with the cursor kept in view.
func RenderStream(items []model.RankedItem, cursor int, opts StreamOptions) string {
	if len(items) == 0 {
		return HelpStyle.Render("No articles to display. Press 'r' to refresh or '2' for all articles.")
	}

	var b strings.Builder
	currentBand := ""
	renderedLines := 0

	availableHeight := opts.Height
	if availableHeight < 1 {
		availableHeight = 1
	}

	// The selected item takes a second line for its excerpt.
	scrollOffset := calcScrollOffset(items, cursor, max(availableHeight-1, 1), opts.ShowBands, opts.Now)

	for i, item := range items {
		if renderedLines >= availableHeight {
			break
		}

		// Track band state for skipped items too so headers are right
		// once the visible region starts.
		if opts.ShowBands {
			band := TimeBand(item.Time(), opts.Now)
			if band != currentBand {
				currentBand = band
				if i >= scrollOffset && renderedLines < availableHeight {
					b.WriteString(TimeBandHeader.Render(band))
					b.WriteString("\n")
					renderedLines++
				}
			}
		}

		if i < scrollOffset {
			continue
		}
		if renderedLines >= availableHeight {
			break
		}

		fav := opts.IsFavorite != nil && opts.IsFavorite(item.ID)
		line := renderItemLine(item, i == cursor, fav, opts)
		b.WriteString(line)
		b.WriteString("\n")
		renderedLines += strings.Count(line, "\n") + 1
	}

	return b.String()
}

// calcScrollOffset finds the smallest item index such that all visible lines
// from that index through the cursor (including band headers) fit within
// availableHeight.
func calcScrollOffset(items []model.RankedItem, cursor, availableHeight int, showBands bool, now time.Time) int {
	if len(items) == 0 || cursor < 0 {
		return 0
	}
	if cursor >= len(items) {
		cursor = len(items) - 1
	}

	offset := 0
	if cursor >= availableHeight {
		offset = cursor - availableHeight + 1
	}
	if !showBands {
		return offset
	}

	for offset <= cursor {
		if visibleLineCount(items, offset, cursor, now) <= availableHeight {
			return offset
		}
		offset++
	}
	return cursor
}

// visibleLineCount counts the lines items[from..to] render to, band
// headers included.
func visibleLineCount(items []model.RankedItem, from, to int, now time.Time) int {
	lines := 0
	currentBand := ""
	if from > 0 {
		currentBand = TimeBand(items[from-1].Time(), now)
	}
	for i := from; i <= to && i < len(items); i++ {
		band := TimeBand(items[i].Time(), now)
		if band != currentBand {
			currentBand = band
			lines++
		}
		lines++
	}
	return lines
}

// renderItemLine renders one item: star, source, title and age or score.
func renderItemLine(item model.RankedItem, selected, favorite bool, opts StreamOptions) string {
	star := "  "
	if favorite {
		star = FavoriteMark.Render("★") + " "
	}

	const sourceColWidth = 16
	source := truncate(item.SourceName, sourceColWidth)
	source += strings.Repeat(" ", sourceColWidth-utf8.RuneCountInString(source))
	sourceField := lipgloss.NewStyle().Foreground(sourcePaletteColor(item.SourceName)).Render(source)

	meta := formatAgeShort(item.Time(), opts.Now)
	if opts.ShowScores {
		meta = fmt.Sprintf("%.2f", item.Score)
	}
	const metaWidth = 8

	titleWidth := opts.Width - lipgloss.Width(star) - sourceColWidth - metaWidth - 4
	if titleWidth < 20 {
		titleWidth = 20
	}
	title := truncate(item.Title, titleWidth)

	style := NormalItem
	if selected {
		style = SelectedItem
	}
	styledTitle := style.Render(title)

	left := star + sourceField + " " + styledTitle
	pad := opts.Width - lipgloss.Width(left) - metaWidth
	if pad < 1 {
		pad = 1
	}
	line := left + strings.Repeat(" ", pad) + MetaItem.Render(fmt.Sprintf("%*s", metaWidth, meta))

	if selected && item.Excerpt != "" {
		line += "\n" + Excerpt.Render(truncate(item.Excerpt, opts.Width-6))
	}
	return line
}

// truncate shortens s to n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

func formatAgeShort(published, now time.Time) string {
	age := now.Sub(published)
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	}
}

func sourcePaletteColor(name string) lipgloss.Color {
	palette := []lipgloss.Color{
		lipgloss.Color("62"),
		lipgloss.Color("69"),
		lipgloss.Color("39"),
		lipgloss.Color("141"),
		lipgloss.Color("208"),
		lipgloss.Color("75"),
		lipgloss.Color("99"),
		lipgloss.Color("212"),
	}
	sum := 0
	for i := 0; i < len(name); i++ {
		sum += int(name[i])
	}
	return palette[sum%len(palette)]
}

// RenderHeader renders the title line with locale and progress indicator.
func RenderHeader(title, locale, progress string, width int) string {
	left := Header.Render("Nexus · " + title)
	right := HeaderMeta.Render(strings.TrimSpace(progress + " " + strings.ToUpper(locale)))
	pad := width - lipgloss.Width(left) - lipgloss.Width(right)
	if pad < 0 {
		pad = 0
	}
	return left + strings.Repeat(" ", pad) + right
}

// RenderStatusBar renders the bottom status bar with key hints and item count.
// A non-empty message replaces the position counter.
func RenderStatusBar(cursor, total int, width int, message string) string {
	position := fmt.Sprintf(" %d/%d ", cursor+1, total)
	if total == 0 {
		position = " 0/0 "
	}
	if message != "" {
		position = " " + message + " "
	}

	keys := []string{
		StatusBarKey.Render("1/2/3") + StatusBarText.Render(":today/all/fav"),
		StatusBarKey.Render("s") + StatusBarText.Render(":source"),
		StatusBarKey.Render("/") + StatusBarText.Render(":search"),
		StatusBarKey.Render("f") + StatusBarText.Render(":star"),
		StatusBarKey.Render("l") + StatusBarText.Render(":lang"),
		StatusBarKey.Render("r") + StatusBarText.Render(":refresh"),
		StatusBarKey.Render("q") + StatusBarText.Render(":quit"),
	}
	keyHints := strings.Join(keys, " ")

	padding := width - 2 - lipgloss.Width(position) - lipgloss.Width(keyHints) // -2 for bar padding
	if padding < 0 {
		padding = 0
	}

	bar := position + strings.Repeat(" ", padding) + keyHints
	return StatusBar.Width(width).Render(bar)
}

// RenderSearchBar renders the search input line with the result count.
func RenderSearchBar(input string, results int, width int, searching bool) string {
	status := SearchBarCount.Render(fmt.Sprintf(" %d results", results))
	if searching {
		status = SearchBarCount.Render(" searching...")
	}

	content := input + status
	padding := width - lipgloss.Width(content) - 2 // -2 for bar padding
	if padding < 0 {
		padding = 0
	}
	return SearchBar.Width(width).Render(content + strings.Repeat(" ", padding))
}
