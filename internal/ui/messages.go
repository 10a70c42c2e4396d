// Package ui provides the Bubble Tea TUI for Nexus.
package ui

// Loaded is sent when the initial aggregation finishes.
type Loaded struct{}

// Refreshed is sent when a manual refresh finishes.
type Refreshed struct{}

// SearchDone is sent when a search query has been ranked.
type SearchDone struct {
	Query string
}

// DisplayChanged is sent from background work (translation batches) that
// changed what the session displays.
type DisplayChanged struct{}
