package model

import "fmt"

// View is the navigation mode used by the view filter.
type View string

const (
	ViewToday     View = "today"
	ViewAll       View = "all"
	ViewFavorites View = "favorites"
	ViewSource    View = "source"
)

// ParseView converts a string to a View.
func ParseView(s string) (View, error) {
	switch v := View(s); v {
	case ViewToday, ViewAll, ViewFavorites, ViewSource:
		return v, nil
	}
	return "", fmt.Errorf("unknown view %q", s)
}

// Selector is a view plus the source it applies to (ViewSource only).
type Selector struct {
	View     View
	SourceID string
}

// DefaultLocale is the locale feeds are published in; it never goes through
// the translation cache.
const DefaultLocale = "en"

// IsDefaultLocale reports whether locale needs no translation.
func IsDefaultLocale(locale string) bool {
	return locale == "" || locale == DefaultLocale
}
