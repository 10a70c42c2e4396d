package model

// Category tags a source for grouping in the sidebar.
type Category string

const (
	CategoryTech        Category = "tech"
	CategoryProgramming Category = "programming"
	CategoryGeneral     Category = "general"
)

// Source describes a configured feed. Sources are set at startup and never
// mutated afterwards.
type Source struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	URL      string   `yaml:"url"` // Fetch locator
	Category Category `yaml:"category"`
}

// SourceByID returns the source with the given ID, or false.
func SourceByID(sources []Source, id string) (Source, bool) {
	for _, s := range sources {
		if s.ID == id {
			return s, true
		}
	}
	return Source{}, false
}
