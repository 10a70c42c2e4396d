package fetch

import "github.com/abelbrown/nexus/internal/model"

// DefaultSources returns the curated engineering feeds used when no config
// file lists any.
func DefaultSources() []model.Source {
	return []model.Source{
		{ID: "1", Name: "Joel on Software", URL: "https://www.joelonsoftware.com/feed/", Category: model.CategoryProgramming},
		{ID: "2", Name: "Coding Horror", URL: "https://blog.codinghorror.com/rss/", Category: model.CategoryProgramming},
		{ID: "3", Name: "Paul Graham", URL: "http://www.aaronsw.com/2002/feeds/pgessays.rss", Category: model.CategoryTech},
		{ID: "4", Name: "Dan Luu", URL: "https://danluu.com/atom.xml", Category: model.CategoryTech},
		{ID: "5", Name: "A List Apart", URL: "https://alistapart.com/main/feed/", Category: model.CategoryTech},
		{ID: "6", Name: "CSS-Tricks", URL: "https://css-tricks.com/feed/", Category: model.CategoryProgramming},
		{ID: "7", Name: "Smashing Magazine", URL: "https://www.smashingmagazine.com/feed/", Category: model.CategoryTech},
		{ID: "8", Name: "Hacker News (Top)", URL: "https://hnrss.org/newest?points=100", Category: model.CategoryTech},
	}
}
