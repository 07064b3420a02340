package models

// BookRecord is a catalog entry.
// Extra holds every catalog field other than id, author and year, passed through unchanged.
type BookRecord struct {
	ID      string         `json:"id" yaml:"id"`
	Author  string         `json:"author" yaml:"author"`
	YearRaw any            `json:"year_raw,omitempty" yaml:"year"`
	Extra   map[string]any `json:"extra,omitempty" yaml:"-"`
}

// NormalizedBook is a BookRecord with a sanitized year and canonical author-set key
type NormalizedBook struct {
	BookRecord
	Year      int    `json:"year"`
	AuthorSet string `json:"author_set"`
}
