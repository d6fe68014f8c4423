package domain

import "fmt"

// Category partitions pools and rankings. There are exactly two.
type Category string

const (
	// CategoryFrench holds French-language releases.
	CategoryFrench Category = "french"
	// CategoryInternational holds everything else.
	CategoryInternational Category = "international"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryFrench, CategoryInternational}

// ParseCategory validates a category string.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryFrench, CategoryInternational:
		return Category(s), nil
	default:
		return "", fmt.Errorf("unknown category %q", s)
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c == CategoryFrench || c == CategoryInternational
}

// Album is an immutable display record resolved from a catalog provider.
// Two albums with the same ID are the same album.
type Album struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Artist      string   `json:"artist"`
	ReleaseYear int      `json:"release_year"`
	CoverURL    string   `json:"cover_url,omitempty"`
	Category    Category `json:"category"`
}
