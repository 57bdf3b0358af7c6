// Package catalog holds the fixed, ordered set of wallpaper categories and
// the search keyword used to fill each of them.
package catalog

import (
	"fmt"
	"strings"

	"github.com/JakeFAU/birdwall/internal/wallpaper"
)

// Catalog is an ordered, read-only list of categories.
type Catalog struct {
	categories []wallpaper.Category
}

// Default returns the built-in device categories in definition order.
func Default() []wallpaper.Category {
	return []wallpaper.Category{
		{Name: "mobile", Keyword: "mobile wallpaper bird"},
		{Name: "tablet", Keyword: "tablet wallpaper bird"},
		{Name: "other_mobile", Keyword: "phone wallpaper bird"},
		{Name: "other_tablet", Keyword: "tablet highres bird"},
	}
}

// New validates categories and freezes them into a Catalog.
func New(categories []wallpaper.Category) (Catalog, error) {
	if err := Validate(categories); err != nil {
		return Catalog{}, err
	}
	out := make([]wallpaper.Category, len(categories))
	copy(out, categories)
	return Catalog{categories: out}, nil
}

// Validate checks that the list is non-empty and names are present, unique and path safe.
func Validate(categories []wallpaper.Category) error {
	if len(categories) == 0 {
		return fmt.Errorf("catalog must include at least one category")
	}
	seen := make(map[string]struct{}, len(categories))
	for i, c := range categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return fmt.Errorf("catalog[%d].name must be set", i)
		}
		if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
			return fmt.Errorf("catalog[%d].name %q must not contain path separators", i, name)
		}
		if strings.TrimSpace(c.Keyword) == "" {
			return fmt.Errorf("catalog[%d].keyword must be set for %q", i, name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("catalog[%d].name %q is duplicated", i, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// Categories returns a copy of the categories in iteration order.
func (c Catalog) Categories() []wallpaper.Category {
	out := make([]wallpaper.Category, len(c.categories))
	copy(out, c.categories)
	return out
}

// Names returns the category names in iteration order.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c.categories))
	for _, cat := range c.categories {
		names = append(names, cat.Name)
	}
	return names
}

// Len reports the number of categories.
func (c Catalog) Len() int {
	return len(c.categories)
}
