// Package presets provides the built-in catalog of habit presets.
package presets

import (
	_ "embed"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

//go:embed presets.toml
var catalogTOML string

// Item is a single preset habit.
type Item struct {
	Name        string `toml:"name" json:"name" yaml:"name"`
	Description string `toml:"description" json:"description" yaml:"description"`
}

// Category groups presets, e.g. "#Morning".
type Category struct {
	Name  string `toml:"name" json:"name" yaml:"name"`
	Items []Item `toml:"item" json:"items" yaml:"items"`
}

// Catalog is a set of preset categories.
type Catalog struct {
	Categories []Category `toml:"category"`
}

// Parse decodes a TOML catalog.
func Parse(data string) (Catalog, error) {
	var c Catalog
	md, err := toml.Decode(data, &c)
	if err != nil {
		return Catalog{}, fmt.Errorf("invalid preset catalog: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Catalog{}, fmt.Errorf("invalid preset catalog: unknown key %s", undecoded[0])
	}
	return c, nil
}

var builtin = sync.OnceValues(func() (Catalog, error) {
	return Parse(catalogTOML)
})

// Builtin returns the embedded catalog.
func Builtin() Catalog {
	c, err := builtin()
	if err != nil {
		// The embedded file is covered by tests.
		panic(err)
	}
	return c
}

// Names returns the category names, sorted.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c.Categories))
	for _, cat := range c.Categories {
		names = append(names, cat.Name)
	}
	sort.Strings(names)
	return names
}

// Category finds a category by name, ignoring case and the leading '#'.
func (c Catalog) Category(name string) (Category, bool) {
	want := normalize(name)
	for _, cat := range c.Categories {
		if normalize(cat.Name) == want {
			return cat, true
		}
	}
	return Category{}, false
}

// Lookup returns the n-th (1-based) item of a category.
func (c Catalog) Lookup(category string, n int) (Item, error) {
	cat, ok := c.Category(category)
	if !ok {
		return Item{}, fmt.Errorf("unknown preset category: %s (want one of %s)", category, strings.Join(c.Names(), ", "))
	}
	if n < 1 || n > len(cat.Items) {
		return Item{}, fmt.Errorf("preset %d out of range (%s has %d)", n, cat.Name, len(cat.Items))
	}
	return cat.Items[n-1], nil
}

// ParseRef splits a "category:n" reference such as "morning:3".
func ParseRef(ref string) (category string, n int, err error) {
	category, num, ok := strings.Cut(ref, ":")
	if !ok || strings.TrimSpace(category) == "" {
		return "", 0, fmt.Errorf("invalid preset: %q (want category:number)", ref)
	}
	n, err = strconv.Atoi(strings.TrimSpace(num))
	if err != nil {
		return "", 0, fmt.Errorf("invalid preset number: %q", num)
	}
	return strings.TrimSpace(category), n, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "#"))
}
