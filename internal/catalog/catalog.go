// Package catalog holds the static level catalog: the tracked level ids and
// their display titles.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"github.com/bytedance/sonic"
)

// LevelPrefix prefixes every normalized level id.
const LevelPrefix = "SP_"

// Level is a tracked level and its display title.
type Level struct {
	ID    string
	Title string
}

// Catalog maps level ids to display titles. It is read-only after Load.
type Catalog struct {
	ids    []string
	titles map[string]string
}

// New builds a catalog from ids (in tracking order) and an id -> title map.
// Ids are normalized to SP_<n>; duplicates are dropped.
func New(ids []string, titles map[string]string) *Catalog {
	c := &Catalog{
		ids:    make([]string, 0, len(ids)),
		titles: make(map[string]string, len(titles)),
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = Normalize(id)
		if _, dup := seen[id]; dup || id == LevelPrefix {
			continue
		}
		seen[id] = struct{}{}
		c.ids = append(c.ids, id)
	}
	for id, title := range titles {
		c.titles[Normalize(id)] = title
	}
	return c
}

// Load reads the ids file (JSON array of strings) and the titles file (JSON
// object id -> title).
func Load(idsPath, titlesPath string) (*Catalog, error) {
	var ids []string
	if err := readJSON(idsPath, &ids); err != nil {
		return nil, err
	}
	var titles map[string]string
	if err := readJSON(titlesPath, &titles); err != nil {
		return nil, err
	}
	return New(ids, titles), nil
}

func readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadCatalog, err)
	}
	if err := sonic.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrLoadCatalog, path, err)
	}
	return nil
}

// Normalize turns a bare level number into SP_<n>. Ids already carrying the
// prefix are returned unchanged.
func Normalize(id string) string {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(id, LevelPrefix) {
		return id
	}
	return LevelPrefix + id
}

// IDs returns the tracked level ids in catalog order.
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}

// Levels returns every tracked level with its title (empty when missing).
func (c *Catalog) Levels() []Level {
	out := make([]Level, len(c.ids))
	for i, id := range c.ids {
		out[i] = Level{ID: id, Title: c.titles[id]}
	}
	return out
}

// Title returns the display title of a level.
func (c *Catalog) Title(id string) (string, bool) {
	t, ok := c.titles[Normalize(id)]
	return t, ok
}

// TitleOr returns the display title or the raw id when none is known.
func (c *Catalog) TitleOr(id string) string {
	if t, ok := c.Title(id); ok {
		return t
	}
	return id
}

// Missing lists tracked levels without a title.
func (c *Catalog) Missing() []string {
	var out []string
	for _, id := range c.ids {
		if _, ok := c.titles[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// Len returns the number of tracked levels.
func (c *Catalog) Len() int { return len(c.ids) }
