// Package catalog parses gallery indexes and serves their categories and
// items, sorted, filtered and paginated.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"sort"

	"face-gallery/internal/config"
	"face-gallery/internal/domain/gallery"
)

// Catalog is one parsed gallery index
type Catalog struct {
	categories  []string
	byCategory  map[string][]gallery.Item
	byPath      map[string]gallery.Item
	dateUpdated string
}

type indexFile struct {
	Img         map[string]json.RawMessage `json:"img"`
	DateUpdated string                     `json:"date_updated,omitempty"`
}

type imageNode struct {
	FaceScores     []float64 `json:"face_scores"`
	LandmarkScores []float64 `json:"face_landmark_scores_68"`
	Like           bool      `json:"like"`
}

const imageMarker = "face_scores"

// ApplyReplaceRules rewrites the raw index text, rule by rule, in order
func ApplyReplaceRules(raw []byte, rules []config.ReplaceRule) []byte {
	for _, r := range rules {
		raw = bytes.ReplaceAll(raw, []byte(r.Old), []byte(r.New))
	}
	return raw
}

// Parse builds a Catalog from raw index JSON after applying rules
func Parse(raw []byte, rules []config.ReplaceRule) (*Catalog, error) {
	var idx indexFile
	if err := json.Unmarshal(ApplyReplaceRules(raw, rules), &idx); err != nil {
		return nil, fmt.Errorf("failed to parse gallery index: %w", err)
	}

	c := &Catalog{
		byCategory:  make(map[string][]gallery.Item),
		byPath:      make(map[string]gallery.Item),
		dateUpdated: idx.DateUpdated,
	}

	for _, base := range sortedKeys(idx.Img) {
		baseAbs, err := filepath.Abs(filepath.Clean(base))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve base %q: %w", base, err)
		}
		if err := c.walk(idx.Img[base], "", baseAbs); err != nil {
			return nil, err
		}
	}

	c.categories = make([]string, 0, len(c.byCategory))
	for name := range c.byCategory {
		c.categories = append(c.categories, name)
	}
	sort.Strings(c.categories)

	return c, nil
}

// walk visits a directory node. Objects holding face_scores are images;
// every other object is a subdirectory. Non-object values are ignored.
func (c *Catalog) walk(raw json.RawMessage, rel, baseAbs string) error {
	node, ok := asObject(raw)
	if !ok {
		return nil
	}

	for _, key := range sortedKeys(node) {
		child, ok := asObject(node[key])
		if !ok {
			continue
		}

		if _, isImage := child[imageMarker]; !isImage {
			if err := c.walk(node[key], path.Join(rel, key), baseAbs); err != nil {
				return err
			}
			continue
		}

		var img imageNode
		if err := json.Unmarshal(node[key], &img); err != nil {
			return fmt.Errorf("invalid image entry %q: %w", path.Join(rel, key), err)
		}
		if len(img.FaceScores) == 0 {
			continue
		}

		category := rel
		if category == "" {
			category = filepath.Base(baseAbs)
		}

		item := gallery.Item{
			Path:           filepath.Clean(filepath.Join(baseAbs, filepath.FromSlash(rel), key)),
			Filename:       key,
			Category:       category,
			FaceScores:     img.FaceScores,
			LandmarkScores: img.LandmarkScores,
			Liked:          img.Like,
		}
		c.byCategory[category] = append(c.byCategory[category], item)
		c.byPath[item.Path] = item
	}

	return nil
}

func asObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Categories returns every category name, sorted
func (c *Catalog) Categories() []string {
	return append([]string(nil), c.categories...)
}

// Items returns the items of a category. The empty category is every item in
// category order; _favorites and _unfavorites filter on the like flag.
func (c *Catalog) Items(category string) []gallery.Item {
	switch category {
	case "":
		return c.filter(func(gallery.Item) bool { return true })
	case gallery.CategoryFavorites:
		return c.filter(func(it gallery.Item) bool { return it.Liked })
	case gallery.CategoryUnfavorites:
		return c.filter(func(it gallery.Item) bool { return !it.Liked })
	default:
		return append([]gallery.Item{}, c.byCategory[category]...)
	}
}

func (c *Catalog) filter(keep func(gallery.Item) bool) []gallery.Item {
	items := []gallery.Item{}
	for _, name := range c.categories {
		for _, it := range c.byCategory[name] {
			if keep(it) {
				items = append(items, it)
			}
		}
	}
	return items
}

// Thumbnail returns the first item of a category
func (c *Catalog) Thumbnail(category string) (gallery.Item, bool) {
	items := c.byCategory[category]
	if len(items) == 0 {
		return gallery.Item{}, false
	}
	return items[0], true
}

// Find returns the item stored under an absolute path
func (c *Catalog) Find(itemPath string) (gallery.Item, bool) {
	it, ok := c.byPath[filepath.Clean(itemPath)]
	return it, ok
}

// Len is the number of displayable items
func (c *Catalog) Len() int {
	return len(c.byPath)
}

// DateUpdated is the last modification stamp recorded in the index
func (c *Catalog) DateUpdated() string {
	return c.dateUpdated
}
