package catalog

import (
	"slices"
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Catalog is an immutable index over categories and their events.
// Returned pointers refer to the index and must not be mutated.
type Catalog struct {
	categories []Category
	byID       map[string]int
}

func NewCatalog(categories []Category) *Catalog {
	c := &Catalog{
		categories: slices.Clone(categories),
		byID:       make(map[string]int, len(categories)),
	}
	for i, cat := range c.categories {
		c.byID[cat.ID] = i
	}
	return c
}

func (c *Catalog) Categories() []Category {
	return slices.Clone(c.categories)
}

func (c *Catalog) FindCategory(id string) *Category {
	i, ok := c.byID[id]
	if !ok {
		return nil
	}
	return &c.categories[i]
}

func (c *Catalog) FindEvent(categoryID, eventID string) *EventDefinition {
	cat := c.FindCategory(categoryID)
	if cat == nil {
		return nil
	}
	return cat.Event(eventID)
}

// EventMatch is one fuzzy search hit.
type EventMatch struct {
	CategoryID   string          `json:"categoryId"`
	CategoryName string          `json:"categoryName"`
	Event        EventDefinition `json:"event"`
	Rank         int             `json:"rank"`
}

var normalizer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func normalize(s string) string {
	out, _, err := transform.String(normalizer, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// SearchEvents finds events whose name or id fuzzily contains query,
// best (lowest Levenshtein distance) first. limit <= 0 means no limit.
func (c *Catalog) SearchEvents(query string, limit int) []EventMatch {
	q := normalize(query)
	if q == "" {
		return nil
	}

	var matches []EventMatch
	for _, cat := range c.categories {
		for _, ev := range cat.Events {
			name := normalize(ev.Name)
			id := normalize(ev.ID)
			if !fuzzy.Match(q, name) && !fuzzy.Match(q, id) {
				continue
			}
			matches = append(matches, EventMatch{
				CategoryID:   cat.ID,
				CategoryName: cat.Name,
				Event:        ev,
				Rank:         min(fuzzy.LevenshteinDistance(q, name), fuzzy.LevenshteinDistance(q, id)),
			})
		}
	}

	slices.SortStableFunc(matches, func(a, b EventMatch) int {
		return a.Rank - b.Rank
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
