// Package filter implements the keyword classifier for feed items.
package filter

import (
	"strings"

	"city_bot/internal/catalog"
)

// Item is the text of a feed item to be classified.
type Item struct {
	Title       string
	Description string
}

// Classify checks whether an item belongs to the requested category and
// returns the name of the category it matched.
//
// For a specific category, any exclude keyword in the title or description
// rejects the item before keywords are checked. For catalog.Any the item is
// assigned to the first category, in declared order, whose keywords match;
// exclude keywords are not consulted on that path.
func Classify(item Item, set *catalog.Set, category string) (string, bool) {
	text := normalize(item)

	if category == catalog.Any {
		for _, r := range set.Rules() {
			if text.containsAny(r.Keywords) {
				return r.Name, true
			}
		}
		return "", false
	}

	r, ok := set.Rule(category)
	if !ok {
		return "", false
	}
	if text.containsAny(r.ExcludeKeywords) {
		return "", false
	}
	if text.containsAny(r.Keywords) {
		return r.Name, true
	}
	return "", false
}

type lowered struct {
	title       string
	description string
}

func normalize(item Item) lowered {
	return lowered{
		title:       catalog.Lower(item.Title),
		description: catalog.Lower(item.Description),
	}
}

func (l lowered) containsAny(keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(l.title, kw) || strings.Contains(l.description, kw) {
			return true
		}
	}
	return false
}
