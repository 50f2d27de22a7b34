package constants

import (
	"strings"
)

type Category string

const (
	Groceries     Category = "groceries"
	Restaurant    Category = "restaurant"
	Transport     Category = "transport"
	Entertainment Category = "entertainment"
	Shopping      Category = "shopping"
	Utilities     Category = "utilities"
	Healthcare    Category = "healthcare"
	Other         Category = "other"
)

// allCategories is ordered by classification priority; keyword-count ties
// resolve to the earlier entry.
var allCategories = []Category{
	Groceries,
	Restaurant,
	Transport,
	Entertainment,
	Shopping,
	Utilities,
	Healthcare,
	Other,
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Valid reports whether c is a member of the fixed taxonomy.
func (c Category) Valid() bool {
	for _, cat := range allCategories {
		if c == cat {
			return true
		}
	}
	return false
}

func Canonicalize(input string) (Category, bool) {
	if input == "" {
		return Other, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	// synonyms map
	synonyms := map[string]Category{
		"grocery":     Groceries,
		"supermarket": Groceries,
		"dining":      Restaurant,
		"cafe":        Restaurant,
		"food":        Restaurant,
		"gas":         Transport,
		"fuel":        Transport,
		"travel":      Transport,
		"movies":      Entertainment,
		"streaming":   Entertainment,
		"retail":      Shopping,
		"clothing":    Shopping,
		"bills":       Utilities,
		"utility":     Utilities,
		"medical":     Healthcare,
		"pharmacy":    Healthcare,
		"misc":        Other,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	// check if it matches any category string
	for _, cat := range allCategories {
		if normalized == strings.ToLower(string(cat)) {
			return cat, true
		}
	}

	return Other, false
}
