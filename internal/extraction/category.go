package extraction

import (
	"strings"

	"github.com/avelis/receiptlens/constants"
)

// categoryRule binds a taxonomy member to the keywords that vote for it.
type categoryRule struct {
	category constants.Category
	keywords []string
}

// defaultRules are ordered; keyword-count ties resolve to the earlier
// category. Matching is plain substring over the lowercased text.
var defaultRules = []categoryRule{
	{constants.Groceries, []string{
		"grocery", "supermarket", "walmart", "kroger", "safeway", "aldi",
		"whole foods", "trader joe", "costco", "produce", "dairy", "bakery", "deli",
	}},
	{constants.Restaurant, []string{
		"restaurant", "cafe", "coffee", "pizza", "burger", "diner", "grill",
		"sushi", "taco", "starbucks", "mcdonald", "chipotle", "kitchen", "bistro",
	}},
	{constants.Transport, []string{
		"gas", "fuel", "shell", "chevron", "exxon", "uber", "lyft", "taxi",
		"parking", "transit", "metro", "toll", "airline",
	}},
	{constants.Entertainment, []string{
		"cinema", "movie", "theater", "theatre", "netflix", "spotify",
		"concert", "arcade", "bowling", "museum",
	}},
	{constants.Shopping, []string{
		"target", "amazon", "best buy", "mall", "clothing", "shoes",
		"electronics", "home depot", "lowes", "ikea", "outlet",
	}},
	{constants.Utilities, []string{
		"electric", "water", "internet", "phone", "utility", "cable",
		"power", "energy", "broadband",
	}},
	{constants.Healthcare, []string{
		"pharmacy", "cvs", "walgreens", "clinic", "hospital", "doctor",
		"dental", "medical", "prescription",
	}},
}

// CategoryExtractor classifies receipts by keyword votes.
type CategoryExtractor struct {
	rules []categoryRule
}

func NewCategoryExtractor() *CategoryExtractor {
	return &CategoryExtractor{rules: defaultRules}
}

// Extract returns the category whose keywords hit the text most often.
// Ties keep the higher-priority category; zero hits mean Other with zero
// confidence.
func (e *CategoryExtractor) Extract(text string) (constants.Category, float32) {
	lower := strings.ToLower(Normalize(text))

	best := constants.Other
	bestHits := 0
	for _, rule := range e.rules {
		hits := 0
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			best = rule.category
		}
	}

	if bestHits == 0 {
		return constants.Other, 0
	}
	confidence := 0.55 + 0.15*float32(bestHits-1)
	if confidence > 0.95 {
		confidence = 0.95
	}
	return best, confidence
}
