package analytics

import (
	"strings"

	"github.com/avelis/receiptlens/internal/common"
)

// SearchStrategy selects one of the interchangeable search implementations.
type SearchStrategy string

const (
	SearchLinear  SearchStrategy = "linear"
	SearchBinary  SearchStrategy = "binary"
	SearchHash    SearchStrategy = "hash"
	SearchFuzzy   SearchStrategy = "fuzzy"
	SearchPattern SearchStrategy = "pattern"
	SearchRange   SearchStrategy = "range"
)

// SortAlgorithm selects one of the interchangeable sort implementations.
// All of them produce the same observable output for the same input.
type SortAlgorithm string

const (
	SortQuick    SortAlgorithm = "quicksort"
	SortMerge    SortAlgorithm = "mergesort"
	SortHeap     SortAlgorithm = "heapsort"
	SortAdaptive SortAlgorithm = "adaptive"
)

// Direction orders sort output.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

func ParseSearchStrategy(s string) (SearchStrategy, error) {
	switch st := SearchStrategy(strings.ToLower(strings.TrimSpace(s))); st {
	case SearchLinear, SearchBinary, SearchHash, SearchFuzzy, SearchPattern, SearchRange:
		return st, nil
	}
	return "", common.NewAppError("ANALYTICS_BAD_STRATEGY", "unknown search strategy "+s, common.ErrInvalidInput)
}

func ParseSortAlgorithm(s string) (SortAlgorithm, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if normalized == "" {
		return SortAdaptive, nil
	}
	switch alg := SortAlgorithm(normalized); alg {
	case SortQuick, SortMerge, SortHeap, SortAdaptive:
		return alg, nil
	}
	return "", common.NewAppError("ANALYTICS_BAD_ALGORITHM", "unknown sort algorithm "+s, common.ErrInvalidInput)
}

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return "", common.NewAppError("ANALYTICS_BAD_DIRECTION", "unknown sort direction "+s, common.ErrInvalidInput)
}
