package analytics

import (
	"regexp"
	"strings"
	"time"

	"github.com/avelis/receiptlens/constants"
	"github.com/avelis/receiptlens/internal/entity"
)

// SearchQuery carries the operands for one search call. Keyword serves the
// text strategies, Pattern the regex strategy, and the bound pairs serve
// range lookups on amount and transaction date.
type SearchQuery struct {
	Field     constants.Field
	Keyword   string
	Pattern   string
	MinAmount *float64
	MaxAmount *float64
	FromDate  *time.Time
	ToDate    *time.Time
}

type searchFunc func(records []*entity.Record, q SearchQuery) ([]*entity.Record, error)

// searchFuncs is the fixed strategy table, built once at package init.
var searchFuncs = map[SearchStrategy]searchFunc{
	SearchLinear:  linearSearch,
	SearchBinary:  binarySearch,
	SearchHash:    hashSearch,
	SearchFuzzy:   fuzzySearch,
	SearchPattern: patternSearch,
	SearchRange:   rangeSearch,
}

func isTextField(field constants.Field) bool {
	switch field {
	case constants.FieldVendor, constants.FieldCategory, constants.FieldRawText:
		return true
	}
	return false
}

func isExactField(field constants.Field) bool {
	return field == constants.FieldVendor || field == constants.FieldCategory
}

// textFieldValue returns the string form of a text field, false when the
// record does not carry it.
func textFieldValue(rec *entity.Record, field constants.Field) (string, bool) {
	switch field {
	case constants.FieldVendor:
		if rec.Vendor == nil {
			return "", false
		}
		return *rec.Vendor, true
	case constants.FieldCategory:
		return string(rec.Category), true
	case constants.FieldRawText:
		return rec.RawText, true
	}
	return "", false
}

// expandTextFields turns the empty field into the full text-field set so a
// bare keyword query covers vendor, category and raw text at once.
func expandTextFields(field constants.Field) []constants.Field {
	if field == "" {
		return []constants.Field{constants.FieldVendor, constants.FieldCategory, constants.FieldRawText}
	}
	return []constants.Field{field}
}

// linearSearch scans every record for a case-insensitive substring hit.
// Output keeps input order.
func linearSearch(records []*entity.Record, q SearchQuery) ([]*entity.Record, error) {
	if q.Field != "" && !isTextField(q.Field) {
		return nil, &UnsupportedFieldError{Operation: string(SearchLinear) + " search", Field: q.Field}
	}

	fields := expandTextFields(q.Field)
	needle := strings.ToLower(q.Keyword)
	out := []*entity.Record{}
	for _, rec := range records {
		for _, field := range fields {
			if value, ok := textFieldValue(rec, field); ok && strings.Contains(strings.ToLower(value), needle) {
				out = append(out, rec)
				break
			}
		}
	}
	return out, nil
}

// binarySearch stable-sorts a decorated copy on the field and walks the
// equality run around the probe. Matches all carry the same key, so the
// stable order inside the run is exactly their input order.
func binarySearch(records []*entity.Record, q SearchQuery) ([]*entity.Record, error) {
	if !isExactField(q.Field) {
		return nil, &UnsupportedFieldError{Operation: string(SearchBinary) + " search", Field: q.Field}
	}

	items := mergesortItems(buildItems(records, q.Field))
	needle := strings.ToLower(q.Keyword)

	// lower bound: first item not ordered before the probe
	lo, hi := 0, len(items)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if !items[mid].key.absent && items[mid].key.str < needle {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	out := []*entity.Record{}
	for i := lo; i < len(items); i++ {
		if items[i].key.absent || items[i].key.str != needle {
			break
		}
		out = append(out, items[i].rec)
	}
	return out, nil
}

// hashSearch builds the value index for this call, buckets filled in input
// order, then answers the exact probe from it.
func hashSearch(records []*entity.Record, q SearchQuery) ([]*entity.Record, error) {
	if !isExactField(q.Field) {
		return nil, &UnsupportedFieldError{Operation: string(SearchHash) + " search", Field: q.Field}
	}

	index := make(map[string][]*entity.Record, len(records))
	for _, rec := range records {
		if value, ok := textFieldValue(rec, q.Field); ok {
			key := strings.ToLower(value)
			index[key] = append(index[key], rec)
		}
	}

	out := index[strings.ToLower(q.Keyword)]
	if out == nil {
		out = []*entity.Record{}
	}
	return out, nil
}

// fuzzySearch matches whole field values within an edit distance derived
// from the query length: one edit allowed per three characters, at least
// one.
func fuzzySearch(records []*entity.Record, q SearchQuery) ([]*entity.Record, error) {
	if !isExactField(q.Field) {
		return nil, &UnsupportedFieldError{Operation: string(SearchFuzzy) + " search", Field: q.Field}
	}

	needle := strings.ToLower(q.Keyword)
	maxDist := len([]rune(needle)) / 3
	if maxDist < 1 {
		maxDist = 1
	}

	out := []*entity.Record{}
	for _, rec := range records {
		value, ok := textFieldValue(rec, q.Field)
		if !ok {
			continue
		}
		if levenshtein(needle, strings.ToLower(value)) <= maxDist {
			out = append(out, rec)
		}
	}
	return out, nil
}

// levenshtein is the classic two-row edit distance over runes.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// patternSearch matches a regular expression against the text fields.
// Compilation failures surface as PatternError.
func patternSearch(records []*entity.Record, q SearchQuery) ([]*entity.Record, error) {
	if q.Field != "" && !isTextField(q.Field) {
		return nil, &UnsupportedFieldError{Operation: string(SearchPattern) + " search", Field: q.Field}
	}
	re, err := regexp.Compile(q.Pattern)
	if err != nil {
		return nil, &PatternError{Pattern: q.Pattern, Err: err}
	}

	fields := expandTextFields(q.Field)
	out := []*entity.Record{}
	for _, rec := range records {
		for _, field := range fields {
			if value, ok := textFieldValue(rec, field); ok && re.MatchString(value) {
				out = append(out, rec)
				break
			}
		}
	}
	return out, nil
}

// rangeSearch filters numeric and temporal fields by inclusive bounds.
// Records missing the field never match; an inverted range matches nothing.
func rangeSearch(records []*entity.Record, q SearchQuery) ([]*entity.Record, error) {
	out := []*entity.Record{}
	switch q.Field {
	case constants.FieldAmount:
		for _, rec := range records {
			if rec.Amount == nil {
				continue
			}
			if q.MinAmount != nil && *rec.Amount < *q.MinAmount {
				continue
			}
			if q.MaxAmount != nil && *rec.Amount > *q.MaxAmount {
				continue
			}
			out = append(out, rec)
		}
	case constants.FieldDate, constants.FieldCreatedAt:
		for _, rec := range records {
			var ts time.Time
			if q.Field == constants.FieldCreatedAt {
				ts = rec.CreatedAt
			} else {
				if rec.TxDate == nil {
					continue
				}
				ts = *rec.TxDate
			}
			if q.FromDate != nil && ts.Before(*q.FromDate) {
				continue
			}
			if q.ToDate != nil && ts.After(*q.ToDate) {
				continue
			}
			out = append(out, rec)
		}
	default:
		return nil, &UnsupportedFieldError{Operation: string(SearchRange) + " search", Field: q.Field}
	}
	return out, nil
}
