package analytics

import (
	"strings"

	"github.com/avelis/receiptlens/constants"
	"github.com/avelis/receiptlens/internal/entity"
)

// sortKey is the comparable rank of one record on one field. Together with
// the record's input position it forms a strict total order, which is what
// makes every algorithm emit identical output: there are no equal elements
// left for implementation details to shuffle.
type sortKey struct {
	num     float64
	str     string
	numeric bool
	absent  bool
}

type sortItem struct {
	rec *entity.Record
	key sortKey
	idx int
}

// sortFunc sorts items ascending by (key, idx).
type sortFunc func([]sortItem) []sortItem

// sortFuncs is the fixed algorithm table, built once at package init.
var sortFuncs = map[SortAlgorithm]sortFunc{
	SortQuick:    quicksortItems,
	SortMerge:    mergesortItems,
	SortHeap:     heapsortItems,
	SortAdaptive: adaptiveItems,
}

func sortableField(field constants.Field) bool {
	switch field {
	case constants.FieldVendor, constants.FieldDate, constants.FieldAmount,
		constants.FieldCategory, constants.FieldCreatedAt:
		return true
	}
	return false
}

// sortKeyFor ranks a record on a field. Absent values rank after every
// present value; string keys compare case-folded.
func sortKeyFor(rec *entity.Record, field constants.Field) sortKey {
	switch field {
	case constants.FieldVendor:
		if rec.Vendor == nil {
			return sortKey{absent: true}
		}
		return sortKey{str: strings.ToLower(*rec.Vendor)}
	case constants.FieldCategory:
		return sortKey{str: string(rec.Category)}
	case constants.FieldAmount:
		if rec.Amount == nil {
			return sortKey{absent: true, numeric: true}
		}
		return sortKey{num: *rec.Amount, numeric: true}
	case constants.FieldDate:
		if rec.TxDate == nil {
			return sortKey{absent: true, numeric: true}
		}
		return sortKey{num: float64(rec.TxDate.Unix()), numeric: true}
	case constants.FieldCreatedAt:
		return sortKey{num: float64(rec.CreatedAt.UnixNano()), numeric: true}
	}
	return sortKey{absent: true}
}

func lessItems(a, b sortItem) bool {
	if a.key.absent != b.key.absent {
		return !a.key.absent
	}
	if !a.key.absent {
		if a.key.numeric {
			if a.key.num != b.key.num {
				return a.key.num < b.key.num
			}
		} else if a.key.str != b.key.str {
			return a.key.str < b.key.str
		}
	}
	return a.idx < b.idx
}

func buildItems(records []*entity.Record, field constants.Field) []sortItem {
	items := make([]sortItem, len(records))
	for i, rec := range records {
		items[i] = sortItem{rec: rec, key: sortKeyFor(rec, field), idx: i}
	}
	return items
}

// sortWith runs one algorithm over a decorated copy of records and returns
// the ascending order; Descending reverses it afterwards, so descending
// output is always the exact mirror of ascending output.
func sortWith(alg SortAlgorithm, records []*entity.Record, field constants.Field, dir Direction) ([]*entity.Record, error) {
	if !sortableField(field) {
		return nil, &UnsupportedFieldError{Operation: "sort", Field: field}
	}
	fn, ok := sortFuncs[alg]
	if !ok {
		return nil, &UnsupportedFieldError{Operation: "sort algorithm " + string(alg), Field: field}
	}

	items := fn(buildItems(records, field))
	out := make([]*entity.Record, len(items))
	for i, it := range items {
		out[i] = it.rec
	}
	if dir == Descending {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

// quicksortItems partitions three ways around the middle element.
func quicksortItems(items []sortItem) []sortItem {
	if len(items) <= 1 {
		return items
	}
	pivot := items[len(items)/2]
	var lower, equal, higher []sortItem
	for _, it := range items {
		switch {
		case lessItems(it, pivot):
			lower = append(lower, it)
		case lessItems(pivot, it):
			higher = append(higher, it)
		default:
			equal = append(equal, it)
		}
	}
	out := quicksortItems(lower)
	out = append(out, equal...)
	return append(out, quicksortItems(higher)...)
}

// mergesortItems is a plain top-down merge sort.
func mergesortItems(items []sortItem) []sortItem {
	if len(items) <= 1 {
		return items
	}
	mid := len(items) / 2
	return mergeItems(mergesortItems(items[:mid]), mergesortItems(items[mid:]))
}

func mergeItems(left, right []sortItem) []sortItem {
	out := make([]sortItem, 0, len(left)+len(right))
	i, j := 0, 0
	for i < len(left) && j < len(right) {
		if lessItems(right[j], left[i]) {
			out = append(out, right[j])
			j++
		} else {
			out = append(out, left[i])
			i++
		}
	}
	out = append(out, left[i:]...)
	return append(out, right[j:]...)
}

// heapsortItems builds a max-heap in place and drains it from the back.
func heapsortItems(items []sortItem) []sortItem {
	n := len(items)
	for i := n/2 - 1; i >= 0; i-- {
		siftDown(items, i, n)
	}
	for end := n - 1; end > 0; end-- {
		items[0], items[end] = items[end], items[0]
		siftDown(items, 0, end)
	}
	return items
}

func siftDown(items []sortItem, root, end int) {
	for {
		child := 2*root + 1
		if child >= end {
			return
		}
		if child+1 < end && lessItems(items[child], items[child+1]) {
			child++
		}
		if !lessItems(items[root], items[child]) {
			return
		}
		items[root], items[child] = items[child], items[root]
		root = child
	}
}

// adaptiveItems splits the input into maximal ascending runs and merges
// them pairwise; already-ordered input costs a single detection pass.
func adaptiveItems(items []sortItem) []sortItem {
	if len(items) <= 1 {
		return items
	}

	var runs [][]sortItem
	start := 0
	for i := 1; i <= len(items); i++ {
		if i == len(items) || lessItems(items[i], items[i-1]) {
			runs = append(runs, items[start:i])
			start = i
		}
	}

	for len(runs) > 1 {
		merged := make([][]sortItem, 0, (len(runs)+1)/2)
		for i := 0; i < len(runs); i += 2 {
			if i+1 == len(runs) {
				merged = append(merged, runs[i])
				continue
			}
			merged = append(merged, mergeItems(runs[i], runs[i+1]))
		}
		runs = merged
	}
	return runs[0]
}
