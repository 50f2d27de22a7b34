package analytics

import (
	"math"
	"sort"

	"github.com/avelis/receiptlens/constants"
	"github.com/avelis/receiptlens/internal/entity"
)

// Statistics describes the amounts carried by a record set. Pointer fields
// stay nil when too few amounts exist to compute them.
type Statistics struct {
	Count    int      `json:"count"`
	Sum      float64  `json:"sum"`
	Mean     *float64 `json:"mean,omitempty"`
	Median   *float64 `json:"median,omitempty"`
	Mode     *float64 `json:"mode,omitempty"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Variance *float64 `json:"variance,omitempty"`
	StdDev   *float64 `json:"std_dev,omitempty"`
}

// FrequencyEntry is one row of a frequency table: how many records share
// the key and how much they add up to.
type FrequencyEntry struct {
	Key   string  `json:"key"`
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

// TimeBucket is one period of a time series.
type TimeBucket struct {
	Period string  `json:"period"`
	Count  int     `json:"count"`
	Total  float64 `json:"total"`
}

// WindowPoint is one step of the moving average over the monthly series.
// Span records how many buckets the truncated window actually covered.
type WindowPoint struct {
	Period  string  `json:"period"`
	Average float64 `json:"average"`
	Span    int     `json:"span"`
}

// Summary bundles every aggregation computed over one record set.
type Summary struct {
	TotalRecords  int              `json:"total_records"`
	Undated       int              `json:"undated"`
	Statistics    Statistics       `json:"statistics"`
	ByVendor      []FrequencyEntry `json:"by_vendor"`
	ByCategory    []FrequencyEntry `json:"by_category"`
	Monthly       []TimeBucket     `json:"monthly"`
	Yearly        []TimeBucket     `json:"yearly"`
	MovingAverage []WindowPoint    `json:"moving_average"`
	Window        int              `json:"window"`
}

func statistics(records []*entity.Record) Statistics {
	var withAmount []*entity.Record
	var amounts []float64
	for _, rec := range records {
		if rec.Amount != nil {
			withAmount = append(withAmount, rec)
			amounts = append(amounts, *rec.Amount)
		}
	}

	stats := Statistics{Count: len(amounts)}
	if len(amounts) == 0 {
		return stats
	}

	minV, maxV := amounts[0], amounts[0]
	for _, v := range amounts {
		stats.Sum += v
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	mean := stats.Sum / float64(len(amounts))
	stats.Mean = &mean
	stats.Min = &minV
	stats.Max = &maxV
	stats.Median = medianAmount(withAmount)
	stats.Mode = modeAmount(amounts)

	if len(amounts) > 1 {
		var ss float64
		for _, v := range amounts {
			d := v - mean
			ss += d * d
		}
		variance := ss / float64(len(amounts)-1)
		stdDev := math.Sqrt(variance)
		stats.Variance = &variance
		stats.StdDev = &stdDev
	}
	return stats
}

// medianAmount rides on the mergesort strategy rather than opening a
// second sorting path.
func medianAmount(withAmount []*entity.Record) *float64 {
	if len(withAmount) == 0 {
		return nil
	}
	sorted, err := sortWith(SortMerge, withAmount, constants.FieldAmount, Ascending)
	if err != nil {
		return nil
	}

	mid := len(sorted) / 2
	var median float64
	if len(sorted)%2 == 1 {
		median = *sorted[mid].Amount
	} else {
		median = (*sorted[mid-1].Amount + *sorted[mid].Amount) / 2
	}
	return &median
}

// modeAmount buckets values by cent and returns the most frequent one,
// smallest value on ties. A set of all-unique amounts has no mode.
func modeAmount(amounts []float64) *float64 {
	counts := make(map[int64]int, len(amounts))
	for _, v := range amounts {
		counts[int64(math.Round(v*100))]++
	}

	bestCents := int64(0)
	bestCount := 0
	for cents, n := range counts {
		if n > bestCount || (n == bestCount && cents < bestCents) {
			bestCents = cents
			bestCount = n
		}
	}
	if bestCount < 2 {
		return nil
	}
	mode := float64(bestCents) / 100
	return &mode
}

// frequencyTable groups records by key, ordered by count descending then
// key ascending.
func frequencyTable(records []*entity.Record, keyOf func(*entity.Record) (string, bool)) []FrequencyEntry {
	byKey := map[string]*FrequencyEntry{}
	for _, rec := range records {
		key, ok := keyOf(rec)
		if !ok {
			continue
		}
		entry := byKey[key]
		if entry == nil {
			entry = &FrequencyEntry{Key: key}
			byKey[key] = entry
		}
		entry.Count++
		if rec.Amount != nil {
			entry.Total += *rec.Amount
		}
	}

	out := make([]FrequencyEntry, 0, len(byKey))
	for _, entry := range byKey {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// timeSeries buckets dated records by the layout ("2006-01" for months,
// "2006" for years), chronological order. Undated records are the
// caller's business.
func timeSeries(records []*entity.Record, layout string) []TimeBucket {
	byPeriod := map[string]*TimeBucket{}
	for _, rec := range records {
		if rec.TxDate == nil {
			continue
		}
		period := rec.TxDate.Format(layout)
		bucket := byPeriod[period]
		if bucket == nil {
			bucket = &TimeBucket{Period: period}
			byPeriod[period] = bucket
		}
		bucket.Count++
		if rec.Amount != nil {
			bucket.Total += *rec.Amount
		}
	}

	out := make([]TimeBucket, 0, len(byPeriod))
	for _, bucket := range byPeriod {
		out = append(out, *bucket)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

// movingAverage is the trailing mean over the monthly totals. The window is
// truncated at the start of the series: the first point averages one
// bucket, the next two, up to the full window.
func movingAverage(monthly []TimeBucket, window int) []WindowPoint {
	out := make([]WindowPoint, 0, len(monthly))
	for i := range monthly {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		sum := 0.0
		for j := start; j <= i; j++ {
			sum += monthly[j].Total
		}
		span := i - start + 1
		out = append(out, WindowPoint{
			Period:  monthly[i].Period,
			Average: round2(sum / float64(span)),
			Span:    span,
		})
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
