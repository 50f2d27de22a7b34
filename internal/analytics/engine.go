package analytics

import (
	"log/slog"
	"time"

	"github.com/avelis/receiptlens/constants"
	"github.com/avelis/receiptlens/internal/common"
	"github.com/avelis/receiptlens/internal/entity"
)

// Engine is the analytics façade: search strategies, sort algorithms and
// aggregation behind one door. Engines are stateless apart from their
// dispatch tables and safe for concurrent use; input slices are never
// mutated.
type Engine struct {
	logger        *slog.Logger
	searchFuncs   map[SearchStrategy]searchFunc
	sortFuncs     map[SortAlgorithm]sortFunc
	defaultWindow int
}

// NewEngine builds the engine with its immutable dispatch tables.
func NewEngine(cfg common.AnalyticsConfig, logger *slog.Logger) *Engine {
	window := cfg.DefaultWindow
	if window < 1 {
		window = 3
	}
	return &Engine{
		logger:        logger,
		searchFuncs:   searchFuncs,
		sortFuncs:     sortFuncs,
		defaultWindow: window,
	}
}

// Search runs one strategy over the records.
func (e *Engine) Search(records []*entity.Record, strategy SearchStrategy, q SearchQuery) ([]*entity.Record, error) {
	fn, ok := e.searchFuncs[strategy]
	if !ok {
		return nil, common.NewAppError("ANALYTICS_BAD_STRATEGY",
			"unknown search strategy "+string(strategy), common.ErrInvalidInput)
	}

	out, err := fn(records, q)
	if err != nil {
		e.logger.Warn("analytics.search.err", "strategy", strategy, "field", q.Field, "error", err)
		return nil, err
	}
	e.logger.Debug("analytics.search.ok", "strategy", strategy, "field", q.Field, "in", len(records), "out", len(out))
	return out, nil
}

// Sort orders a copy of the records by field. Every algorithm yields the
// same output: the comparator ranks by field key with absent values last
// and input position as the final tiebreak, a strict total order.
func (e *Engine) Sort(records []*entity.Record, field constants.Field, alg SortAlgorithm, dir Direction) ([]*entity.Record, error) {
	if _, ok := e.sortFuncs[alg]; !ok {
		return nil, common.NewAppError("ANALYTICS_BAD_ALGORITHM",
			"unknown sort algorithm "+string(alg), common.ErrInvalidInput)
	}

	out, err := sortWith(alg, records, field, dir)
	if err != nil {
		e.logger.Warn("analytics.sort.err", "algorithm", alg, "field", field, "error", err)
		return nil, err
	}
	e.logger.Debug("analytics.sort.ok", "algorithm", alg, "field", field, "direction", dir, "records", len(out))
	return out, nil
}

// Aggregate computes the full summary bundle. The empty set aggregates to
// zero counts and absent statistics, never an error.
func (e *Engine) Aggregate(records []*entity.Record, window int) Summary {
	if window < 1 {
		window = e.defaultWindow
	}

	summary := Summary{
		TotalRecords: len(records),
		Window:       window,
		Statistics:   statistics(records),
	}
	for _, rec := range records {
		if rec.TxDate == nil {
			summary.Undated++
		}
	}

	summary.ByVendor = frequencyTable(records, func(rec *entity.Record) (string, bool) {
		if rec.Vendor == nil {
			return "", false
		}
		return *rec.Vendor, true
	})
	summary.ByCategory = frequencyTable(records, func(rec *entity.Record) (string, bool) {
		return string(rec.Category), true
	})

	summary.Monthly = timeSeries(records, "2006-01")
	summary.Yearly = timeSeries(records, "2006")
	summary.MovingAverage = movingAverage(summary.Monthly, window)

	e.logger.Debug("analytics.aggregate.ok",
		"records", summary.TotalRecords, "undated", summary.Undated, "window", window)
	return summary
}

// QuerySpec drives the composite pipeline: filters intersect in input
// order, then sort, then aggregate.
type QuerySpec struct {
	Keyword   string     `json:"keyword,omitempty"`
	Pattern   string     `json:"pattern,omitempty"`
	MinAmount *float64   `json:"min_amount,omitempty"`
	MaxAmount *float64   `json:"max_amount,omitempty"`
	FromDate  *time.Time `json:"from_date,omitempty"`
	ToDate    *time.Time `json:"to_date,omitempty"`

	SortField     constants.Field `json:"sort_field,omitempty"`
	SortAlgorithm SortAlgorithm   `json:"sort_algorithm,omitempty"`
	Direction     Direction       `json:"direction,omitempty"`

	Aggregate bool `json:"aggregate,omitempty"`
	Window    int  `json:"window,omitempty"`
}

// QueryResult carries the surviving records plus the optional summary.
type QueryResult struct {
	Records []*entity.Record `json:"records"`
	Summary *Summary         `json:"summary,omitempty"`
}

// Query runs filter, sort and aggregate stages over a snapshot of the
// records. Every stage tolerates the empty set.
func (e *Engine) Query(records []*entity.Record, spec QuerySpec) (*QueryResult, error) {
	out := make([]*entity.Record, len(records))
	copy(out, records)

	var err error
	if spec.Keyword != "" {
		if out, err = linearSearch(out, SearchQuery{Keyword: spec.Keyword}); err != nil {
			return nil, err
		}
	}
	if spec.Pattern != "" {
		if out, err = patternSearch(out, SearchQuery{Field: constants.FieldRawText, Pattern: spec.Pattern}); err != nil {
			return nil, err
		}
	}
	if spec.MinAmount != nil || spec.MaxAmount != nil {
		q := SearchQuery{Field: constants.FieldAmount, MinAmount: spec.MinAmount, MaxAmount: spec.MaxAmount}
		if out, err = rangeSearch(out, q); err != nil {
			return nil, err
		}
	}
	if spec.FromDate != nil || spec.ToDate != nil {
		q := SearchQuery{Field: constants.FieldDate, FromDate: spec.FromDate, ToDate: spec.ToDate}
		if out, err = rangeSearch(out, q); err != nil {
			return nil, err
		}
	}

	if spec.SortField != "" {
		alg := spec.SortAlgorithm
		if alg == "" {
			alg = SortAdaptive
		}
		dir := spec.Direction
		if dir == "" {
			dir = Ascending
		}
		if out, err = e.Sort(out, spec.SortField, alg, dir); err != nil {
			return nil, err
		}
	}

	result := &QueryResult{Records: out}
	if spec.Aggregate {
		summary := e.Aggregate(out, spec.Window)
		result.Summary = &summary
	}

	e.logger.Debug("analytics.query.ok", "in", len(records), "out", len(out), "aggregated", spec.Aggregate)
	return result, nil
}
