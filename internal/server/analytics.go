package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/avelis/receiptlens/constants"
	"github.com/avelis/receiptlens/internal/analytics"
	"github.com/avelis/receiptlens/internal/common"
	"github.com/avelis/receiptlens/internal/repository"
	"github.com/avelis/receiptlens/internal/utils"
)

func (s *Server) searchReceipts(c *gin.Context) {
	strategy, err := analytics.ParseSearchStrategy(c.DefaultQuery("strategy", string(analytics.SearchLinear)))
	if err != nil {
		s.respondError(c, err)
		return
	}

	q := analytics.SearchQuery{
		Keyword: strings.TrimSpace(c.Query("keyword")),
		Pattern: c.Query("pattern"),
	}
	if raw := strings.TrimSpace(c.Query("field")); raw != "" {
		field, ok := constants.ParseField(raw)
		if !ok {
			s.respondError(c, common.NewAppError("BAD_FIELD", "unknown field "+raw, common.ErrInvalidInput))
			return
		}
		q.Field = field
	}
	if q.MinAmount, err = amountParam(c, "min_amount"); err != nil {
		s.respondError(c, err)
		return
	}
	if q.MaxAmount, err = amountParam(c, "max_amount"); err != nil {
		s.respondError(c, err)
		return
	}
	if q.FromDate, err = dateParam(c, "from"); err != nil {
		s.respondError(c, err)
		return
	}
	if q.ToDate, err = dateParam(c, "to"); err != nil {
		s.respondError(c, err)
		return
	}

	recs, err := s.store.List(c.Request.Context(), repository.ListFilter{})
	if err != nil {
		s.respondError(c, err)
		return
	}
	out, err := s.engine.Search(recs, strategy, q)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, utils.ToRecordDTOs(out))
}

func (s *Server) sortReceipts(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("field"))
	if raw == "" {
		s.respondError(c, common.NewAppError("BAD_FIELD", "field is required", common.ErrInvalidInput))
		return
	}
	field, ok := constants.ParseField(raw)
	if !ok {
		s.respondError(c, common.NewAppError("BAD_FIELD", "unknown field "+raw, common.ErrInvalidInput))
		return
	}
	alg, err := analytics.ParseSortAlgorithm(c.Query("algorithm"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	dir, err := analytics.ParseDirection(c.Query("direction"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	recs, err := s.store.List(c.Request.Context(), repository.ListFilter{})
	if err != nil {
		s.respondError(c, err)
		return
	}
	out, err := s.engine.Sort(recs, field, alg, dir)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, utils.ToRecordDTOs(out))
}

type queryRequest struct {
	Keyword       string   `json:"keyword"`
	Pattern       string   `json:"pattern"`
	MinAmount     *float64 `json:"min_amount"`
	MaxAmount     *float64 `json:"max_amount"`
	FromDate      string   `json:"from_date"`
	ToDate        string   `json:"to_date"`
	SortField     string   `json:"sort_field"`
	SortAlgorithm string   `json:"sort_algorithm"`
	Direction     string   `json:"direction"`
	Aggregate     bool     `json:"aggregate"`
	Window        int      `json:"window"`
}

type queryResponse struct {
	Records []*utils.RecordDTO `json:"records"`
	Summary *analytics.Summary `json:"summary,omitempty"`
}

func (s *Server) queryReceipts(c *gin.Context) {
	var req queryRequest
	if err := decodeBody(c, querySchema, &req); err != nil {
		s.respondError(c, err)
		return
	}

	spec := analytics.QuerySpec{
		Keyword:   strings.TrimSpace(req.Keyword),
		Pattern:   req.Pattern,
		MinAmount: req.MinAmount,
		MaxAmount: req.MaxAmount,
		Aggregate: req.Aggregate,
		Window:    req.Window,
	}
	if req.FromDate != "" {
		t, err := utils.ParseYMD(req.FromDate)
		if err != nil {
			s.respondError(c, common.NewAppError("BAD_DATE", "from_date must be YYYY-MM-DD", common.ErrInvalidInput))
			return
		}
		spec.FromDate = &t
	}
	if req.ToDate != "" {
		t, err := utils.ParseYMD(req.ToDate)
		if err != nil {
			s.respondError(c, common.NewAppError("BAD_DATE", "to_date must be YYYY-MM-DD", common.ErrInvalidInput))
			return
		}
		spec.ToDate = &t
	}
	if req.SortField != "" {
		field, ok := constants.ParseField(req.SortField)
		if !ok {
			s.respondError(c, common.NewAppError("BAD_FIELD", "unknown field "+req.SortField, common.ErrInvalidInput))
			return
		}
		spec.SortField = field
	}
	if req.SortAlgorithm != "" {
		alg, err := analytics.ParseSortAlgorithm(req.SortAlgorithm)
		if err != nil {
			s.respondError(c, err)
			return
		}
		spec.SortAlgorithm = alg
	}
	if req.Direction != "" {
		dir, err := analytics.ParseDirection(req.Direction)
		if err != nil {
			s.respondError(c, err)
			return
		}
		spec.Direction = dir
	}

	recs, err := s.store.List(c.Request.Context(), repository.ListFilter{})
	if err != nil {
		s.respondError(c, err)
		return
	}
	result, err := s.engine.Query(recs, spec)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, queryResponse{
		Records: utils.ToRecordDTOs(result.Records),
		Summary: result.Summary,
	})
}

func (s *Server) stats(c *gin.Context) {
	window := 0
	if raw := strings.TrimSpace(c.Query("window")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			s.respondError(c, common.NewAppError("BAD_WINDOW", "window must be a positive integer", common.ErrInvalidInput))
			return
		}
		window = v
	}

	recs, err := s.store.List(c.Request.Context(), repository.ListFilter{})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.engine.Aggregate(recs, window))
}

func amountParam(c *gin.Context, name string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, common.NewAppError("BAD_AMOUNT", name+" must be numeric", common.ErrInvalidInput)
	}
	return &v, nil
}
