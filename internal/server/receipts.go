package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/avelis/receiptlens/constants"
	"github.com/avelis/receiptlens/internal/async"
	"github.com/avelis/receiptlens/internal/common"
	"github.com/avelis/receiptlens/internal/entity"
	"github.com/avelis/receiptlens/internal/repository"
	"github.com/avelis/receiptlens/internal/utils"
)

type uploadRequest struct {
	RawText     string `json:"raw_text"`
	ManualLabel string `json:"manual_label"`
}

func (s *Server) createReceipt(c *gin.Context) {
	var req uploadRequest
	if err := decodeBody(c, uploadSchema, &req); err != nil {
		s.respondError(c, err)
		return
	}

	rec, err := s.coordinator.Extract(req.RawText, req.ManualLabel)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.store.Create(c.Request.Context(), rec); err != nil {
		s.respondError(c, err)
		return
	}

	s.logger.Info("receipt created", "record_id", rec.ID, "category", rec.Category, "source", rec.Source)
	c.JSON(http.StatusCreated, utils.ToRecordDTO(rec))
}

type batchRequest struct {
	Items []uploadRequest `json:"items"`
}

type batchResponse struct {
	Accepted  int      `json:"accepted"`
	RecordIDs []string `json:"record_ids"`
}

// batchReceipts hands every item to the worker queue and answers with the
// record ids the caller can poll. Jobs enqueued before a failure keep
// running.
func (s *Server) batchReceipts(c *gin.Context) {
	var req batchRequest
	if err := decodeBody(c, batchSchema, &req); err != nil {
		s.respondError(c, err)
		return
	}

	ids := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		job := async.Job{
			RecordID:    uuid.New(),
			RawText:     item.RawText,
			ManualLabel: item.ManualLabel,
			SubmittedAt: time.Now().UTC(),
		}
		if err := s.queue.Enqueue(c.Request.Context(), job); err != nil {
			s.respondError(c, err)
			return
		}
		ids = append(ids, job.RecordID.String())
	}

	s.logger.Info("batch accepted", "jobs", len(ids))
	c.JSON(http.StatusAccepted, batchResponse{Accepted: len(ids), RecordIDs: ids})
}

func (s *Server) listReceipts(c *gin.Context) {
	filter, err := filterFromQuery(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	recs, err := s.store.List(c.Request.Context(), filter)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, utils.ToRecordDTOs(recs))
}

func (s *Server) getReceipt(c *gin.Context) {
	id, err := recordID(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	rec, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, utils.ToRecordDTO(rec))
}

type patchRequest struct {
	Vendor   *string  `json:"vendor"`
	TxDate   *string  `json:"transaction_date"`
	Amount   *float64 `json:"amount"`
	Category *string  `json:"category"`
}

func (s *Server) patchReceipt(c *gin.Context) {
	id, err := recordID(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	var req patchRequest
	if err := decodeBody(c, patchSchema, &req); err != nil {
		s.respondError(c, err)
		return
	}

	patch := entity.Patch{Vendor: req.Vendor, Amount: req.Amount}
	if req.TxDate != nil {
		t, err := utils.ParseYMD(*req.TxDate)
		if err != nil {
			s.respondError(c, common.NewAppError("BAD_DATE", "transaction_date must be YYYY-MM-DD", common.ErrInvalidInput))
			return
		}
		patch.TxDate = &t
	}
	if req.Category != nil {
		cat := constants.Category(*req.Category)
		patch.Category = &cat
	}

	rec, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	updated, err := rec.ApplyPatch(patch)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.store.Update(c.Request.Context(), updated); err != nil {
		s.respondError(c, err)
		return
	}

	s.logger.Info("receipt corrected", "record_id", id, "source", updated.Source)
	c.JSON(http.StatusOK, utils.ToRecordDTO(updated))
}

func (s *Server) deleteReceipt(c *gin.Context) {
	id, err := recordID(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.store.Delete(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteAllReceipts(c *gin.Context) {
	n, err := s.store.DeleteAll(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.logger.Info("records cleared", "deleted", n)
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

func recordID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, common.NewAppError("BAD_ID", "id must be a UUID", common.ErrInvalidInput)
	}
	return id, nil
}

// filterFromQuery reads the optional category and date-range parameters
// shared by list and export.
func filterFromQuery(c *gin.Context) (repository.ListFilter, error) {
	var filter repository.ListFilter
	if raw := strings.TrimSpace(c.Query("category")); raw != "" {
		cat, ok := constants.Canonicalize(raw)
		if !ok {
			return filter, common.NewAppError("BAD_CATEGORY", "unknown category "+raw, common.ErrInvalidInput)
		}
		filter.Category = cat
	}
	from, err := dateParam(c, "from")
	if err != nil {
		return filter, err
	}
	to, err := dateParam(c, "to")
	if err != nil {
		return filter, err
	}
	filter.FromDate = from
	filter.ToDate = to
	return filter, nil
}

func dateParam(c *gin.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	t, err := utils.ParseYMD(raw)
	if err != nil {
		return nil, common.NewAppError("BAD_DATE", name+" must be YYYY-MM-DD", common.ErrInvalidInput)
	}
	return &t, nil
}
