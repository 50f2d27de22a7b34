package server

import (
	"errors"
	"net/http"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/avelis/receiptlens/internal/analytics"
	"github.com/avelis/receiptlens/internal/async"
	"github.com/avelis/receiptlens/internal/common"
	"github.com/avelis/receiptlens/internal/export"
	"github.com/avelis/receiptlens/internal/extraction"
	"github.com/avelis/receiptlens/internal/repository"
)

// Server wires the HTTP surface: extraction on upload, the record store,
// the analytics engine, the batch queue and the exporters.
type Server struct {
	store       repository.RecordStore
	coordinator *extraction.Coordinator
	engine      *analytics.Engine
	exporter    *export.Service
	queue       async.Queue
	logger      *slog.Logger
}

func New(store repository.RecordStore, coordinator *extraction.Coordinator, engine *analytics.Engine, exporter *export.Service, queue async.Queue, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:       store,
		coordinator: coordinator,
		engine:      engine,
		exporter:    exporter,
		queue:       queue,
		logger:      logger,
	}
}

// Router builds the gin engine with recovery, request IDs and request
// logging.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), s.requestLogger())

	r.GET("/healthz", s.healthz)

	api := r.Group("/api/v1")
	{
		api.POST("/receipts", s.createReceipt)
		api.POST("/receipts/batch", s.batchReceipts)
		api.GET("/receipts", s.listReceipts)
		api.GET("/receipts/:id", s.getReceipt)
		api.PATCH("/receipts/:id", s.patchReceipt)
		api.DELETE("/receipts/:id", s.deleteReceipt)
		api.DELETE("/receipts", s.deleteAllReceipts)

		api.GET("/search", s.searchReceipts)
		api.GET("/sort", s.sortReceipts)
		api.POST("/query", s.queryReceipts)
		api.GET("/stats", s.stats)
		api.GET("/export", s.exportReceipts)
	}
	return r
}

// requestID tags every request with an id, honoring one the client sent.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Request = c.Request.WithContext(common.WithRequestID(c.Request.Context(), id))
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("http.request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"request_id", common.RequestIDFromContext(c.Request.Context()),
			"elapsed_ms", time.Since(start).Milliseconds())
	}
}

func (s *Server) healthz(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		s.logger.Error("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// respondError translates a domain error into the response status and
// body. Server-side failures are logged here; client mistakes are not.
func (s *Server) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
	}
	resp := errorResponse{Error: err.Error()}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		resp.Code = appErr.Code
	}
	c.AbortWithStatusJSON(status, resp)
}

// statusFor layers the typed analytics and queue errors on top of the
// sentinel mapping: bad patterns and unsupported fields are client
// mistakes, a saturated queue asks the client to retry later.
func statusFor(err error) int {
	var patternErr *analytics.PatternError
	var fieldErr *analytics.UnsupportedFieldError
	switch {
	case errors.As(err, &patternErr), errors.As(err, &fieldErr):
		return http.StatusBadRequest
	case errors.Is(err, async.ErrQueueFull):
		return http.StatusServiceUnavailable
	}
	return common.HTTPStatus(err)
}
