package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// exportReceipts streams the filtered records as a CSV or XLSX attachment.
// Date semantics follow the export service: only from -> from..today,
// only to -> beginning..to, none -> all.
func (s *Server) exportReceipts(c *gin.Context) {
	filter, err := filterFromQuery(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	data, filename, err := s.exporter.Export(c.Request.Context(), c.Query("format"), filter)
	if err != nil {
		s.respondError(c, err)
		return
	}

	contentType := "text/csv"
	if strings.HasSuffix(filename, ".xlsx") {
		contentType = xlsxContentType
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, data)
}
