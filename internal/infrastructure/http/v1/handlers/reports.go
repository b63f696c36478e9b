package handlers

import (
	"github.com/gin-gonic/gin"

	"feedvalidator/internal/core/apperror"
	"feedvalidator/internal/infrastructure/cache"
	"feedvalidator/internal/infrastructure/http/v1/dto"
)

// ReportsHandler serves reports of recent runs.
type ReportsHandler struct {
	*BaseHandler
	reports *cache.ReportStore
}

func NewReportsHandler(base *BaseHandler, reports *cache.ReportStore) *ReportsHandler {
	return &ReportsHandler{BaseHandler: base, reports: reports}
}

// Get returns the report of a run while it is still stored.
// GET /api/v1/reports/:runId?compression=zstd
func (h *ReportsHandler) Get(c *gin.Context) {
	var q dto.ValidateQuery
	if !h.BindQuery(c, &q) {
		return
	}

	runID := c.Param("runId")
	rep, ok := h.reports.Get(runID)
	if !ok {
		h.Error(c, apperror.NewNotFound("report", runID))
		return
	}
	c.Header(HeaderRunID, rep.RunID)
	writeReport(c, rep, q.ReportCompression())
}
