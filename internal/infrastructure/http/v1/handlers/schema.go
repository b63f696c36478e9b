package handlers

import (
	"github.com/gin-gonic/gin"

	"feedvalidator/internal/core/apperror"
	"feedvalidator/internal/infrastructure/http/v1/dto"
	"feedvalidator/internal/metadata"
)

// SchemaHandler serves the tables a feed is validated against.
type SchemaHandler struct {
	*BaseHandler
	schema *metadata.Schema
}

func NewSchemaHandler(base *BaseHandler, schema *metadata.Schema) *SchemaHandler {
	return &SchemaHandler{BaseHandler: base, schema: schema}
}

// ListTables returns every declared table.
// GET /api/v1/schema?level=required
func (h *SchemaHandler) ListTables(c *gin.Context) {
	var filter dto.SchemaFilter
	if !h.BindQuery(c, &filter) {
		return
	}

	var items []metadata.TableSummary
	for _, t := range h.schema.Summaries() {
		if filter.Match(t) {
			items = append(items, t)
		}
	}
	h.OK(c, dto.NewListResponse(items))
}

// GetTable returns one table by filename.
// GET /api/v1/schema/:filename
func (h *SchemaHandler) GetTable(c *gin.Context) {
	filename := c.Param("filename")
	t, ok := h.schema.Table(filename)
	if !ok {
		h.Error(c, apperror.NewNotFound("table", filename))
		return
	}
	h.OK(c, h.schema.Summarize(t))
}
