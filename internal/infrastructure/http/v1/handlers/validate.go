package handlers

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"feedvalidator/internal/core/apperror"
	"feedvalidator/internal/feed"
	"feedvalidator/internal/infrastructure/cache"
	"feedvalidator/internal/infrastructure/http/v1/dto"
	"feedvalidator/internal/notice"
	"feedvalidator/pkg/logger"
)

// FormFile is the multipart field holding the zipped feed.
const FormFile = "file"

const (
	// HeaderRunID carries the run ID of a validation.
	HeaderRunID = "X-Run-ID"
	// HeaderNoticeErrors carries the number of error notices in the report.
	HeaderNoticeErrors = "X-Notices-Errors"
)

// StatusClientClosedRequest is recorded when the client goes away mid-validation.
const StatusClientClosedRequest = 499

// ValidateHandler validates uploaded feeds.
type ValidateHandler struct {
	*BaseHandler
	validator *feed.Validator
	reports   *cache.ReportStore
	maxBytes  int64
}

// NewValidateHandler creates a handler accepting uploads up to maxBytes.
// maxBytes <= 0 disables the limit. Reports are kept in reports when it is not nil.
func NewValidateHandler(base *BaseHandler, v *feed.Validator, reports *cache.ReportStore, maxBytes int64) *ValidateHandler {
	return &ValidateHandler{BaseHandler: base, validator: v, reports: reports, maxBytes: maxBytes}
}

// Validate runs a validation of the uploaded zip and responds with the report.
// Problems in the feed are part of the report; the status is 200 either way.
// POST /api/v1/validate?compression=zstd
func (h *ValidateHandler) Validate(c *gin.Context) {
	var q dto.ValidateQuery
	if !h.BindQuery(c, &q) {
		return
	}

	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	}
	fh, err := c.FormFile(FormFile)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || (h.maxBytes > 0 && c.Request.ContentLength > h.maxBytes) {
			h.Error(c, apperror.NewTooLarge(h.maxBytes))
			return
		}
		h.Error(c, apperror.NewValidation("a zipped feed is required in form field \"file\"").
			WithDetail("error", err.Error()))
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.Error(c, apperror.NewInternal(err))
		return
	}
	defer f.Close()

	in, err := feed.NewZipReader(filepath.Base(fh.Filename), f, fh.Size)
	if err != nil {
		h.Error(c, apperror.NewInvalidInput("uploaded file is not a zip archive", err))
		return
	}
	defer in.Close()

	res, err := h.validator.Validate(c.Request.Context(), in)
	if errors.Is(err, context.Canceled) {
		logger.Info(c.Request.Context(), "validation abandoned by client", "feed", in.Name())
		c.AbortWithStatus(StatusClientClosedRequest)
		return
	}
	if err != nil {
		h.Error(c, apperror.NewInternal(err))
		return
	}

	rep := res.Report()
	if h.reports != nil {
		h.reports.Put(rep)
	}
	c.Header(HeaderRunID, res.RunID)
	writeReport(c, rep, q.ReportCompression())
}

// writeReport streams rep as the 200 response body.
func writeReport(c *gin.Context, rep *notice.Report, compression notice.Compression) {
	c.Header("Content-Type", "application/json")
	if compression == notice.CompressionZstd {
		c.Header("Content-Encoding", "zstd")
	}
	c.Header(HeaderNoticeErrors, strconv.Itoa(rep.Summary.Errors))
	c.Status(http.StatusOK)

	if err := rep.WriteJSON(c.Writer, compression); err != nil {
		logger.Error(c.Request.Context(), "write report", "run_id", rep.RunID, "error", err)
	}
}
