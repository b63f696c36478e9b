package dto

import "feedvalidator/internal/notice"

// ValidateQuery holds the options of a validation request.
type ValidateQuery struct {
	// Compression of the response body: none (default) or zstd.
	Compression string `form:"compression" binding:"omitempty,oneof=none zstd"`
}

// ReportCompression maps the query option to a report encoding.
func (q ValidateQuery) ReportCompression() notice.Compression {
	if q.Compression == "" {
		return notice.CompressionNone
	}
	return notice.Compression(q.Compression)
}
