package notice

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Compression selects the report encoding.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
)

// Summary counts reported notices per severity.
type Summary struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Infos    int `json:"infos"`
}

// Group is all stored notices of one code.
type Group struct {
	Code          string           `json:"code"`
	Severity      Severity         `json:"severity"`
	TotalNotices  int              `json:"totalNotices"`
	SampleNotices []map[string]any `json:"sampleNotices"`
}

// Report is the serializable result of one validation run.
type Report struct {
	RunID      string    `json:"runId,omitempty"`
	Feed       string    `json:"feed,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	DurationMs int64     `json:"durationMs"`
	Summary    Summary   `json:"summary"`
	Notices    []Group   `json:"notices"`
}

// NewReport groups the notices of c by code, most severe first, then by code.
func NewReport(c *Container) *Report {
	notices, totals, severities := c.snapshot()

	byCode := make(map[string]*Group)
	for code, total := range totals {
		byCode[code] = &Group{Code: code, Severity: severities[code], TotalNotices: total}
	}
	for _, n := range notices {
		g := byCode[n.Code]
		g.SampleNotices = append(g.SampleNotices, n.Context)
	}

	r := &Report{Notices: make([]Group, 0, len(byCode))}
	for _, g := range byCode {
		switch g.Severity {
		case SeverityError:
			r.Summary.Errors += g.TotalNotices
		case SeverityWarning:
			r.Summary.Warnings += g.TotalNotices
		default:
			r.Summary.Infos += g.TotalNotices
		}
		if g.SampleNotices == nil {
			g.SampleNotices = []map[string]any{}
		}
		r.Notices = append(r.Notices, *g)
	}
	sort.Slice(r.Notices, func(i, j int) bool {
		a, b := r.Notices[i], r.Notices[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() < b.Severity.Rank()
		}
		return a.Code < b.Code
	})
	return r
}

// WriteJSON encodes the report, optionally zstd-compressed.
func (r *Report) WriteJSON(w io.Writer, compression Compression) error {
	switch compression {
	case "", CompressionNone:
		return encodeJSON(w, r)
	case CompressionZstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return fmt.Errorf("create zstd encoder: %w", err)
		}
		if err := encodeJSON(enc, r); err != nil {
			_ = enc.Close()
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown compression %q", compression)
}

func encodeJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
