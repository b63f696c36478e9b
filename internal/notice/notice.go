// Package notice collects structured diagnostics produced while validating a feed.
package notice

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Severity of a notice.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// Rank orders severities from most to least serious.
func (s Severity) Rank() int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarning:
		return 1
	}
	return 2
}

// ParseSeverity accepts error, warning or info in any case.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(s) {
	case string(SeverityError):
		return SeverityError, nil
	case string(SeverityWarning):
		return SeverityWarning, nil
	case string(SeverityInfo):
		return SeverityInfo, nil
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// Context keys shared by most notices.
const (
	KeyFilename     = "filename"
	KeyRowNumber    = "csvRowNumber"
	KeyFieldName    = "fieldName"
	KeyFieldValue   = "fieldValue"
	KeyPrevRow      = "prevCsvRowNumber"
	KeyParentFile   = "parentFilename"
	KeyParentField  = "parentFieldName"
	KeyChildFile    = "childFilename"
	KeyChildField   = "childFieldName"
	KeyColumnIndex  = "index"
	KeyHeaderCount  = "headerCount"
	KeyRowLength    = "rowLength"
	KeyEntityCount  = "entityCount"
	KeyCurrencyCode = "currencyCode"
)

// Notice is a single diagnostic. Notices with equal code and context are duplicates.
type Notice struct {
	Code     string         `json:"code"`
	Severity Severity       `json:"severity"`
	Context  map[string]any `json:"context"`
}

// New starts a notice about a file.
func New(code string, severity Severity, filename string) Notice {
	return Notice{
		Code:     code,
		Severity: severity,
		Context:  map[string]any{KeyFilename: filename},
	}
}

// With sets a context value and returns the notice for chaining.
func (n Notice) With(key string, value any) Notice {
	n.Context[key] = value
	return n
}

// Filename returns the file the notice is about.
func (n Notice) Filename() string {
	s, _ := n.Context[KeyFilename].(string)
	return s
}

// RowNumber returns the CSV row number or 0.
func (n Notice) RowNumber() int {
	r, _ := n.Context[KeyRowNumber].(int)
	return r
}

// fingerprint hashes code and context independent of map order.
func (n Notice) fingerprint() uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(n.Code)
	for _, k := range n.sortedKeys() {
		_, _ = h.WriteString("\x1f")
		_, _ = h.WriteString(k)
		_, _ = h.WriteString("=")
		_, _ = h.WriteString(fmt.Sprint(n.Context[k]))
	}
	return h.Sum64()
}

func (n Notice) sortedKeys() []string {
	keys := make([]string, 0, len(n.Context))
	for k := range n.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (n Notice) sameAs(o Notice) bool {
	if n.Code != o.Code || len(n.Context) != len(o.Context) {
		return false
	}
	for k, v := range n.Context {
		ov, ok := o.Context[k]
		if !ok || fmt.Sprint(v) != fmt.Sprint(ov) {
			return false
		}
	}
	return true
}
