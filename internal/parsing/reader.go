// Package parsing turns raw CSV cells into typed field values.
package parsing

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

// utf8BOM is stripped from the start of the stream if present.
const utf8BOM = "\uFEFF"

// Row is one data row with its 1-based line number in the file.
type Row struct {
	Number int
	Cells  []string
}

// Reader streams a feed table: one header, then data rows.
type Reader struct {
	cr       *csv.Reader
	lastLine int
}

// NewReader wraps src. Rows may have a variable number of cells; length
// mismatches are diagnosed by the loader, not by the tokenizer.
func NewReader(src io.Reader) *Reader {
	br := bufio.NewReaderSize(src, 64*1024)
	if b, err := br.Peek(len(utf8BOM)); err == nil && string(b) == utf8BOM {
		_, _ = br.Discard(len(utf8BOM))
	}
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	return &Reader{cr: cr}
}

// Header reads the header row. It returns io.EOF for a file without any record.
func (r *Reader) Header() ([]string, error) {
	rec, err := r.cr.Read()
	if err != nil {
		return nil, r.wrap(err)
	}
	r.lastLine, _ = r.cr.FieldPos(0)
	header := make([]string, len(rec))
	for i, h := range rec {
		header[i] = strings.TrimSpace(h)
	}
	return header, nil
}

// Next returns the next data row or io.EOF.
func (r *Reader) Next() (Row, error) {
	rec, err := r.cr.Read()
	if err != nil {
		return Row{}, r.wrap(err)
	}
	line, _ := r.cr.FieldPos(0)
	r.lastLine = line
	cells := make([]string, len(rec))
	copy(cells, rec)
	return Row{Number: line, Cells: cells}, nil
}

// Line returns the line of the last record read, or where a tokenizer error happened.
func (r *Reader) Line() int {
	return r.lastLine
}

func (r *Reader) wrap(err error) error {
	if errors.Is(err, io.EOF) {
		return io.EOF
	}
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		r.lastLine = pe.StartLine
	}
	return err
}
