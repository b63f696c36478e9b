// Package table loads one feed table into typed, indexed, immutable records.
package table

import (
	"golang.org/x/text/currency"
	"golang.org/x/text/language"

	"feedvalidator/internal/core/types"
	"feedvalidator/internal/derive"
)

// presence is a bitset with one bit per declared field.
type presence []uint64

func newPresence(fields int) presence {
	return make(presence, (fields+63)/64)
}

func (p presence) set(i int) {
	p[i/64] |= 1 << uint(i%64)
}

func (p presence) has(i int) bool {
	if i < 0 || i/64 >= len(p) {
		return false
	}
	return p[i/64]&(1<<uint(i%64)) != 0
}

// Record is one accepted row. It is immutable once built.
type Record struct {
	plan    *derive.TablePlan
	values  []any
	present presence
	row     int
}

// RowNumber returns the 1-based line of the row in its file.
func (r *Record) RowNumber() int { return r.row }

// Filename returns the table the record belongs to.
func (r *Record) Filename() string { return r.plan.Filename() }

// Has reports whether the row supplied a value for name. Defaults do not count.
func (r *Record) Has(name string) bool {
	return r.present.has(r.plan.Table.Position(name))
}

// HasAt is Has by field position.
func (r *Record) HasAt(pos int) bool {
	return r.present.has(pos)
}

// Get returns the value of name, or its declared default when absent.
// It returns nil when the field is absent and has no default.
func (r *Record) Get(name string) any {
	return r.At(r.plan.Table.Position(name))
}

// At is Get by field position.
func (r *Record) At(pos int) any {
	if pos < 0 || pos >= len(r.values) {
		return nil
	}
	if r.present.has(pos) {
		return r.values[pos]
	}
	return r.plan.Rules[pos].Default
}

// Values returns the explicitly present values keyed by field name.
func (r *Record) Values() map[string]any {
	out := make(map[string]any, len(r.values))
	for i, rule := range r.plan.Rules {
		if r.present.has(i) {
			out[rule.Name] = r.values[i]
		}
	}
	return out
}

// String returns a string-typed field or "".
func (r *Record) String(name string) string {
	s, _ := r.Get(name).(string)
	return s
}

// Int returns an integer or enum field or 0.
func (r *Record) Int(name string) int {
	n, _ := r.Get(name).(int)
	return n
}

// Float returns a float, latitude or longitude field or 0.
func (r *Record) Float(name string) float64 {
	f, _ := r.Get(name).(float64)
	return f
}

// Decimal returns a decimal field or zero.
func (r *Record) Decimal(name string) types.Decimal {
	d, _ := r.Get(name).(types.Decimal)
	return d
}

// Date returns a date field or the zero Date.
func (r *Record) Date(name string) types.Date {
	d, _ := r.Get(name).(types.Date)
	return d
}

// Time returns a time field or 0.
func (r *Record) Time(name string) types.TimeOfDay {
	t, _ := r.Get(name).(types.TimeOfDay)
	return t
}

// Color returns a color field or black.
func (r *Record) Color(name string) types.Color {
	c, _ := r.Get(name).(types.Color)
	return c
}

// Currency returns a currency code field.
func (r *Record) Currency(name string) (currency.Unit, bool) {
	u, ok := r.Get(name).(currency.Unit)
	return u, ok
}

// Language returns a language code field.
func (r *Record) Language(name string) (language.Tag, bool) {
	t, ok := r.Get(name).(language.Tag)
	return t, ok
}

// Builder assembles one record at a time and can be reused across rows.
type Builder struct {
	plan    *derive.TablePlan
	values  []any
	present presence
	row     int
}

// NewBuilder creates a Builder for plan.
func NewBuilder(plan *derive.TablePlan) *Builder {
	n := len(plan.Rules)
	return &Builder{plan: plan, values: make([]any, n), present: newPresence(n)}
}

// Reset clears the builder for the row at line.
func (b *Builder) Reset(line int) {
	clear(b.values)
	clear(b.present)
	b.row = line
}

// Set stores the parsed value of the field at pos.
func (b *Builder) Set(pos int, v any) {
	b.values[pos] = v
	b.present.set(pos)
}

// Build freezes the current row into a Record.
func (b *Builder) Build() *Record {
	rec := &Record{
		plan:    b.plan,
		values:  make([]any, len(b.values)),
		present: make(presence, len(b.present)),
		row:     b.row,
	}
	copy(rec.values, b.values)
	copy(rec.present, b.present)
	return rec
}
