// Package derive fixes, once per schema, how each table is parsed, indexed and validated.
package derive

import (
	"github.com/google/cel-go/cel"

	"feedvalidator/internal/metadata"
	"feedvalidator/internal/notice"
)

// FieldRule is the parse rule of one column.
type FieldRule struct {
	Name           string
	Position       int
	Type           metadata.SemanticType
	Level          metadata.RequiredLevel
	HeaderRequired bool
	Bounds         metadata.NumberBounds
	Default        any // parsed default, nil when none declared
	Cached         bool
	CheckASCII     bool             // id values should be printable ASCII
	Enum           map[int]struct{} // allowed enum codes
}

// IndexPlan is one secondary index.
type IndexPlan struct {
	Field    string
	Position int
	// SortBy is the sequence field position buckets are ordered by, or -1 for load order.
	SortBy int
}

// ValidatorKind selects an entity validator.
type ValidatorKind int

const (
	CheckEndRange ValidatorKind = iota
	CheckLatLon
	CheckCurrencyAmount
	CheckMixedCase
	CheckInvalidChars
	CheckRule
)

func (k ValidatorKind) String() string {
	switch k {
	case CheckEndRange:
		return "end_range"
	case CheckLatLon:
		return "lat_lon"
	case CheckCurrencyAmount:
		return "currency_amount"
	case CheckMixedCase:
		return "mixed_case"
	case CheckInvalidChars:
		return "invalid_chars"
	case CheckRule:
		return "rule"
	}
	return "unknown"
}

// ValidatorSpec parameterizes one entity validator.
// Field is the start, latitude, amount or checked field; Partner is the end,
// longitude or currency field.
type ValidatorSpec struct {
	Kind            ValidatorKind
	Field           string
	Position        int
	Partner         string
	PartnerPosition int
	AllowEqual      bool
	Rule            *CompiledRule
}

// CompiledRule is a declared CEL row rule ready for evaluation.
type CompiledRule struct {
	Code     string
	Severity notice.Severity
	Expr     string
	Program  cel.Program
}

// TablePlan is everything the loader, container and validators need for one table.
type TablePlan struct {
	Table        *metadata.TableDescriptor
	Rules        []FieldRule
	Key          metadata.KeyShape
	PrimaryKey   int   // position, -1 when Key != KeyPrimary
	CompositeKey []int // positions, declaration order
	Indices      []IndexPlan
	Validators   []ValidatorSpec
}

// Filename is a shortcut for Table.Filename.
func (p *TablePlan) Filename() string { return p.Table.Filename }

// Index returns the plan of the secondary index on field.
func (p *TablePlan) Index(field string) (IndexPlan, bool) {
	for _, ix := range p.Indices {
		if ix.Field == field {
			return ix, true
		}
	}
	return IndexPlan{}, false
}

// ForeignKeySpec is a checkable foreign key with the child column position resolved.
type ForeignKeySpec struct {
	metadata.ForeignKey
	ChildPosition int
}

// FeedPlan is the derived plan of a whole schema.
type FeedPlan struct {
	Schema      *metadata.Schema
	Tables      []*TablePlan
	ForeignKeys []ForeignKeySpec

	byFilename map[string]*TablePlan
}

// Table returns the plan of a filename.
func (fp *FeedPlan) Table(filename string) (*TablePlan, bool) {
	p, ok := fp.byFilename[filename]
	return p, ok
}
