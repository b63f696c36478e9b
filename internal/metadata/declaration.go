package metadata

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is the on-disk form of a schema: a list of table declarations.
// Enums holds value lists shared by name; a field whose kind names one of
// them and that lists no values of its own takes that list.
type Document struct {
	Enums  map[string][]EnumValue `json:"enums,omitempty" yaml:"enums,omitempty"`
	Tables []TableDecl            `json:"tables" yaml:"tables"`
}

// TableDecl is the raw declaration of one table, as written by a schema author.
type TableDecl struct {
	Filename  string      `json:"filename" yaml:"filename"`
	Level     string      `json:"level,omitempty" yaml:"level,omitempty"`
	SingleRow bool        `json:"singleRow,omitempty" yaml:"single_row,omitempty"`
	Fields    []FieldDecl `json:"fields" yaml:"fields"`
	Rules     []RuleDecl  `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// FieldDecl is the raw declaration of one column.
type FieldDecl struct {
	Name string `json:"name" yaml:"name"`

	// Kind is the declared underlying type (string, int, float, decimal, color,
	// date, time, timezone, locale, currency). Any other kind names an enum.
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`

	// Type overrides the semantic type resolved from Kind.
	Type string `json:"type,omitempty" yaml:"type,omitempty"`

	Level          string `json:"level,omitempty" yaml:"level,omitempty"`
	HeaderRequired bool   `json:"headerRequired,omitempty" yaml:"header_required,omitempty"`

	// Key is one of primary, composite, sequence.
	Key   string `json:"key,omitempty" yaml:"key,omitempty"`
	Index bool   `json:"index,omitempty" yaml:"index,omitempty"`

	References    *ReferenceDecl `json:"references,omitempty" yaml:"references,omitempty"`
	EndRange      *EndRangeDecl  `json:"endRange,omitempty" yaml:"end_range,omitempty"`
	CurrencyField string         `json:"currencyField,omitempty" yaml:"currency_field,omitempty"`
	Bounds        string         `json:"bounds,omitempty" yaml:"bounds,omitempty"`
	Default       string         `json:"default,omitempty" yaml:"default,omitempty"`
	MixedCase     bool           `json:"mixedCase,omitempty" yaml:"mixed_case,omitempty"`
	InvalidChars  *bool          `json:"invalidChars,omitempty" yaml:"invalid_chars,omitempty"`
	Cache         bool           `json:"cache,omitempty" yaml:"cache,omitempty"`
	Values        []EnumValue    `json:"values,omitempty" yaml:"values,omitempty"`
}

// ReferenceDecl points a foreign key at a parent table column.
type ReferenceDecl struct {
	Table string `json:"table" yaml:"table"`
	Field string `json:"field" yaml:"field"`
}

// EndRangeDecl declares that the field is the start of a range ending at Field.
type EndRangeDecl struct {
	Field      string `json:"field" yaml:"field"`
	AllowEqual bool   `json:"allowEqual,omitempty" yaml:"allow_equal,omitempty"`
}

// RuleDecl is a boolean CEL expression over `row` that must hold for every record.
type RuleDecl struct {
	Code     string `json:"code" yaml:"code"`
	Severity string `json:"severity,omitempty" yaml:"severity,omitempty"`
	Expr     string `json:"expr" yaml:"expr"`
}

// EnumValue is one allowed value of an enum field.
type EnumValue struct {
	Name  string `json:"name" yaml:"name"`
	Value int    `json:"value" yaml:"value"`
}

// ParseDeclarations decodes a YAML schema document.
// Unknown keys are rejected so that typos in declarations fail loudly.
func ParseDeclarations(r io.Reader) ([]TableDecl, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode schema declarations: %w", err)
	}
	doc.resolveEnums()
	return doc.Tables, nil
}

func (doc *Document) resolveEnums() {
	if len(doc.Enums) == 0 {
		return
	}
	for ti := range doc.Tables {
		fields := doc.Tables[ti].Fields
		for fi := range fields {
			if len(fields[fi].Values) > 0 {
				continue
			}
			if values, ok := doc.Enums[fields[fi].Kind]; ok {
				fields[fi].Values = append([]EnumValue(nil), values...)
			}
		}
	}
}

// LoadDeclarationsFile reads a YAML schema document from disk.
func LoadDeclarationsFile(path string) ([]TableDecl, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema file: %w", err)
	}
	defer f.Close()
	return ParseDeclarations(f)
}
