// Package metadata turns table declarations into immutable descriptors.
package metadata

import "strings"

// SemanticType is the resolved meaning of a field value.
type SemanticType string

const (
	TypeText         SemanticType = "text"
	TypeInteger      SemanticType = "integer"
	TypeFloat        SemanticType = "float"
	TypeDecimal      SemanticType = "decimal"
	TypeEnum         SemanticType = "enum"
	TypeDate         SemanticType = "date"
	TypeTime         SemanticType = "time"
	TypeColor        SemanticType = "color"
	TypeCurrencyCode SemanticType = "currency_code"
	TypeLanguageCode SemanticType = "language_code"
	TypeTimezone     SemanticType = "timezone"
	TypeURL          SemanticType = "url"
	TypeEmail        SemanticType = "email"
	TypePhone        SemanticType = "phone"
	TypeID           SemanticType = "id"
	TypeLatitude     SemanticType = "latitude"
	TypeLongitude    SemanticType = "longitude"
)

var semanticTypes = map[SemanticType]bool{
	TypeText: true, TypeInteger: true, TypeFloat: true, TypeDecimal: true,
	TypeEnum: true, TypeDate: true, TypeTime: true, TypeColor: true,
	TypeCurrencyCode: true, TypeLanguageCode: true, TypeTimezone: true,
	TypeURL: true, TypeEmail: true, TypePhone: true, TypeID: true,
	TypeLatitude: true, TypeLongitude: true,
}

// IsNumeric reports whether values of t are ordered numbers.
func (t SemanticType) IsNumeric() bool {
	switch t {
	case TypeInteger, TypeFloat, TypeDecimal, TypeLatitude, TypeLongitude:
		return true
	}
	return false
}

// IsTextual reports whether values of t are free strings.
func (t SemanticType) IsTextual() bool {
	switch t {
	case TypeText, TypeID, TypeURL, TypeEmail, TypePhone:
		return true
	}
	return false
}

// RequiredLevel controls the severity of a missing table or value.
type RequiredLevel string

const (
	LevelOptional    RequiredLevel = "optional"
	LevelRecommended RequiredLevel = "recommended"
	LevelRequired    RequiredLevel = "required"
)

// KeyRole is the part a field plays in the table key.
type KeyRole string

const (
	RoleNone      KeyRole = "none"
	RolePrimary   KeyRole = "primary"
	RoleComposite KeyRole = "composite"
	RoleSequence  KeyRole = "sequence"
)

// NumberBounds restricts numeric values.
type NumberBounds string

const (
	BoundsNone        NumberBounds = "none"
	BoundsPositive    NumberBounds = "positive"
	BoundsNonNegative NumberBounds = "non_negative"
	BoundsNonZero     NumberBounds = "non_zero"
)

// KeyShape is the key layout of a table.
type KeyShape int

const (
	KeyNone KeyShape = iota
	KeyPrimary
	KeyComposite
)

func (k KeyShape) String() string {
	switch k {
	case KeyPrimary:
		return "primary"
	case KeyComposite:
		return "composite"
	}
	return "none"
}

// Reference addresses a column of a table.
type Reference struct {
	Table string `json:"table"`
	Field string `json:"field"`
}

func (r Reference) String() string { return r.Table + "." + r.Field }

// EndRange pairs a start field with its end field.
type EndRange struct {
	Field      string `json:"field"`
	AllowEqual bool   `json:"allowEqual"`
}

// LatLonPair is a latitude field and its longitude sibling.
type LatLonPair struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Rule is a declared row-level expression check.
type Rule struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Expr     string `json:"expr"`
}

// FieldDescriptor describes one column after analysis.
type FieldDescriptor struct {
	Name           string
	Position       int
	Kind           string
	Type           SemanticType
	Level          RequiredLevel
	HeaderRequired bool
	Role           KeyRole
	Indexed        bool
	ForeignKey     *Reference
	EndRange       *EndRange
	CurrencyField  string
	Bounds         NumberBounds
	Default        string
	MixedCase      bool
	InvalidChars   bool
	CacheHint      bool
	Enum           []EnumValue
}

// HasDefault reports whether a default literal was declared.
func (f *FieldDescriptor) HasDefault() bool { return f.Default != "" }

// IsKeyPart reports whether the field belongs to the primary or composite key.
func (f *FieldDescriptor) IsKeyPart() bool { return f.Role != RoleNone }

// TableDescriptor describes one table after analysis.
type TableDescriptor struct {
	Filename  string
	Level     RequiredLevel
	SingleRow bool
	Fields    []FieldDescriptor
	Rules     []Rule

	PrimaryKey       string
	CompositeKey     []string
	SequenceField    string
	SecondaryIndices []string
	LatLonPairs      []LatLonPair

	byName map[string]int
}

// Name returns the filename without its extension.
func (t *TableDescriptor) Name() string {
	return strings.TrimSuffix(t.Filename, ".txt")
}

// Field returns the descriptor of the named field.
func (t *TableDescriptor) Field(name string) (*FieldDescriptor, bool) {
	i, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	return &t.Fields[i], true
}

// Position returns the declaration index of the named field or -1.
func (t *TableDescriptor) Position(name string) int {
	if i, ok := t.byName[name]; ok {
		return i
	}
	return -1
}

// KeyShape returns which of the three key layouts the table has.
func (t *TableDescriptor) KeyShape() KeyShape {
	switch {
	case t.PrimaryKey != "":
		return KeyPrimary
	case len(t.CompositeKey) > 0:
		return KeyComposite
	}
	return KeyNone
}

// IsIndexed reports whether the field has a secondary index.
func (t *TableDescriptor) IsIndexed(name string) bool {
	for _, n := range t.SecondaryIndices {
		if n == name {
			return true
		}
	}
	return false
}
