package metadata

import (
	"fmt"
	"strings"

	"feedvalidator/internal/core/apperror"
)

// kindTypes maps declared underlying kinds to semantic types.
// Kinds missing from this table name enums.
var kindTypes = map[string]SemanticType{
	"":         TypeText,
	"string":   TypeText,
	"int":      TypeInteger,
	"integer":  TypeInteger,
	"float":    TypeFloat,
	"double":   TypeFloat,
	"decimal":  TypeDecimal,
	"color":    TypeColor,
	"date":     TypeDate,
	"time":     TypeTime,
	"timezone": TypeTimezone,
	"locale":   TypeLanguageCode,
	"currency": TypeCurrencyCode,
}

// Analyze turns one table declaration into a TableDescriptor.
// It is pure: the same declaration always yields the same descriptor.
// Foreign keys are only recorded here; Build resolves them across tables.
func Analyze(decl TableDecl) (*TableDescriptor, error) {
	if strings.TrimSpace(decl.Filename) == "" {
		return nil, apperror.NewSchema("", "", "table declaration without filename")
	}
	if len(decl.Fields) == 0 {
		return nil, apperror.NewSchema(decl.Filename, "", "table declares no fields")
	}

	level, err := parseLevel(decl.Level)
	if err != nil {
		return nil, apperror.NewSchema(decl.Filename, "", err.Error())
	}

	t := &TableDescriptor{
		Filename:  decl.Filename,
		Level:     level,
		SingleRow: decl.SingleRow,
		Fields:    make([]FieldDescriptor, 0, len(decl.Fields)),
		byName:    make(map[string]int, len(decl.Fields)),
	}

	for i, fd := range decl.Fields {
		f, err := analyzeField(decl.Filename, i, fd)
		if err != nil {
			return nil, err
		}
		if _, dup := t.byName[f.Name]; dup {
			return nil, apperror.NewSchema(decl.Filename, f.Name, "duplicate field name")
		}
		t.byName[f.Name] = i
		t.Fields = append(t.Fields, f)
	}

	if err := classifyKeys(t); err != nil {
		return nil, err
	}
	pairLatLon(t)
	if err := resolveLocalReferences(t); err != nil {
		return nil, err
	}

	for _, r := range decl.Rules {
		rule, err := analyzeRule(decl.Filename, r)
		if err != nil {
			return nil, err
		}
		t.Rules = append(t.Rules, rule)
	}

	return t, nil
}

func analyzeField(table string, pos int, fd FieldDecl) (FieldDescriptor, error) {
	name := strings.TrimSpace(fd.Name)
	if name == "" {
		return FieldDescriptor{}, apperror.NewSchema(table, "", "field without name").WithDetail("position", pos)
	}

	f := FieldDescriptor{
		Name:           name,
		Position:       pos,
		Kind:           fd.Kind,
		HeaderRequired: fd.HeaderRequired,
		Indexed:        fd.Index,
		CurrencyField:  fd.CurrencyField,
		Default:        fd.Default,
		MixedCase:      fd.MixedCase,
		CacheHint:      fd.Cache,
		Enum:           fd.Values,
	}

	typ, err := resolveType(fd)
	if err != nil {
		return f, apperror.NewSchema(table, name, err.Error())
	}
	f.Type = typ

	if f.Level, err = parseLevel(fd.Level); err != nil {
		return f, apperror.NewSchema(table, name, err.Error())
	}

	switch fd.Key {
	case "", string(RoleNone):
		f.Role = RoleNone
	case string(RolePrimary), string(RoleComposite), string(RoleSequence):
		f.Role = KeyRole(fd.Key)
	default:
		return f, apperror.NewSchema(table, name, fmt.Sprintf("unknown key role %q", fd.Key))
	}

	switch fd.Bounds {
	case "", string(BoundsNone):
		f.Bounds = BoundsNone
	case string(BoundsPositive), string(BoundsNonNegative), string(BoundsNonZero):
		if !f.Type.IsNumeric() {
			return f, apperror.NewSchema(table, name, "number bounds on a non-numeric field")
		}
		f.Bounds = NumberBounds(fd.Bounds)
	default:
		return f, apperror.NewSchema(table, name, fmt.Sprintf("unknown number bounds %q", fd.Bounds))
	}

	if f.Type == TypeEnum && len(fd.Values) == 0 {
		return f, apperror.NewSchema(table, name, fmt.Sprintf("enum kind %q declares no values", fd.Kind))
	}

	// Invalid character checks default on for free text.
	f.InvalidChars = f.Type.IsTextual()
	if fd.InvalidChars != nil {
		f.InvalidChars = *fd.InvalidChars
	}

	if fd.References != nil {
		if fd.References.Table == "" || fd.References.Field == "" {
			return f, apperror.NewUnresolvedReference(table, name, "foreign key", fd.References.Table+"."+fd.References.Field)
		}
		f.ForeignKey = &Reference{Table: fd.References.Table, Field: fd.References.Field}
	}
	if fd.EndRange != nil {
		f.EndRange = &EndRange{Field: fd.EndRange.Field, AllowEqual: fd.EndRange.AllowEqual}
	}

	return f, nil
}

func resolveType(fd FieldDecl) (SemanticType, error) {
	if fd.Type != "" {
		t := SemanticType(fd.Type)
		if !semanticTypes[t] {
			return "", fmt.Errorf("unknown semantic type %q", fd.Type)
		}
		return t, nil
	}
	if t, ok := kindTypes[strings.ToLower(fd.Kind)]; ok {
		return t, nil
	}
	return TypeEnum, nil
}

func parseLevel(s string) (RequiredLevel, error) {
	switch s {
	case "", string(LevelOptional):
		return LevelOptional, nil
	case string(LevelRecommended), string(LevelRequired):
		return RequiredLevel(s), nil
	}
	return "", fmt.Errorf("unknown required level %q", s)
}

// classifyKeys derives the primary, composite and sequence keys and the secondary indices.
func classifyKeys(t *TableDescriptor) error {
	var primary, parts []int
	sequence := -1
	for i := range t.Fields {
		f := &t.Fields[i]
		switch f.Role {
		case RolePrimary:
			primary = append(primary, i)
		case RoleComposite:
			parts = append(parts, i)
		case RoleSequence:
			if sequence >= 0 {
				return apperror.NewKeyConflict(t.Filename, "more than one sequence field").
					WithDetail("fields", []string{t.Fields[sequence].Name, f.Name})
			}
			sequence = i
			parts = append(parts, i)
		}
		if f.Indexed {
			t.SecondaryIndices = append(t.SecondaryIndices, f.Name)
		}
	}

	switch {
	case len(primary) > 1:
		return apperror.NewKeyConflict(t.Filename, "more than one primary key field")
	case len(primary) == 1 && len(parts) > 0:
		return apperror.NewKeyConflict(t.Filename, "primary key mixed with composite key parts")
	case len(primary) == 1:
		t.PrimaryKey = t.Fields[primary[0]].Name
	case len(parts) == 1:
		// A one-field composite key is a primary key.
		f := &t.Fields[parts[0]]
		f.Role = RolePrimary
		t.PrimaryKey = f.Name
	case len(parts) > 1:
		for _, i := range parts {
			t.CompositeKey = append(t.CompositeKey, t.Fields[i].Name)
		}
		if sequence >= 0 {
			t.SequenceField = t.Fields[sequence].Name
		}
	}

	if t.SingleRow && t.KeyShape() != KeyNone {
		return apperror.NewKeyConflict(t.Filename, "single-row table cannot declare a key")
	}
	return nil
}

// pairLatLon registers <x>lat / <x>lon siblings typed latitude and longitude.
func pairLatLon(t *TableDescriptor) {
	for _, f := range t.Fields {
		if f.Type != TypeLatitude || !strings.HasSuffix(f.Name, "lat") {
			continue
		}
		lonName := strings.TrimSuffix(f.Name, "lat") + "lon"
		lon, ok := t.Field(lonName)
		if !ok || lon.Type != TypeLongitude {
			continue
		}
		t.LatLonPairs = append(t.LatLonPairs, LatLonPair{Lat: f.Name, Lon: lonName})
	}
}

// resolveLocalReferences checks end-range and currency partners within the table.
func resolveLocalReferences(t *TableDescriptor) error {
	for _, f := range t.Fields {
		if f.EndRange != nil {
			end, ok := t.Field(f.EndRange.Field)
			if !ok {
				return apperror.NewUnresolvedReference(t.Filename, f.Name, "end range", f.EndRange.Field)
			}
			if end.Name == f.Name {
				return apperror.NewSchema(t.Filename, f.Name, "end range refers to itself")
			}
			if end.Type != f.Type {
				return apperror.NewSchema(t.Filename, f.Name, "end range partner has a different type").
					WithDetail("target", end.Name)
			}
		}
		if f.CurrencyField != "" {
			cur, ok := t.Field(f.CurrencyField)
			if !ok {
				return apperror.NewUnresolvedReference(t.Filename, f.Name, "currency", f.CurrencyField)
			}
			if cur.Type != TypeCurrencyCode {
				return apperror.NewSchema(t.Filename, f.Name, "currency partner is not a currency code").
					WithDetail("target", cur.Name)
			}
			if f.Type != TypeDecimal {
				return apperror.NewSchema(t.Filename, f.Name, "currency amount must be a decimal field")
			}
		}
	}
	return nil
}

func analyzeRule(table string, r RuleDecl) (Rule, error) {
	if r.Code == "" || strings.TrimSpace(r.Expr) == "" {
		return Rule{}, apperror.NewSchema(table, "", "rule needs a code and an expression")
	}
	sev := r.Severity
	switch sev {
	case "":
		sev = "error"
	case "error", "warning", "info":
	default:
		return Rule{}, apperror.NewSchema(table, "", fmt.Sprintf("rule %s: unknown severity %q", r.Code, r.Severity))
	}
	return Rule{Code: r.Code, Severity: sev, Expr: r.Expr}, nil
}
