package derive

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"feedvalidator/internal/core/apperror"
	"feedvalidator/internal/metadata"
	"feedvalidator/internal/notice"
	"feedvalidator/internal/parsing"
)

// cacheableTypes repeat across rows often enough to be worth interning.
var cacheableTypes = map[metadata.SemanticType]bool{
	metadata.TypeColor:        true,
	metadata.TypeDate:         true,
	metadata.TypeTime:         true,
	metadata.TypeLanguageCode: true,
	metadata.TypeID:           true,
}

// Derive builds the plan of every table of s. It fails on defaults that do
// not parse and on rules that do not compile to a boolean expression.
func Derive(s *metadata.Schema, parser *parsing.Parser) (*FeedPlan, error) {
	env, err := newRuleEnv()
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	fp := &FeedPlan{
		Schema:     s,
		Tables:     make([]*TablePlan, 0, len(s.Tables())),
		byFilename: make(map[string]*TablePlan, len(s.Tables())),
	}
	for _, t := range s.Tables() {
		p, err := deriveTable(t, parser, env)
		if err != nil {
			return nil, err
		}
		fp.Tables = append(fp.Tables, p)
		fp.byFilename[t.Filename] = p
	}

	for _, fk := range s.ForeignKeys() {
		child, _ := s.Table(fk.Child.Table)
		fp.ForeignKeys = append(fp.ForeignKeys, ForeignKeySpec{
			ForeignKey:    fk,
			ChildPosition: child.Position(fk.Child.Field),
		})
	}
	return fp, nil
}

func deriveTable(t *metadata.TableDescriptor, parser *parsing.Parser, env *cel.Env) (*TablePlan, error) {
	p := &TablePlan{
		Table:      t,
		Rules:      make([]FieldRule, 0, len(t.Fields)),
		Key:        t.KeyShape(),
		PrimaryKey: t.Position(t.PrimaryKey),
	}

	for i := range t.Fields {
		r, err := deriveRule(t, &t.Fields[i], parser)
		if err != nil {
			return nil, err
		}
		p.Rules = append(p.Rules, r)
	}

	for _, name := range t.CompositeKey {
		p.CompositeKey = append(p.CompositeKey, t.Position(name))
	}

	sortBy := -1
	if t.SequenceField != "" {
		sortBy = t.Position(t.SequenceField)
	}
	for _, name := range t.SecondaryIndices {
		p.Indices = append(p.Indices, IndexPlan{Field: name, Position: t.Position(name), SortBy: sortBy})
	}

	p.Validators = deriveValidators(t)
	for _, rule := range t.Rules {
		compiled, err := compileRule(env, t.Filename, rule)
		if err != nil {
			return nil, err
		}
		p.Validators = append(p.Validators, ValidatorSpec{Kind: CheckRule, Position: -1, PartnerPosition: -1, Rule: compiled})
	}
	return p, nil
}

func deriveRule(t *metadata.TableDescriptor, f *metadata.FieldDescriptor, parser *parsing.Parser) (FieldRule, error) {
	r := FieldRule{
		Name:           f.Name,
		Position:       f.Position,
		Type:           f.Type,
		Level:          f.Level,
		HeaderRequired: f.HeaderRequired || f.Level == metadata.LevelRequired,
		Bounds:         f.Bounds,
		Cached:         cachingEnabled(t, f),
		CheckASCII:     f.Type == metadata.TypeID,
	}

	if f.Type == metadata.TypeEnum {
		r.Enum = make(map[int]struct{}, len(f.Enum))
		for _, v := range f.Enum {
			r.Enum[v.Value] = struct{}{}
		}
	}

	if f.HasDefault() {
		v, err := parser.Parse(f.Type, f.Default)
		if err != nil {
			return r, apperror.NewSchema(t.Filename, f.Name, "default value does not parse").
				WithDetail("default", f.Default).
				WithCause(err)
		}
		r.Default = v
	}
	return r, nil
}

// cachingEnabled interns hinted fields and repeating value types, except a
// lone primary key whose values are unique by construction.
func cachingEnabled(t *metadata.TableDescriptor, f *metadata.FieldDescriptor) bool {
	if f.CacheHint {
		return true
	}
	return cacheableTypes[f.Type] && t.PrimaryKey != f.Name
}

func deriveValidators(t *metadata.TableDescriptor) []ValidatorSpec {
	var specs []ValidatorSpec
	for _, f := range t.Fields {
		if f.EndRange != nil {
			specs = append(specs, ValidatorSpec{
				Kind:            CheckEndRange,
				Field:           f.Name,
				Position:        f.Position,
				Partner:         f.EndRange.Field,
				PartnerPosition: t.Position(f.EndRange.Field),
				AllowEqual:      f.EndRange.AllowEqual,
			})
		}
		if f.CurrencyField != "" {
			specs = append(specs, ValidatorSpec{
				Kind:            CheckCurrencyAmount,
				Field:           f.Name,
				Position:        f.Position,
				Partner:         f.CurrencyField,
				PartnerPosition: t.Position(f.CurrencyField),
			})
		}
		if f.MixedCase {
			specs = append(specs, single(CheckMixedCase, f))
		}
		if f.InvalidChars {
			specs = append(specs, single(CheckInvalidChars, f))
		}
	}
	for _, pair := range t.LatLonPairs {
		specs = append(specs, ValidatorSpec{
			Kind:            CheckLatLon,
			Field:           pair.Lat,
			Position:        t.Position(pair.Lat),
			Partner:         pair.Lon,
			PartnerPosition: t.Position(pair.Lon),
		})
	}
	return specs
}

func single(kind ValidatorKind, f metadata.FieldDescriptor) ValidatorSpec {
	return ValidatorSpec{Kind: kind, Field: f.Name, Position: f.Position, PartnerPosition: -1}
}

func newRuleEnv() (*cel.Env, error) {
	return cel.NewEnv(cel.Variable("row", cel.MapType(cel.StringType, cel.DynType)))
}

func compileRule(env *cel.Env, table string, rule metadata.Rule) (*CompiledRule, error) {
	ast, iss := env.Compile(rule.Expr)
	if iss != nil && iss.Err() != nil {
		return nil, apperror.NewSchema(table, "", fmt.Sprintf("rule %s does not compile", rule.Code)).
			WithDetail("expr", rule.Expr).
			WithCause(iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, apperror.NewSchema(table, "", fmt.Sprintf("rule %s must evaluate to bool", rule.Code)).
			WithDetail("expr", rule.Expr).
			WithDetail("type", ast.OutputType().String())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, apperror.NewSchema(table, "", fmt.Sprintf("rule %s cannot be planned", rule.Code)).WithCause(err)
	}
	sev, err := notice.ParseSeverity(rule.Severity)
	if err != nil {
		return nil, apperror.NewSchema(table, "", err.Error())
	}
	return &CompiledRule{Code: rule.Code, Severity: sev, Expr: rule.Expr, Program: prg}, nil
}
