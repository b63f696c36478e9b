package metadata

import (
	"context"
	"fmt"

	"feedvalidator/internal/core/apperror"
	"feedvalidator/pkg/logger"
)

// Lookup is how a foreign key finds its parent.
type Lookup int

const (
	LookupPrimary Lookup = iota // parent field is the primary key
	LookupIndex                 // parent field has a secondary index
)

func (l Lookup) String() string {
	if l == LookupIndex {
		return "index"
	}
	return "primary"
}

// ForeignKey is a resolved, checkable reference from a child column to a parent column.
type ForeignKey struct {
	Child  Reference
	Parent Reference
	Lookup Lookup
}

// Schema is the analyzed set of tables. It is immutable after Build.
type Schema struct {
	tables      []*TableDescriptor
	byFilename  map[string]*TableDescriptor
	foreignKeys []ForeignKey
	warnings    []string
}

// Build analyzes every declaration and resolves foreign keys across tables.
// Any unresolvable reference fails the build. A reference whose parent column
// has neither a primary key nor an index cannot be checked; it is logged,
// kept in Warnings and left out of ForeignKeys.
func Build(ctx context.Context, decls []TableDecl) (*Schema, error) {
	s := &Schema{
		tables:     make([]*TableDescriptor, 0, len(decls)),
		byFilename: make(map[string]*TableDescriptor, len(decls)),
	}

	for _, d := range decls {
		t, err := Analyze(d)
		if err != nil {
			return nil, err
		}
		if _, dup := s.byFilename[t.Filename]; dup {
			return nil, apperror.NewSchema(t.Filename, "", "table declared twice")
		}
		s.tables = append(s.tables, t)
		s.byFilename[t.Filename] = t
	}

	for _, child := range s.tables {
		for _, f := range child.Fields {
			if f.ForeignKey == nil {
				continue
			}
			fk, ok, err := s.resolveForeignKey(child, f)
			if err != nil {
				return nil, err
			}
			if !ok {
				msg := fmt.Sprintf("foreign key %s.%s -> %s is not checkable: parent field is neither a primary key nor indexed",
					child.Filename, f.Name, f.ForeignKey)
				s.warnings = append(s.warnings, msg)
				logger.Warn(ctx, "schema warning",
					"table", child.Filename,
					"field", f.Name,
					"target", f.ForeignKey.String(),
					"reason", "parent field not indexed",
				)
				continue
			}
			s.foreignKeys = append(s.foreignKeys, fk)
		}
	}

	return s, nil
}

func (s *Schema) resolveForeignKey(child *TableDescriptor, f FieldDescriptor) (ForeignKey, bool, error) {
	ref := *f.ForeignKey
	parent, ok := s.byFilename[ref.Table]
	if !ok {
		return ForeignKey{}, false, apperror.NewUnresolvedReference(child.Filename, f.Name, "foreign key", ref.String())
	}
	pf, ok := parent.Field(ref.Field)
	if !ok {
		return ForeignKey{}, false, apperror.NewUnresolvedReference(child.Filename, f.Name, "foreign key", ref.String())
	}

	fk := ForeignKey{
		Child:  Reference{Table: child.Filename, Field: f.Name},
		Parent: ref,
	}
	switch {
	case parent.PrimaryKey == pf.Name:
		fk.Lookup = LookupPrimary
	case pf.Indexed:
		fk.Lookup = LookupIndex
	default:
		return fk, false, nil
	}
	return fk, true, nil
}

// Tables returns table descriptors in declaration order.
func (s *Schema) Tables() []*TableDescriptor {
	return s.tables
}

// Table returns the descriptor for a filename.
func (s *Schema) Table(filename string) (*TableDescriptor, bool) {
	t, ok := s.byFilename[filename]
	return t, ok
}

// ForeignKeys returns all checkable foreign keys in declaration order.
func (s *Schema) ForeignKeys() []ForeignKey {
	return s.foreignKeys
}

// Warnings returns build warnings that did not fail the build.
func (s *Schema) Warnings() []string {
	return s.warnings
}
