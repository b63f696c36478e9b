package validator

import (
	"context"

	"feedvalidator/internal/derive"
	"feedvalidator/internal/metadata"
	"feedvalidator/internal/notice"
	"feedvalidator/internal/table"
)

type foreignKeyValidator struct {
	spec derive.ForeignKeySpec
}

// Validate reports every child value with no parent. It does nothing unless
// the parent table loaded cleanly; a missing or broken parent already has its own notice.
func (v *foreignKeyValidator) Validate(_ context.Context, feed Feed, sink *notice.Container) {
	child, ok := feed.Table(v.spec.Child.Table)
	if !ok || child.Len() == 0 {
		return
	}
	parent, ok := feed.Table(v.spec.Parent.Table)
	if !ok || parent.Status() != table.StatusLoaded {
		return
	}

	for _, rec := range child.All() {
		if !rec.HasAt(v.spec.ChildPosition) {
			continue
		}
		key := rec.At(v.spec.ChildPosition)
		if v.exists(parent, key) {
			continue
		}
		sink.Add(notice.ForeignKeyViolation(
			v.spec.Child.Table, v.spec.Child.Field,
			v.spec.Parent.Table, v.spec.Parent.Field,
			table.FormatValue(key), rec.RowNumber(),
		))
	}
}

func (v *foreignKeyValidator) exists(parent *table.Container, key any) bool {
	if v.spec.Lookup == metadata.LookupPrimary {
		_, ok := parent.ByPrimaryKey(key)
		return ok
	}
	return parent.HasIndexKey(v.spec.Parent.Field, key)
}
