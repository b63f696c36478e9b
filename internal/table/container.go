package table

import (
	"sort"

	"github.com/cespare/xxhash/v2"

	"feedvalidator/internal/derive"
	"feedvalidator/internal/metadata"
	"feedvalidator/internal/notice"
)

// Status is the outcome of loading a table file.
type Status string

const (
	StatusLoaded         Status = "loaded"
	StatusMissingFile    Status = "missing_file"
	StatusEmptyFile      Status = "empty_file"
	StatusInvalidHeaders Status = "invalid_headers"
	StatusUnparsable     Status = "unparsable"
)

// compositeEntry is one slot of the composite key map.
type compositeEntry struct {
	parts []string
	rec   *Record
}

// Container holds the records of one table and the indices its plan asks for.
// It is read-only after NewContainer returns.
type Container struct {
	plan    *derive.TablePlan
	status  Status
	records []*Record

	byPrimary   map[string]*Record
	byComposite map[uint64][]compositeEntry
	indices     map[string]map[string][]*Record
}

// NewContainer indexes records in load order. The first record of a key wins
// the slot; each later one is reported as a duplicate key.
func NewContainer(plan *derive.TablePlan, records []*Record, status Status, sink *notice.Container) *Container {
	c := &Container{
		plan:    plan,
		status:  status,
		records: records,
		indices: make(map[string]map[string][]*Record, len(plan.Indices)),
	}

	switch plan.Key {
	case metadata.KeyPrimary:
		c.byPrimary = make(map[string]*Record, len(records))
	case metadata.KeyComposite:
		c.byComposite = make(map[uint64][]compositeEntry, len(records))
	}

	for _, rec := range records {
		c.indexKey(rec, sink)
	}
	c.buildSecondaryIndices()

	if plan.Table.SingleRow && len(records) > 1 {
		sink.Add(notice.MoreThanOneEntity(plan.Filename(), len(records)))
	}
	return c
}

func (c *Container) indexKey(rec *Record, sink *notice.Container) {
	switch c.plan.Key {
	case metadata.KeyPrimary:
		// Rows without an optional key have no identity to collide on.
		if !rec.HasAt(c.plan.PrimaryKey) {
			return
		}
		k := KeyString(rec.At(c.plan.PrimaryKey))
		if prev, dup := c.byPrimary[k]; dup {
			name := c.plan.Rules[c.plan.PrimaryKey].Name
			sink.Add(notice.DuplicateKey(c.plan.Filename(), rec.RowNumber(), prev.RowNumber(),
				[]string{name}, []any{k}))
			return
		}
		c.byPrimary[k] = rec

	case metadata.KeyComposite:
		parts := make([]string, len(c.plan.CompositeKey))
		for i, pos := range c.plan.CompositeKey {
			parts[i] = KeyString(rec.At(pos))
		}
		h := hashParts(parts)
		for _, e := range c.byComposite[h] {
			if equalParts(e.parts, parts) {
				names := make([]string, len(c.plan.CompositeKey))
				values := make([]any, len(parts))
				for i, pos := range c.plan.CompositeKey {
					names[i] = c.plan.Rules[pos].Name
					values[i] = parts[i]
				}
				sink.Add(notice.DuplicateKey(c.plan.Filename(), rec.RowNumber(), e.rec.RowNumber(), names, values))
				return
			}
		}
		c.byComposite[h] = append(c.byComposite[h], compositeEntry{parts: parts, rec: rec})
	}
}

func (c *Container) buildSecondaryIndices() {
	for _, ix := range c.plan.Indices {
		buckets := make(map[string][]*Record)
		for _, rec := range c.records {
			if !rec.HasAt(ix.Position) {
				continue
			}
			k := KeyString(rec.At(ix.Position))
			buckets[k] = append(buckets[k], rec)
		}
		if ix.SortBy >= 0 {
			for _, b := range buckets {
				sortBySequence(b, ix.SortBy)
			}
		}
		c.indices[ix.Field] = buckets
	}
}

// sortBySequence orders a bucket by the sequence field, keeping load order for ties.
func sortBySequence(b []*Record, pos int) {
	sort.SliceStable(b, func(i, j int) bool {
		cmp, ok := Compare(b[i].At(pos), b[j].At(pos))
		return ok && cmp < 0
	})
}

func hashParts(parts []string) uint64 {
	d := xxhash.New()
	for _, p := range parts {
		_, _ = d.WriteString(p)
		_, _ = d.Write([]byte{0x1f})
	}
	return d.Sum64()
}

func equalParts(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Plan returns the derived plan of the table.
func (c *Container) Plan() *derive.TablePlan { return c.plan }

// Filename returns the table file name.
func (c *Container) Filename() string { return c.plan.Filename() }

// Status returns how loading the file went.
func (c *Container) Status() Status { return c.status }

// Len returns the number of accepted records.
func (c *Container) Len() int { return len(c.records) }

// All returns accepted records in load order.
func (c *Container) All() []*Record {
	return c.records[:len(c.records):len(c.records)]
}

// ByPrimaryKey returns the record that owns key.
func (c *Container) ByPrimaryKey(key any) (*Record, bool) {
	if c.byPrimary == nil {
		return nil, false
	}
	rec, ok := c.byPrimary[KeyString(key)]
	return rec, ok
}

// ByCompositeKey returns the record whose composite key fields equal key.
// Field order in key does not matter; absent fields compare as empty.
func (c *Container) ByCompositeKey(key map[string]any) (*Record, bool) {
	if c.byComposite == nil {
		return nil, false
	}
	parts := make([]string, len(c.plan.CompositeKey))
	for i, pos := range c.plan.CompositeKey {
		parts[i] = KeyString(key[c.plan.Rules[pos].Name])
	}
	for _, e := range c.byComposite[hashParts(parts)] {
		if equalParts(e.parts, parts) {
			return e.rec, true
		}
	}
	return nil, false
}

// BySecondaryIndex returns all records whose field equals key, ordered by the
// sequence field when the table has one. It never returns nil.
func (c *Container) BySecondaryIndex(field string, key any) []*Record {
	b := c.indices[field][KeyString(key)]
	if b == nil {
		return []*Record{}
	}
	return b[:len(b):len(b)]
}

// HasIndexKey reports whether any record has key in the secondary index on field.
func (c *Container) HasIndexKey(field string, key any) bool {
	return len(c.indices[field][KeyString(key)]) > 0
}

// SingleEntity returns the authoritative record of a single-row table: the first one.
func (c *Container) SingleEntity() (*Record, bool) {
	if len(c.records) == 0 {
		return nil, false
	}
	return c.records[0], true
}

// Table returns the descriptor of the table.
func (c *Container) Table() *metadata.TableDescriptor { return c.plan.Table }
