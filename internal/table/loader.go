package table

import (
	"context"
	"errors"
	"io"
	"strings"

	"feedvalidator/internal/derive"
	"feedvalidator/internal/metadata"
	"feedvalidator/internal/notice"
	"feedvalidator/internal/parsing"
	"feedvalidator/pkg/logger"
)

// Load reads one table file into a Container. A nil src means the file is absent.
// Rows are processed in file order; a row is kept unless it produced an
// error-severity notice. All diagnostics go to sink.
func Load(ctx context.Context, plan *derive.TablePlan, parser *parsing.Parser, src io.Reader, sink *notice.Container) *Container {
	filename := plan.Filename()
	ctx = logger.WithTable(ctx, filename)

	if src == nil {
		switch plan.Table.Level {
		case metadata.LevelRequired:
			sink.Add(notice.MissingFile(filename, true))
		case metadata.LevelRecommended:
			sink.Add(notice.MissingFile(filename, false))
		}
		return NewContainer(plan, nil, StatusMissingFile, sink)
	}

	rd := parsing.NewReader(src)
	header, err := rd.Header()
	if errors.Is(err, io.EOF) {
		sink.Add(notice.EmptyFile(filename))
		return NewContainer(plan, nil, StatusEmptyFile, sink)
	}
	if err != nil {
		sink.Add(notice.CSVParsingFailed(filename, rd.Line(), err))
		return NewContainer(plan, nil, StatusUnparsable, sink)
	}

	columns, ok := mapHeader(plan, header, sink)
	if !ok {
		return NewContainer(plan, nil, StatusInvalidHeaders, sink)
	}

	rp := &rowParser{
		plan:    plan,
		parser:  parser,
		columns: columns,
		caches:  make([]*parsing.Cache, len(plan.Rules)),
		builder: NewBuilder(plan),
		sink:    sink,
	}
	for i, r := range plan.Rules {
		if r.Cached {
			rp.caches[i] = parsing.NewCache()
		}
	}

	status := StatusLoaded
	var records []*Record
	for {
		row, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			sink.Add(notice.CSVParsingFailed(filename, rd.Line(), err))
			status = StatusUnparsable
			break
		}
		if len(row.Cells) != len(header) {
			sink.Add(notice.InvalidRowLength(filename, row.Number, len(row.Cells), len(header)))
			continue
		}
		if rec := rp.parse(row); rec != nil {
			records = append(records, rec)
		}
	}

	if len(records) == 0 && status == StatusLoaded && plan.Table.Level == metadata.LevelRequired {
		sink.Add(notice.EmptyFile(filename))
	}

	rp.logCacheStats(ctx)
	return NewContainer(plan, records, status, sink)
}

// mapHeader returns, per field position, the column index in the file or -1.
func mapHeader(plan *derive.TablePlan, header []string, sink *notice.Container) ([]int, bool) {
	filename := plan.Filename()
	columns := make([]int, len(plan.Rules))
	for i := range columns {
		columns[i] = -1
	}

	ok := true
	seen := make(map[string]int, len(header))
	for i, h := range header {
		if h == "" {
			sink.Add(notice.EmptyColumnName(filename, i))
			continue
		}
		if first, dup := seen[h]; dup {
			sink.Add(notice.DuplicatedColumn(filename, h, first, i))
			ok = false
			continue
		}
		seen[h] = i
		if pos := plan.Table.Position(h); pos >= 0 {
			columns[pos] = i
		} else {
			sink.Add(notice.UnknownColumn(filename, h, i))
		}
	}

	for _, r := range plan.Rules {
		if columns[r.Position] >= 0 {
			continue
		}
		switch {
		case r.HeaderRequired:
			sink.Add(notice.MissingColumn(filename, r.Name, true))
			ok = false
		case r.Level == metadata.LevelRecommended:
			sink.Add(notice.MissingColumn(filename, r.Name, false))
		}
	}
	return columns, ok
}

type rowParser struct {
	plan    *derive.TablePlan
	parser  *parsing.Parser
	columns []int
	caches  []*parsing.Cache
	builder *Builder
	sink    *notice.Container
}

// parse applies every field rule to row and returns nil if the row must be dropped.
func (p *rowParser) parse(row parsing.Row) *Record {
	filename := p.plan.Filename()
	p.builder.Reset(row.Number)
	accepted := true

	for _, r := range p.plan.Rules {
		raw := ""
		if col := p.columns[r.Position]; col >= 0 {
			raw = row.Cells[col]
		}
		raw, ok := p.checkRaw(r, row.Number, raw)
		if !ok {
			accepted = false
			continue
		}

		if raw == "" {
			switch r.Level {
			case metadata.LevelRequired:
				p.sink.Add(notice.MissingValue(filename, row.Number, r.Name, true))
				accepted = false
			case metadata.LevelRecommended:
				p.sink.Add(notice.MissingValue(filename, row.Number, r.Name, false))
			}
			continue
		}

		v, err := p.parser.Parse(r.Type, raw)
		if err != nil {
			var rangeErr *parsing.RangeError
			if errors.As(err, &rangeErr) {
				p.sink.Add(notice.NumberOutOfRange(filename, row.Number, r.Name, rangeErr.Bounds, rangeErr.Value))
			} else {
				p.sink.Add(notice.InvalidValue(filename, row.Number, r.Name, string(r.Type), raw))
			}
			accepted = false
			continue
		}
		if !parsing.CheckBounds(r.Bounds, v) {
			p.sink.Add(notice.NumberOutOfRange(filename, row.Number, r.Name, string(r.Bounds), v))
			accepted = false
			continue
		}
		if r.Enum != nil {
			if _, known := r.Enum[v.(int)]; !known {
				p.sink.Add(notice.UnexpectedEnumValue(filename, row.Number, r.Name, v.(int)))
			}
		}
		if c := p.caches[r.Position]; c != nil {
			v = c.Intern(v)
		}
		p.builder.Set(r.Position, v)
	}

	if !accepted {
		return nil
	}
	return p.builder.Build()
}

// checkRaw applies the generic cell checks and returns the trimmed value.
func (p *rowParser) checkRaw(r derive.FieldRule, line int, raw string) (string, bool) {
	if raw == "" {
		return raw, true
	}
	filename := p.plan.Filename()
	if strings.ContainsAny(raw, "\n\r") {
		p.sink.Add(notice.NewLineInValue(filename, line, r.Name, raw))
		return raw, false
	}
	if trimmed := strings.TrimSpace(raw); trimmed != raw {
		p.sink.Add(notice.LeadingOrTrailingWhitespace(filename, line, r.Name, raw))
		raw = trimmed
	}
	if r.CheckASCII && !isPrintableASCII(raw) {
		p.sink.Add(notice.NonASCIIOrNonPrintable(filename, line, r.Name, raw))
	}
	return raw, true
}

func isPrintableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7E {
			return false
		}
	}
	return true
}

func (p *rowParser) logCacheStats(ctx context.Context) {
	for i, c := range p.caches {
		if c == nil {
			continue
		}
		stats := c.Stats()
		logger.Debug(ctx, "field cache stats",
			"field", p.plan.Rules[i].Name,
			"lookups", stats.Lookups,
			"hits", stats.Hits,
			"size", stats.Size,
			"hit_ratio", stats.HitRatio(),
		)
	}
}
