package validator

import (
	"context"
	"sync/atomic"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"

	"feedvalidator/internal/core/types"
	"feedvalidator/internal/derive"
	"feedvalidator/internal/notice"
	"feedvalidator/internal/table"
	"feedvalidator/pkg/logger"
)

// ruleValidator evaluates a declared CEL expression against each record.
// A false result is reported with the rule's own code and severity.
type ruleValidator struct {
	rule     *derive.CompiledRule
	filename string
	failures atomic.Int64
}

func (v *ruleValidator) Validate(ctx context.Context, rec *table.Record, sink *notice.Container) {
	out, _, err := v.rule.Program.Eval(map[string]any{"row": celRow(rec)})
	if err != nil {
		// Only the first evaluation error of a rule is logged.
		if v.failures.Add(1) == 1 {
			logger.Warn(ctx, "rule evaluation failed",
				"filename", v.filename,
				"rule", v.rule.Code,
				"row", rec.RowNumber(),
				"error", err,
			)
		}
		return
	}
	if ok, isBool := out.Value().(bool); isBool && !ok {
		sink.Add(notice.New(v.rule.Code, v.rule.Severity, v.filename).
			With(notice.KeyRowNumber, rec.RowNumber()).
			With("expression", v.rule.Expr))
	}
}

// celRow exposes present values with CEL-native types. Dates become
// yyyymmdd integers and times become seconds since midnight so they compare numerically.
func celRow(rec *table.Record) map[string]any {
	vals := rec.Values()
	row := make(map[string]any, len(vals))
	for k, v := range vals {
		row[k] = celValue(v)
	}
	return row
}

func celValue(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case types.Decimal:
		return x.InexactFloat64()
	case types.Date:
		return int64(x.Year*10000 + int(x.Month)*100 + x.Day)
	case types.TimeOfDay:
		return int64(x.Seconds())
	case types.Color:
		return x.String()
	case currency.Unit:
		return x.String()
	case language.Tag:
		return x.String()
	}
	return v
}
