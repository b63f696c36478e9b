package table

import (
	"fmt"
	"strconv"
	"strings"

	"feedvalidator/internal/core/types"
)

// Compare orders two parsed values of the same field type.
// ok is false when the values are not mutually ordered.
func Compare(a, b any) (c int, ok bool) {
	switch x := a.(type) {
	case int:
		y, ok := b.(int)
		if !ok {
			return 0, false
		}
		return cmpOrdered(x, y), true
	case float64:
		y, ok := b.(float64)
		if !ok {
			return 0, false
		}
		return cmpOrdered(x, y), true
	case types.Decimal:
		y, ok := b.(types.Decimal)
		if !ok {
			return 0, false
		}
		return x.Cmp(y), true
	case types.Date:
		y, ok := b.(types.Date)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	case types.TimeOfDay:
		y, ok := b.(types.TimeOfDay)
		if !ok {
			return 0, false
		}
		return cmpOrdered(x, y), true
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	}
	return 0, false
}

func cmpOrdered[T int | float64 | types.TimeOfDay](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// KeyString renders a parsed value as a canonical index key.
func KeyString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case types.Decimal:
		return types.DecimalKey(x)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// FormatValue renders a parsed value the way it should appear in a notice.
// Decimals keep their written scale.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case types.Decimal:
		if s := types.Scale(x); s > 0 {
			return x.StringFixed(int32(s))
		}
		return x.String()
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
