package parsing

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // timezone fields must validate on hosts without zoneinfo

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"

	"feedvalidator/internal/core/types"
	"feedvalidator/internal/metadata"
)

// ErrInvalid marks a value that does not parse as its semantic type.
var ErrInvalid = errors.New("invalid value")

// RangeError is a parsed value outside the interval its type allows.
type RangeError struct {
	Bounds string
	Value  any
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("value %v out of range %s", e.Value, e.Bounds)
}

// Parser converts raw cells into Go values by semantic type:
//
//	text, id, url, email, phone, timezone -> string
//	integer, enum                         -> int
//	float, latitude, longitude            -> float64
//	decimal                               -> types.Decimal
//	date                                  -> types.Date
//	time                                  -> types.TimeOfDay
//	color                                 -> types.Color
//	currency_code                         -> currency.Unit
//	language_code                         -> language.Tag
//
// A Parser is safe for concurrent use.
type Parser struct {
	validate *validator.Validate
}

// NewParser creates a Parser.
func NewParser() *Parser {
	return &Parser{validate: validator.New()}
}

// Parse converts a non-empty, trimmed cell. The error wraps ErrInvalid or is a *RangeError.
func (p *Parser) Parse(t metadata.SemanticType, raw string) (any, error) {
	switch t {
	case metadata.TypeText, metadata.TypeID:
		return raw, nil
	case metadata.TypeInteger, metadata.TypeEnum:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, invalid(t, raw)
		}
		return n, nil
	case metadata.TypeFloat:
		return parseFloat(t, raw)
	case metadata.TypeLatitude:
		return parseCoordinate(t, raw, 90)
	case metadata.TypeLongitude:
		return parseCoordinate(t, raw, 180)
	case metadata.TypeDecimal:
		d, err := types.ParseDecimal(raw)
		if err != nil {
			return nil, invalid(t, raw)
		}
		return d, nil
	case metadata.TypeDate:
		d, err := types.ParseDate(raw)
		if err != nil {
			return nil, invalid(t, raw)
		}
		return d, nil
	case metadata.TypeTime:
		tm, err := types.ParseTimeOfDay(raw)
		if err != nil {
			return nil, invalid(t, raw)
		}
		return tm, nil
	case metadata.TypeColor:
		c, err := types.ParseColor(raw)
		if err != nil {
			return nil, invalid(t, raw)
		}
		return c, nil
	case metadata.TypeCurrencyCode:
		u, err := currency.ParseISO(raw)
		if err != nil {
			return nil, invalid(t, raw)
		}
		return u, nil
	case metadata.TypeLanguageCode:
		tag, err := language.Parse(raw)
		if err != nil {
			return nil, invalid(t, raw)
		}
		return tag, nil
	case metadata.TypeTimezone:
		// Local is not a zone name a feed may use.
		if raw == "Local" {
			return nil, invalid(t, raw)
		}
		if _, err := time.LoadLocation(raw); err != nil {
			return nil, invalid(t, raw)
		}
		return raw, nil
	case metadata.TypeURL:
		if err := p.validate.Var(raw, "url"); err != nil {
			return nil, invalid(t, raw)
		}
		return raw, nil
	case metadata.TypeEmail:
		if err := p.validate.Var(raw, "email"); err != nil {
			return nil, invalid(t, raw)
		}
		return raw, nil
	case metadata.TypePhone:
		if !isPhoneNumber(raw) {
			return nil, invalid(t, raw)
		}
		return raw, nil
	}
	return nil, fmt.Errorf("%w: no parser for type %s", ErrInvalid, t)
}

func invalid(t metadata.SemanticType, raw string) error {
	return fmt.Errorf("%w: %q is not a valid %s", ErrInvalid, raw, t)
}

func parseFloat(t metadata.SemanticType, raw string) (float64, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, invalid(t, raw)
	}
	return f, nil
}

func parseCoordinate(t metadata.SemanticType, raw string, limit float64) (any, error) {
	f, err := parseFloat(t, raw)
	if err != nil {
		return nil, err
	}
	if f < -limit || f > limit {
		return nil, &RangeError{Bounds: fmt.Sprintf("[-%g, %g]", limit, limit), Value: f}
	}
	return f, nil
}

// isPhoneNumber is a loose syntactic check: dial characters only, with at least three digits.
func isPhoneNumber(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case strings.ContainsRune("+-(). /#*,;xXeEtT", r):
		default:
			return false
		}
	}
	return digits >= 3
}

// CheckBounds reports whether v satisfies the declared numeric bounds.
// Non-numeric values always pass.
func CheckBounds(b metadata.NumberBounds, v any) bool {
	var sign int
	switch n := v.(type) {
	case int:
		sign = cmpZero(float64(n))
	case float64:
		sign = cmpZero(n)
	case types.Decimal:
		sign = n.Sign()
	default:
		return true
	}
	switch b {
	case metadata.BoundsPositive:
		return sign > 0
	case metadata.BoundsNonNegative:
		return sign >= 0
	case metadata.BoundsNonZero:
		return sign != 0
	}
	return true
}

func cmpZero(f float64) int {
	switch {
	case f > 0:
		return 1
	case f < 0:
		return -1
	}
	return 0
}

// FractionDigits returns the ISO 4217 minor unit count of a currency.
func FractionDigits(u currency.Unit) int {
	scale, _ := currency.Standard.Rounding(u)
	return scale
}
