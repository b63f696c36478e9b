// Package types provides the value types of feed fields.
package types

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Decimal is an exact decimal number that keeps the scale it was written with.
// "2.50" and "2.5" are equal in value but differ in Scale.
type Decimal = decimal.Decimal

// ParseDecimal parses a decimal literal, keeping its written scale.
func ParseDecimal(s string) (Decimal, error) {
	return decimal.NewFromString(s)
}

// MustDecimal parses a decimal literal, panics on error.
// Use only for constants and tests.
func MustDecimal(s string) Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Scale returns the number of digits after the decimal point as written.
// Exponent notation may yield a negative scale ("2e3" has scale -3).
func Scale(d Decimal) int {
	return int(-d.Exponent())
}

// DecimalKey returns a string that identifies d including its scale.
// Suitable as a map key, unlike Decimal itself.
func DecimalKey(d Decimal) string {
	return d.Coefficient().String() + "e" + strconv.Itoa(int(d.Exponent()))
}
