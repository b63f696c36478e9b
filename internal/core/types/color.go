package types

import (
	"fmt"
	"strconv"
)

// Color is a 24-bit RGB color written as six hex digits without '#'.
type Color uint32

// ParseColor parses RRGGBB, case-insensitive.
func ParseColor(s string) (Color, error) {
	if len(s) != 6 {
		return 0, fmt.Errorf("color %q: expected 6 hex digits", s)
	}
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("color %q: %w", s, err)
	}
	return Color(n), nil
}

// Luma returns the Rec. 601 luma of the color in [0, 255].
func (c Color) Luma() int {
	r := int(c>>16) & 0xFF
	g := int(c>>8) & 0xFF
	b := int(c) & 0xFF
	return (299*r + 587*g + 114*b) / 1000
}

// String formats the color as upper-case RRGGBB.
func (c Color) String() string {
	return fmt.Sprintf("%06X", uint32(c))
}
