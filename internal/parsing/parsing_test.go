package parsing

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"

	"feedvalidator/internal/core/types"
	"feedvalidator/internal/metadata"
)

func TestParser_ValidValues(t *testing.T) {
	p := NewParser()
	cases := []struct {
		typ  metadata.SemanticType
		raw  string
		want any
	}{
		{metadata.TypeText, "Main St", "Main St"},
		{metadata.TypeID, "S1", "S1"},
		{metadata.TypeInteger, "-4", -4},
		{metadata.TypeEnum, "3", 3},
		{metadata.TypeFloat, "1.25", 1.25},
		{metadata.TypeLatitude, "45.5", 45.5},
		{metadata.TypeLongitude, "-179.9", -179.9},
		{metadata.TypeDate, "20240131", types.Date{Year: 2024, Month: 1, Day: 31}},
		{metadata.TypeTime, "25:00:00", types.TimeOfDay(90000)},
		{metadata.TypeColor, "00ff00", types.Color(0x00FF00)},
		{metadata.TypeTimezone, "America/New_York", "America/New_York"},
		{metadata.TypeURL, "https://example.com/fares", "https://example.com/fares"},
		{metadata.TypeEmail, "info@example.com", "info@example.com"},
		{metadata.TypePhone, "+1 (555) 010-9999", "+1 (555) 010-9999"},
	}
	for _, tc := range cases {
		t.Run(string(tc.typ), func(t *testing.T) {
			got, err := p.Parse(tc.typ, tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	cur, err := p.Parse(metadata.TypeCurrencyCode, "USD")
	require.NoError(t, err)
	assert.Equal(t, currency.USD, cur)

	lang, err := p.Parse(metadata.TypeLanguageCode, "fr-CA")
	require.NoError(t, err)
	assert.Equal(t, language.MustParse("fr-CA"), lang)

	dec, err := p.Parse(metadata.TypeDecimal, "2.50")
	require.NoError(t, err)
	assert.Equal(t, 2, types.Scale(dec.(types.Decimal)))
}

func TestParser_InvalidValues(t *testing.T) {
	p := NewParser()
	cases := map[metadata.SemanticType]string{
		metadata.TypeInteger:      "1.5",
		metadata.TypeFloat:        "NaN",
		metadata.TypeDecimal:      "two",
		metadata.TypeDate:         "2024-01-31",
		metadata.TypeTime:         "8am",
		metadata.TypeColor:        "red",
		metadata.TypeCurrencyCode: "DOLLAR",
		metadata.TypeLanguageCode: "not a language",
		metadata.TypeTimezone:     "Mars/Olympus",
		metadata.TypeURL:          "example dot com",
		metadata.TypeEmail:        "nobody",
		metadata.TypePhone:        "call us",
	}
	for typ, raw := range cases {
		t.Run(string(typ), func(t *testing.T) {
			_, err := p.Parse(typ, raw)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestParser_CoordinateRange(t *testing.T) {
	p := NewParser()
	_, err := p.Parse(metadata.TypeLatitude, "91")
	var rangeErr *RangeError
	require.True(t, errors.As(err, &rangeErr))
	assert.Equal(t, "[-90, 90]", rangeErr.Bounds)

	_, err = p.Parse(metadata.TypeLongitude, "-180.5")
	require.True(t, errors.As(err, &rangeErr))
	assert.Equal(t, "[-180, 180]", rangeErr.Bounds)
}

func TestCheckBounds(t *testing.T) {
	assert.True(t, CheckBounds(metadata.BoundsPositive, 1))
	assert.False(t, CheckBounds(metadata.BoundsPositive, 0))
	assert.True(t, CheckBounds(metadata.BoundsNonNegative, 0.0))
	assert.False(t, CheckBounds(metadata.BoundsNonNegative, -0.5))
	assert.False(t, CheckBounds(metadata.BoundsNonZero, types.MustDecimal("0.00")))
	assert.True(t, CheckBounds(metadata.BoundsNonZero, types.MustDecimal("-1")))
	assert.True(t, CheckBounds(metadata.BoundsPositive, "text"))
	assert.True(t, CheckBounds(metadata.BoundsNone, -1))
}

func TestFractionDigits(t *testing.T) {
	assert.Equal(t, 0, FractionDigits(currency.JPY))
	assert.Equal(t, 2, FractionDigits(currency.USD))
}

func TestCache_Interns(t *testing.T) {
	c := NewCache()
	a := c.Intern(types.MustDecimal("2.50"))
	b := c.Intern(types.MustDecimal("2.5"))
	again := c.Intern(types.MustDecimal("2.50"))

	assert.Equal(t, 2, types.Scale(a.(types.Decimal)))
	assert.Equal(t, 1, types.Scale(b.(types.Decimal)))
	assert.Equal(t, 2, types.Scale(again.(types.Decimal)))

	c.Intern("S1")
	c.Intern("S1")
	stats := c.Stats()
	assert.Equal(t, 5, stats.Lookups)
	assert.Equal(t, 2, stats.Hits)
	assert.Equal(t, 3, stats.Size)
	assert.InDelta(t, 0.4, stats.HitRatio(), 1e-9)
}

func TestReader_HeaderRowsAndLineNumbers(t *testing.T) {
	src := "\uFEFFstop_id, stop_name\nS1,Main\n\nS2,\"Second\nline\"\nS3,Third\n"
	r := NewReader(strings.NewReader(src))

	header, err := r.Header()
	require.NoError(t, err)
	assert.Equal(t, []string{"stop_id", "stop_name"}, header)

	var rows []Row
	for {
		row, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
	require.Len(t, rows, 3)
	assert.Equal(t, 2, rows[0].Number)
	assert.Equal(t, 4, rows[1].Number)
	assert.Equal(t, "Second\nline", rows[1].Cells[1])
	assert.Equal(t, 6, rows[2].Number)
}

func TestReader_EmptyAndBroken(t *testing.T) {
	_, err := NewReader(strings.NewReader("")).Header()
	assert.Equal(t, io.EOF, err)

	r := NewReader(strings.NewReader("a,b\n1,2\n3,\"bad\n"))
	_, err = r.Header()
	require.NoError(t, err)
	_, err = r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	assert.Error(t, err)
	assert.NotEqual(t, io.EOF, err)
	assert.Equal(t, 3, r.Line())
}
