package validator

import (
	"context"
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/currency"

	"feedvalidator/internal/core/types"
	"feedvalidator/internal/derive"
	"feedvalidator/internal/notice"
	"feedvalidator/internal/parsing"
	"feedvalidator/internal/table"
)

// newEntityValidator builds the validator described by a ValidatorSpec.
func newEntityValidator(tp *derive.TablePlan, spec derive.ValidatorSpec) EntityValidator {
	switch spec.Kind {
	case derive.CheckEndRange:
		return endRangeValidator{spec}
	case derive.CheckLatLon:
		return latLonValidator{spec}
	case derive.CheckCurrencyAmount:
		return currencyAmountValidator{spec}
	case derive.CheckMixedCase:
		return mixedCaseValidator{spec}
	case derive.CheckInvalidChars:
		return invalidCharsValidator{spec}
	case derive.CheckRule:
		return &ruleValidator{rule: spec.Rule, filename: tp.Filename()}
	}
	return EntityFunc(func(context.Context, *table.Record, *notice.Container) {})
}

type endRangeValidator struct{ spec derive.ValidatorSpec }

func (v endRangeValidator) Validate(_ context.Context, rec *table.Record, sink *notice.Container) {
	if !rec.HasAt(v.spec.Position) || !rec.HasAt(v.spec.PartnerPosition) {
		return
	}
	start, end := rec.At(v.spec.Position), rec.At(v.spec.PartnerPosition)
	cmp, ok := table.Compare(start, end)
	if !ok {
		return
	}
	switch {
	case cmp > 0:
		sink.Add(notice.RangeOutOfOrder(rec.Filename(), rec.RowNumber(), v.spec.Field, v.spec.Partner,
			table.FormatValue(start), table.FormatValue(end)))
	case cmp == 0 && !v.spec.AllowEqual:
		sink.Add(notice.RangeEqual(rec.Filename(), rec.RowNumber(), v.spec.Field, v.spec.Partner,
			table.FormatValue(start)))
	}
}

const (
	// Degrees around (0, 0) treated as a placeholder position.
	originTolerance = 1.0
	// Metres from a pole treated as a placeholder position.
	poleToleranceMeters = 1.0
	earthRadiusMeters   = 6371010.0
)

// poleDistanceMeters is the great-circle distance from lat to the nearer pole.
func poleDistanceMeters(lat float64) float64 {
	return earthRadiusMeters * (math.Pi/2 - math.Abs(lat)*math.Pi/180)
}

type latLonValidator struct{ spec derive.ValidatorSpec }

func (v latLonValidator) Validate(_ context.Context, rec *table.Record, sink *notice.Container) {
	if !rec.HasAt(v.spec.Position) || !rec.HasAt(v.spec.PartnerPosition) {
		return
	}
	lat, _ := rec.At(v.spec.Position).(float64)
	lon, _ := rec.At(v.spec.PartnerPosition).(float64)

	if math.Abs(lat) <= originTolerance && math.Abs(lon) <= originTolerance {
		sink.Add(notice.PointNearOrigin(rec.Filename(), rec.RowNumber(), v.spec.Field, lat, v.spec.Partner, lon))
	}
	if poleDistanceMeters(lat) <= poleToleranceMeters {
		sink.Add(notice.PointNearPole(rec.Filename(), rec.RowNumber(), v.spec.Field, lat, v.spec.Partner, lon))
	}
}

type currencyAmountValidator struct{ spec derive.ValidatorSpec }

func (v currencyAmountValidator) Validate(_ context.Context, rec *table.Record, sink *notice.Container) {
	if !rec.HasAt(v.spec.Position) || !rec.HasAt(v.spec.PartnerPosition) {
		return
	}
	amount, ok := rec.At(v.spec.Position).(types.Decimal)
	if !ok {
		return
	}
	unit, ok := rec.At(v.spec.PartnerPosition).(currency.Unit)
	if !ok {
		return
	}
	if types.Scale(amount) != parsing.FractionDigits(unit) {
		sink.Add(notice.InvalidCurrencyAmount(rec.Filename(), rec.RowNumber(), v.spec.Field,
			table.FormatValue(amount), unit.String()))
	}
}

type mixedCaseValidator struct{ spec derive.ValidatorSpec }

func (v mixedCaseValidator) Validate(_ context.Context, rec *table.Record, sink *notice.Container) {
	if !rec.HasAt(v.spec.Position) {
		return
	}
	s, ok := rec.At(v.spec.Position).(string)
	if ok && !IsMixedCase(s) {
		sink.Add(notice.MixedCaseRecommended(rec.Filename(), rec.RowNumber(), v.spec.Field, s))
	}
}

// IsMixedCase reports whether s looks properly cased. Words are runs of
// letters and digits. A single word fails only if it is longer than one
// character, has no digit and is all lower case. Several words fail when at
// least two of them are longer than one character without digits and none
// of those mixes upper and lower case.
func IsMixedCase(s string) bool {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return true
	}
	if len(words) == 1 {
		w := []rune(words[0])
		return len(w) <= 1 || hasDigit(w) || !isLower(w)
	}

	candidates := 0
	for _, word := range words {
		w := []rune(word)
		if len(w) <= 1 || hasDigit(w) {
			continue
		}
		candidates++
		if hasUpper(w) && hasLower(w) {
			return true
		}
	}
	return candidates < 2
}

func hasDigit(w []rune) bool {
	for _, r := range w {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func hasUpper(w []rune) bool {
	for _, r := range w {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

func hasLower(w []rune) bool {
	for _, r := range w {
		if unicode.IsLower(r) {
			return true
		}
	}
	return false
}

// isLower is true when every cased letter of w is lower case and there is at least one.
func isLower(w []rune) bool {
	return hasLower(w) && !hasUpper(w)
}

type invalidCharsValidator struct{ spec derive.ValidatorSpec }

func (v invalidCharsValidator) Validate(_ context.Context, rec *table.Record, sink *notice.Container) {
	if !rec.HasAt(v.spec.Position) {
		return
	}
	s, ok := rec.At(v.spec.Position).(string)
	if ok && strings.ContainsRune(s, unicode.ReplacementChar) {
		sink.Add(notice.InvalidCharacter(rec.Filename(), rec.RowNumber(), v.spec.Field, s))
	}
}
