package derive

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedvalidator/internal/core/apperror"
	"feedvalidator/internal/core/types"
	"feedvalidator/internal/metadata"
	"feedvalidator/internal/notice"
	"feedvalidator/internal/parsing"
)

const planYAML = `
tables:
  - filename: stops.txt
    level: required
    fields:
      - {name: stop_id, type: id, key: primary, level: required}
      - {name: stop_name, mixed_case: true}
      - {name: stop_lat, type: latitude}
      - {name: stop_lon, type: longitude}
      - {name: zone_id, type: id, index: true}
      - {name: stop_color, kind: color}
      - {name: wheelchair_boarding, kind: wheelchair, default: "0", values: [{name: unknown, value: 0}, {name: yes, value: 1}]}
  - filename: stop_times.txt
    fields:
      - {name: trip_id, type: id, key: composite, index: true}
      - {name: stop_sequence, kind: int, key: sequence, bounds: non_negative}
      - name: stop_id
        type: id
        index: true
        references: {table: stops.txt, field: stop_id}
      - {name: arrival_time, kind: time, end_range: {field: departure_time, allow_equal: true}}
      - {name: departure_time, kind: time}
  - filename: fare_attributes.txt
    fields:
      - {name: fare_id, type: id, key: primary}
      - {name: price, kind: decimal, currency_field: currency_type, bounds: non_negative}
      - {name: currency_type, kind: currency}
    rules:
      - {code: free_fare, severity: info, expr: "!has(row.price) || row.price > 0.0"}
`

func buildPlan(t *testing.T, yaml string) (*FeedPlan, error) {
	t.Helper()
	decls, err := metadata.ParseDeclarations(strings.NewReader(yaml))
	require.NoError(t, err)
	s, err := metadata.Build(context.Background(), decls)
	require.NoError(t, err)
	return Derive(s, parsing.NewParser())
}

func TestDerive_FieldRules(t *testing.T) {
	fp, err := buildPlan(t, planYAML)
	require.NoError(t, err)

	stops, ok := fp.Table("stops.txt")
	require.True(t, ok)
	assert.Equal(t, metadata.KeyPrimary, stops.Key)
	assert.Equal(t, 0, stops.PrimaryKey)

	byName := map[string]FieldRule{}
	for _, r := range stops.Rules {
		byName[r.Name] = r
	}
	assert.False(t, byName["stop_id"].Cached, "lone primary key is not cached")
	assert.True(t, byName["stop_id"].HeaderRequired)
	assert.True(t, byName["stop_id"].CheckASCII)
	assert.True(t, byName["zone_id"].Cached)
	assert.True(t, byName["stop_color"].Cached)
	assert.False(t, byName["stop_name"].Cached)
	assert.Equal(t, 0, byName["wheelchair_boarding"].Default)
	assert.Contains(t, byName["wheelchair_boarding"].Enum, 1)
}

func TestDerive_CompositeKeyAndIndices(t *testing.T) {
	fp, err := buildPlan(t, planYAML)
	require.NoError(t, err)

	st, _ := fp.Table("stop_times.txt")
	assert.Equal(t, metadata.KeyComposite, st.Key)
	assert.Equal(t, []int{0, 1}, st.CompositeKey)
	assert.Equal(t, -1, st.PrimaryKey)

	ix, ok := st.Index("trip_id")
	require.True(t, ok)
	assert.Equal(t, 1, ix.SortBy)

	var tripRule FieldRule
	for _, r := range st.Rules {
		if r.Name == "trip_id" {
			tripRule = r
		}
	}
	assert.True(t, tripRule.Cached, "composite key parts stay cacheable")

	require.Len(t, fp.ForeignKeys, 1)
	assert.Equal(t, 2, fp.ForeignKeys[0].ChildPosition)
	assert.Equal(t, metadata.LookupPrimary, fp.ForeignKeys[0].Lookup)
}

func TestDerive_Validators(t *testing.T) {
	fp, err := buildPlan(t, planYAML)
	require.NoError(t, err)

	kinds := func(p *TablePlan) []ValidatorKind {
		var out []ValidatorKind
		for _, v := range p.Validators {
			out = append(out, v.Kind)
		}
		return out
	}

	stops, _ := fp.Table("stops.txt")
	assert.Equal(t, []ValidatorKind{CheckInvalidChars, CheckMixedCase, CheckInvalidChars, CheckInvalidChars, CheckLatLon}, kinds(stops))

	st, _ := fp.Table("stop_times.txt")
	require.Equal(t, CheckEndRange, st.Validators[2].Kind)
	assert.Equal(t, "departure_time", st.Validators[2].Partner)
	assert.True(t, st.Validators[2].AllowEqual)

	fares, _ := fp.Table("fare_attributes.txt")
	last := fares.Validators[len(fares.Validators)-1]
	require.Equal(t, CheckRule, last.Kind)
	assert.Equal(t, "free_fare", last.Rule.Code)
	assert.Equal(t, notice.SeverityInfo, last.Rule.Severity)
	assert.Contains(t, kinds(fares), CheckCurrencyAmount)
}

func TestDerive_RejectsBadDefault(t *testing.T) {
	_, err := buildPlan(t, `
tables:
  - filename: frequencies.txt
    fields:
      - {name: exact_times, kind: int, default: "often"}
`)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeSchemaInvalid, appErr.Code)
	assert.Equal(t, "exact_times", appErr.Details["field"])
}

func TestDerive_RejectsBadRules(t *testing.T) {
	for name, expr := range map[string]string{
		"syntax":   "row.a >",
		"not bool": "1 + 2",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := buildPlan(t, `
tables:
  - filename: a.txt
    fields: [{name: a}]
    rules: [{code: r1, expr: "`+expr+`"}]
`)
			assert.True(t, apperror.IsSchemaError(err))
		})
	}
}

func TestDerive_DecimalDefaultKeepsScale(t *testing.T) {
	fp, err := buildPlan(t, `
tables:
  - filename: a.txt
    fields: [{name: amount, kind: decimal, default: "1.50"}]
`)
	require.NoError(t, err)
	p, _ := fp.Table("a.txt")
	assert.Equal(t, 2, types.Scale(p.Rules[0].Default.(types.Decimal)))
}
