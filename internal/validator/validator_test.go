package validator

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedvalidator/internal/derive"
	"feedvalidator/internal/metadata"
	"feedvalidator/internal/notice"
	"feedvalidator/internal/parsing"
	"feedvalidator/internal/table"
)

const validatorYAML = `
tables:
  - filename: routes.txt
    level: required
    fields:
      - {name: route_id, type: id, key: primary, level: required}
      - {name: route_long_name, mixed_case: true}
  - filename: trips.txt
    level: required
    fields:
      - {name: trip_id, type: id, key: primary, level: required}
      - name: route_id
        type: id
        level: required
        references: {table: routes.txt, field: route_id}
      - name: shape_id
        type: id
        references: {table: shapes.txt, field: shape_id}
  - filename: shapes.txt
    fields:
      - {name: shape_id, type: id, key: composite, index: true, level: required}
      - {name: shape_pt_sequence, kind: int, key: sequence, level: required}
      - {name: shape_pt_lat, type: latitude, level: required}
      - {name: shape_pt_lon, type: longitude, level: required}
  - filename: frequencies.txt
    fields:
      - {name: trip_id, type: id, key: composite}
      - {name: start_time, kind: time, key: composite, end_range: {field: end_time}}
      - {name: end_time, kind: time}
  - filename: timeframes.txt
    fields:
      - {name: timeframe_id, type: id, key: primary}
      - {name: start_time, kind: time, end_range: {field: end_time, allow_equal: true}}
      - {name: end_time, kind: time}
  - filename: fare_attributes.txt
    fields:
      - {name: fare_id, type: id, key: primary}
      - {name: price, kind: decimal, currency_field: currency_type}
      - {name: currency_type, kind: currency}
    rules:
      - {code: zero_fare, severity: warning, expr: "!has(row.price) || row.price > 0.0"}
`

type feedMap map[string]*table.Container

func (f feedMap) Table(filename string) (*table.Container, bool) {
	c, ok := f[filename]
	return c, ok
}

func buildFeed(t *testing.T, files map[string]string) (*derive.FeedPlan, feedMap) {
	t.Helper()
	decls, err := metadata.ParseDeclarations(strings.NewReader(validatorYAML))
	require.NoError(t, err)
	s, err := metadata.Build(context.Background(), decls)
	require.NoError(t, err)
	parser := parsing.NewParser()
	fp, err := derive.Derive(s, parser)
	require.NoError(t, err)

	feed := feedMap{}
	for _, tp := range fp.Tables {
		content, ok := files[tp.Filename()]
		sink := notice.NewContainer(0)
		if !ok {
			feed[tp.Filename()] = table.Load(context.Background(), tp, parser, nil, sink)
			continue
		}
		feed[tp.Filename()] = table.Load(context.Background(), tp, parser, strings.NewReader(content), sink)
		require.False(t, sink.HasErrors(), "fixture %s: %v", tp.Filename(), sink.Notices())
	}
	return fp, feed
}

func run(t *testing.T, files map[string]string) *notice.Container {
	t.Helper()
	fp, feed := buildFeed(t, files)
	return FromPlan(fp).Run(context.Background(), feed, 2, 0)
}

func TestEndRange(t *testing.T) {
	notices := run(t, map[string]string{
		"frequencies.txt": "trip_id,start_time,end_time\n" +
			"T1,20:00:00,10:00:00\n" +
			"T2,10:00:00,10:00:00\n" +
			"T3,09:00:00,10:00:00\n" +
			"T4,09:00:00,\n",
		"timeframes.txt": "timeframe_id,start_time,end_time\nF1,10:00:00,10:00:00\n",
	})

	out := notices.ByCode(notice.CodeRangeOutOfOrder)
	require.Len(t, out, 1)
	assert.Equal(t, 2, out[0].RowNumber())
	assert.Equal(t, "20:00:00", out[0].Context["startValue"])

	eq := notices.ByCode(notice.CodeRangeEqual)
	require.Len(t, eq, 1, "equal bounds are allowed for timeframes")
	assert.Equal(t, "frequencies.txt", eq[0].Filename())
	assert.Equal(t, 3, eq[0].RowNumber())
}

func TestCurrencyAmount(t *testing.T) {
	notices := run(t, map[string]string{
		"fare_attributes.txt": "fare_id,price,currency_type\n" +
			"F1,2.5,JPY\n" +
			"F2,2.50,USD\n" +
			"F3,250,JPY\n" +
			"F4,2.5,USD\n",
	})

	bad := notices.ByCode(notice.CodeInvalidCurrencyAmount)
	require.Len(t, bad, 2)
	assert.Equal(t, "2.5", bad[0].Context[notice.KeyFieldValue])
	assert.Equal(t, "JPY", bad[0].Context[notice.KeyCurrencyCode])
	assert.Equal(t, 5, bad[1].RowNumber())
}

func TestLatLon(t *testing.T) {
	notices := run(t, map[string]string{
		"shapes.txt": "shape_id,shape_pt_sequence,shape_pt_lat,shape_pt_lon\n" +
			"S1,1,0.5,-0.5\n" +
			"S1,2,89.5,10\n" +
			"S1,3,45.0,7.0\n" +
			"S1,4,-89.1,-120\n" +
			"S1,5,90,0\n" +
			"S1,6,-89.999995,45\n",
	})

	origin := notices.ByCode(notice.CodePointNearOrigin)
	require.Len(t, origin, 1)
	assert.Equal(t, 2, origin[0].RowNumber())
	assert.Equal(t, notice.SeverityWarning, origin[0].Severity)

	pole := notices.ByCode(notice.CodePointNearPole)
	require.Len(t, pole, 2)
	assert.Equal(t, 6, pole[0].RowNumber())
	assert.Equal(t, 7, pole[1].RowNumber())
}

func TestPoleDistanceMeters(t *testing.T) {
	assert.InDelta(t, 0, poleDistanceMeters(90), 1e-6)
	assert.InDelta(t, 0, poleDistanceMeters(-90), 1e-6)
	assert.InDelta(t, 55597, poleDistanceMeters(89.5), 1)
	assert.InDelta(t, poleDistanceMeters(89.1), poleDistanceMeters(-89.1), 1e-6)
	assert.Less(t, poleDistanceMeters(89.999995), poleToleranceMeters)
	assert.Greater(t, poleDistanceMeters(89.99999), poleToleranceMeters)
}

func TestMixedCaseAndInvalidChars(t *testing.T) {
	notices := run(t, map[string]string{
		"routes.txt": "route_id,route_long_name\n" +
			"R1,Main Street\n" +
			"R2,main street\n" +
			"R3,Bad \uFFFD Name\n",
	})

	mixed := notices.ByCode(notice.CodeMixedCaseRecommended)
	require.Len(t, mixed, 1)
	assert.Equal(t, "main street", mixed[0].Context[notice.KeyFieldValue])

	invalid := notices.ByCode(notice.CodeInvalidCharacter)
	require.Len(t, invalid, 1)
	assert.Equal(t, 4, invalid[0].RowNumber())
}

func TestIsMixedCase(t *testing.T) {
	cases := map[string]bool{
		"Main Street":      true,
		"main street":      false,
		"MAIN STREET":      false,
		"main":             false,
		"MAIN":             true,
		"a":                true,
		"10th":             true,
		"Route 10":         true,
		"A b":              true,
		"route 10 express": false,
		"Gare de l'Est":    true,
		"":                 true,
	}
	for in, want := range cases {
		assert.Equal(t, want, IsMixedCase(in), in)
	}
}

func TestForeignKeys(t *testing.T) {
	notices := run(t, map[string]string{
		"routes.txt": "route_id\nR1\n",
		"trips.txt": "trip_id,route_id,shape_id\n" +
			"T1,R1,S1\n" +
			"T2,R9,S1\n" +
			"T3,R1,S9\n" +
			"T4,R1,\n",
		"shapes.txt": "shape_id,shape_pt_sequence,shape_pt_lat,shape_pt_lon\nS1,1,45,7\n",
	})

	fk := notices.ByCode(notice.CodeForeignKeyViolated)
	require.Len(t, fk, 2)
	assert.Equal(t, "R9", fk[0].Context[notice.KeyFieldValue])
	assert.Equal(t, "routes.txt", fk[0].Context[notice.KeyParentFile])
	assert.Equal(t, 3, fk[0].RowNumber())
	assert.Equal(t, "S9", fk[1].Context[notice.KeyFieldValue])
	assert.Equal(t, "shape_id", fk[1].Context[notice.KeyParentField])
}

func TestForeignKeys_SkippedWhenParentMissing(t *testing.T) {
	notices := run(t, map[string]string{
		"routes.txt": "route_id\nR1\n",
		"trips.txt":  "trip_id,route_id,shape_id\nT1,R1,S1\n",
	})
	assert.False(t, notices.HasCode(notice.CodeForeignKeyViolated))
}

func TestRule(t *testing.T) {
	notices := run(t, map[string]string{
		"fare_attributes.txt": "fare_id,price,currency_type\nF1,0.00,USD\nF2,1.00,USD\nF3,,\n",
	})

	zero := notices.ByCode("zero_fare")
	require.Len(t, zero, 1)
	assert.Equal(t, notice.SeverityWarning, zero[0].Severity)
	assert.Equal(t, 2, zero[0].RowNumber())
}

func TestRegistry_CustomValidatorsAndDeterminism(t *testing.T) {
	fp, feed := buildFeed(t, map[string]string{
		"routes.txt": "route_id,route_long_name\nR1,main street\nR2,other road\n",
	})

	r := FromPlan(fp)
	before := r.Len()
	r.OnEntity("routes.txt", EntityFunc(func(_ context.Context, rec *table.Record, sink *notice.Container) {
		sink.Add(notice.New("seen_route", notice.SeverityInfo, rec.Filename()).
			With(notice.KeyRowNumber, rec.RowNumber()))
	}))
	r.OnFeed(FeedFunc(func(_ context.Context, f Feed, sink *notice.Container) {
		routes, _ := f.Table("routes.txt")
		sink.Add(notice.New("route_count", notice.SeverityInfo, "routes.txt").
			With(notice.KeyEntityCount, routes.Len()))
	}))
	assert.Equal(t, before+2, r.Len())

	first := r.Run(context.Background(), feed, 4, 0).Notices()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, r.Run(context.Background(), feed, 4, 0).Notices())
	}
	assert.Len(t, first, 5)
}
