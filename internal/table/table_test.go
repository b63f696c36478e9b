package table

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedvalidator/internal/core/types"
	"feedvalidator/internal/derive"
	"feedvalidator/internal/metadata"
	"feedvalidator/internal/notice"
	"feedvalidator/internal/parsing"
)

const tableYAML = `
tables:
  - filename: stops.txt
    level: required
    fields:
      - {name: stop_id, type: id, key: primary, level: required}
      - {name: stop_name, level: recommended}
      - {name: zone_id, type: id, index: true}
      - {name: wheelchair_boarding, kind: wheelchair, default: "0", values: [{name: unknown, value: 0}, {name: yes, value: 1}, {name: no, value: 2}]}
  - filename: stop_times.txt
    level: required
    fields:
      - {name: trip_id, type: id, key: composite, index: true, level: required}
      - {name: stop_sequence, kind: int, key: sequence, bounds: non_negative, level: required}
      - {name: stop_id, type: id}
  - filename: attributions.txt
    fields:
      - {name: attribution_id, type: id, key: primary}
      - {name: organization_name, level: required}
  - filename: feed_info.txt
    single_row: true
    fields:
      - {name: feed_publisher_name, level: required}
`

func loadPlan(t *testing.T) *derive.FeedPlan {
	t.Helper()
	decls, err := metadata.ParseDeclarations(strings.NewReader(tableYAML))
	require.NoError(t, err)
	s, err := metadata.Build(context.Background(), decls)
	require.NoError(t, err)
	fp, err := derive.Derive(s, parsing.NewParser())
	require.NoError(t, err)
	return fp
}

func load(t *testing.T, filename, content string) (*Container, *notice.Container) {
	t.Helper()
	fp := loadPlan(t)
	plan, ok := fp.Table(filename)
	require.True(t, ok)
	sink := notice.NewContainer(0)
	return Load(context.Background(), plan, parsing.NewParser(), strings.NewReader(content), sink), sink
}

func TestLoad_PrimaryKeyFirstWins(t *testing.T) {
	c, sink := load(t, "stops.txt", "stop_id,stop_name\nS1,First\nS2,Second\nS1,Again\n")

	assert.Equal(t, StatusLoaded, c.Status())
	assert.Equal(t, 3, c.Len())

	rec, ok := c.ByPrimaryKey("S1")
	require.True(t, ok)
	assert.Equal(t, "First", rec.String("stop_name"))
	assert.Equal(t, 2, rec.RowNumber())

	dups := sink.ByCode(notice.CodeDuplicateKey)
	require.Len(t, dups, 1)
	assert.Equal(t, 4, dups[0].Context[notice.KeyRowNumber])
	assert.Equal(t, 2, dups[0].Context[notice.KeyPrevRow])
	assert.Equal(t, "stop_id", dups[0].Context[notice.KeyFieldName])
}

func TestLoad_AbsentOptionalPrimaryKeyIsNotADuplicate(t *testing.T) {
	c, sink := load(t, "attributions.txt", "organization_name\nAcme\nBeta\nGamma\n")

	assert.Equal(t, 3, c.Len())
	assert.Zero(t, sink.Total(notice.CodeDuplicateKey))
	assert.False(t, sink.HasErrors())
	_, ok := c.ByPrimaryKey("")
	assert.False(t, ok)

	c, sink = load(t, "attributions.txt", "attribution_id,organization_name\n,Acme\nA1,Beta\n,Gamma\nA1,Delta\n")
	assert.Equal(t, 4, c.Len())
	dups := sink.ByCode(notice.CodeDuplicateKey)
	require.Len(t, dups, 1)
	assert.Equal(t, 5, dups[0].Context[notice.KeyRowNumber])
}

func TestLoad_CompositeKeyAndSequenceOrder(t *testing.T) {
	c, sink := load(t, "stop_times.txt",
		"trip_id,stop_sequence,stop_id\nT1,3,C\nT1,1,A\nT2,1,X\nT1,2,B\n")
	assert.False(t, sink.HasErrors())

	rec, ok := c.ByCompositeKey(map[string]any{"stop_sequence": 2, "trip_id": "T1"})
	require.True(t, ok)
	assert.Equal(t, "B", rec.String("stop_id"))

	_, ok = c.ByCompositeKey(map[string]any{"trip_id": "T1", "stop_sequence": 9})
	assert.False(t, ok)

	var seq []int
	for _, r := range c.BySecondaryIndex("trip_id", "T1") {
		seq = append(seq, r.Int("stop_sequence"))
	}
	assert.Equal(t, []int{1, 2, 3}, seq)

	assert.Len(t, c.BySecondaryIndex("trip_id", "T2"), 1)
}

func TestLoad_CompositeDuplicate(t *testing.T) {
	c, sink := load(t, "stop_times.txt",
		"trip_id,stop_sequence,stop_id\nT1,1,A\nT1,1,B\n")

	rec, ok := c.ByCompositeKey(map[string]any{"trip_id": "T1", "stop_sequence": 1})
	require.True(t, ok)
	assert.Equal(t, "A", rec.String("stop_id"))

	dups := sink.ByCode(notice.CodeDuplicateKey)
	require.Len(t, dups, 1)
	assert.Equal(t, "trip_id", dups[0].Context[notice.KeyFieldName+"1"])
	assert.Equal(t, "stop_sequence", dups[0].Context[notice.KeyFieldName+"2"])
	assert.Equal(t, 3, dups[0].Context[notice.KeyRowNumber])
}

func TestLoad_SecondaryIndexIsTotal(t *testing.T) {
	c, _ := load(t, "stops.txt", "stop_id,zone_id\nS1,Z1\nS2,\nS3,Z1\n")

	assert.Len(t, c.BySecondaryIndex("zone_id", "Z1"), 2)

	none := c.BySecondaryIndex("zone_id", "Z9")
	assert.NotNil(t, none)
	assert.Empty(t, none)
	assert.NotNil(t, c.BySecondaryIndex("no_such_field", "Z1"))
}

func TestLoad_RequiredFieldRejectsRow(t *testing.T) {
	c, sink := load(t, "stops.txt", "stop_id,stop_name\n,Nameless\nS2,\n")

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1, sink.Total(notice.CodeMissingRequiredField))
	assert.Equal(t, 1, sink.Total(notice.CodeMissingRecommendedFld))

	_, ok := c.ByPrimaryKey("S2")
	assert.True(t, ok, "a missing recommended value keeps the row")
}

func TestLoad_InvalidValueRejectsRow(t *testing.T) {
	c, sink := load(t, "stop_times.txt", "trip_id,stop_sequence\nT1,abc\nT1,-1\nT1,4\n")

	assert.Equal(t, 1, c.Len())
	assert.True(t, sink.HasCode(notice.InvalidValueCode("integer")))
	assert.True(t, sink.HasCode(notice.CodeNumberOutOfRange))
}

func TestLoad_DefaultsAndPresence(t *testing.T) {
	c, sink := load(t, "stops.txt", "stop_id,wheelchair_boarding\nS1,\nS2,1\nS3,7\n")

	s1, _ := c.ByPrimaryKey("S1")
	assert.False(t, s1.Has("wheelchair_boarding"))
	assert.Equal(t, 0, s1.Int("wheelchair_boarding"))
	assert.NotContains(t, s1.Values(), "wheelchair_boarding")

	s2, _ := c.ByPrimaryKey("S2")
	assert.True(t, s2.Has("wheelchair_boarding"))
	assert.Equal(t, 1, s2.Int("wheelchair_boarding"))

	s3, ok := c.ByPrimaryKey("S3")
	require.True(t, ok, "an unknown enum code keeps the row")
	assert.Equal(t, 7, s3.Int("wheelchair_boarding"))
	assert.Equal(t, 1, sink.Total(notice.CodeUnexpectedEnumValue))
}

func TestLoad_CellChecks(t *testing.T) {
	c, sink := load(t, "stops.txt", "stop_id,stop_name\n S1 ,Main\nS2,\"Two\nLines\"\nSé,Accent\n")

	_, ok := c.ByPrimaryKey("S1")
	assert.True(t, ok, "values are trimmed")
	assert.Equal(t, 1, sink.Total(notice.CodeLeadingTrailingSpace))
	assert.Equal(t, 1, sink.Total(notice.CodeNewLineInValue))
	assert.Equal(t, 1, sink.Total(notice.CodeNonASCIIOrNonPrintable))

	_, ok = c.ByPrimaryKey("S2")
	assert.False(t, ok)
}

func TestLoad_RowLength(t *testing.T) {
	c, sink := load(t, "stops.txt", "stop_id,stop_name\nS1\nS2,Two\n")
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1, sink.Total(notice.CodeInvalidRowLength))
}

func TestLoad_MissingVersusEmpty(t *testing.T) {
	fp := loadPlan(t)
	stops, _ := fp.Table("stops.txt")
	feedInfo, _ := fp.Table("feed_info.txt")

	sink := notice.NewContainer(0)
	c := Load(context.Background(), stops, parsing.NewParser(), nil, sink)
	assert.Equal(t, StatusMissingFile, c.Status())
	assert.True(t, sink.HasCode(notice.CodeMissingRequiredFile))

	sink = notice.NewContainer(0)
	c = Load(context.Background(), feedInfo, parsing.NewParser(), nil, sink)
	assert.Equal(t, StatusMissingFile, c.Status())
	assert.Zero(t, sink.Len(), "optional tables may be absent")

	c, sink = load(t, "stops.txt", "")
	assert.Equal(t, StatusEmptyFile, c.Status())
	assert.True(t, sink.HasCode(notice.CodeEmptyFile))
	assert.False(t, sink.HasCode(notice.CodeMissingRequiredFile))

	c, sink = load(t, "stops.txt", "stop_id,stop_name\n")
	assert.Equal(t, StatusLoaded, c.Status())
	assert.True(t, sink.HasCode(notice.CodeEmptyFile))
	assert.Zero(t, c.Len())
}

func TestLoad_HeaderProblems(t *testing.T) {
	c, sink := load(t, "stops.txt", "stop_id,stop_id,extra\nS1,S1,x\n")
	assert.Equal(t, StatusInvalidHeaders, c.Status())
	assert.Zero(t, c.Len())
	assert.True(t, sink.HasCode(notice.CodeDuplicatedColumn))

	c, sink = load(t, "stops.txt", "stop_name\nMain\n")
	assert.Equal(t, StatusInvalidHeaders, c.Status())
	assert.True(t, sink.HasCode(notice.CodeMissingRequiredColumn))

	c, sink = load(t, "stops.txt", "stop_id,,extra\nS1,,x\n")
	assert.Equal(t, StatusLoaded, c.Status())
	assert.True(t, sink.HasCode(notice.CodeEmptyColumnName))
	assert.True(t, sink.HasCode(notice.CodeUnknownColumn))
	assert.True(t, sink.HasCode(notice.CodeMissingRecommendedColumn))
	assert.Equal(t, 1, c.Len())
}

func TestLoad_BOMAndQuotedHeader(t *testing.T) {
	c, sink := load(t, "stops.txt", "\uFEFF\"stop_id\",stop_name\nS1,Main\n")
	assert.False(t, sink.HasErrors())
	_, ok := c.ByPrimaryKey("S1")
	assert.True(t, ok)
}

func TestLoad_UnparsableKeepsRowsSoFar(t *testing.T) {
	c, sink := load(t, "stops.txt", "stop_id,stop_name\nS1,Main\nS2,\"broken\nS3,x\n")
	assert.Equal(t, StatusUnparsable, c.Status())
	assert.True(t, sink.HasCode(notice.CodeCSVParsingFailed))
	_, ok := c.ByPrimaryKey("S1")
	assert.True(t, ok)
}

func TestContainer_SingleRowTable(t *testing.T) {
	c, sink := load(t, "feed_info.txt", "feed_publisher_name\nFirst\nSecond\n")
	assert.True(t, sink.HasCode(notice.CodeMoreThanOneEntity))

	rec, ok := c.SingleEntity()
	require.True(t, ok)
	assert.Equal(t, "First", rec.String("feed_publisher_name"))
}

func TestCompareAndKeyString(t *testing.T) {
	cmp, ok := Compare(1, 2)
	assert.True(t, ok)
	assert.Equal(t, -1, cmp)

	_, ok = Compare(1, "a")
	assert.False(t, ok)

	assert.Equal(t, "", KeyString(nil))
	assert.Equal(t, "42", KeyString(42))
	assert.Equal(t, "S1", KeyString("S1"))
}

func TestFormatValue(t *testing.T) {
	d, err := types.ParseDecimal("2.50")
	require.NoError(t, err)
	assert.Equal(t, "2.50", FormatValue(d))
	assert.Equal(t, "1.5", FormatValue(1.5))
	assert.Equal(t, "7", FormatValue(7))
	assert.Equal(t, "", FormatValue(nil))
}
