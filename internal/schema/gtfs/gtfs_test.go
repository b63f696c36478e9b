package gtfs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedvalidator/internal/derive"
	"feedvalidator/internal/metadata"
	"feedvalidator/internal/notice"
	"feedvalidator/internal/parsing"
	"feedvalidator/internal/table"
	"feedvalidator/internal/validator"
)

func TestDefault_BuildsCleanly(t *testing.T) {
	fp, err := Default()
	require.NoError(t, err)
	assert.Empty(t, fp.Schema.Warnings(), "every built-in reference is checkable")
	assert.Len(t, fp.Tables, 17)

	again, err := Default()
	require.NoError(t, err)
	assert.Same(t, fp, again)
}

func TestDefault_KeysAndIndices(t *testing.T) {
	fp, err := Default()
	require.NoError(t, err)

	st, ok := fp.Table("stop_times.txt")
	require.True(t, ok)
	assert.Equal(t, metadata.KeyComposite, st.Key)
	ix, ok := st.Index("trip_id")
	require.True(t, ok)
	assert.Equal(t, st.Table.Position("stop_sequence"), ix.SortBy)

	stops, _ := fp.Table("stops.txt")
	require.Len(t, stops.Table.LatLonPairs, 1)
	assert.Equal(t, "stop_lat", stops.Table.LatLonPairs[0].Lat)

	info, _ := fp.Table("feed_info.txt")
	assert.True(t, info.Table.SingleRow)

	var lookups []metadata.Lookup
	for _, fk := range fp.ForeignKeys {
		if fk.Child.Table == "fare_rules.txt" && fk.Child.Field == "origin_id" {
			lookups = append(lookups, fk.Lookup)
		}
	}
	assert.Equal(t, []metadata.Lookup{metadata.LookupIndex}, lookups)
}

func TestDefault_SharedEnums(t *testing.T) {
	decls, err := Declarations()
	require.NoError(t, err)
	for _, d := range decls {
		if d.Filename != "trips.txt" {
			continue
		}
		for _, f := range d.Fields {
			if f.Name == "bikes_allowed" {
				assert.Len(t, f.Values, 3)
			}
		}
	}
}

func TestLoad_CustomSchemaFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tables:
  - filename: stops.txt
    fields:
      - {name: stop_id, type: id, key: primary}
`), 0o600))

	fp, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, fp.Tables, 1)

	_, err = Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

type feedMap map[string]*table.Container

func (f feedMap) Table(filename string) (*table.Container, bool) {
	c, ok := f[filename]
	return c, ok
}

func loadFeed(t *testing.T, fp *derive.FeedPlan, files map[string]string) feedMap {
	t.Helper()
	parser := parsing.NewParser()
	feed := feedMap{}
	for _, tp := range fp.Tables {
		sink := notice.NewContainer(0)
		if content, ok := files[tp.Filename()]; ok {
			feed[tp.Filename()] = table.Load(context.Background(), tp, parser, strings.NewReader(content), sink)
		} else {
			feed[tp.Filename()] = table.Load(context.Background(), tp, parser, nil, sink)
		}
	}
	return feed
}

func TestServiceIDs(t *testing.T) {
	fp, err := Default()
	require.NoError(t, err)

	r := validator.NewRegistry()
	Register(r)

	trips := "route_id,service_id,trip_id\nR1,WK,T1\nR1,HOL,T2\nR1,NONE,T3\n"
	feed := loadFeed(t, fp, map[string]string{
		"trips.txt":          trips,
		"calendar.txt":       "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\nWK,1,1,1,1,1,0,0,20240101,20241231\n",
		"calendar_dates.txt": "service_id,date,exception_type\nHOL,20241225,1\n",
	})
	notices := r.Run(context.Background(), feed, 1, 0)

	fk := notices.ByCode(notice.CodeForeignKeyViolated)
	require.Len(t, fk, 1)
	assert.Equal(t, "NONE", fk[0].Context[notice.KeyFieldValue])
	assert.Equal(t, 4, fk[0].RowNumber())

	feed = loadFeed(t, fp, map[string]string{"trips.txt": trips})
	notices = r.Run(context.Background(), feed, 1, 0)
	assert.True(t, notices.HasCode(CodeMissingCalendarFiles))
	assert.False(t, notices.HasCode(notice.CodeForeignKeyViolated))
}
