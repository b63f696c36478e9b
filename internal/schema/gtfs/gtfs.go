// Package gtfs provides the built-in GTFS Schedule schema and the checks
// that do not fit a declaration.
package gtfs

import (
	"bytes"
	"context"
	_ "embed"

	"feedvalidator/internal/core/lazy"
	"feedvalidator/internal/derive"
	"feedvalidator/internal/metadata"
	"feedvalidator/internal/notice"
	"feedvalidator/internal/parsing"
	"feedvalidator/internal/table"
	"feedvalidator/internal/validator"
)

//go:embed gtfs.yaml
var schemaYAML []byte

// Declarations returns the built-in table declarations.
func Declarations() ([]metadata.TableDecl, error) {
	return metadata.ParseDeclarations(bytes.NewReader(schemaYAML))
}

var defaultPlan = lazy.New(func() (*derive.FeedPlan, error) {
	decls, err := Declarations()
	if err != nil {
		return nil, err
	}
	return build(context.Background(), decls)
})

// Default returns the plan of the built-in schema. It is built once and shared.
func Default() (*derive.FeedPlan, error) {
	return defaultPlan.Get()
}

// Load returns the built-in plan when path is empty, otherwise the plan of
// the schema file at path.
func Load(ctx context.Context, path string) (*derive.FeedPlan, error) {
	if path == "" {
		return Default()
	}
	decls, err := metadata.LoadDeclarationsFile(path)
	if err != nil {
		return nil, err
	}
	return build(ctx, decls)
}

func build(ctx context.Context, decls []metadata.TableDecl) (*derive.FeedPlan, error) {
	s, err := metadata.Build(ctx, decls)
	if err != nil {
		return nil, err
	}
	return derive.Derive(s, parsing.NewParser())
}

// CodeMissingCalendarFiles is reported when a feed defines no service at all.
const CodeMissingCalendarFiles = "missing_calendar_and_calendar_date_files"

// Register adds the GTFS checks that need more than one parent table.
// Tables the plan does not declare are skipped.
func Register(r *validator.Registry) {
	r.OnFeed(validator.FeedFunc(validateServiceIDs))
}

// validateServiceIDs requires every trips.txt service_id to be defined in
// calendar.txt or calendar_dates.txt. Without either file every service is
// undefined, which is reported once.
func validateServiceIDs(_ context.Context, feed validator.Feed, sink *notice.Container) {
	trips, ok := feed.Table("trips.txt")
	if !ok || trips.Len() == 0 || trips.Table().Position("service_id") < 0 {
		return
	}
	calendar := loaded(feed, "calendar.txt")
	dates := loaded(feed, "calendar_dates.txt")
	if calendar == nil && dates == nil {
		if missing(feed, "calendar.txt") && missing(feed, "calendar_dates.txt") {
			sink.Add(notice.New(CodeMissingCalendarFiles, notice.SeverityError, "calendar.txt"))
		}
		return
	}

	for _, rec := range trips.All() {
		if !rec.Has("service_id") {
			continue
		}
		id := rec.String("service_id")
		if calendar != nil {
			if _, ok := calendar.ByPrimaryKey(id); ok {
				continue
			}
		}
		if dates != nil && dates.HasIndexKey("service_id", id) {
			continue
		}
		sink.Add(notice.ForeignKeyViolation("trips.txt", "service_id", "calendar.txt", "service_id", id, rec.RowNumber()))
	}
}

func missing(feed validator.Feed, filename string) bool {
	c, ok := feed.Table(filename)
	return ok && c.Status() == table.StatusMissingFile
}

func loaded(feed validator.Feed, filename string) *table.Container {
	c, ok := feed.Table(filename)
	if !ok || c.Status() != table.StatusLoaded {
		return nil
	}
	return c
}
