package feed

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	appctx "feedvalidator/internal/core/context"
	"feedvalidator/internal/derive"
	"feedvalidator/internal/notice"
	"feedvalidator/internal/parsing"
	"feedvalidator/internal/table"
	"feedvalidator/internal/validator"
	"feedvalidator/pkg/logger"
)

var tracer = otel.Tracer("feedvalidator/feed")

// Validator validates feeds against one derived plan.
// It is safe for concurrent use once custom validators are registered.
type Validator struct {
	plan     *derive.FeedPlan
	parser   *parsing.Parser
	registry *validator.Registry
	cfg      Config
}

// NewValidator creates a Validator with the validators derived from plan.
func NewValidator(plan *derive.FeedPlan, cfg Config) *Validator {
	return &Validator{
		plan:     plan,
		parser:   parsing.NewParser(),
		registry: validator.FromPlan(plan),
		cfg:      cfg.normalized(),
	}
}

// Plan returns the plan feeds are validated against.
func (v *Validator) Plan() *derive.FeedPlan { return v.plan }

// Registry exposes the validator registry for extra checks.
func (v *Validator) Registry() *validator.Registry { return v.registry }

// Validate loads every declared table of in and runs all validators.
// Problems with the feed are notices in the result; an error means the run
// itself could not finish, e.g. ctx was cancelled.
func (v *Validator) Validate(ctx context.Context, in Input) (*Result, error) {
	run := appctx.NewRunContext(in.Name())
	ctx = appctx.WithRun(ctx, run)

	ctx, span := tracer.Start(ctx, "feed.validate", trace.WithAttributes(
		attribute.String("feed.name", in.Name()),
		attribute.String("run.id", run.RunID),
	))
	defer span.End()

	logger.Info(ctx, "validation started", "tables", len(v.plan.Tables), "workers", v.cfg.Workers)

	res := &Result{
		RunID:      run.RunID,
		Feed:       run.Feed,
		StartedAt:  run.StartedAt,
		Notices:    notice.NewContainer(v.cfg.MaxNoticesPerCode),
		byFilename: make(map[string]*table.Container, len(v.plan.Tables)),
	}

	if err := v.loadTables(ctx, in, res); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	v.reportUnknownFiles(in, res.Notices)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vctx, vspan := tracer.Start(ctx, "feed.run_validators")
	res.Notices.AddAll(v.registry.Run(vctx, res, v.cfg.Workers, v.cfg.MaxNoticesPerCode))
	vspan.End()

	res.Duration = time.Since(run.StartedAt)
	counts := res.Notices.CountBySeverity()
	span.SetAttributes(
		attribute.Int("notices.errors", counts[notice.SeverityError]),
		attribute.Int("notices.warnings", counts[notice.SeverityWarning]),
	)
	logger.Info(ctx, "validation finished",
		"duration", res.Duration,
		"errors", counts[notice.SeverityError],
		"warnings", counts[notice.SeverityWarning],
		"infos", counts[notice.SeverityInfo],
	)
	return res, nil
}

// loadTables loads each declared table on its own worker into its own sink,
// then merges sinks in declaration order.
func (v *Validator) loadTables(ctx context.Context, in Input, res *Result) error {
	containers := make([]*table.Container, len(v.plan.Tables))
	sinks := make([]*notice.Container, len(v.plan.Tables))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.cfg.Workers)
	for i, tp := range v.plan.Tables {
		sinks[i] = notice.NewContainer(v.cfg.MaxNoticesPerCode)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			containers[i] = v.loadTable(gctx, in, tp, sinks[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, c := range containers {
		res.Containers = append(res.Containers, c)
		res.byFilename[c.Filename()] = c
		res.Notices.AddAll(sinks[i])
	}
	return nil
}

func (v *Validator) loadTable(ctx context.Context, in Input, tp *derive.TablePlan, sink *notice.Container) *table.Container {
	ctx, span := tracer.Start(ctx, "feed.load_table", trace.WithAttributes(
		attribute.String("table.filename", tp.Filename()),
	))
	defer span.End()
	ctx = logger.WithTable(ctx, tp.Filename())

	var c *table.Container
	rc, err := in.Open(tp.Filename())
	switch {
	case errors.Is(err, os.ErrNotExist):
		c = table.Load(ctx, tp, v.parser, nil, sink)
	case err != nil:
		span.RecordError(err)
		sink.Add(notice.CSVParsingFailed(tp.Filename(), 0, err))
		c = table.NewContainer(tp, nil, table.StatusUnparsable, sink)
	default:
		c = table.Load(ctx, tp, v.parser, rc, sink)
		_ = rc.Close()
	}

	span.SetAttributes(
		attribute.String("table.status", string(c.Status())),
		attribute.Int("table.records", c.Len()),
	)
	logger.Info(ctx, "table loaded",
		"status", c.Status(),
		"records", c.Len(),
		"notices", sink.Len(),
	)
	return c
}

func (v *Validator) reportUnknownFiles(in Input, sink *notice.Container) {
	for _, name := range in.Names() {
		if _, known := v.plan.Table(name); !known {
			sink.Add(notice.UnknownFile(name))
		}
	}
}

// Result is the outcome of one run. Containers are read-only.
type Result struct {
	RunID      string
	Feed       string
	StartedAt  time.Time
	Duration   time.Duration
	Containers []*table.Container // declaration order
	Notices    *notice.Container

	byFilename map[string]*table.Container
}

// Table returns the container of a declared table.
func (r *Result) Table(filename string) (*table.Container, bool) {
	c, ok := r.byFilename[filename]
	return c, ok
}

// Report builds the serializable report of the run.
func (r *Result) Report() *notice.Report {
	rep := notice.NewReport(r.Notices)
	rep.RunID = r.RunID
	rep.Feed = r.Feed
	rep.StartedAt = r.StartedAt
	rep.DurationMs = r.Duration.Milliseconds()
	return rep
}

// WriteReport writes the report of r to w.
func (r *Result) WriteReport(w io.Writer, compression notice.Compression) error {
	return r.Report().WriteJSON(w, compression)
}
