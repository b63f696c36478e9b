// Package validator runs the checks that need whole records or whole tables:
// cross-field rules on each record and foreign keys across tables.
package validator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"feedvalidator/internal/derive"
	"feedvalidator/internal/notice"
	"feedvalidator/internal/table"
	"feedvalidator/pkg/logger"
)

// Feed gives validators read access to the loaded tables.
type Feed interface {
	Table(filename string) (*table.Container, bool)
}

// EntityValidator checks one record at a time.
type EntityValidator interface {
	Validate(ctx context.Context, rec *table.Record, sink *notice.Container)
}

// EntityFunc adapts a function to EntityValidator.
type EntityFunc func(ctx context.Context, rec *table.Record, sink *notice.Container)

func (f EntityFunc) Validate(ctx context.Context, rec *table.Record, sink *notice.Container) {
	f(ctx, rec, sink)
}

// FeedValidator checks relations between tables.
type FeedValidator interface {
	Validate(ctx context.Context, feed Feed, sink *notice.Container)
}

// FeedFunc adapts a function to FeedValidator.
type FeedFunc func(ctx context.Context, feed Feed, sink *notice.Container)

func (f FeedFunc) Validate(ctx context.Context, feed Feed, sink *notice.Container) {
	f(ctx, feed, sink)
}

// Registry stores validators by table. It is not safe for concurrent
// registration; register everything before calling Run.
type Registry struct {
	order  []string
	entity map[string][]EntityValidator
	feed   []FeedValidator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entity: make(map[string][]EntityValidator)}
}

// FromPlan registers the validators derived for every table of fp and one
// foreign key check per checkable reference.
func FromPlan(fp *derive.FeedPlan) *Registry {
	r := NewRegistry()
	for _, tp := range fp.Tables {
		for _, spec := range tp.Validators {
			r.OnEntity(tp.Filename(), newEntityValidator(tp, spec))
		}
	}
	for _, fk := range fp.ForeignKeys {
		r.OnFeed(&foreignKeyValidator{spec: fk})
	}
	return r
}

// OnEntity registers v for records of filename.
func (r *Registry) OnEntity(filename string, v EntityValidator) {
	if _, ok := r.entity[filename]; !ok {
		r.order = append(r.order, filename)
	}
	r.entity[filename] = append(r.entity[filename], v)
}

// OnFeed registers a cross-table validator.
func (r *Registry) OnFeed(v FeedValidator) {
	r.feed = append(r.feed, v)
}

// Len returns the number of registered validators.
func (r *Registry) Len() int {
	n := len(r.feed)
	for _, vs := range r.entity {
		n += len(vs)
	}
	return n
}

// Run executes every validator. Each table and each feed validator is one
// task; at most workers tasks run at once (workers <= 0 means no limit).
// Notices are merged in registration order so output does not depend on scheduling.
func (r *Registry) Run(ctx context.Context, feed Feed, workers, maxPerCode int) *notice.Container {
	tasks := make([]func(context.Context, *notice.Container), 0, len(r.order)+len(r.feed))
	for _, filename := range r.order {
		c, ok := feed.Table(filename)
		if !ok || c.Len() == 0 {
			continue
		}
		vs := r.entity[filename]
		tasks = append(tasks, func(ctx context.Context, sink *notice.Container) {
			for _, rec := range c.All() {
				for _, v := range vs {
					v.Validate(ctx, rec, sink)
				}
			}
		})
	}
	for _, v := range r.feed {
		tasks = append(tasks, func(ctx context.Context, sink *notice.Container) {
			v.Validate(ctx, feed, sink)
		})
	}

	sinks := make([]*notice.Container, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, task := range tasks {
		sinks[i] = notice.NewContainer(maxPerCode)
		g.Go(func() error {
			task(gctx, sinks[i])
			return nil
		})
	}
	_ = g.Wait()

	out := notice.NewContainer(maxPerCode)
	for _, s := range sinks {
		out.AddAll(s)
	}
	logger.Debug(ctx, "validators finished", "tasks", len(tasks), "notices", out.Len())
	return out
}
