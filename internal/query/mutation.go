package query

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/vmunix/marquee/internal/events"
)

// Mutation runs a write and, once it succeeds, a follow-up that usually
// invalidates the queries the write affected.
type Mutation[I, O any] struct {
	cache     *Cache
	name      string
	do        func(ctx context.Context, in I) (O, error)
	onSuccess func(ctx context.Context, in I, out O)
	running   atomic.Int64
}

// NewMutation creates a named mutation. onSuccess may be nil.
func NewMutation[I, O any](c *Cache, name string, do func(context.Context, I) (O, error), onSuccess func(context.Context, I, O)) *Mutation[I, O] {
	return &Mutation[I, O]{cache: c, name: name, do: do, onSuccess: onSuccess}
}

// Run executes the mutation. onSuccess completes before Run returns.
func (m *Mutation[I, O]) Run(ctx context.Context, in I) (O, error) {
	m.running.Add(1)
	defer m.running.Add(-1)

	out, err := m.do(ctx, in)
	if err == nil && m.onSuccess != nil {
		m.onSuccess(ctx, in, out)
	}

	m.cache.metrics.Mutated(m.name, err)
	ev := &events.MutationSettled{
		BaseEvent: events.NewBaseEvent(events.EventMutationSettled, m.name),
		Name:      m.name,
	}
	if err != nil {
		ev.Error = err.Error()
		m.cache.log.Warn("mutation failed", "mutation", m.name, "error", err)
	}
	m.cache.publish(ev)

	if err != nil {
		return out, fmt.Errorf("%s: %w", m.name, err)
	}
	return out, nil
}

// IsPending reports whether any run is in progress.
func (m *Mutation[I, O]) IsPending() bool {
	return m.running.Load() > 0
}
