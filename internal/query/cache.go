package query

import (
	"context"
	"log/slog"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/vmunix/marquee/internal/events"
	"github.com/vmunix/marquee/internal/metrics"
)

const subscriberBuffer = 16

// Fetcher produces the data for one query.
type Fetcher[T any] func(ctx context.Context) (T, error)

// fetchFunc receives the entry's current data so paginated queries can
// extend it.
type fetchFunc func(ctx context.Context, prev any) (any, error)

type entry struct {
	key            Key
	cfg            config
	data           any
	hasData        bool
	status         Status
	err            error
	failures       int
	fetching       bool
	invalidated    bool
	generation     uint64
	updatedAt      time.Time
	errorUpdatedAt time.Time
	observers      int
	removed        bool
	refetch        fetchFunc
}

func (e *entry) stale() bool {
	return !e.hasData || e.invalidated || time.Since(e.updatedAt) >= e.cfg.staleTime
}

func (e *entry) state() State {
	return State{
		Key:            e.key,
		Data:           e.data,
		HasData:        e.hasData,
		Status:         e.status,
		IsFetching:     e.fetching,
		IsInvalidated:  e.invalidated,
		IsStale:        e.stale(),
		Err:            e.err,
		FailureCount:   e.failures,
		UpdatedAt:      e.updatedAt,
		ErrorUpdatedAt: e.errorUpdatedAt,
		Observers:      e.observers,
	}
}

func (e *entry) updated() events.Event {
	ev := &events.QueryUpdated{
		BaseEvent:  events.NewBaseEvent(events.EventQueryUpdated, e.key.hash),
		Kind:       string(e.key.kind),
		Status:     e.status.String(),
		IsFetching: e.fetching,
	}
	if e.err != nil {
		ev.Error = e.err.Error()
	}
	return ev
}

// Cache holds query entries keyed by Key. Entries live in a go-cache store
// whose expiration is the entry's gc horizon; observed or fetching entries
// never expire.
type Cache struct {
	mu              sync.Mutex
	entries         *gocache.Cache
	calls           singleflight.Group
	bus             *events.Bus
	log             *slog.Logger
	metrics         *metrics.Metrics
	defaults        config
	cleanupInterval time.Duration

	// filled by onEvicted, which always runs with mu held
	evicted []*entry
}

// New creates an empty cache.
func New(opts ...CacheOption) *Cache {
	c := &Cache{
		log:             slog.Default().With("component", "query"),
		defaults:        defaultConfig(),
		cleanupInterval: DefaultCleanupInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.bus == nil {
		c.bus = events.NewBus(c.log)
	}

	// No janitor goroutine; Prune and Run drive expiry.
	c.entries = gocache.New(gocache.NoExpiration, 0)
	c.entries.OnEvicted(c.onEvicted)
	return c
}

// Bus returns the bus cache events are published on.
func (c *Cache) Bus() *events.Bus { return c.bus }

func (c *Cache) config(opts []Option) config {
	cfg := c.defaults
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Get returns the current state of key without waiting. Missing or stale
// data starts a background fetch; stale data is still returned.
func Get[T any](ctx context.Context, c *Cache, key Key, fetch Fetcher[T], opts ...Option) Result[T] {
	cfg := c.config(opts)
	if !cfg.enabled {
		return Result[T]{Status: StatusPending}
	}
	_, s, _ := c.acquire(ctx, key, wrap(fetch), cfg)
	return resultOf[T](s)
}

// Fetch returns fresh data for key, fetching and waiting when the cached
// data is missing, stale or invalidated. Concurrent callers share one
// fetch. A failed fetch returns the error together with any older data.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fetch Fetcher[T], opts ...Option) (Result[T], error) {
	cfg := c.config(opts)
	if !cfg.enabled {
		return Result[T]{Status: StatusPending}, nil
	}

	e, s, ch := c.acquire(ctx, key, wrap(fetch), cfg)
	if ch == nil {
		r := resultOf[T](s)
		return r, r.Err
	}
	return await[T](ctx, c, e, s, ch)
}

// Load returns cached data for key as soon as there is any, revalidating
// stale data in the background. It waits only when nothing is cached yet.
// Errors from a background revalidation are reported in the Result, not
// returned.
func Load[T any](ctx context.Context, c *Cache, key Key, fetch Fetcher[T], opts ...Option) (Result[T], error) {
	cfg := c.config(opts)
	if !cfg.enabled {
		return Result[T]{Status: StatusPending}, nil
	}

	e, s, ch := c.acquire(ctx, key, wrap(fetch), cfg)
	r := resultOf[T](s)
	switch {
	case ch == nil:
		return r, r.Err
	case r.HasData:
		return r, nil
	}
	return await[T](ctx, c, e, s, ch)
}

// await waits for the fetch behind ch and returns the settled state of e.
func await[T any](ctx context.Context, c *Cache, e *entry, s State, ch <-chan singleflight.Result) (Result[T], error) {
	select {
	case res := <-ch:
		c.mu.Lock()
		s = e.state()
		c.mu.Unlock()
		r := resultOf[T](s)
		if res.Err != nil {
			return r, res.Err
		}
		return r, r.Err
	case <-ctx.Done():
		return resultOf[T](s), ctx.Err()
	}
}

// Prefetch warms key in the background. Failures are logged and dropped.
func Prefetch[T any](ctx context.Context, c *Cache, key Key, fetch Fetcher[T], opts ...Option) {
	cfg := c.config(opts)
	if !cfg.enabled {
		return
	}
	_, _, ch := c.acquire(ctx, key, wrap(fetch), cfg)
	if ch == nil {
		return
	}
	go func() {
		if res := <-ch; res.Err != nil {
			c.log.Debug("prefetch failed", "key", key.String(), "error", res.Err)
		}
	}()
}

// Peek returns the cached data for key without fetching.
func Peek[T any](c *Cache, key Key) (T, bool) {
	var zero T
	s, ok := c.State(key)
	if !ok || !s.HasData {
		return zero, false
	}
	data, ok := s.Data.(T)
	if !ok {
		return zero, false
	}
	return data, true
}

func wrap[T any](fetch Fetcher[T]) fetchFunc {
	return func(ctx context.Context, _ any) (any, error) {
		return fetch(ctx)
	}
}

// acquire registers an access to key and starts or joins a fetch when the
// entry is stale. The returned channel is nil when the entry is fresh.
func (c *Cache) acquire(ctx context.Context, key Key, refetch fetchFunc, cfg config) (*entry, State, <-chan singleflight.Result) {
	c.mu.Lock()
	e := c.entryFor(key)
	e.cfg = cfg
	e.refetch = refetch

	var (
		ch      <-chan singleflight.Result
		started events.Event
	)
	switch {
	case !e.stale():
		c.metrics.Hit(string(key.kind))
		c.log.Debug("cache hit", "key", key.String())
	case e.fetching:
		c.metrics.Miss(string(key.kind))
		ch = c.calls.DoChan(key.hash, c.fetchCall(ctx, e, refetch))
	default:
		c.metrics.Miss(string(key.kind))
		c.log.Debug("cache miss", "key", key.String(), "has_data", e.hasData)
		ch = c.startFetch(ctx, e, refetch)
		started = e.updated()
	}
	c.touch(e)
	s := e.state()
	c.unlock()

	c.publish(started)
	return e, s, ch
}

// entryFor returns the live entry for key, creating it if needed.
// Caller holds mu.
func (c *Cache) entryFor(key Key) *entry {
	if v, ok := c.entries.Get(key.hash); ok {
		return v.(*entry)
	}
	e := &entry{key: key, cfg: c.defaults, status: StatusPending}
	c.touch(e)
	return e
}

// touch re-arms the gc horizon of e. Caller holds mu.
func (c *Cache) touch(e *entry) {
	if e.removed {
		return
	}
	exp := e.cfg.gcTime
	switch {
	case e.observers > 0 || e.fetching:
		exp = gocache.NoExpiration
	case exp <= 0:
		exp = time.Nanosecond
	}
	c.entries.Set(e.key.hash, e, exp)
}

// startFetch marks e as fetching and launches fn. Caller holds mu.
func (c *Cache) startFetch(ctx context.Context, e *entry, fn fetchFunc) <-chan singleflight.Result {
	e.fetching = true
	return c.calls.DoChan(e.key.hash, c.fetchCall(ctx, e, fn))
}

// fetchCall builds the shared fetch for e. The fetch outlives the caller
// that started it, so cancellation is detached. Caller holds mu.
func (c *Cache) fetchCall(ctx context.Context, e *entry, fn fetchFunc) func() (any, error) {
	ctx = context.WithoutCancel(ctx)
	prev, generation, cfg := e.data, e.generation, e.cfg

	return func() (any, error) {
		start := time.Now()
		val, err := c.attempt(ctx, e.key, cfg, func(ctx context.Context) (any, error) {
			return fn(ctx, prev)
		})
		c.metrics.Fetched(string(e.key.kind), err, time.Since(start))

		c.mu.Lock()
		// Later accesses must start a new call, not join this finished one.
		if !e.removed {
			c.calls.Forget(e.key.hash)
		}
		e.fetching = false
		now := time.Now()
		if err != nil {
			e.err = err
			e.errorUpdatedAt = now
			e.failures++
			e.status = StatusError
		} else {
			e.data = val
			e.hasData = true
			e.err = nil
			e.failures = 0
			e.status = StatusSuccess
			e.updatedAt = now
			// An invalidation that landed mid-flight still stands.
			if e.generation == generation {
				e.invalidated = false
			}
		}
		evs := []events.Event{e.updated()}
		// Observers of an entry invalidated mid-flight get a follow-up fetch.
		if e.generation != generation && e.observers > 0 && e.refetch != nil && !e.removed {
			c.log.Debug("refetching query invalidated during fetch", "key", e.key.String())
			c.startFetch(context.Background(), e, e.refetch)
			evs = append(evs, e.updated())
		}
		c.touch(e)
		c.unlock()

		if err != nil {
			c.log.Warn("query fetch failed", "key", e.key.String(), "retries", cfg.retry, "error", err)
		}
		c.publish(evs...)
		return val, err
	}
}

// attempt runs fn, retrying up to cfg.retry more times.
func (c *Cache) attempt(ctx context.Context, key Key, cfg config, fn func(context.Context) (any, error)) (any, error) {
	for n := 0; ; n++ {
		val, err := fn(ctx)
		if err == nil || n >= cfg.retry {
			return val, err
		}

		c.metrics.Retry(string(key.kind))
		delay := cfg.retryDelay(n)
		c.log.Debug("retrying query", "key", key.String(), "attempt", n+1, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, err
		}
	}
}

// Invalidate marks key stale. An observed entry refetches right away, or
// once its in-flight fetch settles; otherwise the next access does.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	v, ok := c.entries.Get(key.hash)
	if !ok {
		c.unlock()
		return
	}
	evs := c.invalidate(v.(*entry))
	c.unlock()
	c.publish(evs...)
}

// InvalidateKind invalidates every entry of kind.
func (c *Cache) InvalidateKind(kind Kind) {
	c.mu.Lock()
	var evs []events.Event
	for _, item := range c.entries.Items() {
		e := item.Object.(*entry)
		if e.key.kind == kind {
			evs = append(evs, c.invalidate(e)...)
		}
	}
	c.unlock()
	c.publish(evs...)
}

// invalidate marks e stale. Caller holds mu.
func (c *Cache) invalidate(e *entry) []events.Event {
	e.invalidated = true
	e.generation++
	c.metrics.Invalidated(string(e.key.kind))
	c.log.Debug("query invalidated", "key", e.key.String(), "observers", e.observers)

	evs := []events.Event{&events.QueryInvalidated{
		BaseEvent: events.NewBaseEvent(events.EventQueryInvalidated, e.key.hash),
		Kind:      string(e.key.kind),
	}}
	if e.observers > 0 && !e.fetching && e.refetch != nil {
		c.startFetch(context.Background(), e, e.refetch)
		c.touch(e)
		evs = append(evs, e.updated())
	}
	return evs
}

// Subscribe observes key. The channel receives every event published for
// the key; cancel stops observing. An observed entry is never collected
// and refetches as soon as it is invalidated.
func (c *Cache) Subscribe(key Key) (<-chan events.Event, func()) {
	ch := c.bus.SubscribeTopic(key.hash, subscriberBuffer)

	c.mu.Lock()
	e := c.entryFor(key)
	e.observers++
	c.touch(e)
	c.unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.bus.Unsubscribe(ch)
			c.mu.Lock()
			e.observers--
			c.touch(e)
			c.unlock()
		})
	}
	return ch, cancel
}

// State returns a snapshot of key without fetching.
func (c *Cache) State(key Key) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries.Get(key.hash)
	if !ok {
		return State{}, false
	}
	return v.(*entry).state(), true
}

// Remove drops key.
func (c *Cache) Remove(key Key) {
	c.mu.Lock()
	c.entries.Delete(key.hash)
	c.unlock()
}

// Reset drops every entry.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for hash, item := range c.entries.Items() {
		item.Object.(*entry).removed = true
		c.calls.Forget(hash)
	}
	c.entries.Flush()
}

// Len returns the number of entries, including expired ones not yet pruned.
func (c *Cache) Len() int {
	return c.entries.ItemCount()
}

// Prune evicts entries unused past their gc horizon and returns how many
// were evicted.
func (c *Cache) Prune() int {
	c.mu.Lock()
	c.entries.DeleteExpired()
	n := len(c.evicted)
	c.unlock()
	return n
}

// Run prunes on the cleanup interval until ctx is done.
func (c *Cache) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := c.Prune(); n > 0 {
				c.log.Debug("pruned queries", "count", n)
			}
		}
	}
}

// onEvicted runs inside go-cache Delete/DeleteExpired, always with mu held.
func (c *Cache) onEvicted(hash string, v any) {
	e := v.(*entry)
	e.removed = true
	c.calls.Forget(hash)
	c.evicted = append(c.evicted, e)
}

// unlock releases mu and reports entries evicted while it was held.
func (c *Cache) unlock() {
	evicted := c.evicted
	c.evicted = nil
	c.mu.Unlock()

	for _, e := range evicted {
		c.metrics.Evicted(string(e.key.kind))
		c.log.Debug("query evicted", "key", e.key.String())
		c.publish(&events.QueryEvicted{
			BaseEvent: events.NewBaseEvent(events.EventQueryEvicted, e.key.hash),
			Kind:      string(e.key.kind),
		})
	}
}

func (c *Cache) publish(evs ...events.Event) {
	for _, ev := range evs {
		if ev == nil {
			continue
		}
		_ = c.bus.Publish(context.Background(), ev)
	}
}
