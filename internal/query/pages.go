package query

import (
	"context"
	"fmt"
)

// Page is one page of a paginated query. Next is the cursor of the
// following page; empty means the sequence is exhausted.
type Page[T any] struct {
	Items []T
	Next  string
}

// PageFetcher fetches the page at cursor. The first page has cursor "".
type PageFetcher[T any] func(ctx context.Context, cursor string) (Page[T], error)

// Pages is the cached value of a paginated query.
type Pages[T any] struct {
	Pages   []Page[T]
	Cursors []string // cursor each page was fetched with
}

// HasNext reports whether another page can be fetched.
func (p *Pages[T]) HasNext() bool {
	if p == nil || len(p.Pages) == 0 {
		return true
	}
	return p.Pages[len(p.Pages)-1].Next != ""
}

func (p *Pages[T]) nextCursor() string {
	if p == nil || len(p.Pages) == 0 {
		return ""
	}
	return p.Pages[len(p.Pages)-1].Next
}

func (p *Pages[T]) append(page Page[T], cursor string) *Pages[T] {
	out := &Pages[T]{}
	if p != nil {
		out.Pages = append(out.Pages, p.Pages...)
		out.Cursors = append(out.Cursors, p.Cursors...)
	}
	out.Pages = append(out.Pages, page)
	out.Cursors = append(out.Cursors, cursor)
	return out
}

// Sequencer appends pages to one cached key in strict order. At most one
// page fetch runs at a time; a failed page leaves earlier pages intact.
type Sequencer[T any] struct {
	cache    *Cache
	key      Key
	fetch    PageFetcher[T]
	identity func(T) string
	opts     []Option
}

// NewSequencer binds a paginated query to key. identity is used to
// de-duplicate items across pages.
func NewSequencer[T any](c *Cache, key Key, fetch PageFetcher[T], identity func(T) string, opts ...Option) *Sequencer[T] {
	return &Sequencer[T]{cache: c, key: key, fetch: fetch, identity: identity, opts: opts}
}

// Key returns the cached key.
func (s *Sequencer[T]) Key() Key { return s.key }

// Load fetches the first page if nothing has been fetched yet.
func (s *Sequencer[T]) Load(ctx context.Context) error {
	if len(s.Pages()) > 0 {
		return nil
	}
	_, err := s.NextPage(ctx)
	return err
}

// NextPage fetches the page after the last one and waits for it. It
// reports false without fetching when the sequence is exhausted or a page
// fetch is already running.
func (s *Sequencer[T]) NextPage(ctx context.Context) (bool, error) {
	c := s.cache
	cfg := c.config(s.opts)
	if !cfg.enabled {
		return false, nil
	}

	c.mu.Lock()
	e := c.entryFor(s.key)
	e.cfg = cfg
	e.refetch = s.refetchAll
	pages, err := s.pagesOf(e)
	if err != nil {
		c.unlock()
		return false, err
	}
	if e.fetching || !pages.HasNext() {
		c.unlock()
		return false, nil
	}
	ch := c.startFetch(ctx, e, s.appendNext)
	c.touch(e)
	ev := e.updated()
	c.unlock()
	c.publish(ev)

	select {
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// HasNext reports whether another page can be fetched. It is true before
// the first page.
func (s *Sequencer[T]) HasNext() bool {
	c := s.cache
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries.Get(s.key.hash)
	if !ok {
		return true
	}
	pages, err := s.pagesOf(v.(*entry))
	return err == nil && pages.HasNext()
}

// IsFetchingNext reports whether a page fetch is running.
func (s *Sequencer[T]) IsFetchingNext() bool {
	st, ok := s.cache.State(s.key)
	return ok && st.IsFetching
}

// Pages returns the fetched pages in order.
func (s *Sequencer[T]) Pages() []Page[T] {
	pages, ok := Peek[*Pages[T]](s.cache, s.key)
	if !ok || pages == nil {
		return nil
	}
	return append([]Page[T](nil), pages.Pages...)
}

// AllItems returns the companion lists followed by every page's items,
// keeping the first appearance of each identity.
func (s *Sequencer[T]) AllItems(companions ...[]T) []T {
	lists := append(append([][]T(nil), companions...), itemsOf(s.Pages())...)
	seen := make(map[string]struct{})
	var out []T
	for _, list := range lists {
		for _, item := range list {
			id := s.identity(item)
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}

// Reset drops every fetched page.
func (s *Sequencer[T]) Reset() {
	s.cache.Remove(s.key)
}

func itemsOf[T any](pages []Page[T]) [][]T {
	out := make([][]T, len(pages))
	for i, p := range pages {
		out[i] = p.Items
	}
	return out
}

// pagesOf reads the page data of e. Caller holds mu.
func (s *Sequencer[T]) pagesOf(e *entry) (*Pages[T], error) {
	if !e.hasData {
		return nil, nil
	}
	pages, ok := e.data.(*Pages[T])
	if !ok {
		return nil, fmt.Errorf("paginated query %s: %w", s.key, ErrTypeMismatch)
	}
	return pages, nil
}

func (s *Sequencer[T]) appendNext(ctx context.Context, prev any) (any, error) {
	pages, _ := prev.(*Pages[T])
	cursor := pages.nextCursor()
	page, err := s.fetch(ctx, cursor)
	if err != nil {
		return nil, err
	}
	return pages.append(page, cursor), nil
}

// refetchAll refetches as many pages as are cached, following the fresh
// cursors, and stops early if the sequence now ends sooner.
func (s *Sequencer[T]) refetchAll(ctx context.Context, prev any) (any, error) {
	old, _ := prev.(*Pages[T])
	want := 1
	if old != nil && len(old.Pages) > 0 {
		want = len(old.Pages)
	}

	var (
		out    *Pages[T]
		cursor string
	)
	for i := 0; i < want; i++ {
		page, err := s.fetch(ctx, cursor)
		if err != nil {
			return nil, err
		}
		out = out.append(page, cursor)
		if page.Next == "" {
			break
		}
		cursor = page.Next
	}
	return out, nil
}
