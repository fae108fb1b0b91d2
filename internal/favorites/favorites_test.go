package favorites

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/marquee/internal/movie"
	"github.com/vmunix/marquee/internal/query"
	"github.com/vmunix/marquee/internal/store"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestService(t *testing.T, st store.Store, opts ...Option) (*Service, *query.Cache) {
	t.Helper()
	cache := query.New(query.WithLogger(discard))
	opts = append([]Option{WithLogger(discard), WithCommitDelay(0)}, opts...)
	return New(st, cache, opts...), cache
}

func detail(id, year string) movie.Detail {
	return movie.Detail{Movie: movie.Movie{ID: id, Title: "Movie " + id, Year: year}}
}

// failingStore accepts reads and rejects every write.
type failingStore struct {
	store.Store
}

func (failingStore) Write(context.Context, string, any) error {
	return errors.New("disk full")
}

func persisted(t *testing.T, st store.Store) []movie.Detail {
	t.Helper()
	var items []movie.Detail
	_, err := st.Read(context.Background(), StorageKey, &items)
	require.NoError(t, err)
	return items
}

func TestService_AddTwiceThenRemove(t *testing.T) {
	st := store.NewMemory()
	s, _ := newTestService(t, st)
	ctx := context.Background()

	m := detail("550", "1999")
	require.NoError(t, s.Add(ctx, m))
	require.NoError(t, s.Add(ctx, m))

	items, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Len(t, persisted(t, st), 1)

	ok, err := s.Contains(ctx, "550")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Remove(ctx, "550"))
	items, err = s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, persisted(t, st))

	require.NoError(t, s.Remove(ctx, "550"), "removing an absent id is a no-op")
}

func TestService_ListSortedByYear(t *testing.T) {
	s, _ := newTestService(t, store.NewMemory())
	ctx := context.Background()

	for _, d := range []movie.Detail{detail("a", "1999"), detail("b", "N/A"), detail("c", "2024")} {
		require.NoError(t, s.Add(ctx, d))
	}

	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{items[0].ID, items[1].ID, items[2].ID})
}

func TestService_LoadsExistingList(t *testing.T) {
	st := store.NewMemory()
	require.NoError(t, st.Write(context.Background(), StorageKey, []movie.Detail{detail("603", "1999")}))

	s, _ := newTestService(t, st)
	items, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "603", items[0].ID)
}

func TestService_UnreadableListStartsEmpty(t *testing.T) {
	st := store.NewMemory()
	require.NoError(t, st.Write(context.Background(), StorageKey, "{not a list"))

	s, _ := newTestService(t, st)
	items, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)

	require.NoError(t, s.Add(context.Background(), detail("1", "2001")))
	assert.Len(t, persisted(t, st), 1, "next write replaces the unreadable value")
}

func TestService_CancelledCommitIsRejected(t *testing.T) {
	st := store.NewMemory()
	s, _ := newTestService(t, st, WithCommitDelay(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := s.Add(ctx, detail("550", "1999"))
	require.ErrorIs(t, err, ErrMutationRejected)
	assert.ErrorIs(t, err, context.Canceled)

	items, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, persisted(t, st))
}

func TestService_WriteFailureKeepsChange(t *testing.T) {
	s, _ := newTestService(t, failingStore{Store: store.NewMemory()})

	require.NoError(t, s.Add(context.Background(), detail("550", "1999")))

	items, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestService_NotOptimistic(t *testing.T) {
	s, _ := newTestService(t, store.NewMemory(), WithCommitDelay(50*time.Millisecond))
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- s.Add(ctx, detail("550", "1999")) }()

	require.Eventually(t, s.IsAdding, time.Second, time.Millisecond)
	items, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items, "list is unchanged until the commit succeeds")

	require.NoError(t, <-done)
	assert.False(t, s.IsAdding())

	items, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestService_IsRemoving(t *testing.T) {
	s, _ := newTestService(t, store.NewMemory())
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, detail("1", "2000")))

	s.commitDelay = 50 * time.Millisecond
	done := make(chan error, 1)
	go func() { done <- s.Remove(ctx, "1") }()

	require.Eventually(t, s.IsRemoving, time.Second, time.Millisecond)
	assert.False(t, s.IsAdding())
	require.NoError(t, <-done)
	assert.False(t, s.IsRemoving())
}

func TestService_ConcurrentAdds(t *testing.T) {
	st := store.NewMemory()
	s, _ := newTestService(t, st)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Add(context.Background(), detail(strconv.Itoa(i), "2000")))
		}(i)
	}
	wg.Wait()

	items, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 10)
	assert.Len(t, persisted(t, st), 10)
}

func TestService_MutationInvalidatesList(t *testing.T) {
	s, cache := newTestService(t, store.NewMemory())
	ctx := context.Background()

	_, err := s.List(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Add(ctx, detail("1", "2000")))
	state, ok := cache.State(Key)
	require.True(t, ok)
	assert.True(t, state.IsInvalidated)

	_, err = s.List(ctx)
	require.NoError(t, err)
	state, _ = cache.State(Key)
	assert.False(t, state.IsInvalidated)

	s.Refresh()
	state, _ = cache.State(Key)
	assert.True(t, state.IsInvalidated)
}

func TestService_MissingID(t *testing.T) {
	s, _ := newTestService(t, store.NewMemory())

	assert.ErrorIs(t, s.Add(context.Background(), movie.Detail{}), ErrMissingID)
	assert.ErrorIs(t, s.Remove(context.Background(), ""), ErrMissingID)
}

func TestService_RefreshRereadsStore(t *testing.T) {
	st := store.NewMemory()
	browser, _ := newTestService(t, st)
	other, _ := newTestService(t, st)
	ctx := context.Background()

	items, err := browser.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	require.NoError(t, other.Add(ctx, detail("42", "2001")))
	require.Len(t, persisted(t, st), 1)

	browser.Refresh()
	items, err = browser.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "42", items[0].ID)

	// Mutations start from the stored list, not a stale copy
	require.NoError(t, browser.Add(ctx, detail("7", "1999")))
	assert.Len(t, persisted(t, st), 2)
}

func TestService_EmptyListIsDeleted(t *testing.T) {
	st := store.NewMemory()
	s, _ := newTestService(t, st)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, detail("42", "2001")))
	require.NoError(t, s.Remove(ctx, "42"))

	var items []movie.Detail
	found, err := st.Read(ctx, StorageKey, &items)
	require.NoError(t, err)
	assert.False(t, found, "nothing is stored for an empty list")
}

func TestService_WriteFailureSurvivesRefresh(t *testing.T) {
	s, _ := newTestService(t, failingStore{Store: store.NewMemory()})
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, detail("550", "1999")))
	s.Refresh()

	items, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1, "the store is behind, so the last known list is served")
}
