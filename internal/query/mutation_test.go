package query

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/marquee/internal/events"
)

func TestMutation_RunsOnSuccess(t *testing.T) {
	c := newTestCache()
	settled := c.Bus().SubscribeTopic("addFavorite", 1)
	var invalidated atomic.Bool

	m := NewMutation(c, "addFavorite",
		func(ctx context.Context, id string) (int, error) { return len(id), nil },
		func(ctx context.Context, id string, n int) { invalidated.Store(true) },
	)

	n, err := m.Run(context.Background(), "550")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.True(t, invalidated.Load(), "onSuccess completes before Run returns")
	assert.False(t, m.IsPending())

	select {
	case e := <-settled:
		require.Equal(t, events.EventMutationSettled, e.EventType())
		assert.Empty(t, e.(*events.MutationSettled).Error)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for settled event")
	}
}

func TestMutation_FailureSkipsOnSuccess(t *testing.T) {
	c := newTestCache()
	var called atomic.Bool

	m := NewMutation(c, "removeFavorite",
		func(ctx context.Context, id string) (struct{}, error) { return struct{}{}, errUpstream },
		func(ctx context.Context, id string, _ struct{}) { called.Store(true) },
	)

	_, err := m.Run(context.Background(), "550")
	require.ErrorIs(t, err, errUpstream)
	assert.Contains(t, err.Error(), "removeFavorite")
	assert.False(t, called.Load())
}

func TestMutation_IsPendingWhileRunning(t *testing.T) {
	c := newTestCache()
	release := make(chan struct{})

	m := NewMutation(c, "addFavorite", func(ctx context.Context, id string) (string, error) {
		<-release
		return id, nil
	}, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = m.Run(context.Background(), "1")
	}()

	require.Eventually(t, m.IsPending, time.Second, time.Millisecond)
	close(release)
	<-done
	assert.False(t, m.IsPending())
}
