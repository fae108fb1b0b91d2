package events

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// allKey files wildcard subscribers in the same map as the others. Event
// types and topics never start with '*'.
const allKey = "*"

// Bus fans events out to subscribers by event type, by topic, or to all.
// Delivery never blocks: a subscriber whose buffer is full misses the event.
type Bus struct {
	mu      sync.RWMutex
	byType  map[string][]chan Event
	byTopic map[string][]chan Event
	logger  *slog.Logger
	closed  bool
	dropped atomic.Uint64
}

// NewBus creates a new event bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		byType:  make(map[string][]chan Event),
		byTopic: make(map[string][]chan Event),
		logger:  logger,
	}
}

// Publish delivers e to every matching subscriber. Publishing on a closed bus
// is a no-op.
func (b *Bus) Publish(_ context.Context, e Event) error {
	// Held across the sends so Unsubscribe cannot close a channel mid-send.
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil
	}

	for _, subs := range [][]chan Event{b.byType[e.EventType()], b.byTopic[e.Topic()], b.byType[allKey]} {
		for _, ch := range subs {
			select {
			case ch <- e:
			default:
				b.dropped.Add(1)
				b.logger.Warn("subscriber channel full, dropping event",
					"type", e.EventType(),
					"topic", e.Topic())
			}
		}
	}
	return nil
}

// Dropped returns how many deliveries were skipped because a subscriber
// was full.
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }

// Subscribe returns a channel for events of one type.
func (b *Bus) Subscribe(eventType string, bufferSize int) <-chan Event {
	return b.subscribe(b.byType, eventType, bufferSize)
}

// SubscribeTopic returns a channel for every event published on topic.
func (b *Bus) SubscribeTopic(topic string, bufferSize int) <-chan Event {
	return b.subscribe(b.byTopic, topic, bufferSize)
}

// SubscribeAll returns a channel for all events.
func (b *Bus) SubscribeAll(bufferSize int) <-chan Event {
	return b.subscribe(b.byType, allKey, bufferSize)
}

// subscribe registers a channel under name in m. On a closed bus the
// channel comes back already closed.
func (b *Bus) subscribe(m map[string][]chan Event, name string, bufferSize int) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, bufferSize)
	if b.closed {
		close(ch)
		return ch
	}
	m[name] = append(m[name], ch)
	return ch
}

// Unsubscribe removes a subscription channel and closes it. Unknown
// channels are ignored.
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !removeFrom(b.byType, ch) {
		removeFrom(b.byTopic, ch)
	}
}

func removeFrom(m map[string][]chan Event, ch <-chan Event) bool {
	for name, subs := range m {
		for i, sub := range subs {
			if sub != ch {
				continue
			}
			m[name] = append(subs[:i], subs[i+1:]...)
			if len(m[name]) == 0 {
				delete(m, name)
			}
			close(sub)
			return true
		}
	}
	return false
}

// Close shuts down the bus and closes all subscriber channels.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for _, m := range []map[string][]chan Event{b.byType, b.byTopic} {
		for name, subs := range m {
			for _, ch := range subs {
				close(ch)
			}
			delete(m, name)
		}
	}
	return nil
}
