package events

// Event types
const (
	EventQueryUpdated     = "query.updated"
	EventQueryInvalidated = "query.invalidated"
	EventQueryEvicted     = "query.evicted"
	EventMutationSettled  = "mutation.settled"
)

// QueryUpdated is emitted whenever an entry's data, status or fetching
// flag changes.
type QueryUpdated struct {
	BaseEvent
	Kind       string `json:"kind"`
	Status     string `json:"status"`
	IsFetching bool   `json:"is_fetching"`
	Error      string `json:"error,omitempty"`
}

// QueryInvalidated is emitted when an entry is marked stale.
type QueryInvalidated struct {
	BaseEvent
	Kind string `json:"kind"`
}

// QueryEvicted is emitted when an unused entry passes its gc horizon or is
// removed explicitly.
type QueryEvicted struct {
	BaseEvent
	Kind string `json:"kind"`
}

// MutationSettled is emitted when a mutation finishes, successfully or not.
type MutationSettled struct {
	BaseEvent
	Name  string `json:"name"`
	Error string `json:"error,omitempty"`
}
