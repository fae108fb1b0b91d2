package query

import "time"

// Status is the lifecycle state of a query.
type Status int

const (
	StatusPending Status = iota // no data yet
	StatusSuccess               // last fetch succeeded
	StatusError                 // last fetch failed; older data may remain
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "pending"
	}
}

// Result is what a caller sees for one query.
type Result[T any] struct {
	Data       T
	HasData    bool
	Status     Status
	IsFetching bool
	IsStale    bool
	Err        error
	UpdatedAt  time.Time
}

func (r Result[T]) IsPending() bool { return r.Status == StatusPending }
func (r Result[T]) IsSuccess() bool { return r.Status == StatusSuccess }
func (r Result[T]) IsError() bool   { return r.Status == StatusError }

// IsLoading reports a first fetch in progress.
func (r Result[T]) IsLoading() bool {
	return !r.HasData && r.IsFetching
}

// State is an untyped snapshot of a cache entry.
type State struct {
	Key            Key
	Data           any
	HasData        bool
	Status         Status
	IsFetching     bool
	IsInvalidated  bool
	IsStale        bool
	Err            error
	FailureCount   int
	UpdatedAt      time.Time
	ErrorUpdatedAt time.Time
	Observers      int
}

func resultOf[T any](s State) Result[T] {
	r := Result[T]{
		Status:     s.Status,
		IsFetching: s.IsFetching,
		IsStale:    s.IsStale,
		Err:        s.Err,
		UpdatedAt:  s.UpdatedAt,
	}
	if !s.HasData {
		return r
	}
	data, ok := s.Data.(T)
	if !ok {
		r.Err = ErrTypeMismatch
		return r
	}
	r.Data = data
	r.HasData = true
	return r
}
