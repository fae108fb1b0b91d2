package favorites

import "errors"

var (
	// ErrMutationRejected wraps the cause of a commit that did not happen.
	// The list is unchanged.
	ErrMutationRejected = errors.New("favorites mutation rejected")
	ErrMissingID        = errors.New("movie has no id")
)
