// Package query is an in-process cache of asynchronous query results with
// per-entry staleness, retries, invalidation, in-flight deduplication and
// ordered pagination.
package query

import "errors"

// ErrTypeMismatch is set on a Result whose cached data is not of the type
// the caller asked for. Two kinds of data stored under one key is a bug in
// the caller's key scheme.
var ErrTypeMismatch = errors.New("cached data has unexpected type")
