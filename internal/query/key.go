package query

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind tags the variant of a query (popular list, search, details, ...).
type Kind string

// Key identifies a cached query: a Kind followed by an ordered tuple of
// primitive arguments. Keys are comparable and compare by their canonical
// hash, e.g. ["movieSearch","matrix"].
type Key struct {
	kind Kind
	hash string
}

// NewKey builds a key from a kind and primitive arguments (strings, numbers,
// booleans). Two keys are equal when their kinds and arguments are.
func NewKey(kind Kind, args ...any) Key {
	tuple := make([]any, 0, len(args)+1)
	tuple = append(tuple, string(kind))
	tuple = append(tuple, args...)

	hash, err := json.Marshal(tuple)
	if err != nil {
		// Non-primitive argument; fall back to a printed tuple.
		parts := make([]string, len(tuple))
		for i, v := range tuple {
			parts[i] = fmt.Sprintf("%q", fmt.Sprint(v))
		}
		return Key{kind: kind, hash: "[" + strings.Join(parts, ",") + "]"}
	}
	return Key{kind: kind, hash: string(hash)}
}

// Kind returns the variant tag.
func (k Key) Kind() Kind { return k.kind }

// String returns the canonical hash.
func (k Key) String() string { return k.hash }

// IsZero reports whether k was never built.
func (k Key) IsZero() bool { return k.hash == "" }
