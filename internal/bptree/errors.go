package bptree

import (
	"errors"
	"fmt"
)

// Client errors: expected, recoverable conditions the caller is meant to
// branch on with errors.Is. They are never retried by the tree itself.
var (
	ErrDuplicateKey = errors.New("bptree: key already exists")
	ErrNotFound     = errors.New("bptree: key not found")
	ErrClosed       = errors.New("bptree: tree is closed")
)

// assertf panics on an invariant violation (path depth exceeded, malformed
// page tag, ...): these are bugs, not runtime conditions, so they are
// never wrapped as a returned error.
func assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
