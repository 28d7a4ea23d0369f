// Package remote abstracts the path-addressed document store that owns
// the canonical inventory and sales data. Paths follow the conventions
// /inventory/{category}/{product} (full product record) and
// /sales/{id} (one committed sale). Reading a parent path returns the
// subtree below it as a nested JSON object.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
)

// ErrConflict is returned by Transact when the compare-and-swap keeps
// losing against concurrent writers past the internal retry bound. It
// is transient: callers retry the whole read-modify-write.
var ErrConflict = errors.New("remote: transaction conflict")

// TransactFunc computes the next value from the current one. A nil old
// value means the path does not exist yet. Returning an error aborts
// the transaction without writing; the error is surfaced as-is.
type TransactFunc func(old json.RawMessage) (json.RawMessage, error)

// Store is the system boundary to the remote document store. Every
// call may block on network I/O and carries the store's per-call
// timeout internally.
type Store interface {
	// Get returns the JSON value at path, or nil if absent.
	Get(ctx context.Context, path string) (json.RawMessage, error)

	// Set overwrites the value at path.
	Set(ctx context.Context, path string, value interface{}) error

	// Transact atomically applies fn to the value at path with
	// compare-and-swap semantics. It returns applied=true with the
	// written value on success, applied=false with fn's error when fn
	// aborts, and ErrConflict once the internal CAS budget runs out.
	Transact(ctx context.Context, path string, fn TransactFunc) (applied bool, result json.RawMessage, err error)

	// Ping is a lightweight round-trip used by the health monitor.
	Ping(ctx context.Context) error

	// Reconnect drops the current connection and dials again. Called
	// by the retry executor between attempts on stale connections.
	Reconnect(ctx context.Context) error

	Close() error
}

// buildTree reassembles leaf entries under prefix into the nested JSON
// object a parent-path read returns. Entry keys are full paths.
func buildTree(prefix string, entries map[string]json.RawMessage) (json.RawMessage, error) {
	root := map[string]interface{}{}

	paths := make([]string, 0, len(entries))
	for p := range entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		rel := strings.TrimPrefix(strings.TrimPrefix(p, prefix), "/")
		if rel == "" {
			continue
		}
		segs := strings.Split(rel, "/")
		node := root
		for _, seg := range segs[:len(segs)-1] {
			child, ok := node[seg].(map[string]interface{})
			if !ok {
				child = map[string]interface{}{}
				node[seg] = child
			}
			node = child
		}
		node[segs[len(segs)-1]] = entries[p]
	}

	if len(root) == 0 {
		return nil, nil
	}
	return json.Marshal(root)
}
