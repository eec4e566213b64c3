package agingstore

import (
	"time"
)

// ValueConstraint is an interface for session value constraints.
type ValueConstraint interface {
	any
}

// Entry is a session value together with its liveness timestamp.
type Entry[V ValueConstraint] struct {
	// Timestamp is the last touch that counts as liveness.
	// It is set when the entry is created and advanced on read or write
	// only when the store is configured to refresh on that operation.
	Timestamp time.Time

	// Value is the session payload.
	// The store never inspects it except to pass it through.
	Value V
}

// RemovalReason describes why a session disappeared from the store.
type RemovalReason int

const (
	// RemovalExpired means the entry outlived the configured TTL.
	RemovalExpired RemovalReason = iota

	// RemovalDeleted means the entry was removed by an explicit Delete.
	RemovalDeleted
)

// String returns the reason as a short lowercase word.
func (r RemovalReason) String() string {
	switch r {
	case RemovalExpired:
		return "expired"
	case RemovalDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// RemovalListener is a callback invoked exactly once per logical
// disappearance of a session id from the store, with the removed value and
// the reason. Listeners may be invoked concurrently from multiple goroutines.
// A panic inside a listener is contained by the store and reported through
// the background error handler; it never reaches callers.
type RemovalListener[V ValueConstraint] func(id string, value V, reason RemovalReason)

// Store is the capability set the store exposes to adapter layers.
// Implementations must be thread-safe.
type Store[V ValueConstraint] interface {
	// Get returns the live value for the given session id.
	// Reading an expired entry removes it and reports it as absent.
	Get(id string) (V, bool)

	// Set stores a value under the given session id and returns the id.
	// If id is empty, a fresh unique id is generated.
	Set(id string, value V) string

	// Delete removes the session if present.
	// Deleting an absent id is a no-op.
	Delete(id string)

	// Timestamp returns the entry's current liveness timestamp.
	// It does not trigger expiry or refresh.
	Timestamp(id string) (time.Time, bool)

	// Entries returns a snapshot of the whole table as seen at one instant.
	Entries() map[string]Entry[V]

	// Stop terminates the background sweeper. It is idempotent.
	// Foreground operations keep working after Stop.
	Stop()
}
