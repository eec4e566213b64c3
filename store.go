package agingstore

import (
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/karupanerura/aging-store/expiration"
	"github.com/karupanerura/aging-store/internal/panicguard"
	"github.com/karupanerura/aging-store/sessionid"
)

// table is one immutable generation of the session mapping.
// A table is never mutated after it is installed; every change builds a new
// table and installs it atomically.
type table[V ValueConstraint] map[string]Entry[V]

// AgingStore is a concurrent in-memory session store whose entries expire
// after a fixed TTL. Expired entries are removed on access and, for entries
// nobody touches again, by a background sweeper. Removals are reported once
// each through an optional RemovalListener.
type AgingStore[V ValueConstraint] struct {
	table atomic.Pointer[table[V]]
	ops   atomic.Int64

	ttl               time.Duration
	refreshOnRead     bool
	refreshOnWrite    bool
	sweepInterval     time.Duration
	sweepOpThreshold  int64
	onRemoval         RemovalListener[V]
	onBackgroundError func(error)
	clock             Clock
	cloner            ValueCloner[V]
	generateID        sessionid.Generator

	stop     chan struct{}
	stopOnce sync.Once
}

var _ Store[struct{}] = (*AgingStore[struct{}])(nil)

// New creates a store and launches its background sweeper.
// It returns immediately, without waiting for the first sweep tick.
// WithTTL is required; a missing or non-positive TTL fails construction
// rather than silently producing a store that never expires anything.
func New[V ValueConstraint](opts ...Option[V]) (*AgingStore[V], error) {
	o := defaultOptions[V]()
	for _, opt := range opts {
		opt.apply(&o)
	}
	if o.ttl <= 0 {
		return nil, ErrInvalidTTL
	}
	if o.sweepInterval <= 0 {
		return nil, ErrInvalidSweepInterval
	}
	if o.sweepOpThreshold < 0 {
		return nil, ErrInvalidSweepOpThreshold
	}

	s := &AgingStore[V]{
		ttl:               o.ttl,
		refreshOnRead:     o.refreshOnRead,
		refreshOnWrite:    o.refreshOnWrite,
		sweepInterval:     o.sweepInterval,
		sweepOpThreshold:  o.sweepOpThreshold,
		onRemoval:         o.onRemoval,
		onBackgroundError: o.onBackgroundError,
		clock:             o.clock,
		cloner:            o.cloner,
		generateID:        o.generateID,
		stop:              make(chan struct{}),
	}

	init := make(table[V], len(o.initial))
	now := s.clock.Now()
	for id, value := range o.initial {
		init[id] = Entry[V]{Timestamp: now, Value: s.cloner.CloneValue(value)}
	}
	s.table.Store(&init)

	go s.sweepLoop()
	return s, nil
}

// swap installs the table produced by mutate, retrying against a fresh
// snapshot whenever the reference moved since the snapshot was taken.
// mutate reports whether it changed anything; when it did not, nothing is
// installed. mutate may run more than once, and only its final run, the one
// whose result won the CompareAndSwap, decides what actually happened.
func (s *AgingStore[V]) swap(mutate func(old table[V]) (table[V], bool)) {
	for {
		old := s.table.Load()
		next, changed := mutate(*old)
		if !changed {
			return
		}
		if s.table.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Get returns the live value for the given session id.
// An absent id returns the zero value with no side effect. An expired entry
// is atomically removed, reported to the removal listener with reason
// RemovalExpired, and returned as absent. A live read advances the entry's
// timestamp when the store refreshes on read.
func (s *AgingStore[V]) Get(id string) (V, bool) {
	now := s.clock.Now()

	var (
		value   V
		found   bool
		removed bool
	)
	s.swap(func(old table[V]) (table[V], bool) {
		entry, present := old[id]
		if !present {
			found, removed = false, false
			return nil, false
		}
		if expiration.IsExpired(s.ttl, now, entry.Timestamp) {
			found, removed = false, true
			value = entry.Value
			return cloneWithout(old, id), true
		}
		found, removed = true, false
		value = entry.Value
		if !s.refreshOnRead {
			return nil, false
		}
		next := maps.Clone(old)
		next[id] = Entry[V]{Timestamp: now, Value: entry.Value}
		return next, true
	})

	if removed {
		s.notify(id, value, RemovalExpired)
	}
	if !found {
		var zero V
		return zero, false
	}
	return s.cloner.CloneValue(value), true
}

// Set stores a value under the given session id and returns the id,
// generating a fresh unique one when id is empty. When the id already held
// an entry that was expired at the moment of the write, the old value is
// reported to the removal listener with reason RemovalExpired rather than
// silently dropped. A write over a live entry keeps the original timestamp
// unless the store refreshes on write.
func (s *AgingStore[V]) Set(id string, value V) string {
	if id == "" {
		id = s.generateID()
	}
	now := s.clock.Now()
	stored := s.cloner.CloneValue(value)

	var (
		oldValue   V
		oldExpired bool
	)
	s.swap(func(old table[V]) (table[V], bool) {
		prev, present := old[id]
		oldExpired = present && expiration.IsExpired(s.ttl, now, prev.Timestamp)
		if oldExpired {
			oldValue = prev.Value
		}

		entry := Entry[V]{Timestamp: now, Value: stored}
		if present && !oldExpired && !s.refreshOnWrite {
			entry.Timestamp = prev.Timestamp
		}
		next := maps.Clone(old)
		next[id] = entry
		return next, true
	})

	if s.sweepOpThreshold > 0 {
		s.ops.Add(1)
	}
	if oldExpired {
		s.notify(id, oldValue, RemovalExpired)
	}
	return id
}

// Delete atomically removes the session if present and reports the removal
// with reason RemovalDeleted. Deleting an absent id is a no-op and fires no
// notification.
func (s *AgingStore[V]) Delete(id string) {
	var (
		value   V
		removed bool
	)
	s.swap(func(old table[V]) (table[V], bool) {
		entry, present := old[id]
		removed = present
		if !present {
			return nil, false
		}
		value = entry.Value
		return cloneWithout(old, id), true
	})

	if removed {
		s.notify(id, value, RemovalDeleted)
	}
}

// Timestamp returns the entry's current liveness timestamp.
// It triggers neither expiry nor refresh, so it can observe entries that are
// already past their TTL but not yet reclaimed.
func (s *AgingStore[V]) Timestamp(id string) (time.Time, bool) {
	entry, ok := (*s.table.Load())[id]
	if !ok {
		return time.Time{}, false
	}
	return entry.Timestamp, true
}

// Entries returns a snapshot of the whole table as seen at one instant.
// Mutating the returned map does not affect the store.
func (s *AgingStore[V]) Entries() map[string]Entry[V] {
	snapshot := *s.table.Load()
	entries := make(map[string]Entry[V], len(snapshot))
	for id, entry := range snapshot {
		entries[id] = Entry[V]{Timestamp: entry.Timestamp, Value: s.cloner.CloneValue(entry.Value)}
	}
	return entries
}

// Stop signals the background sweeper to terminate at its next wake point.
// It is idempotent and does not drain the table; foreground operations,
// expiry-on-access included, keep working on a stopped store.
func (s *AgingStore[V]) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

// notify invokes the removal listener, containing any panic it raises.
func (s *AgingStore[V]) notify(id string, value V, reason RemovalReason) {
	if s.onRemoval == nil {
		return
	}
	if err := panicguard.Call(func() {
		s.onRemoval(id, value, reason)
	}); err != nil {
		s.reportBackgroundError(err)
	}
}

func (s *AgingStore[V]) reportBackgroundError(err error) {
	if s.onBackgroundError != nil {
		s.onBackgroundError(err)
	}
}

func cloneWithout[V ValueConstraint](old table[V], id string) table[V] {
	next := maps.Clone(old)
	delete(next, id)
	return next
}
