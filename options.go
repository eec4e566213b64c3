package agingstore

import (
	"time"

	"github.com/karupanerura/aging-store/sessionid"
)

// DefaultSweepInterval is the default interval between sweep ticks.
var DefaultSweepInterval = 30 * time.Second

// Option is the interface for the options of the store.
type Option[V ValueConstraint] interface {
	apply(*options[V])
}

type optionFunc[V ValueConstraint] func(*options[V])

func (f optionFunc[V]) apply(o *options[V]) {
	f(o)
}

// WithTTL sets the time-to-live of session entries. It is required.
// An entry whose age exceeds the TTL is expired; an entry aged exactly the
// TTL is still live.
func WithTTL[V ValueConstraint](ttl time.Duration) Option[V] {
	return optionFunc[V](func(o *options[V]) {
		o.ttl = ttl
	})
}

// WithRefreshOnRead sets whether a successful Get advances the entry's
// timestamp to the current time. The default is true.
func WithRefreshOnRead[V ValueConstraint](refresh bool) Option[V] {
	return optionFunc[V](func(o *options[V]) {
		o.refreshOnRead = refresh
	})
}

// WithRefreshOnWrite sets whether a Set over an existing live entry replaces
// its timestamp along with its value. When false, the original timestamp is
// preserved and only the value changes. The default is true.
func WithRefreshOnWrite[V ValueConstraint](refresh bool) Option[V] {
	return optionFunc[V](func(o *options[V]) {
		o.refreshOnWrite = refresh
	})
}

// WithSweepInterval sets the interval between sweep ticks.
// The default is DefaultSweepInterval.
func WithSweepInterval[V ValueConstraint](interval time.Duration) Option[V] {
	return optionFunc[V](func(o *options[V]) {
		o.sweepInterval = interval
	})
}

// WithSweepOpThreshold makes sweep ticks conditional: a tick only sweeps
// when at least n writes happened since the last sweep. Zero (the default)
// sweeps on every tick.
func WithSweepOpThreshold[V ValueConstraint](n int64) Option[V] {
	return optionFunc[V](func(o *options[V]) {
		o.sweepOpThreshold = n
	})
}

// WithRemovalListener sets the callback invoked once per session removal.
func WithRemovalListener[V ValueConstraint](listener RemovalListener[V]) Option[V] {
	return optionFunc[V](func(o *options[V]) {
		o.onRemoval = listener
	})
}

// WithClock sets the clock to the store.
// The default clock is SystemClock.
func WithClock[V ValueConstraint](clock Clock) Option[V] {
	return optionFunc[V](func(o *options[V]) {
		o.clock = clock
	})
}

// WithCloner sets the value cloner to the store.
// The default value cloner is NopValueCloner.
func WithCloner[V ValueConstraint](cloner ValueCloner[V]) Option[V] {
	return optionFunc[V](func(o *options[V]) {
		o.cloner = cloner
	})
}

// WithIDGenerator sets the generator used by Set when the given id is empty.
// The default generator is sessionid.UUID.
func WithIDGenerator[V ValueConstraint](generate sessionid.Generator) Option[V] {
	return optionFunc[V](func(o *options[V]) {
		o.generateID = generate
	})
}

// WithInitialSessions seeds the store with the given sessions.
// All of them start with a fresh timestamp taken at construction.
func WithInitialSessions[V ValueConstraint](sessions map[string]V) Option[V] {
	return optionFunc[V](func(o *options[V]) {
		o.initial = sessions
	})
}

// WithBackgroundErrorHandler sets the handler for faults the store cannot
// surface to a caller: a panicking removal listener or a failed sweep tick.
// The default handler discards them.
func WithBackgroundErrorHandler[V ValueConstraint](handler func(error)) Option[V] {
	return optionFunc[V](func(o *options[V]) {
		o.onBackgroundError = handler
	})
}

type options[V ValueConstraint] struct {
	ttl               time.Duration
	refreshOnRead     bool
	refreshOnWrite    bool
	sweepInterval     time.Duration
	sweepOpThreshold  int64
	onRemoval         RemovalListener[V]
	clock             Clock
	cloner            ValueCloner[V]
	generateID        sessionid.Generator
	initial           map[string]V
	onBackgroundError func(error)
}

func defaultOptions[V ValueConstraint]() options[V] {
	return options[V]{
		refreshOnRead:  true,
		refreshOnWrite: true,
		sweepInterval:  DefaultSweepInterval,
		clock:          SystemClock,
		cloner:         NopValueCloner[V]{},
		generateID:     sessionid.UUID,
	}
}
