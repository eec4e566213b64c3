package agingstore

import (
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/karupanerura/aging-store/expiration"
	"github.com/karupanerura/aging-store/internal/panicguard"
)

// DefaultNotifyConcurrency is the number of goroutines a sweep uses to
// dispatch removal notifications.
var DefaultNotifyConcurrency = 8

// sweepLoop is the background sweeper. It wakes on every sweep interval and
// terminates only on Stop; a failing tick is reported and the loop goes on.
func (s *AgingStore[V]) sweepLoop() {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return

		case <-ticker.C:
			if err := panicguard.Call(s.tick); err != nil {
				s.reportBackgroundError(err)
			}
		}
	}
}

// tick decides whether this wake sweeps. Without a threshold every tick
// sweeps. With one, a tick sweeps only once enough writes accumulated since
// the last sweep, and resets the counter when it does.
func (s *AgingStore[V]) tick() {
	if s.sweepOpThreshold > 0 {
		if s.ops.Load() < s.sweepOpThreshold {
			return
		}
		s.ops.Store(0)
	}
	s.sweep()
}

// sweep atomically replaces the table with the subset of entries that are
// not expired now, then hands the removed generation to the notifier.
// The table swap completes synchronously; notification dispatch does not
// block the sweep.
func (s *AgingStore[V]) sweep() {
	now := s.clock.Now()

	var removed map[string]V
	s.swap(func(old table[V]) (table[V], bool) {
		removed = nil
		next := make(table[V], len(old))
		for id, entry := range old {
			if expiration.IsExpired(s.ttl, now, entry.Timestamp) {
				if removed == nil {
					removed = make(map[string]V)
				}
				removed[id] = entry.Value
			} else {
				next[id] = entry
			}
		}
		if removed == nil {
			return nil, false
		}
		return next, true
	})

	if removed == nil || s.onRemoval == nil {
		return
	}
	go s.dispatchRemovals(removed)
}

// dispatchRemovals fans one notification per removed id out over a bounded
// pool. Each invocation is contained on its own, so a slow or panicking
// listener can neither delay the next tick nor drop the other notifications.
func (s *AgingStore[V]) dispatchRemovals(removed map[string]V) {
	p := pool.New().WithMaxGoroutines(DefaultNotifyConcurrency)
	for id, value := range removed {
		p.Go(func() {
			s.notify(id, value, RemovalExpired)
		})
	}
	p.Wait()
}
