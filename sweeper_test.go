package agingstore_test

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	agingstore "github.com/karupanerura/aging-store"
)

// waitFor polls cond until it holds or the timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func sortedRemovals(removals []removal) []removal {
	sorted := append([]removal(nil), removals...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return sorted
}

func TestSweep_RemovesExpiredEntries(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	recorder := &removalRecorder{}
	store, err := agingstore.New[string](
		agingstore.WithTTL[string](time.Second),
		agingstore.WithSweepInterval[string](50*time.Millisecond),
		agingstore.WithClock[string](clock),
		agingstore.WithRemovalListener[string](recorder.listener()),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Stop()

	store.Set("k1", "v1")
	store.Set("k2", "v2")
	clock.Advance(2 * time.Second)

	// the entries are never read again; only the sweeper can reclaim them
	if !waitFor(t, 2*time.Second, func() bool { return len(store.Entries()) == 0 }) {
		t.Fatalf("expected the sweeper to remove expired entries, still holding %v", store.Entries())
	}
	if !waitFor(t, 2*time.Second, func() bool { return len(recorder.snapshot()) == 2 }) {
		t.Fatalf("expected two removal notifications, got %v", recorder.snapshot())
	}

	want := []removal{
		{ID: "k1", Value: "v1", Reason: agingstore.RemovalExpired},
		{ID: "k2", Value: "v2", Reason: agingstore.RemovalExpired},
	}
	if df := cmp.Diff(want, sortedRemovals(recorder.snapshot())); df != "" {
		t.Errorf("unexpected removals, diff=%s", df)
	}
}

func TestSweep_KeepsEntriesAliveUnderAccess(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	recorder := &removalRecorder{}
	store, err := agingstore.New[string](
		agingstore.WithTTL[string](time.Second),
		agingstore.WithSweepInterval[string](50*time.Millisecond),
		agingstore.WithRefreshOnRead[string](true),
		agingstore.WithClock[string](clock),
		agingstore.WithRemovalListener[string](recorder.listener()),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Stop()

	store.Set("foo", "untouched")
	store.Set("bar", "kept alive")

	// "bar" is re-read before each step so refresh-on-read extends it;
	// "foo" is left alone and ages past the ttl.
	for i := 0; i < 4; i++ {
		clock.Advance(300 * time.Millisecond)
		if value, ok := store.Get("bar"); !ok || value != "kept alive" {
			t.Fatalf("step %d: expected bar to stay readable, got (%q, %v)", i, value, ok)
		}
		time.Sleep(100 * time.Millisecond)
	}

	if _, ok := store.Get("foo"); ok {
		t.Error("expected foo to have expired")
	}
	if value, ok := store.Get("bar"); !ok || value != "kept alive" {
		t.Errorf("expected bar to survive, got (%q, %v)", value, ok)
	}

	if !waitFor(t, 2*time.Second, func() bool { return len(recorder.snapshot()) == 1 }) {
		t.Fatalf("expected exactly one removal, got %v", recorder.snapshot())
	}
	want := []removal{{ID: "foo", Value: "untouched", Reason: agingstore.RemovalExpired}}
	if df := cmp.Diff(want, recorder.snapshot()); df != "" {
		t.Errorf("unexpected removals, diff=%s", df)
	}
}

func TestSweep_OpThreshold(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store, err := agingstore.New[string](
		agingstore.WithTTL[string](time.Second),
		agingstore.WithSweepInterval[string](50*time.Millisecond),
		agingstore.WithSweepOpThreshold[string](3),
		agingstore.WithClock[string](clock),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Stop()

	store.Set("stale", "v")
	clock.Advance(2 * time.Second)

	// one write since the last sweep is below the threshold: ticks fire but
	// must not sweep, so the expired entry stays in the table
	time.Sleep(300 * time.Millisecond)
	if _, ok := store.Timestamp("stale"); !ok {
		t.Fatal("expected the expired entry to survive sweeps below the op threshold")
	}

	store.Set("fresh1", "v")
	store.Set("fresh2", "v")

	// three writes reach the threshold; the next tick sweeps
	if !waitFor(t, 2*time.Second, func() bool {
		_, ok := store.Timestamp("stale")
		return !ok
	}) {
		t.Fatal("expected the sweeper to reclaim the expired entry once the threshold was reached")
	}

	if _, ok := store.Get("fresh1"); !ok {
		t.Error("expected the live entry to survive the sweep")
	}
}

func TestStop(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	store, err := agingstore.New[string](
		agingstore.WithTTL[string](time.Second),
		agingstore.WithSweepInterval[string](50*time.Millisecond),
		agingstore.WithClock[string](clock),
	)
	if err != nil {
		t.Fatal(err)
	}

	store.Stop()
	store.Stop() // idempotent

	store.Set("k", "v")
	clock.Advance(2 * time.Second)
	time.Sleep(300 * time.Millisecond)

	// the sweeper is stopped: the expired entry stays in the table
	if _, ok := store.Timestamp("k"); !ok {
		t.Fatal("expected no sweeps after Stop")
	}

	// foreground operations keep working, expiry-on-access included
	if _, ok := store.Get("k"); ok {
		t.Error("expected expiry-on-access to still apply after Stop")
	}
	id := store.Set("", "new")
	if _, ok := store.Get(id); !ok {
		t.Error("expected writes to keep working after Stop")
	}
	store.Delete(id)
	if _, ok := store.Get(id); ok {
		t.Error("expected deletes to keep working after Stop")
	}
}

func TestSweep_ListenerPanicDoesNotStopSweeper(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	var mu sync.Mutex
	var notified []string
	var bgErrs []error
	store, err := agingstore.New[string](
		agingstore.WithTTL[string](time.Second),
		agingstore.WithSweepInterval[string](50*time.Millisecond),
		agingstore.WithClock[string](clock),
		agingstore.WithRemovalListener[string](func(id string, value string, reason agingstore.RemovalReason) {
			mu.Lock()
			notified = append(notified, id)
			mu.Unlock()
			panic("misbehaving listener")
		}),
		agingstore.WithBackgroundErrorHandler[string](func(err error) {
			mu.Lock()
			defer mu.Unlock()
			bgErrs = append(bgErrs, err)
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Stop()

	store.Set("first", "v")
	clock.Advance(2 * time.Second)
	if !waitFor(t, 2*time.Second, func() bool { return len(store.Entries()) == 0 }) {
		t.Fatal("expected the first entry to be swept")
	}

	// the panicking listener must not have killed the sweeper
	store.Set("second", "v")
	clock.Advance(2 * time.Second)
	if !waitFor(t, 2*time.Second, func() bool { return len(store.Entries()) == 0 }) {
		t.Fatal("expected the second entry to be swept after a listener panic")
	}

	if !waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(notified) == 2 && len(bgErrs) == 2
	}) {
		mu.Lock()
		defer mu.Unlock()
		t.Errorf("expected 2 notifications and 2 contained panics, got notified=%v errors=%v", notified, bgErrs)
	}
}
