package scanqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
)

type memStore struct {
	mu      sync.Mutex
	entries []Entry
}

func (s *memStore) Load() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...), nil
}

func (s *memStore) Save(entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append([]Entry(nil), entries...)
	return nil
}

// scriptedResolver returns canned outcomes per code and records attempts.
type scriptedResolver struct {
	mu       sync.Mutex
	outcomes map[string]error
	attempts []string
	block    chan struct{} // when set, Resolve waits on it
}

func (r *scriptedResolver) Resolve(ctx context.Context, code, operatorID string) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, code)
	return r.outcomes[code]
}

func TestQueue_Submit(t *testing.T) {
	errRejected := errors.New("unknown code")
	resolver := &scriptedResolver{outcomes: map[string]error{
		"ok":      nil,
		"bad":     errRejected,
		"offline": ErrUnavailable,
	}}
	q := New(&memStore{}, resolver)
	ctx := context.Background()

	// resolved immediately: nothing queued
	queued, err := q.Submit(ctx, "ok", "op1")
	if err != nil || queued {
		t.Errorf("Submit(ok) = %v, %v; want false, nil", queued, err)
	}

	// definitive rejection: surfaced, not queued
	queued, err = q.Submit(ctx, "bad", "op1")
	if err != errRejected || queued {
		t.Errorf("Submit(bad) = %v, %v; want false, %v", queued, err, errRejected)
	}

	// connectivity failure: queued
	queued, err = q.Submit(ctx, "offline", "op1")
	if err != nil || !queued {
		t.Errorf("Submit(offline) = %v, %v; want true, nil", queued, err)
	}

	// the same code queues again: no deduplication
	if queued, _ = q.Submit(ctx, "offline", "op1"); !queued {
		t.Error("Submit(offline) again = false, want true")
	}

	if pending, _ := q.Pending(); pending != 2 {
		t.Errorf("Pending() = %d, want 2", pending)
	}
}

func TestQueue_Drain(t *testing.T) {
	errRejected := errors.New("unknown code")
	resolver := &scriptedResolver{outcomes: map[string]error{"offline": ErrUnavailable}}
	store := &memStore{}
	q := New(store, resolver)
	ctx := context.Background()

	for _, code := range []string{"c1", "c2", "c1", "offline"} {
		resolver.outcomes[code] = ErrUnavailable
		if queued, err := q.Submit(ctx, code, "op1"); err != nil || !queued {
			t.Fatalf("Submit(%s) = %v, %v", code, queued, err)
		}
	}

	// connectivity is back: c1 resolves, c2 is definitively rejected, the
	// duplicate c1 resolves as already checked in (still a nil error)
	resolver.outcomes["c1"] = nil
	resolver.outcomes["c2"] = errRejected
	// "offline" stays unreachable

	stats, err := q.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if stats.Resolved != 2 || stats.Dropped != 1 || stats.Retained != 1 {
		t.Errorf("Drain() = %+v, want 2 resolved, 1 dropped, 1 retained", stats)
	}

	// the unreachable entry is still queued, in order
	entries, _ := store.Load()
	if len(entries) != 1 || entries[0].Code != "offline" {
		t.Errorf("retained entries = %+v, want only offline", entries)
	}

	// a second cycle with connectivity restored empties the queue
	resolver.outcomes["offline"] = nil
	stats, err = q.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if stats.Resolved != 1 || stats.Retained != 0 {
		t.Errorf("Drain() = %+v, want 1 resolved, 0 retained", stats)
	}
	if pending, _ := q.Pending(); pending != 0 {
		t.Errorf("Pending() = %d, want 0", pending)
	}
}

func TestQueue_Drain_stopsAtFirstConnectivityFailure(t *testing.T) {
	resolver := &scriptedResolver{outcomes: map[string]error{}}
	store := &memStore{}
	q := New(store, resolver)
	ctx := context.Background()

	for _, code := range []string{"a", "b", "c"} {
		resolver.outcomes[code] = ErrUnavailable
		if _, err := q.Submit(ctx, code, "op1"); err != nil {
			t.Fatalf("Submit(%s) error = %v", code, err)
		}
	}

	// a resolves, then the connection drops again at b: c must not be attempted
	resolver.outcomes["a"] = nil
	resolver.attempts = nil

	stats, err := q.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if stats.Resolved != 1 || stats.Retained != 2 {
		t.Errorf("Drain() = %+v, want 1 resolved, 2 retained", stats)
	}
	for _, code := range resolver.attempts {
		if code == "c" {
			t.Error("Drain() attempted an entry after a connectivity failure")
		}
	}

	entries, _ := store.Load()
	if len(entries) != 2 || entries[0].Code != "b" || entries[1].Code != "c" {
		t.Errorf("retained entries = %+v, want b then c in order", entries)
	}
}

func TestQueue_Drain_singleFlight(t *testing.T) {
	resolver := &scriptedResolver{
		outcomes: map[string]error{},
		block:    make(chan struct{}),
	}
	store := &memStore{}
	_ = store.Save([]Entry{{ID: "1", Code: "a", OperatorID: "op1"}})
	q := New(store, resolver)
	ctx := context.Background()

	done := make(chan DrainStats, 1)
	go func() {
		stats, _ := q.Drain(ctx)
		done <- stats
	}()

	// wait until the first drain is holding the flag
	for {
		q.mu.Lock()
		draining := q.draining
		q.mu.Unlock()
		if draining {
			break
		}
		time.Sleep(time.Millisecond)
	}

	// a concurrent trigger loses and reports nothing
	stats, err := q.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if stats != (DrainStats{}) {
		t.Errorf("concurrent Drain() = %+v, want zero stats", stats)
	}

	close(resolver.block)
	if stats := <-done; stats.Resolved != 1 {
		t.Errorf("winning Drain() = %+v, want 1 resolved", stats)
	}
}
