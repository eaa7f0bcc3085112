package scanqueue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrUnavailable is what a Resolver reports when the check-in endpoint
// cannot be reached. Submissions failing this way are queued or retained;
// every other error is a definitive rejection.
var ErrUnavailable = errors.New("check-in service unavailable")

func IsUnavailable(err error) bool {
	return errors.Cause(err) == ErrUnavailable
}

type (
	// Entry is one buffered check-in submission.
	Entry struct {
		ID         string    `json:"id"`
		Code       string    `json:"code"`
		OperatorID string    `json:"operator_id"`
		QueuedAt   time.Time `json:"queued_at"` // UTC
	}

	// Store persists the queue between runs.
	Store interface {
		Load() ([]Entry, error)
		Save(entries []Entry) error
	}

	// Resolver performs one check-in attempt. A nil return covers both a
	// fresh check-in and an already-checked-in outcome; the queue does not
	// care which.
	Resolver interface {
		Resolve(ctx context.Context, code, operatorID string) error
	}

	// Queue buffers check-in submissions made while disconnected and
	// replays them FIFO once connectivity returns. It is never
	// deduplicated: the same code queued twice is replayed twice, the
	// second replay resolving as already checked in.
	Queue struct {
		store    Store
		resolver Resolver

		mu       sync.Mutex
		draining bool
	}

	// DrainStats reports one drain cycle.
	DrainStats struct {
		Resolved int // checked in or already checked in
		Dropped  int // definitively rejected (e.g. unknown code)
		Retained int // connectivity failures, kept for the next cycle
	}
)

func New(store Store, resolver Resolver) *Queue {
	return &Queue{store: store, resolver: resolver}
}

// Submit attempts the check-in immediately and, when the service is
// unreachable, appends it to the persisted queue instead. The returned
// queued flag tells the caller "accepted pending sync" apart from an
// immediate resolution.
func (q *Queue) Submit(ctx context.Context, code, operatorID string) (queued bool, err error) {
	err = q.resolver.Resolve(ctx, code, operatorID)
	if err == nil {
		return false, nil
	}
	if !IsUnavailable(err) {
		return false, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	entries, lerr := q.store.Load()
	if lerr != nil {
		return false, errors.Wrap(lerr, "loading queue")
	}
	entries = append(entries, Entry{
		ID:         uuid.New().String(),
		Code:       code,
		OperatorID: operatorID,
		QueuedAt:   time.Now().UTC(),
	})
	if serr := q.store.Save(entries); serr != nil {
		return false, errors.Wrap(serr, "saving queue")
	}
	return true, nil
}

// Pending returns the number of buffered submissions.
func (q *Queue) Pending() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	entries, err := q.store.Load()
	if err != nil {
		return 0, errors.Wrap(err, "loading queue")
	}
	return len(entries), nil
}

// Drain replays buffered submissions one at a time in enqueue order.
// Each entry gets one attempt: resolved and rejected entries are dropped,
// and the first connectivity failure stops the cycle, retaining that entry
// and everything after it. Concurrent triggers (an online event racing a
// manual retry) collapse to a single active drain; the loser returns
// immediately with zero stats.
func (q *Queue) Drain(ctx context.Context) (DrainStats, error) {
	q.mu.Lock()
	if q.draining {
		q.mu.Unlock()
		return DrainStats{}, nil
	}
	q.draining = true
	entries, err := q.store.Load()
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.draining = false
		q.mu.Unlock()
	}()

	if err != nil {
		return DrainStats{}, errors.Wrap(err, "loading queue")
	}

	var stats DrainStats
	retained := make([]Entry, 0, len(entries))
	for i, entry := range entries {
		rerr := q.resolver.Resolve(ctx, entry.Code, entry.OperatorID)
		switch {
		case rerr == nil:
			stats.Resolved++
		case IsUnavailable(rerr):
			retained = append(retained, entries[i:]...)
			stats.Retained = len(entries) - i
		default:
			stats.Dropped++
		}
		if stats.Retained > 0 {
			break
		}
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.store.Save(retained); err != nil {
		return stats, errors.Wrap(err, "saving queue")
	}
	return stats, nil
}
