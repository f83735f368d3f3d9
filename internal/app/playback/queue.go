package playback

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/osa030/guildbox/internal/domain/track"
)

// DefaultMinShuffleSize is the smallest queue that may be shuffled.
const DefaultMinShuffleSize = 4

// Queue is a FIFO of track requests guarded by a single mutex. Every
// structural mutation holds the lock for its whole duration, so callers never
// observe a partially shuffled or partially cleared queue.
type Queue struct {
	mu         sync.Mutex
	items      []track.Request
	display    []string
	ready      chan struct{} // closed while items is non-empty
	minShuffle int
	onIdle     func() // runs under mu when the idle bound expires on an empty queue
}

// NewQueue creates an empty queue. minShuffle <= 0 selects DefaultMinShuffleSize.
func NewQueue(minShuffle int) *Queue {
	if minShuffle <= 0 {
		minShuffle = DefaultMinShuffleSize
	}
	return &Queue{
		ready:      make(chan struct{}),
		minShuffle: minShuffle,
	}
}

// SetIdleHook registers fn to run when Dequeue gives up on an empty queue.
// fn runs while the queue lock is held, so no EnqueueIf can slip in between
// the idle decision and fn.
func (q *Queue) SetIdleHook(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onIdle = fn
}

// Enqueue appends requests in the given order as one atomic step.
func (q *Queue) Enqueue(reqs ...track.Request) {
	q.EnqueueIf(nil, reqs...)
}

// EnqueueIf appends requests only when admit reports true. admit is evaluated
// under the queue lock. A nil admit always accepts.
func (q *Queue) EnqueueIf(admit func() bool, reqs ...track.Request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if admit != nil && !admit() {
		return false
	}
	if len(reqs) == 0 {
		return true
	}

	wasEmpty := len(q.items) == 0
	for _, req := range reqs {
		q.items = append(q.items, req)
		q.display = append(q.display, req.Display())
	}
	if wasEmpty {
		close(q.ready)
	}
	return true
}

// Dequeue removes and returns the head of the queue, waiting until an item is
// available. It returns ErrIdleTimeout when idle > 0 and nothing arrives in
// time, or the context error when ctx is done first. The idle hook runs
// before ErrIdleTimeout is returned.
func (q *Queue) Dequeue(ctx context.Context, idle time.Duration) (track.Request, error) {
	var timeout <-chan time.Time
	if idle > 0 {
		timer := time.NewTimer(idle)
		defer timer.Stop()
		timeout = timer.C
	}

	expired := false
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			req := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			q.display = q.display[1:]
			if len(q.items) == 0 {
				q.ready = make(chan struct{})
			}
			q.mu.Unlock()
			return req, nil
		}
		if expired {
			if q.onIdle != nil {
				q.onIdle()
			}
			q.mu.Unlock()
			return nil, ErrIdleTimeout
		}
		ready := q.ready
		q.mu.Unlock()

		select {
		case <-ready:
			// Another consumer may win the race; re-check under the lock.
		case <-timeout:
			// Decide under the lock; a request may have landed meanwhile.
			expired = true
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Clear empties the queue and its display list.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return
	}
	q.items = nil
	q.display = nil
	q.ready = make(chan struct{})
}

// Shuffle applies a uniform random permutation to the whole queue and
// rebuilds the display list to match. Queues shorter than the configured
// minimum are left untouched and an error marked ErrQueueRejected is returned.
func (q *Queue) Shuffle() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n := len(q.items); n < q.minShuffle {
		return errors.Mark(
			errors.Newf("need at least %d queued tracks to shuffle, have %d", q.minShuffle, n),
			ErrQueueRejected,
		)
	}

	rand.Shuffle(len(q.items), func(i, j int) {
		q.items[i], q.items[j] = q.items[j], q.items[i]
	})
	for i, req := range q.items {
		q.display[i] = req.Display()
	}
	return nil
}

// ListTop returns a listing of the display entries in queue order.
func (q *Queue) ListTop(n int) Listing {
	q.mu.Lock()
	defer q.mu.Unlock()

	return newListing(q.display, n)
}

// Len returns the number of queued requests.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// Snapshot returns a copy of the queued requests in order.
func (q *Queue) Snapshot() []track.Request {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]track.Request, len(q.items))
	copy(out, q.items)
	return out
}
