package player

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Queue is the ordered track list owned by one Session. Every operation runs
// under a single mutex so command handlers and the session loop never race:
// the loop is the only caller popping from the front, anyone may append,
// inspect, remove or shuffle.
type Queue struct {
	mu    sync.Mutex
	items []*Track
	wake  chan struct{}
}

func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Push appends a track to the back and wakes a waiting PopFrontWait.
func (q *Queue) Push(tracks ...*Track) {
	q.mu.Lock()
	q.items = append(q.items, tracks...)
	q.mu.Unlock()
	q.signal()
}

// PopFront removes and returns the front track, or nil when empty.
func (q *Queue) PopFront() *Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	t := q.items[0]
	q.items = q.items[1:]
	return t
}

// PopFrontWait blocks until a track is available, the timeout elapses
// (ErrIdleTimeout) or the context is cancelled. The timeout covers the whole
// wait, not each wakeup.
func (q *Queue) PopFrontWait(ctx context.Context, timeout time.Duration) (*Track, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		if t := q.PopFront(); t != nil {
			return t, nil
		}
		select {
		case <-q.wake:
		case <-deadline.C:
			return nil, ErrIdleTimeout
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Front returns the next track without removing it.
func (q *Queue) Front() *Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}

// Upcoming returns up to n tracks from the front without removing them.
func (q *Queue) Upcoming(n int) []*Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n > len(q.items) {
		n = len(q.items)
	}
	out := make([]*Track, n)
	copy(out, q.items[:n])
	return out
}

// Snapshot returns a copy of the whole queue in order.
func (q *Queue) Snapshot() []*Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*Track, len(q.items))
	copy(out, q.items)
	return out
}

// RemoveAt removes the track at the given 1-indexed position.
func (q *Queue) RemoveAt(position int) (*Track, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if position < 1 || position > len(q.items) {
		return nil, ErrOutOfRange
	}
	i := position - 1
	t := q.items[i]
	q.items = append(q.items[:i], q.items[i+1:]...)
	return t, nil
}

// CutFront removes and returns the first n tracks in order. Used by skip-to,
// which needs the discarded entries back when queue looping is on.
func (q *Queue) CutFront(n int) ([]*Track, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n < 0 || n > len(q.items) {
		return nil, ErrOutOfRange
	}
	cut := make([]*Track, n)
	copy(cut, q.items[:n])
	q.items = q.items[n:]
	return cut, nil
}

// RequeueBack moves a just-finished track to the back of the queue. Used by
// queue-loop mode.
func (q *Queue) RequeueBack(t *Track) {
	q.Push(t)
}

// Shuffle randomizes the order in place.
func (q *Queue) Shuffle() {
	q.mu.Lock()
	defer q.mu.Unlock()
	rand.Shuffle(len(q.items), func(i, j int) {
		q.items[i], q.items[j] = q.items[j], q.items[i]
	})
}

func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
