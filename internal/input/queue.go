package input

import (
	"sync"
	"sync/atomic"
)

// DefaultQueueSize is the capacity used by NewQueue when size <= 0.
const DefaultQueueSize = 256

// Queue hands events from hook callbacks to the dispatcher. Offer never
// blocks: a full queue drops the event and counts it, except that a
// MouseMoved arriving at a full queue whose newest event is also a
// MouseMoved replaces that one, so the latest position is never lost.
type Queue struct {
	mu     sync.Mutex
	buf    []Event
	head   int
	size   int
	closed bool

	ready     chan struct{}
	dropped   atomic.Uint64
	coalesced atomic.Uint64
}

// NewQueue creates a queue holding at most size events.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{
		buf:   make([]Event, size),
		ready: make(chan struct{}, 1),
	}
}

// Offer enqueues e and reports whether it was kept.
func (q *Queue) Offer(e Event) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}

	if q.size == len(q.buf) {
		last := &q.buf[(q.head+q.size-1)%len(q.buf)]
		if e.Kind == MouseMoved && last.Kind == MouseMoved {
			*last = e
			q.mu.Unlock()
			q.coalesced.Add(1)
			return true
		}
		q.mu.Unlock()
		q.dropped.Add(1)
		return false
	}

	q.buf[(q.head+q.size)%len(q.buf)] = e
	q.size++
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return true
}

// Ready receives a value whenever events may be waiting.
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

// Drain appends every queued event to dst in arrival order and empties the queue.
func (q *Queue) Drain(dst []Event) []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := 0; i < q.size; i++ {
		dst = append(dst, q.buf[(q.head+i)%len(q.buf)])
	}
	q.head = 0
	q.size = 0
	return dst
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Dropped returns how many events were discarded because the queue was full.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// Coalesced returns how many moves replaced an earlier one in a full queue.
func (q *Queue) Coalesced() uint64 {
	return q.coalesced.Load()
}

// Close makes further offers fail. Queued events can still be drained.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}
