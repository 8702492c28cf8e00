package reader

import (
	"container/heap"
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed is returned by Submit and Take once the queue is closed.
var ErrQueueClosed = errors.New("reader: queue closed")

// Priority orders fetch requests. Higher values are serviced first.
type Priority int

const (
	PriorityPreload  Priority = 0 // look-ahead prefetch
	PriorityExplicit Priority = 1 // page the user navigated to
	PriorityRetry    Priority = 2 // user asked to retry a failed page
)

func (p Priority) String() string {
	switch p {
	case PriorityPreload:
		return "preload"
	case PriorityExplicit:
		return "explicit"
	case PriorityRetry:
		return "retry"
	default:
		return "unknown"
	}
}

// Request is a page waiting in the queue.
type Request struct {
	Page     *Page
	Priority Priority
	Sequence uint64
}

// Before reports whether r is serviced ahead of o: higher priority first,
// then earlier submission.
func (r Request) Before(o Request) bool {
	if r.Priority != o.Priority {
		return r.Priority > o.Priority
	}
	return r.Sequence < o.Sequence
}

type requestHeap []Request

func (h requestHeap) Len() int           { return len(h) }
func (h requestHeap) Less(i, j int) bool { return h[i].Before(h[j]) }
func (h requestHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *requestHeap) Push(x any)        { *h = append(*h, x.(Request)) }
func (h *requestHeap) Pop() any {
	old := *h
	n := len(old)
	r := old[n-1]
	old[n-1] = Request{}
	*h = old[:n-1]
	return r
}

// PriorityQueue is an unbounded, concurrency-safe queue of page requests.
// Producers never block; consumers block in Take until a request is available,
// the queue is closed, or their context ends.
type PriorityQueue struct {
	mu     sync.Mutex
	items  requestHeap
	seq    uint64
	closed bool
	wake   chan struct{} // closed and replaced whenever takers should re-check
}

func NewPriorityQueue() *PriorityQueue {
	return &PriorityQueue{wake: make(chan struct{})}
}

// Submit enqueues page at the given priority and returns the request with its
// assigned sequence number.
func (q *PriorityQueue) Submit(page *Page, priority Priority) (Request, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return Request{}, ErrQueueClosed
	}

	q.seq++
	req := Request{Page: page, Priority: priority, Sequence: q.seq}
	heap.Push(&q.items, req)
	q.signal()
	return req, nil
}

// Take removes and returns the next request to service.
func (q *PriorityQueue) Take(ctx context.Context) (Request, error) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return Request{}, ErrQueueClosed
		}
		if q.items.Len() > 0 {
			req := heap.Pop(&q.items).(Request)
			q.mu.Unlock()
			return req, nil
		}
		wake := q.wake
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Request{}, ctx.Err()
		case <-wake:
		}
	}
}

// Close stops the queue. Pending requests are dropped and every blocked Take
// returns ErrQueueClosed. Close is idempotent.
func (q *PriorityQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.items = nil
	q.signal()
}

// Len returns the number of pending requests.
func (q *PriorityQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// signal must be called with mu held.
func (q *PriorityQueue) signal() {
	close(q.wake)
	q.wake = make(chan struct{})
}
