package core

import (
	"context"
	"sync"
)

// Work is the unit handed to the pool: a task's entry point bound into a
// closure.
type Work func(ctx context.Context)

const (
	defaultQueueCap     = 16
	compactMinCap       = 64 // Don't compact if capacity is less than this
	compactShrinkFactor = 4  // Trigger compaction when len < cap/4
)

// WorkQueue is a FIFO queue of submitted work. Excess submissions sit here
// until a pool worker frees up; there is no priority ordering between
// queued entries.
type WorkQueue struct {
	mu    sync.Mutex
	items []Work
}

func NewWorkQueue() *WorkQueue {
	return &WorkQueue{
		items: make([]Work, 0, defaultQueueCap),
	}
}

func (q *WorkQueue) Push(w Work) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, w)
}

func (q *WorkQueue) Pop() (Work, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}

	item := q.items[0]
	// Zero out the element in the underlying array to prevent memory leak
	q.items[0] = nil
	q.items = q.items[1:]
	q.maybeCompactLocked()

	return item, true
}

func (q *WorkQueue) MaybeCompact() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.maybeCompactLocked()
}

func (q *WorkQueue) maybeCompactLocked() {
	n := len(q.items)
	c := cap(q.items)

	if c < compactMinCap {
		return
	}
	if n == 0 {
		q.items = make([]Work, 0, defaultQueueCap)
		return
	}
	if n*compactShrinkFactor >= c {
		return
	}

	newCap := max(max(c/2, defaultQueueCap), n)

	newSlice := make([]Work, n, newCap)
	copy(newSlice, q.items)
	q.items = newSlice
}

func (q *WorkQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *WorkQueue) IsEmpty() bool {
	return q.Len() == 0
}

// Clear removes all work from the queue and releases references
func (q *WorkQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	// Create a new slice to release all closure references
	q.items = make([]Work, 0, defaultQueueCap)
}
