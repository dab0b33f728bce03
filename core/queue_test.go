package core

import (
	"context"
	"testing"
)

func TestWorkQueue_FIFO(t *testing.T) {
	q := NewWorkQueue()

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		q.Push(func(ctx context.Context) { order = append(order, i) })
	}

	if q.Len() != 3 {
		t.Fatalf("expected length 3, got %d", q.Len())
	}

	for !q.IsEmpty() {
		w, ok := q.Pop()
		if !ok {
			t.Fatal("pop returned no work on non-empty queue")
		}
		w(context.Background())
	}

	if len(order) != 3 || order[0] != 0 || order[1] != 1 || order[2] != 2 {
		t.Errorf("expected FIFO order [0 1 2], got %v", order)
	}
}

func TestWorkQueue_PopEmpty(t *testing.T) {
	q := NewWorkQueue()
	if w, ok := q.Pop(); ok || w != nil {
		t.Error("pop on empty queue should return nothing")
	}
}

func TestWorkQueue_Clear(t *testing.T) {
	q := NewWorkQueue()
	for i := 0; i < 10; i++ {
		q.Push(func(ctx context.Context) {})
	}

	q.Clear()
	if !q.IsEmpty() {
		t.Errorf("queue should be empty after clear, got %d", q.Len())
	}
}

func TestWorkQueue_CompactAfterDrain(t *testing.T) {
	q := NewWorkQueue()

	// Grow well past the compaction threshold, then drain.
	for i := 0; i < compactMinCap*2; i++ {
		q.Push(func(ctx context.Context) {})
	}
	for !q.IsEmpty() {
		q.Pop()
	}

	q.MaybeCompact()
	if q.Len() != 0 {
		t.Errorf("expected empty queue, got %d", q.Len())
	}

	// Queue must still work after compaction.
	done := false
	q.Push(func(ctx context.Context) { done = true })
	if w, ok := q.Pop(); ok {
		w(context.Background())
	}
	if !done {
		t.Error("queue unusable after compaction")
	}
}
