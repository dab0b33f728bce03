package core

import (
	"fmt"
	"sync/atomic"
	"time"
)

// WorkScheduler feeds pool workers from a FIFO queue. Workers block on a
// buffered signal channel between polls, so posting is non-blocking for
// the submitter and idle workers wake without spinning.
type WorkScheduler struct {
	queue       *WorkQueue
	signal      chan struct{}
	workerCount int

	metricQueued int32 // Waiting in queue
	metricActive int32 // Executing in worker

	rejectedWorkHandler RejectedWorkHandler

	// Lifecycle
	shuttingDown int32 // atomic flag
}

func NewWorkScheduler(workerCount int) *WorkScheduler {
	return NewWorkSchedulerWithConfig(workerCount, DefaultSchedulerConfig())
}

func NewWorkSchedulerWithConfig(workerCount int, config *SchedulerConfig) *WorkScheduler {
	s := &WorkScheduler{
		queue:       NewWorkQueue(),
		signal:      make(chan struct{}, workerCount*2),
		workerCount: workerCount,
	}

	if config != nil {
		s.rejectedWorkHandler = config.RejectedWorkHandler
	}
	if s.rejectedWorkHandler == nil {
		s.rejectedWorkHandler = &DefaultRejectedWorkHandler{}
	}

	return s
}

// Post enqueues work for the next free worker. Once shutdown has begun,
// new work is rejected.
func (s *WorkScheduler) Post(w Work) {
	if atomic.LoadInt32(&s.shuttingDown) == 1 {
		s.rejectedWorkHandler.HandleRejectedWork("WorkScheduler", "shutting down")
		return
	}

	s.queue.Push(w)
	atomic.AddInt32(&s.metricQueued, 1)

	select {
	case s.signal <- struct{}{}:
	default:
		// Signal channel full, but work is already queued.
		// The next idle worker's poll will find it.
	}
}

// GetWork blocks until work is available or stopCh closes.
// Called by pool workers.
func (s *WorkScheduler) GetWork(stopCh <-chan struct{}) (Work, bool) {
	for {
		if item, ok := s.queue.Pop(); ok {
			atomic.AddInt32(&s.metricQueued, -1)
			return item, true
		}

		select {
		case <-s.signal:
			continue
		case <-stopCh:
			return nil, false
		}
	}
}

// Shutdown stops accepting work and drops whatever is still queued.
func (s *WorkScheduler) Shutdown() {
	atomic.StoreInt32(&s.shuttingDown, 1)
	s.queue.Clear()
	atomic.StoreInt32(&s.metricQueued, 0)
}

// ShutdownGraceful stops accepting work and waits for queued and active
// work to drain. Returns an error if the timeout is exceeded first.
func (s *WorkScheduler) ShutdownGraceful(timeout time.Duration) error {
	atomic.StoreInt32(&s.shuttingDown, 1)

	deadline := time.After(timeout)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			s.queue.Clear()
			atomic.StoreInt32(&s.metricQueued, 0)
			return fmt.Errorf("shutdown graceful timeout after %v, forced clearing", timeout)
		case <-ticker.C:
			if s.QueuedCount() == 0 && s.ActiveCount() == 0 {
				return nil
			}
		}
	}
}

// Metrics
func (s *WorkScheduler) WorkerCount() int { return s.workerCount }
func (s *WorkScheduler) QueuedCount() int { return int(atomic.LoadInt32(&s.metricQueued)) }
func (s *WorkScheduler) ActiveCount() int { return int(atomic.LoadInt32(&s.metricActive)) }

func (s *WorkScheduler) OnWorkStart() {
	atomic.AddInt32(&s.metricActive, 1)
}

func (s *WorkScheduler) OnWorkEnd() {
	atomic.AddInt32(&s.metricActive, -1)
}
