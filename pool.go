package taskflow

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/go-taskflow/taskflow/core"
)

// GoroutineThreadPool manages a fixed set of worker goroutines.
// Workers pull submitted work from the scheduler and run each entry to
// completion; one task occupies one worker for its whole execution.
type GoroutineThreadPool struct {
	id           string
	workers      int
	scheduler    *core.WorkScheduler
	panicHandler core.PanicHandler
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
	running      bool
	runningMu    sync.RWMutex
}

// NewGoroutineThreadPool creates a new GoroutineThreadPool
func NewGoroutineThreadPool(id string, workers int) *GoroutineThreadPool {
	return &GoroutineThreadPool{
		id:           id,
		workers:      workers,
		scheduler:    core.NewWorkScheduler(workers),
		panicHandler: &core.DefaultPanicHandler{},
	}
}

// SetPanicHandler replaces the handler invoked when posted work panics.
// Must be called before Start.
func (tg *GoroutineThreadPool) SetPanicHandler(handler core.PanicHandler) {
	if handler != nil {
		tg.panicHandler = handler
	}
}

// Start starts all worker goroutines
func (tg *GoroutineThreadPool) Start(ctx context.Context) {
	tg.runningMu.Lock()
	defer tg.runningMu.Unlock()

	if tg.running {
		return // Already running
	}

	tg.ctx, tg.cancel = context.WithCancel(ctx)
	tg.running = true

	for i := 0; i < tg.workers; i++ {
		tg.wg.Add(1)
		go tg.workerLoop(i, tg.ctx)
	}
}

// Stop stops the thread pool immediately, dropping queued work.
func (tg *GoroutineThreadPool) Stop() {
	// Always shutdown scheduler to clean up resources even if the pool
	// was never started
	tg.scheduler.Shutdown()

	tg.runningMu.Lock()
	if !tg.running {
		tg.runningMu.Unlock()
		return
	}
	tg.runningMu.Unlock()

	if tg.cancel != nil {
		tg.cancel()
	}
	tg.Join()

	tg.runningMu.Lock()
	tg.running = false
	tg.runningMu.Unlock()
}

// StopGraceful stops the thread pool gracefully, waiting for queued and
// active work to complete. Returns an error if the timeout is exceeded
// before the drain finishes.
func (tg *GoroutineThreadPool) StopGraceful(timeout time.Duration) error {
	tg.runningMu.Lock()
	if !tg.running {
		// Not running, nothing to do
		tg.runningMu.Unlock()
		return nil
	}
	tg.runningMu.Unlock()

	// First, gracefully shutdown the scheduler (waits for queues to drain)
	if err := tg.scheduler.ShutdownGraceful(timeout); err != nil {
		// Timeout occurred, but we still need to cancel workers
		if tg.cancel != nil {
			tg.cancel()
		}
		tg.Join()

		tg.runningMu.Lock()
		tg.running = false
		tg.runningMu.Unlock()

		return err
	}

	// Scheduler drained successfully, now cancel workers
	if tg.cancel != nil {
		tg.cancel()
	}
	tg.Join()

	tg.runningMu.Lock()
	tg.running = false
	tg.runningMu.Unlock()

	return nil
}

// ID returns the ID of the thread pool
func (tg *GoroutineThreadPool) ID() string {
	return tg.id
}

// IsRunning returns whether the thread pool is running
func (tg *GoroutineThreadPool) IsRunning() bool {
	tg.runningMu.RLock()
	defer tg.runningMu.RUnlock()
	return tg.running
}

// workerLoop is the main loop for each worker
func (tg *GoroutineThreadPool) workerLoop(id int, ctx context.Context) {
	defer tg.wg.Done()
	stopCh := ctx.Done()

	for {
		work, ok := tg.scheduler.GetWork(stopCh)
		if !ok {
			// Scheduler closed or context canceled
			return
		}

		tg.scheduler.OnWorkStart()

		func() {
			defer func() {
				tg.scheduler.OnWorkEnd()
				if r := recover(); r != nil {
					tg.panicHandler.HandlePanic(ctx, tg.id, id, r, debug.Stack())
				}
			}()
			work(ctx)
		}()
	}
}

// Join waits for all worker goroutines to finish
func (tg *GoroutineThreadPool) Join() {
	tg.wg.Wait()
}

// WorkerCount returns the number of workers
func (tg *GoroutineThreadPool) WorkerCount() int {
	return tg.workers
}

// QueuedCount returns the number of queued work items.
func (tg *GoroutineThreadPool) QueuedCount() int {
	return tg.scheduler.QueuedCount()
}

// ActiveCount returns the number of currently executing work items.
func (tg *GoroutineThreadPool) ActiveCount() int {
	return tg.scheduler.ActiveCount()
}

// Post submits work for asynchronous execution without blocking.
func (tg *GoroutineThreadPool) Post(w core.Work) {
	tg.scheduler.Post(w)
}

// Stats returns a snapshot of the pool's runtime state.
func (tg *GoroutineThreadPool) Stats() core.PoolStats {
	return core.PoolStats{
		ID:      tg.id,
		Workers: tg.WorkerCount(),
		Queued:  tg.QueuedCount(),
		Active:  tg.ActiveCount(),
		Running: tg.IsRunning(),
	}
}
