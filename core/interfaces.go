package core

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// WorkerPool: Interface for the execution pool
// =============================================================================

// WorkerPool is the bounded pool the manager dispatches task entry points
// to. The root package provides the goroutine-backed implementation.
type WorkerPool interface {
	// Post enqueues work for asynchronous execution. Never blocks the
	// submitter.
	Post(w Work)

	Start(ctx context.Context)

	// StopGraceful drains queued and active work, returning an error if
	// the timeout is exceeded first.
	StopGraceful(timeout time.Duration) error

	IsRunning() bool
	WorkerCount() int
	QueuedCount() int // In queue
	ActiveCount() int // Executing
}

// =============================================================================
// PanicHandler: Interface for handling worker panics
// =============================================================================

// PanicHandler is called when posted work panics during execution. Task
// step panics are captured inside Task.Execute and never reach here; this
// covers panics in the surrounding plumbing.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called with the panic value and the stack trace at
	// the time of panic. workerID identifies the pool worker.
	HandlePanic(ctx context.Context, poolID string, workerID int, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler provides a basic panic handler that logs to stdout.
type DefaultPanicHandler struct{}

// HandlePanic prints panic information to stdout.
func (h *DefaultPanicHandler) HandlePanic(ctx context.Context, poolID string, workerID int, panicInfo any, stackTrace []byte) {
	fmt.Printf("[Worker %d @ %s] Panic: %v\nStack trace:\n%s",
		workerID, poolID, panicInfo, stackTrace)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting task execution metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods should be non-blocking and fast to avoid impacting task execution.
type Metrics interface {
	// RecordTaskDuration records how long a task took to execute,
	// labeled by task type.
	RecordTaskDuration(taskType string, duration time.Duration)

	// RecordTaskStatus records a task reaching a terminal status.
	RecordTaskStatus(taskType string, status Status)

	// RecordQueueDepth records the current pool queue depth.
	// Called periodically to track queue growth/shrinkage.
	RecordQueueDepth(poolID string, depth int)

	// RecordWorkRejected records work rejected by the pool
	// (e.g., during shutdown).
	RecordWorkRejected(poolID string, reason string)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

// RecordTaskDuration is a no-op.
func (m *NilMetrics) RecordTaskDuration(taskType string, duration time.Duration) {}

// RecordTaskStatus is a no-op.
func (m *NilMetrics) RecordTaskStatus(taskType string, status Status) {}

// RecordQueueDepth is a no-op.
func (m *NilMetrics) RecordQueueDepth(poolID string, depth int) {}

// RecordWorkRejected is a no-op.
func (m *NilMetrics) RecordWorkRejected(poolID string, reason string) {}

// =============================================================================
// RejectedWorkHandler: Interface for handling rejected work
// =============================================================================

// RejectedWorkHandler is called when work is rejected by the scheduler,
// which happens once shutdown has begun.
//
// Implementations should be thread-safe as they may be called concurrently.
type RejectedWorkHandler interface {
	// HandleRejectedWork is called with the pool identity and the reason
	// the work was rejected.
	HandleRejectedWork(poolID string, reason string)
}

// DefaultRejectedWorkHandler provides a basic handler that logs rejected work.
type DefaultRejectedWorkHandler struct{}

// HandleRejectedWork logs the rejected work.
func (h *DefaultRejectedWorkHandler) HandleRejectedWork(poolID string, reason string) {
	fmt.Printf("[Pool %s] Work rejected: %s\n", poolID, reason)
}

// =============================================================================
// SchedulerConfig: Configuration for WorkScheduler
// =============================================================================

// SchedulerConfig holds configuration options for WorkScheduler.
// All handlers are optional; if not provided, default implementations will be used.
type SchedulerConfig struct {
	// RejectedWorkHandler is called when work is rejected. Defaults to
	// DefaultRejectedWorkHandler.
	RejectedWorkHandler RejectedWorkHandler
}

// DefaultSchedulerConfig returns a config with default handlers.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		RejectedWorkHandler: &DefaultRejectedWorkHandler{},
	}
}
