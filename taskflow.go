package taskflow

import (
	"context"
	"time"

	"github.com/go-taskflow/taskflow/core"
)

// Re-export commonly used types from core package for convenience.
// This allows users to import only the taskflow package for most use cases.

// Task is a named, ordered sequence of steps plus its aggregate result
type Task = core.Task

// TaskManager owns the registry and dispatches tasks onto the pool
type TaskManager = core.TaskManager

// TaskDefinition describes a concrete task type
type TaskDefinition = core.TaskDefinition

// Definition is a plain TaskDefinition
type Definition = core.Definition

// Step is one ordered unit of work within a task
type Step = core.Step

// StepFunc is the body of a single step
type StepFunc = core.StepFunc

// StepResult captures the outcome of one step
type StepResult = core.StepResult

// TaskResult is the aggregate outcome record of a task
type TaskResult = core.TaskResult

// TaskSummary is one row of a ListTasks response
type TaskSummary = core.TaskSummary

// Status is the lifecycle state of a task or step
type Status = core.Status

// Status constants
const (
	StatusPending = core.StatusPending
	StatusRunning = core.StatusRunning
	StatusSuccess = core.StatusSuccess
	StatusError   = core.StatusError
)

// ManagerConfig configures a TaskManager
type ManagerConfig = core.ManagerConfig

// Logger is the structured logging interface
type Logger = core.Logger

// F creates a logging field
var F = core.F

// Manager bundles a TaskManager with the pool it owns, so Shutdown tears
// both down together.
type Manager struct {
	*core.TaskManager
	pool *GoroutineThreadPool
}

// NewManager is the recommended way to build a runnable manager: it
// creates and starts a worker pool (core.DefaultWorkerCount workers when
// workers <= 0) and wires the TaskManager on top of it.
func NewManager(ctx context.Context, workers int, cfg ManagerConfig) *Manager {
	if workers <= 0 {
		workers = core.DefaultWorkerCount
	}

	pool := NewGoroutineThreadPool("taskflow-pool", workers)
	pool.Start(ctx)

	return &Manager{
		TaskManager: core.NewTaskManager(pool, cfg),
		pool:        pool,
	}
}

// Pool returns the underlying worker pool.
func (m *Manager) Pool() *GoroutineThreadPool {
	return m.pool
}

// Shutdown drains the pool via the TaskManager and stops the workers.
func (m *Manager) Shutdown(timeout time.Duration) error {
	err := m.TaskManager.Shutdown(timeout)
	m.pool.Stop()
	return err
}
