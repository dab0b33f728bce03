// Package taskflow provides an in-process task execution framework for Go.
//
// A task is a named, ordered sequence of steps. The TaskManager dispatches
// each task onto a bounded pool of worker goroutines; steps within one task
// run strictly sequentially on their assigned worker, while tasks across
// the registry run concurrently up to the pool's worker bound. Every task
// persists its result as a JSON record and writes a per-task log file.
//
// # Quick Start
//
//	manager := taskflow.NewManager(context.Background(), 4, taskflow.ManagerConfig{})
//	defer manager.Shutdown(30 * time.Second)
//
//	id, err := manager.AddTask(taskflow.Definition{
//		TaskType: "Report",
//		TaskSteps: []taskflow.Step{
//			{Name: "fetch", Run: func(ctx context.Context, t *taskflow.Task) (any, error) {
//				return map[string]any{"rows": 42}, nil
//			}},
//			{Name: "render", Run: func(ctx context.Context, t *taskflow.Task) (any, error) {
//				return map[string]any{"file": "report.html"}, nil
//			}},
//		},
//	})
//
// AddTask returns the new task identity immediately; execution happens
// asynchronously on the pool. Query progress with GetTaskStatus and
// ListTasks.
//
// # Failure model
//
// A failing step aborts the task's remaining steps; the failure is
// recorded in the step's result and the task's exit message, never raised
// to the pool. A task with zero steps, or whose steps all failed, reports
// exit code 1.
//
// # Key Concepts
//
// Task: the unit of dispatch, executable exactly once. Tasks reconstructed
// from persisted records are read-only history.
//
// TaskManager: the registry plus dispatch, status query, disk reload and
// graceful shutdown.
//
// GoroutineThreadPool: the execution engine managing worker goroutines
// that pull and execute submitted task entry points.
package taskflow
