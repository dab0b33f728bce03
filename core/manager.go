package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/sjson"
)

// ErrTaskNotFound indicates the identity is absent from the registry.
var ErrTaskNotFound = errors.New("task not found")

// DefaultWorkerCount is the pool size used when none is configured.
const DefaultWorkerCount = 10

// TaskLoggerFactory builds the per-task logger for a freshly created task.
type TaskLoggerFactory func(taskID string) (Logger, error)

// ManagerConfig holds configuration options for TaskManager.
// Zero values get defaults: "artifacts" and "results" directories,
// "logs/tasks" for per-task log files, stderr logger, JSON serializer,
// no-op metrics.
type ManagerConfig struct {
	// ArtifactDir is where tasks relocate their artifacts.
	ArtifactDir string

	// ResultDir backs the default file store when Store is nil.
	ResultDir string

	// LogDir is where per-task log files are written by the default
	// TaskLogger factory.
	LogDir string

	// Logger is the manager's own logger.
	Logger Logger

	// TaskLogger overrides how per-task loggers are built.
	TaskLogger TaskLoggerFactory

	// Store overrides the result persistence backend.
	Store ResultStore

	// Serializer overrides the result codec.
	Serializer ResultSerializer

	// Metrics receives task completion and pool metrics.
	Metrics Metrics
}

// TaskSummary is one row of a ListTasks response.
type TaskSummary struct {
	TaskID    string     `json:"task_id"`
	TaskType  string     `json:"task_type"`
	Status    Status     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	StartAt   *time.Time `json:"start_at"`
	EndAt     *time.Time `json:"end_at"`
}

// TaskManager owns the task registry and dispatches task execution onto a
// bounded worker pool.
//
// The registry is mutated only by the caller's thread (AddTask,
// LoadFromDisk), never by pool workers. A task's result fields are written
// by its worker while status queries may read them concurrently; those
// reads are best-effort snapshots, not transactionally consistent.
type TaskManager struct {
	pool  WorkerPool
	tasks sync.Map // map[string]*Task

	logger      Logger
	taskLogger  TaskLoggerFactory
	store       ResultStore
	serializer  ResultSerializer
	metrics     Metrics
	artifactDir string
	logDir      string

	closed atomic.Bool
}

// NewTaskManager creates a manager on top of an already-started pool.
// The root package's NewManager wires the pool up for callers that do not
// need to share one.
func NewTaskManager(pool WorkerPool, cfg ManagerConfig) *TaskManager {
	m := &TaskManager{
		pool:        pool,
		logger:      cfg.Logger,
		taskLogger:  cfg.TaskLogger,
		store:       cfg.Store,
		serializer:  cfg.Serializer,
		metrics:     cfg.Metrics,
		artifactDir: cfg.ArtifactDir,
		logDir:      cfg.LogDir,
	}

	if m.artifactDir == "" {
		m.artifactDir = "artifacts"
	}
	if m.logDir == "" {
		m.logDir = filepath.Join("logs", "tasks")
	}
	if m.logger == nil {
		m.logger = NewDefaultLogger()
	}
	if m.store == nil {
		resultDir := cfg.ResultDir
		if resultDir == "" {
			resultDir = "results"
		}
		m.store = NewFileResultStore(resultDir)
	}
	if m.serializer == nil {
		m.serializer = NewJSONSerializer()
	}
	if m.metrics == nil {
		m.metrics = &NilMetrics{}
	}
	if m.taskLogger == nil {
		logDir := m.logDir
		m.taskLogger = func(taskID string) (Logger, error) {
			return NewFileLogger(logDir, taskID)
		}
	}

	return m
}

// LoadFromDisk scans the result store and rebuilds a read-only task for
// every persisted record. A malformed record is logged and skipped; the
// scan always continues with the remaining entries.
func (m *TaskManager) LoadFromDisk() error {
	ids, err := m.store.List()
	if err != nil {
		return err
	}

	for _, id := range ids {
		m.logger.Info("Loading task from disk", F("task", id))

		payload, err := m.store.Load(id)
		if err != nil {
			m.logger.Error("Error loading task from disk", F("task", id), F("error", err))
			continue
		}

		result, err := m.serializer.Deserialize(payload)
		if err != nil {
			m.logger.Error("Error loading task from disk", F("task", id), F("error", err))
			continue
		}

		m.tasks.Store(id, restoredTask(id, result))
	}

	return nil
}

// AddTask instantiates an executable task from the definition, registers
// it, and posts its entry point to the pool. It returns the new identity
// immediately; the caller never waits for execution. Fails once the
// manager has begun shutting down.
func (m *TaskManager) AddTask(def TaskDefinition) (string, error) {
	if m.closed.Load() {
		return "", fmt.Errorf("task manager is closed")
	}

	task := m.buildTask(def)
	m.logger.Info("Adding task", F("type", def.Type()), F("task", task.ID()))
	m.tasks.Store(task.ID(), task)

	m.pool.Post(func(ctx context.Context) {
		if _, err := task.Execute(ctx); err != nil {
			m.logger.Error("Task execution error", F("task", task.ID()), F("error", err))
		}
		m.logger.Info("Task finished", F("task", task.ID()))

		result := task.Result()
		m.metrics.RecordTaskStatus(task.Type(), result.Status)
		if d := result.Duration(); d != nil {
			m.metrics.RecordTaskDuration(task.Type(), time.Duration(*d*float64(time.Second)))
		}

		if closer, ok := task.logger.(io.Closer); ok {
			_ = closer.Close()
		}
	})

	return task.ID(), nil
}

func (m *TaskManager) buildTask(def TaskDefinition) *Task {
	opts := TaskOptions{
		Store:       m.store,
		Serializer:  m.serializer,
		ArtifactDir: m.artifactDir,
	}

	task := NewTask(def, opts)

	logger, err := m.taskLogger(task.ID())
	if err != nil {
		m.logger.Warn("Falling back to manager logger for task",
			F("task", task.ID()), F("error", err))
		logger = m.logger
	}
	task.logger = logger

	return task
}

// GetTaskStatus returns the task's serialized result merged with a "logs"
// array read from <logDir>/<identity>.log (empty when absent). The read is
// a point-in-time snapshot of a possibly still-executing task. Unknown
// identities fail with ErrTaskNotFound.
func (m *TaskManager) GetTaskStatus(id string, logDir string) ([]byte, error) {
	raw, ok := m.tasks.Load(id)
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, ErrTaskNotFound)
	}
	task := raw.(*Task)

	payload, err := m.serializer.Serialize(task.Result())
	if err != nil {
		return nil, fmt.Errorf("serialize status %s: %w", id, err)
	}

	logs := []string{}
	if logDir != "" {
		if data, err := os.ReadFile(filepath.Join(logDir, id+".log")); err == nil {
			logs = splitLogLines(data)
		}
	}

	return appendLogs(payload, logs)
}

// appendLogs merges the logs array into the serialized result without
// re-parsing the whole record.
func appendLogs(payload []byte, logs []string) ([]byte, error) {
	merged, err := sjson.SetBytes(payload, "logs", logs)
	if err != nil {
		return nil, fmt.Errorf("merge logs into status: %w", err)
	}
	return merged, nil
}

// splitLogLines splits the raw log file into lines, keeping trailing
// newlines so the query returns the file contents verbatim.
func splitLogLines(data []byte) []string {
	lines := strings.SplitAfter(string(data), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// ListTasks returns a summary for every registered task, most recently
// created first. A non-empty taskType keeps only exact type matches.
// Ordering between tasks with equal creation timestamps is unspecified.
func (m *TaskManager) ListTasks(taskType string) []TaskSummary {
	summaries := []TaskSummary{}
	m.tasks.Range(func(key, value any) bool {
		task := value.(*Task)
		result := task.Result()
		if taskType != "" && result.TaskType != taskType {
			return true
		}
		summaries = append(summaries, TaskSummary{
			TaskID:    task.ID(),
			TaskType:  result.TaskType,
			Status:    result.Status,
			CreatedAt: result.CreatedAt,
			StartAt:   result.StartAt,
			EndAt:     result.EndAt,
		})
		return true
	})

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})

	return summaries
}

// GetTask returns the registered task for the identity.
func (m *TaskManager) GetTask(id string) (*Task, error) {
	raw, ok := m.tasks.Load(id)
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, ErrTaskNotFound)
	}
	return raw.(*Task), nil
}

// TaskCount returns the number of registered tasks.
func (m *TaskManager) TaskCount() int {
	count := 0
	m.tasks.Range(func(key, value any) bool {
		count++
		return true
	})
	return count
}

// Stats returns a census of the registry by current status.
func (m *TaskManager) Stats() ManagerStats {
	stats := ManagerStats{ByStatus: map[Status]int{}}
	m.tasks.Range(func(key, value any) bool {
		stats.Tasks++
		stats.ByStatus[value.(*Task).Result().Status]++
		return true
	})
	return stats
}

// Shutdown stops accepting new tasks and waits for all submitted
// executions, including already-dispatched ones, to finish. In-flight work
// is never cancelled; an error is returned if the drain exceeds timeout.
func (m *TaskManager) Shutdown(timeout time.Duration) error {
	if !m.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("already closed")
	}

	m.logger.Info("Shutting down task manager, waiting for tasks to finish")
	if err := m.pool.StopGraceful(timeout); err != nil {
		m.logger.Error("Shutdown did not drain cleanly", F("error", err))
		return err
	}
	m.logger.Info("All tasks finished, shutting down")
	return nil
}
