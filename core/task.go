package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ErrNotExecutable is returned by Execute on a task reconstructed from a
// persisted record. Such tasks are read-only history; trying to run one is
// a programming error.
var ErrNotExecutable = errors.New("task is not executable")

// ErrNoSteps fires when a task declares no steps. It is treated exactly
// like a step failure and its text becomes the task's exit message.
var ErrNoSteps = errors.New("No steps to execute")

// TaskOptions configures the collaborators a task uses. Zero values get
// defaults: stderr logger, JSON serializer, file store under "results",
// artifacts under "artifacts".
type TaskOptions struct {
	Logger      Logger
	Store       ResultStore
	Serializer  ResultSerializer
	ArtifactDir string
}

// Task is a named, ordered sequence of steps plus its aggregate result.
//
// A task constructed from a TaskDefinition is executable exactly once. A
// task reconstructed from a persisted record is not executable at all.
// Ownership: the task exclusively owns its TaskResult and the StepResults
// within; the manager's registry shares the *Task pointer with the worker
// pool for the duration of execution.
type Task struct {
	id         string
	taskType   string
	steps      []Step
	executable bool

	result      *TaskResult
	logger      Logger
	store       ResultStore
	serializer  ResultSerializer
	artifactDir string
}

// NewTask builds an executable task from a definition. The step list is
// read from the definition once, here, and is fixed for the task's
// lifetime; each step gets a PENDING StepResult.
func NewTask(def TaskDefinition, opts TaskOptions) *Task {
	steps := def.Steps()
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Name
	}

	t := &Task{
		id:          "task-" + uuid.NewString(),
		taskType:    def.Type(),
		steps:       steps,
		executable:  true,
		result:      NewTaskResult(def.Type(), names),
		logger:      opts.Logger,
		store:       opts.Store,
		serializer:  opts.Serializer,
		artifactDir: opts.ArtifactDir,
	}
	t.applyDefaults()
	return t
}

// LoadTask reconstructs a read-only task from a persisted record. The
// identity comes from the record's storage location (the file stem), not
// the payload. All result fields are restored verbatim, including
// already-terminal step results; Execute on the returned task fails with
// ErrNotExecutable.
func LoadTask(id string, payload []byte) (*Task, error) {
	result, err := ParseTaskResult(payload)
	if err != nil {
		return nil, fmt.Errorf("load task %s: %w", id, err)
	}
	return restoredTask(id, result), nil
}

// restoredTask wraps an already-parsed record in a read-only task.
func restoredTask(id string, result *TaskResult) *Task {
	t := &Task{
		id:         id,
		taskType:   result.TaskType,
		executable: false,
		result:     result,
	}
	t.applyDefaults()
	return t
}

func (t *Task) applyDefaults() {
	if t.logger == nil {
		t.logger = NewDefaultLogger()
	}
	if t.store == nil {
		t.store = NewFileResultStore("results")
	}
	if t.serializer == nil {
		t.serializer = NewJSONSerializer()
	}
	if t.artifactDir == "" {
		t.artifactDir = "artifacts"
	}
}

// ID returns the task identity ("task-<uuid>").
func (t *Task) ID() string { return t.id }

// Type returns the task type name.
func (t *Task) Type() string { return t.taskType }

// IsExecutable reports whether Execute may be called.
func (t *Task) IsExecutable() bool { return t.executable }

// Result returns the task's owned result record. While the task is
// executing, reading through this pointer is a best-effort snapshot.
func (t *Task) Result() *TaskResult { return t.result }

// Execute runs the task's steps strictly in declaration order on the
// calling goroutine.
//
// A failing step marks its own result ERROR and aborts all remaining
// steps; the failure text becomes the task's exit message. An empty step
// list fails the same way with ErrNoSteps. Whatever the outcome, the end
// timestamp is recorded and the result is persisted. The serialized record
// is returned together with the execution error, if any; a persistence
// failure takes precedence and drops the payload.
//
// Execute is not guarded against being called twice beyond the executable
// flag; callers must not re-run a task instance.
func (t *Task) Execute(ctx context.Context) ([]byte, error) {
	if !t.executable {
		return nil, ErrNotExecutable
	}

	t.logger.Info("Task started")
	t.result.Status = StatusRunning
	start := time.Now()
	t.result.StartAt = &start

	var execErr error
	if len(t.steps) == 0 {
		execErr = ErrNoSteps
	} else {
		for _, step := range t.steps {
			if err := t.executeStep(ctx, step); err != nil {
				execErr = err
				break
			}
		}
	}

	if execErr != nil {
		t.result.ExitMessage = execErr.Error()
		t.result.Status = StatusError
		t.logger.Error("Task failed", F("error", execErr))
	} else {
		t.result.Status = StatusSuccess
		t.logger.Info("Task finished successfully")
	}

	end := time.Now()
	t.result.EndAt = &end

	payload, saveErr := t.SaveResult()
	if saveErr != nil {
		return nil, saveErr
	}
	return payload, execErr
}

// executeStep runs one step body, capturing panics as errors so a broken
// step can never take down the worker.
func (t *Task) executeStep(ctx context.Context, step Step) error {
	t.logger.Info("Starting step", F("step", step.Name))
	sr := t.result.Data[step.Name]
	sr.Status = StatusRunning

	var (
		payload any
		err     error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		payload, err = step.Run(ctx, t)
	}()

	if err != nil {
		sr.Status = StatusError
		t.logger.Error("Step failed", F("step", step.Name), F("error", err))
		return err
	}

	sr.Data = payload
	sr.Status = StatusSuccess
	t.logger.Info("Step finished successfully", F("step", step.Name))
	return nil
}

// AddArtifact relocates a file produced by a step into the task's artifact
// directory, renaming it <identity>_<basename> so concurrent tasks never
// collide. The original basename maps to the stored path in the result's
// artifacts. A missing source fails without touching the artifacts map.
func (t *Task) AddArtifact(sourcePath string) error {
	base := filepath.Base(sourcePath)
	t.logger.Info("Adding artifact", F("artifact", base))

	if _, err := os.Stat(sourcePath); err != nil {
		return fmt.Errorf("artifact source %s: %w", sourcePath, err)
	}
	if err := os.MkdirAll(t.artifactDir, 0o755); err != nil {
		return fmt.Errorf("create artifact directory %s: %w", t.artifactDir, err)
	}

	storedPath := filepath.Join(t.artifactDir, t.id+"_"+base)
	if err := os.Rename(sourcePath, storedPath); err != nil {
		return fmt.Errorf("relocate artifact %s: %w", sourcePath, err)
	}

	t.result.RecordArtifact(base, storedPath)
	return nil
}

// SaveResult serializes the current result and persists it under the task
// identity, overwriting any previous record. This file is the only durable
// record of the task's outcome.
func (t *Task) SaveResult() ([]byte, error) {
	payload, err := t.serializer.Serialize(t.result)
	if err != nil {
		return nil, fmt.Errorf("serialize result %s: %w", t.id, err)
	}
	if err := t.store.Save(t.id, payload); err != nil {
		return nil, err
	}
	return payload, nil
}
