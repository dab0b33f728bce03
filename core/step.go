package core

import "context"

// StepFunc is the body of a single step. The task handle is passed in so
// step bodies can register artifacts via Task.AddArtifact. The returned
// payload is stored in the step's result; any JSON-serializable value is
// accepted.
type StepFunc func(ctx context.Context, task *Task) (any, error)

// Step is one ordered unit of work within a task. Concrete task types
// declare their steps as an explicit ordered list; the declaration order is
// the execution order.
type Step struct {
	Name string
	Run  StepFunc
}

// TaskDefinition describes a concrete task type: its name (used for
// filtering and listing) and its ordered steps. Steps is evaluated exactly
// once, when the manager instantiates a task from the definition.
type TaskDefinition interface {
	// Type returns the task type name.
	Type() string

	// Steps returns the ordered step list.
	Steps() []Step
}

// Definition is a plain TaskDefinition for tasks that do not need their own
// type. Step bodies that share state can close over it.
type Definition struct {
	TaskType  string
	TaskSteps []Step
}

func (d Definition) Type() string  { return d.TaskType }
func (d Definition) Steps() []Step { return d.TaskSteps }

// =============================================================================
// StepResult
// =============================================================================

// StepResult captures the outcome of one step.
type StepResult struct {
	// Message is a free-text annotation available to step authors.
	// The engine itself never writes it.
	Message string `json:"message"`

	// Status begins at PENDING and advances RUNNING -> SUCCESS or ERROR.
	Status Status `json:"status"`

	// Data holds the payload returned by the step body.
	Data any `json:"data"`
}

// NewStepResult returns a StepResult in its initial PENDING state.
func NewStepResult() *StepResult {
	return &StepResult{
		Status: StatusPending,
		Data:   map[string]any{},
	}
}
