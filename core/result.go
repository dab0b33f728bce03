package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

// timestampLayout is the persisted timestamp format (RFC 3339 with
// nanoseconds). Round-tripping through Format/Parse is lossless.
const timestampLayout = time.RFC3339Nano

// TaskResult is the aggregate outcome record owned by a single task.
//
// The executing worker writes these fields while status queries may read
// them concurrently. Reads of an in-flight result are best-effort
// snapshots; the engine deliberately avoids per-task locking and accepts
// approximate reads until the task reaches a terminal status.
type TaskResult struct {
	TaskType    string
	Status      Status
	ExitMessage string
	Data        map[string]*StepResult
	CreatedAt   time.Time
	StartAt     *time.Time
	EndAt       *time.Time
	Artifacts   map[string]string

	// stepOrder preserves step declaration order for Data iteration and
	// serialization.
	stepOrder []string

	// artifactsMu guards Artifacts: registration happens on the executing
	// worker while a status query may be serializing the result, and a
	// concurrent map write is fatal rather than a tolerable torn read.
	artifactsMu sync.Mutex
}

// NewTaskResult builds a result for a freshly constructed task: one PENDING
// StepResult per step, in declaration order.
func NewTaskResult(taskType string, steps []string) *TaskResult {
	data := make(map[string]*StepResult, len(steps))
	order := make([]string, len(steps))
	for i, name := range steps {
		data[name] = NewStepResult()
		order[i] = name
	}

	return &TaskResult{
		TaskType:  taskType,
		Status:    StatusPending,
		Data:      data,
		CreatedAt: time.Now(),
		Artifacts: map[string]string{},
		stepOrder: order,
	}
}

// StepNames returns the step names in declaration order.
func (r *TaskResult) StepNames() []string {
	return append([]string(nil), r.stepOrder...)
}

// RecordArtifact maps an artifact's original basename to its stored path.
func (r *TaskResult) RecordArtifact(name, storedPath string) {
	r.artifactsMu.Lock()
	r.Artifacts[name] = storedPath
	r.artifactsMu.Unlock()
}

func (r *TaskResult) artifactsSnapshot() map[string]string {
	r.artifactsMu.Lock()
	defer r.artifactsMu.Unlock()
	snapshot := make(map[string]string, len(r.Artifacts))
	for name, path := range r.Artifacts {
		snapshot[name] = path
	}
	return snapshot
}

// ExitCode derives the exit code: 1 if no step results exist or every step
// ended in ERROR, else 0. A task that did no useful work is a failure even
// when individual fields read differently.
func (r *TaskResult) ExitCode() int {
	if len(r.Data) == 0 {
		return 1
	}
	for _, sr := range r.Data {
		if sr.Status != StatusError {
			return 0
		}
	}
	return 1
}

// Duration returns the elapsed seconds between StartAt and EndAt, or nil
// unless both are set.
func (r *TaskResult) Duration() *float64 {
	if r.StartAt == nil || r.EndAt == nil {
		return nil
	}
	secs := r.EndAt.Sub(*r.StartAt).Seconds()
	return &secs
}

// MarshalJSON serializes the result in the persisted record schema. Field
// order is fixed and the data object follows step declaration order, so the
// file on disk mirrors how the task was declared.
func (r *TaskResult) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	writeKey := func(name string) {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(name)
		buf.WriteString(`":`)
	}
	writeField := func(name string, value any) error {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", name, err)
		}
		writeKey(name)
		buf.Write(raw)
		return nil
	}
	writeTime := func(name string, t *time.Time) {
		writeKey(name)
		if t == nil {
			buf.WriteString("null")
			return
		}
		buf.WriteByte('"')
		buf.WriteString(t.Format(timestampLayout))
		buf.WriteByte('"')
	}

	if err := writeField("task_type", r.TaskType); err != nil {
		return nil, err
	}
	if err := writeField("status", r.Status); err != nil {
		return nil, err
	}
	if err := writeField("exit_code", r.ExitCode()); err != nil {
		return nil, err
	}
	if r.ExitMessage == "" {
		writeKey("exit_message")
		buf.WriteString("null")
	} else if err := writeField("exit_message", r.ExitMessage); err != nil {
		return nil, err
	}

	writeKey("data")
	buf.WriteByte('{')
	first := true
	for _, name := range r.stepOrder {
		sr, ok := r.Data[name]
		if !ok {
			continue
		}
		raw, err := json.Marshal(sr)
		if err != nil {
			return nil, fmt.Errorf("marshal step %s: %w", name, err)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(raw)
	}
	buf.WriteByte('}')

	created := r.CreatedAt
	writeTime("created_at", &created)
	writeTime("start_at", r.StartAt)
	writeTime("end_at", r.EndAt)

	if err := writeField("duration", r.Duration()); err != nil {
		return nil, err
	}
	if err := writeField("artifacts", r.artifactsSnapshot()); err != nil {
		return nil, err
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ParseTaskResult rebuilds a TaskResult from a persisted record. The walk
// uses gjson so the data object is visited in document order, which keeps
// the reconstructed step order identical to the declared one. Statuses and
// timestamps are validated; any malformed field fails the whole parse.
func ParseTaskResult(payload []byte) (*TaskResult, error) {
	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("result payload is not valid JSON")
	}
	doc := gjson.ParseBytes(payload)

	status, err := ParseStatus(doc.Get("status").String())
	if err != nil {
		return nil, fmt.Errorf("task status: %w", err)
	}

	createdAt, err := parseTimestamp(doc.Get("created_at"), true)
	if err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}
	startAt, err := parseTimestamp(doc.Get("start_at"), false)
	if err != nil {
		return nil, fmt.Errorf("start_at: %w", err)
	}
	endAt, err := parseTimestamp(doc.Get("end_at"), false)
	if err != nil {
		return nil, fmt.Errorf("end_at: %w", err)
	}

	result := &TaskResult{
		TaskType:  doc.Get("task_type").String(),
		Status:    status,
		Data:      map[string]*StepResult{},
		CreatedAt: *createdAt,
		StartAt:   startAt,
		EndAt:     endAt,
		Artifacts: map[string]string{},
	}

	if msg := doc.Get("exit_message"); msg.Exists() && msg.Type != gjson.Null {
		result.ExitMessage = msg.String()
	}

	var stepErr error
	doc.Get("data").ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		stepStatus, err := ParseStatus(value.Get("status").String())
		if err != nil {
			stepErr = fmt.Errorf("step %s status: %w", name, err)
			return false
		}
		result.Data[name] = &StepResult{
			Message: value.Get("message").String(),
			Status:  stepStatus,
			Data:    value.Get("data").Value(),
		}
		result.stepOrder = append(result.stepOrder, name)
		return true
	})
	if stepErr != nil {
		return nil, stepErr
	}

	doc.Get("artifacts").ForEach(func(key, value gjson.Result) bool {
		result.Artifacts[key.String()] = value.String()
		return true
	})

	return result, nil
}

func parseTimestamp(field gjson.Result, required bool) (*time.Time, error) {
	if !field.Exists() || field.Type == gjson.Null {
		if required {
			return nil, fmt.Errorf("missing timestamp")
		}
		return nil, nil
	}

	t, err := time.Parse(timestampLayout, field.String())
	if err != nil {
		return nil, err
	}
	return &t, nil
}
