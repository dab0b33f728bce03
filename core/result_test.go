package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/tidwall/gjson"
)

func TestTaskResult_ExitCode(t *testing.T) {
	empty := NewTaskResult("T", nil)
	if empty.ExitCode() != 1 {
		t.Errorf("empty data should yield exit code 1, got %d", empty.ExitCode())
	}

	allError := NewTaskResult("T", []string{"a", "b"})
	allError.Data["a"].Status = StatusError
	allError.Data["b"].Status = StatusError
	if allError.ExitCode() != 1 {
		t.Errorf("all-error steps should yield exit code 1, got %d", allError.ExitCode())
	}

	mixed := NewTaskResult("T", []string{"a", "b"})
	mixed.Data["a"].Status = StatusSuccess
	mixed.Data["b"].Status = StatusError
	if mixed.ExitCode() != 0 {
		t.Errorf("partially successful steps should yield exit code 0, got %d", mixed.ExitCode())
	}

	pending := NewTaskResult("T", []string{"a"})
	if pending.ExitCode() != 0 {
		t.Errorf("pending step should yield exit code 0, got %d", pending.ExitCode())
	}
}

func TestTaskResult_Duration(t *testing.T) {
	result := NewTaskResult("T", []string{"a"})
	if result.Duration() != nil {
		t.Error("duration should be nil before execution")
	}

	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2021, 1, 1, 0, 10, 0, 0, time.UTC)
	result.StartAt = &start
	if result.Duration() != nil {
		t.Error("duration should be nil without end timestamp")
	}

	result.EndAt = &end
	d := result.Duration()
	if d == nil || *d != 600 {
		t.Fatalf("expected duration 600, got %v", d)
	}
}

func TestTaskResult_MarshalSchema(t *testing.T) {
	result := NewTaskResult("Report", []string{"collect", "render"})
	result.Data["collect"].Status = StatusSuccess
	result.Data["collect"].Data = map[string]any{"rows": 42}

	payload, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	doc := gjson.ParseBytes(payload)
	if doc.Get("task_type").String() != "Report" {
		t.Errorf("unexpected task_type: %s", doc.Get("task_type"))
	}
	if doc.Get("status").String() != "PENDING" {
		t.Errorf("unexpected status: %s", doc.Get("status"))
	}
	if doc.Get("exit_message").Type != gjson.Null {
		t.Error("exit_message should serialize as null when unset")
	}
	if doc.Get("start_at").Type != gjson.Null || doc.Get("end_at").Type != gjson.Null {
		t.Error("start_at/end_at should be null before execution")
	}
	if doc.Get("duration").Type != gjson.Null {
		t.Error("duration should be null before execution")
	}
	if doc.Get("data.collect.data.rows").Int() != 42 {
		t.Error("step payload missing from data")
	}
}

func TestTaskResult_MarshalPreservesStepOrder(t *testing.T) {
	steps := []string{"zeta", "alpha", "mid"}
	result := NewTaskResult("T", steps)

	payload, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var got []string
	gjson.GetBytes(payload, "data").ForEach(func(key, value gjson.Result) bool {
		got = append(got, key.String())
		return true
	})

	if strings.Join(got, ",") != strings.Join(steps, ",") {
		t.Errorf("expected data order %v, got %v", steps, got)
	}
}

func TestTaskResult_ArtifactRegistrationDuringMarshal(t *testing.T) {
	result := NewTaskResult("T", []string{"a"})

	const registrations = 200
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < registrations; i++ {
			result.RecordArtifact(fmt.Sprintf("file-%d.out", i), "artifacts/stored")
		}
	}()

	// Status queries serialize the live result while the worker registers
	// artifacts; both must proceed without a map fault.
	for i := 0; i < registrations; i++ {
		if _, err := json.Marshal(result); err != nil {
			t.Fatalf("marshal during registration: %v", err)
		}
	}
	<-done

	if len(result.Artifacts) != registrations {
		t.Errorf("expected %d artifacts, got %d", registrations, len(result.Artifacts))
	}
}

func TestParseTaskResult_RoundTrip(t *testing.T) {
	original := NewTaskResult("Report", []string{"collect", "render"})
	original.Status = StatusSuccess
	start := time.Now().Add(-time.Minute)
	end := time.Now()
	original.StartAt = &start
	original.EndAt = &end
	original.Data["collect"].Status = StatusSuccess
	original.Data["collect"].Data = map[string]any{"rows": float64(42)}
	original.Data["render"].Status = StatusError
	original.Artifacts["report.html"] = "artifacts/task-1_report.html"

	payload, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	restored, err := ParseTaskResult(payload)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if restored.TaskType != original.TaskType || restored.Status != original.Status {
		t.Errorf("type/status mismatch: %s/%s", restored.TaskType, restored.Status)
	}
	if !restored.CreatedAt.Equal(original.CreatedAt) {
		t.Errorf("created_at mismatch: %v vs %v", restored.CreatedAt, original.CreatedAt)
	}
	if restored.StartAt == nil || !restored.StartAt.Equal(start) {
		t.Errorf("start_at mismatch: %v", restored.StartAt)
	}
	if restored.EndAt == nil || !restored.EndAt.Equal(end) {
		t.Errorf("end_at mismatch: %v", restored.EndAt)
	}
	if got := restored.StepNames(); len(got) != 2 || got[0] != "collect" || got[1] != "render" {
		t.Errorf("step order lost: %v", got)
	}
	if restored.Data["render"].Status != StatusError {
		t.Errorf("step status lost: %s", restored.Data["render"].Status)
	}
	if restored.Artifacts["report.html"] != "artifacts/task-1_report.html" {
		t.Errorf("artifacts lost: %v", restored.Artifacts)
	}
}

func TestParseTaskResult_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":       `{"task_type": "T",`,
		"unknown status": `{"task_type": "T", "status": "DONE", "created_at": "2021-01-01T00:00:00Z", "data": {}}`,
		"bad step status": `{"task_type": "T", "status": "SUCCESS", "created_at": "2021-01-01T00:00:00Z",
			"data": {"a": {"message": "", "status": "nope", "data": null}}}`,
		"missing created_at": `{"task_type": "T", "status": "SUCCESS", "data": {}}`,
		"bad timestamp":      `{"task_type": "T", "status": "SUCCESS", "created_at": "yesterday", "data": {}}`,
	}

	for name, payload := range cases {
		if _, err := ParseTaskResult([]byte(payload)); err == nil {
			t.Errorf("%s: parse should fail", name)
		}
	}
}
