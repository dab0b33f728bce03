package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tidwall/gjson"
)

// syncPool runs posted work inline so manager tests are deterministic.
type syncPool struct {
	stopped bool
	posted  int
}

func (p *syncPool) Post(w Work) {
	p.posted++
	w(context.Background())
}

func (p *syncPool) Start(ctx context.Context) {}

func (p *syncPool) StopGraceful(timeout time.Duration) error {
	p.stopped = true
	return nil
}

func (p *syncPool) IsRunning() bool  { return !p.stopped }
func (p *syncPool) WorkerCount() int { return 1 }
func (p *syncPool) QueuedCount() int { return 0 }
func (p *syncPool) ActiveCount() int { return 0 }

func testManager(t *testing.T, pool WorkerPool) (*TaskManager, *memoryStore) {
	t.Helper()
	store := newMemoryStore()
	manager := NewTaskManager(pool, ManagerConfig{
		Logger: NewNoOpLogger(),
		Store:  store,
		TaskLogger: func(taskID string) (Logger, error) {
			return NewNoOpLogger(), nil
		},
	})
	return manager, store
}

func reportDefinition() Definition {
	return Definition{
		TaskType: "Report",
		TaskSteps: []Step{
			successStep("collect", map[string]any{"rows": 42}),
			successStep("render", nil),
		},
	}
}

func TestTaskManager_AddTask(t *testing.T) {
	pool := &syncPool{}
	manager, store := testManager(t, pool)

	id, err := manager.AddTask(reportDefinition())
	if err != nil {
		t.Fatalf("add task failed: %v", err)
	}
	if !strings.HasPrefix(id, "task-") {
		t.Errorf("unexpected identity: %s", id)
	}
	if pool.posted != 1 {
		t.Errorf("expected one posted execution, got %d", pool.posted)
	}

	task, err := manager.GetTask(id)
	if err != nil {
		t.Fatalf("task not registered: %v", err)
	}
	if task.Result().Status != StatusSuccess {
		t.Errorf("expected SUCCESS after inline execution, got %s", task.Result().Status)
	}
	if _, err := store.Load(id); err != nil {
		t.Errorf("result not persisted: %v", err)
	}
}

func TestTaskManager_GetTaskStatus(t *testing.T) {
	manager, _ := testManager(t, &syncPool{})

	id, err := manager.AddTask(reportDefinition())
	if err != nil {
		t.Fatalf("add task failed: %v", err)
	}

	logDir := t.TempDir()
	logLines := "2021-01-01 00:00:00 - INFO - Task started\n2021-01-01 00:00:01 - INFO - Task finished successfully\n"
	if err := os.WriteFile(filepath.Join(logDir, id+".log"), []byte(logLines), 0o644); err != nil {
		t.Fatal(err)
	}

	status, err := manager.GetTaskStatus(id, logDir)
	if err != nil {
		t.Fatalf("get status failed: %v", err)
	}

	doc := gjson.ParseBytes(status)
	if doc.Get("status").String() != "SUCCESS" {
		t.Errorf("unexpected status: %s", doc.Get("status"))
	}
	logs := doc.Get("logs").Array()
	if len(logs) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(logs))
	}
	if logs[0].String() != "2021-01-01 00:00:00 - INFO - Task started\n" {
		t.Errorf("log line altered: %q", logs[0].String())
	}
}

func TestTaskManager_GetTaskStatusMissingLogs(t *testing.T) {
	manager, _ := testManager(t, &syncPool{})

	id, err := manager.AddTask(reportDefinition())
	if err != nil {
		t.Fatalf("add task failed: %v", err)
	}

	status, err := manager.GetTaskStatus(id, t.TempDir())
	if err != nil {
		t.Fatalf("get status failed: %v", err)
	}
	if !gjson.GetBytes(status, "logs").IsArray() {
		t.Error("logs should be an empty array when no log file exists")
	}
	if n := len(gjson.GetBytes(status, "logs").Array()); n != 0 {
		t.Errorf("expected no log lines, got %d", n)
	}
}

func TestTaskManager_GetTaskStatusNotFound(t *testing.T) {
	manager, _ := testManager(t, &syncPool{})
	if _, err := manager.GetTaskStatus("task-missing", ""); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestTaskManager_ListTasks(t *testing.T) {
	manager, _ := testManager(t, &syncPool{})

	first, _ := manager.AddTask(Definition{TaskType: "Alpha", TaskSteps: []Step{successStep("s", nil)}})
	// Creation timestamps must differ for a deterministic order.
	time.Sleep(2 * time.Millisecond)
	second, _ := manager.AddTask(Definition{TaskType: "Beta", TaskSteps: []Step{successStep("s", nil)}})
	time.Sleep(2 * time.Millisecond)
	third, _ := manager.AddTask(Definition{TaskType: "Alpha", TaskSteps: []Step{successStep("s", nil)}})

	all := manager.ListTasks("")
	if len(all) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(all))
	}
	if all[0].TaskID != third || all[1].TaskID != second || all[2].TaskID != first {
		t.Errorf("expected newest-first order, got %s %s %s",
			all[0].TaskID, all[1].TaskID, all[2].TaskID)
	}

	alphas := manager.ListTasks("Alpha")
	if len(alphas) != 2 {
		t.Fatalf("expected 2 Alpha summaries, got %d", len(alphas))
	}
	for _, s := range alphas {
		if s.TaskType != "Alpha" {
			t.Errorf("filter leaked type %s", s.TaskType)
		}
	}

	if n := len(manager.ListTasks("Gamma")); n != 0 {
		t.Errorf("unknown type should match nothing, got %d", n)
	}
}

func TestTaskManager_LoadFromDisk(t *testing.T) {
	store := newMemoryStore()

	seed := NewTask(Definition{
		TaskType:  "Report",
		TaskSteps: []Step{successStep("collect", nil)},
	}, testOptions(store))
	if _, err := seed.Execute(context.Background()); err != nil {
		t.Fatalf("seed execute failed: %v", err)
	}

	// A malformed record must be skipped, not fail the scan.
	if err := store.Save("task-broken", []byte("{not json")); err != nil {
		t.Fatal(err)
	}

	manager := NewTaskManager(&syncPool{}, ManagerConfig{
		Logger: NewNoOpLogger(),
		Store:  store,
	})
	if err := manager.LoadFromDisk(); err != nil {
		t.Fatalf("load from disk failed: %v", err)
	}

	if manager.TaskCount() != 1 {
		t.Fatalf("expected 1 loaded task, got %d", manager.TaskCount())
	}

	task, err := manager.GetTask(seed.ID())
	if err != nil {
		t.Fatalf("seeded task missing after load: %v", err)
	}
	if task.IsExecutable() {
		t.Error("reloaded task must not be executable")
	}
	if _, err := manager.GetTask("task-broken"); !errors.Is(err, ErrTaskNotFound) {
		t.Error("malformed record must not be registered")
	}
}

func TestTaskManager_Stats(t *testing.T) {
	manager, _ := testManager(t, &syncPool{})
	manager.AddTask(reportDefinition())
	manager.AddTask(Definition{TaskType: "Empty"})

	stats := manager.Stats()
	if stats.Tasks != 2 {
		t.Errorf("expected 2 tasks, got %d", stats.Tasks)
	}
	if stats.ByStatus[StatusSuccess] != 1 || stats.ByStatus[StatusError] != 1 {
		t.Errorf("unexpected census: %v", stats.ByStatus)
	}
}

func TestTaskManager_ShutdownRejectsNewTasks(t *testing.T) {
	pool := &syncPool{}
	manager, _ := testManager(t, pool)

	if err := manager.Shutdown(time.Second); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if !pool.stopped {
		t.Error("shutdown must drain the pool")
	}

	if _, err := manager.AddTask(reportDefinition()); err == nil {
		t.Error("add task must fail after shutdown")
	}
	if err := manager.Shutdown(time.Second); err == nil {
		t.Error("second shutdown should report already closed")
	}
}
