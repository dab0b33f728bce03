package core

import (
	"path/filepath"
	"sort"
	"testing"
)

func openTestSQLiteStore(t *testing.T) *SQLiteResultStore {
	t.Helper()
	store, err := NewSQLiteResultStore(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteResultStore_SaveLoad(t *testing.T) {
	store := openTestSQLiteStore(t)

	payload := []byte(`{"task_type": "Report"}`)
	if err := store.Save("task-1", payload); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := store.Load("task-1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("payload mismatch: %s", got)
	}
}

func TestSQLiteResultStore_Upsert(t *testing.T) {
	store := openTestSQLiteStore(t)

	store.Save("task-1", []byte(`{"status": "RUNNING"}`))
	if err := store.Save("task-1", []byte(`{"status": "SUCCESS"}`)); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	got, err := store.Load("task-1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if string(got) != `{"status": "SUCCESS"}` {
		t.Errorf("upsert did not replace payload: %s", got)
	}

	ids, _ := store.List()
	if len(ids) != 1 {
		t.Errorf("upsert should not duplicate rows: %v", ids)
	}
}

func TestSQLiteResultStore_LoadMissing(t *testing.T) {
	store := openTestSQLiteStore(t)
	if _, err := store.Load("task-missing"); err == nil {
		t.Error("load of missing record should fail")
	}
}

func TestSQLiteResultStore_List(t *testing.T) {
	store := openTestSQLiteStore(t)

	store.Save("task-a", []byte("{}"))
	store.Save("task-b", []byte("{}"))

	ids, err := store.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "task-a" || ids[1] != "task-b" {
		t.Errorf("unexpected ids: %v", ids)
	}
}
