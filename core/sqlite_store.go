package core

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteResultStore is a ResultStore backed by a single SQLite database.
// It is a drop-in alternative to FileResultStore for deployments that want
// every record in one place instead of a directory of JSON files. The
// persisted payload is identical either way.
type SQLiteResultStore struct {
	db *sql.DB
}

// NewSQLiteResultStore opens (or creates) the database at path and ensures
// the schema exists.
func NewSQLiteResultStore(path string) (*SQLiteResultStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store %s: %w", path, err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS task_results (
		id TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create task_results schema: %w", err)
	}

	return &SQLiteResultStore{db: db}, nil
}

func (s *SQLiteResultStore) Save(id string, payload []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO task_results (id, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		id, payload, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save result %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteResultStore) Load(id string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM task_results WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		return nil, fmt.Errorf("load result %s: %w", id, err)
	}
	return payload, nil
}

func (s *SQLiteResultStore) List() ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM task_results`)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the underlying database handle.
func (s *SQLiteResultStore) Close() error {
	return s.db.Close()
}
