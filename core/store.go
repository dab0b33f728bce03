package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// =============================================================================
// ResultStore Interface
// =============================================================================

// ResultStore defines the interface for persisted task results, keyed by
// task identity. Implementations can use the filesystem, databases, or
// other backends; the payload is the serialized result record and is
// treated as opaque.
type ResultStore interface {
	// Save persists the payload under the identity, overwriting any
	// previous record for it.
	Save(id string, payload []byte) error

	// Load retrieves the payload persisted under the identity.
	Load(id string) ([]byte, error)

	// List returns the identities of every persisted record.
	List() ([]string, error)
}

// =============================================================================
// FileResultStore Implementation
// =============================================================================

// FileResultStore persists each result as <dir>/<identity>.json. This is
// the default backend: one file per task, so concurrent tasks never
// contend on the same path.
type FileResultStore struct {
	dir string
}

// NewFileResultStore creates a file-backed store rooted at dir. The
// directory is created lazily on the first Save.
func NewFileResultStore(dir string) *FileResultStore {
	return &FileResultStore{dir: dir}
}

// Dir returns the store's root directory.
func (s *FileResultStore) Dir() string {
	return s.dir
}

func (s *FileResultStore) Save(id string, payload []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create result directory %s: %w", s.dir, err)
	}

	path := filepath.Join(s.dir, id+".json")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write result %s: %w", path, err)
	}
	return nil
}

func (s *FileResultStore) Load(id string) ([]byte, error) {
	path := filepath.Join(s.dir, id+".json")
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read result %s: %w", path, err)
	}
	return payload, nil
}

func (s *FileResultStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list result directory %s: %w", s.dir, err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}
