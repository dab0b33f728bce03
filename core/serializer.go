package core

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// ResultSerializer Interface
// =============================================================================

// ResultSerializer defines the codec boundary for persisted task result
// records. Deserialize validates the payload against the record schema, so
// a round trip never admits a record the engine could not have written.
type ResultSerializer interface {
	// Serialize encodes a result record into its persisted form.
	Serialize(result *TaskResult) ([]byte, error)

	// Deserialize decodes and validates a persisted record.
	Deserialize(payload []byte) (*TaskResult, error)

	// Name returns the serializer name (for debugging/logging)
	Name() string
}

// =============================================================================
// JSONSerializer Implementation
// =============================================================================

// JSONSerializer is the default codec: the fixed-order record schema on the
// way out, the validating document-order parse on the way in.
type JSONSerializer struct{}

// NewJSONSerializer creates a new JSON serializer
func NewJSONSerializer() *JSONSerializer {
	return &JSONSerializer{}
}

func (s *JSONSerializer) Serialize(result *TaskResult) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("cannot serialize a nil result")
	}

	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("json marshal failed: %w", err)
	}

	return data, nil
}

func (s *JSONSerializer) Deserialize(payload []byte) (*TaskResult, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("result payload is empty")
	}

	return ParseTaskResult(payload)
}

func (s *JSONSerializer) Name() string {
	return "json"
}
