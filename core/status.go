package core

import (
	"encoding/json"
	"fmt"
)

// Status represents the lifecycle state of a task or a single step.
//
// A status starts at StatusPending, moves to StatusRunning when execution
// begins, and terminates at StatusSuccess or StatusError. It never reverts.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusRunning Status = "RUNNING"
	StatusSuccess Status = "SUCCESS"
	StatusError   Status = "ERROR"
)

// ParseStatus converts a raw string into a Status.
// Unknown values are rejected so that malformed persisted records fail
// loudly instead of carrying an invalid state into the registry.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusPending, StatusRunning, StatusSuccess, StatusError:
		return Status(raw), nil
	default:
		return "", fmt.Errorf("unknown status %q", raw)
	}
}

// IsTerminal reports whether the status is SUCCESS or ERROR.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusError
}

func (s Status) String() string {
	return string(s)
}

// MarshalJSON encodes the status as its string value.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON decodes and validates a status value.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}

	*s = parsed
	return nil
}
