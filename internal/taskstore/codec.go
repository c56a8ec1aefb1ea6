package taskstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"dailytasks/internal/models"
)

// encode renders tasks as a JSON array. An empty collection encodes as [].
func encode(tasks []models.Task, pretty bool) ([]byte, error) {
	if tasks == nil {
		tasks = []models.Task{}
	}

	if pretty {
		data, err := json.MarshalIndent(tasks, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode tasks: %w", err)
		}
		return append(data, '\n'), nil
	}

	data, err := json.Marshal(tasks)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tasks: %w", err)
	}
	return data, nil
}

// decode parses raw as a JSON array of tasks and validates every record.
// Unknown fields are ignored; wrong types, invalid values, broken
// completion invariants and duplicate ids are rejected.
func decode(raw string) ([]models.Task, error) {
	data := bytes.TrimSpace([]byte(raw))
	if len(data) == 0 || data[0] != '[' {
		return nil, &ImportError{Index: -1, Err: fmt.Errorf("payload is not a JSON array")}
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &ImportError{Index: -1, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	tasks := make([]models.Task, 0, len(records))
	seen := make(map[int64]int, len(records))

	for i, rec := range records {
		var t models.Task
		if err := json.Unmarshal(rec, &t); err != nil {
			return nil, &ImportError{Index: i, Err: err}
		}
		if err := t.Validate(); err != nil {
			return nil, &ImportError{Index: i, Err: err}
		}
		if j, dup := seen[t.ID]; dup {
			return nil, &ImportError{Index: i, Err: fmt.Errorf("duplicate id %d (first seen at task %d)", t.ID, j)}
		}
		seen[t.ID] = i

		t.CreatedAt = t.CreatedAt.UTC()
		if t.CompletedAt != nil {
			at := t.CompletedAt.UTC()
			t.CompletedAt = &at
		}
		tasks = append(tasks, t)
	}

	return tasks, nil
}

func isEmptyPayload(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	return trimmed == "" || trimmed == "null"
}
