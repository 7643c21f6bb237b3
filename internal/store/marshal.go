package store

import (
	"encoding/json"
	"fmt"

	"github.com/musehq/muse/internal/score"
)

// JSON blob helpers for the change-stream and id-list columns.
//
// encoding/json with fixed struct field order is deterministic here, and
// unlike content-addressed identities these blobs are only ever compared
// after decoding, so canonical form is not required.

func marshalStringList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("marshal string list: %w", err)
	}
	return string(data), nil
}

func unmarshalStringList(data string) ([]string, error) {
	if data == "" {
		return []string{}, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(data), &list); err != nil {
		return nil, fmt.Errorf("unmarshal string list: %w", err)
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}

func marshalNoteChanges(changes []score.NoteChange) (string, error) {
	if changes == nil {
		changes = []score.NoteChange{}
	}
	data, err := json.Marshal(changes)
	if err != nil {
		return "", fmt.Errorf("marshal note changes: %w", err)
	}
	return string(data), nil
}

func unmarshalNoteChanges(data string) ([]score.NoteChange, error) {
	if data == "" {
		return nil, nil
	}
	var changes []score.NoteChange
	if err := json.Unmarshal([]byte(data), &changes); err != nil {
		return nil, fmt.Errorf("unmarshal note changes: %w", err)
	}
	return changes, nil
}

func marshalControlChanges(changes []score.ControlChange) (string, error) {
	if changes == nil {
		changes = []score.ControlChange{}
	}
	data, err := json.Marshal(changes)
	if err != nil {
		return "", fmt.Errorf("marshal control changes: %w", err)
	}
	return string(data), nil
}

func unmarshalControlChanges(data string) ([]score.ControlChange, error) {
	if data == "" {
		return nil, nil
	}
	var changes []score.ControlChange
	if err := json.Unmarshal([]byte(data), &changes); err != nil {
		return nil, fmt.Errorf("unmarshal control changes: %w", err)
	}
	return changes, nil
}
