package review

import (
	"bytes"
	"encoding/json"

	"github.com/historia/cockpit-archive/internal/models"
)

// FieldChange is one differing field in an object change-log diff.
type FieldChange struct {
	Field    string          `json:"field"`
	OldValue json.RawMessage `json:"old_value,omitempty"`
	NewValue json.RawMessage `json:"new_value,omitempty"`
}

// ChangeLogDiff is the display form of an object change-log entry.
// UPDATE entries carry the per-field changes; CREATE and DELETE carry the
// respective snapshot wholesale.
type ChangeLogDiff struct {
	Action   models.SnapshotAction `json:"action"`
	Changes  []FieldChange         `json:"changes,omitempty"`
	Snapshot json.RawMessage       `json:"snapshot,omitempty"`
}

// DiffObjectChange renders an object change-log entry for the audit trail.
// For UPDATE it unions the key sets of both snapshots in insertion order
// and emits a FieldChange for each key whose serialized value differs.
// CREATE shows the new snapshot and DELETE the previous one, undiffed.
func DiffObjectChange(log *models.ObjectChangeLog) ChangeLogDiff {
	switch log.Action {
	case models.SnapshotActionCreate:
		return ChangeLogDiff{Action: log.Action, Snapshot: log.NewSnapshot}
	case models.SnapshotActionDelete:
		return ChangeLogDiff{Action: log.Action, Snapshot: log.PreviousSnapshot}
	}
	return ChangeLogDiff{
		Action:  log.Action,
		Changes: DiffSnapshots(log.PreviousSnapshot, log.NewSnapshot),
	}
}

// DiffSnapshots computes the flat field-level diff between two serialized
// object states. Keys are visited in union insertion order: previous keys
// first in their document order, then keys only present in the new state.
// A key absent from one side yields a nil value on that side. Inputs that
// are not JSON objects produce an empty diff.
func DiffSnapshots(previous, next json.RawMessage) []FieldChange {
	prevKeys, prevVals := objectFields(previous)
	newKeys, newVals := objectFields(next)

	keys := make([]string, 0, len(prevKeys)+len(newKeys))
	seen := make(map[string]bool, len(prevKeys)+len(newKeys))
	for _, k := range prevKeys {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for _, k := range newKeys {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}

	var changes []FieldChange
	for _, k := range keys {
		oldVal, hasOld := prevVals[k]
		newVal, hasNew := newVals[k]
		if hasOld && hasNew && jsonEqual(oldVal, newVal) {
			continue
		}
		changes = append(changes, FieldChange{Field: k, OldValue: oldVal, NewValue: newVal})
	}
	return changes
}

// objectFields parses a JSON object into its keys in document order and a
// key-to-raw-value map. Non-object input returns empty results.
func objectFields(raw json.RawMessage) ([]string, map[string]json.RawMessage) {
	vals := make(map[string]json.RawMessage)
	if len(raw) == 0 {
		return nil, vals
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, vals
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, vals
	}

	var keys []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return keys, vals
		}
		key, ok := keyTok.(string)
		if !ok {
			return keys, vals
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return keys, vals
		}
		if _, dup := vals[key]; !dup {
			keys = append(keys, key)
		}
		vals[key] = value
	}
	return keys, vals
}

// jsonEqual compares two raw JSON values by compacted serialization.
func jsonEqual(a, b json.RawMessage) bool {
	var ca, cb bytes.Buffer
	if err := json.Compact(&ca, a); err != nil {
		return bytes.Equal(a, b)
	}
	if err := json.Compact(&cb, b); err != nil {
		return bytes.Equal(a, b)
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}
