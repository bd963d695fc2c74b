package field

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// Patch operation names accepted by ApplyPatch.
const (
	PatchAdd     = "add"
	PatchRemove  = "remove"
	PatchReplace = "replace"
	PatchTest    = "test"
)

// PatchOperation is one RFC 6902 operation against the set's values. Paths
// address a field by name ("/businessName") or an element inside a list field
// ("/featuresRequired/0").
type PatchOperation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// ApplyPatch applies ops atomically. Removing a whole field restores its
// initial value. Only fields whose value changed get their errors cleared.
func (s *Set) ApplyPatch(ops []PatchOperation) error {
	if len(ops) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, op := range ops {
		switch op.Op {
		case PatchAdd, PatchRemove, PatchReplace, PatchTest:
		default:
			return fmt.Errorf("field: patch op %d: unsupported operation %q", i, op.Op)
		}
		name, err := patchFieldName(op.Path)
		if err != nil {
			return fmt.Errorf("field: patch op %d: %w", i, err)
		}
		if _, ok := s.index[name]; !ok {
			return &UnknownFieldError{Name: name}
		}
	}

	currentJSON, err := json.Marshal(s.valuesLocked())
	if err != nil {
		return fmt.Errorf("field: marshal values: %w", err)
	}
	patchJSON, err := json.Marshal(ops)
	if err != nil {
		return fmt.Errorf("field: marshal patch: %w", err)
	}
	patch, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return fmt.Errorf("field: decode patch: %w", err)
	}
	modifiedJSON, err := patch.Apply(currentJSON)
	if err != nil {
		return fmt.Errorf("field: apply patch: %w", err)
	}

	var before, after map[string]any
	if err := json.Unmarshal(currentJSON, &before); err != nil {
		return fmt.Errorf("field: decode values: %w", err)
	}
	if err := json.Unmarshal(modifiedJSON, &after); err != nil {
		return fmt.Errorf("field: decode patched values: %w", err)
	}

	for _, e := range s.entries {
		name := e.field.Name
		next, present := after[name]
		if !present {
			e.value = cloneValue(e.initial)
			e.parsed = true
			delete(s.errors, name)
			continue
		}
		if reflect.DeepEqual(before[name], next) {
			continue
		}
		if err := s.setLocked(name, next); err != nil {
			return err
		}
	}
	return nil
}

func patchFieldName(path string) (string, error) {
	if !strings.HasPrefix(path, "/") || len(path) == 1 {
		return "", fmt.Errorf("path %q must address a field", path)
	}
	token := path[1:]
	if idx := strings.IndexByte(token, '/'); idx >= 0 {
		token = token[:idx]
	}
	token = strings.ReplaceAll(token, "~1", "/")
	token = strings.ReplaceAll(token, "~0", "~")
	return token, nil
}
