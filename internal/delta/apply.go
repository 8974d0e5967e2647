package delta

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"github.com/openduel/sync-server-go/internal/state"
)

// Apply applies the delta to a snapshot and returns the patched state.
// The input state is never mutated. A failed test operation, or a
// replace/remove/move targeting a missing path, fails with
// *state.PatchConflictError so the caller can fall back to a full-state
// resync instead of silently diverging.
func Apply(s *state.TCGGameState, d Delta) (*state.TCGGameState, error) {
	tree, err := toTree(s)
	if err != nil {
		return nil, err
	}

	for _, op := range d {
		tree, err = applyOp(tree, op)
		if err != nil {
			return nil, err
		}
	}

	b, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize patched state: %w", err)
	}
	return state.FromCanonicalJSON(b)
}

func applyOp(doc any, op Op) (any, error) {
	switch op.Op {
	case OpAdd:
		return setValue(doc, op.Path, op.Value, true)
	case OpReplace:
		if _, err := getValue(doc, op.Path); err != nil {
			return nil, err
		}
		return setValue(doc, op.Path, op.Value, false)
	case OpRemove:
		return removeValue(doc, op.Path)
	case OpMove:
		val, err := getValue(doc, op.From)
		if err != nil {
			return nil, err
		}
		doc, err = removeValue(doc, op.From)
		if err != nil {
			return nil, err
		}
		return setValue(doc, op.Path, val, true)
	case OpCopy:
		val, err := getValue(doc, op.From)
		if err != nil {
			return nil, err
		}
		return setValue(doc, op.Path, val, true)
	case OpTest:
		val, err := getValue(doc, op.Path)
		if err != nil {
			return nil, err
		}
		if !reflect.DeepEqual(val, op.Value) {
			return nil, &state.PatchConflictError{Path: op.Path, Reason: "test operation failed"}
		}
		return doc, nil
	default:
		return nil, &state.PatchConflictError{Path: op.Path, Reason: fmt.Sprintf("unknown op %q", op.Op)}
	}
}

// getValue resolves a JSON Pointer against the document.
func getValue(doc any, path string) (any, error) {
	tokens, err := splitPointer(path)
	if err != nil {
		return nil, &state.PatchConflictError{Path: path, Reason: err.Error()}
	}
	cur := doc
	for _, tok := range tokens {
		switch node := cur.(type) {
		case map[string]any:
			child, ok := node[tok]
			if !ok {
				return nil, &state.PatchConflictError{Path: path, Reason: "path does not exist"}
			}
			cur = child
		case []any:
			idx, err := arrayIndex(tok, len(node), false)
			if err != nil {
				return nil, &state.PatchConflictError{Path: path, Reason: err.Error()}
			}
			cur = node[idx]
		default:
			return nil, &state.PatchConflictError{Path: path, Reason: "path traverses a scalar"}
		}
	}
	return cur, nil
}

// setValue writes a value at the pointer path. With insert set (add/move/
// copy semantics), array writes insert and "-" appends; otherwise the
// element is overwritten in place.
func setValue(doc any, path string, value any, insert bool) (any, error) {
	tokens, err := splitPointer(path)
	if err != nil {
		return nil, &state.PatchConflictError{Path: path, Reason: err.Error()}
	}
	if len(tokens) == 0 {
		return value, nil
	}
	return setAt(doc, tokens, path, value, insert)
}

func setAt(node any, tokens []string, fullPath string, value any, insert bool) (any, error) {
	tok := tokens[0]
	last := len(tokens) == 1

	switch typed := node.(type) {
	case map[string]any:
		if last {
			typed[tok] = value
			return typed, nil
		}
		child, ok := typed[tok]
		if !ok {
			return nil, &state.PatchConflictError{Path: fullPath, Reason: "parent path does not exist"}
		}
		newChild, err := setAt(child, tokens[1:], fullPath, value, insert)
		if err != nil {
			return nil, err
		}
		typed[tok] = newChild
		return typed, nil

	case []any:
		if last {
			idx, err := arrayIndex(tok, len(typed), insert)
			if err != nil {
				return nil, &state.PatchConflictError{Path: fullPath, Reason: err.Error()}
			}
			if insert {
				typed = append(typed, nil)
				copy(typed[idx+1:], typed[idx:])
				typed[idx] = value
			} else {
				typed[idx] = value
			}
			return typed, nil
		}
		idx, err := arrayIndex(tok, len(typed), false)
		if err != nil {
			return nil, &state.PatchConflictError{Path: fullPath, Reason: err.Error()}
		}
		newChild, err := setAt(typed[idx], tokens[1:], fullPath, value, insert)
		if err != nil {
			return nil, err
		}
		typed[idx] = newChild
		return typed, nil

	default:
		return nil, &state.PatchConflictError{Path: fullPath, Reason: "path traverses a scalar"}
	}
}

// removeValue deletes the element at the pointer path.
func removeValue(doc any, path string) (any, error) {
	tokens, err := splitPointer(path)
	if err != nil {
		return nil, &state.PatchConflictError{Path: path, Reason: err.Error()}
	}
	if len(tokens) == 0 {
		return nil, &state.PatchConflictError{Path: path, Reason: "cannot remove the whole document"}
	}
	return removeAt(doc, tokens, path)
}

func removeAt(node any, tokens []string, fullPath string) (any, error) {
	tok := tokens[0]
	last := len(tokens) == 1

	switch typed := node.(type) {
	case map[string]any:
		if last {
			if _, ok := typed[tok]; !ok {
				return nil, &state.PatchConflictError{Path: fullPath, Reason: "path does not exist"}
			}
			delete(typed, tok)
			return typed, nil
		}
		child, ok := typed[tok]
		if !ok {
			return nil, &state.PatchConflictError{Path: fullPath, Reason: "parent path does not exist"}
		}
		newChild, err := removeAt(child, tokens[1:], fullPath)
		if err != nil {
			return nil, err
		}
		typed[tok] = newChild
		return typed, nil

	case []any:
		idx, err := arrayIndex(tok, len(typed), false)
		if err != nil {
			return nil, &state.PatchConflictError{Path: fullPath, Reason: err.Error()}
		}
		if last {
			return append(typed[:idx], typed[idx+1:]...), nil
		}
		newChild, err := removeAt(typed[idx], tokens[1:], fullPath)
		if err != nil {
			return nil, err
		}
		typed[idx] = newChild
		return typed, nil

	default:
		return nil, &state.PatchConflictError{Path: fullPath, Reason: "path traverses a scalar"}
	}
}

// arrayIndex parses an array reference token. allowEnd permits "-" and an
// index equal to the length (append position) per RFC 6902 add semantics.
func arrayIndex(tok string, length int, allowEnd bool) (int, error) {
	if tok == "-" {
		if !allowEnd {
			return 0, fmt.Errorf("index %q not allowed here", tok)
		}
		return length, nil
	}
	idx, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("invalid array index %q", tok)
	}
	limit := length
	if allowEnd {
		limit = length + 1
	}
	if idx < 0 || idx >= limit {
		return 0, fmt.Errorf("array index %d out of bounds (len %d)", idx, length)
	}
	return idx, nil
}
