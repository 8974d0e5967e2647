// Package delta computes and applies RFC 6902-shaped patches between game
// state snapshots. Deltas are deterministic: identical (old, new) pairs
// always yield byte-identical patches.
package delta

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/openduel/sync-server-go/internal/state"
)

// Op codes form the closed RFC 6902 vocabulary.
const (
	OpAdd     = "add"
	OpRemove  = "remove"
	OpReplace = "replace"
	OpMove    = "move"
	OpCopy    = "copy"
	OpTest    = "test"
)

// Op is a single patch operation addressed by a JSON Pointer path.
type Op struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	From  string `json:"from,omitempty"`
	Value any    `json:"value,omitempty"`
}

// Delta is an ordered list of operations sufficient to transform one
// snapshot into another when applied in order.
type Delta []Op

// Create computes the delta that transforms oldState into newState.
func Create(oldState, newState *state.TCGGameState) (Delta, error) {
	oldTree, err := toTree(oldState)
	if err != nil {
		return nil, err
	}
	newTree, err := toTree(newState)
	if err != nil {
		return nil, err
	}

	var ops Delta
	diff("", oldTree, newTree, &ops)
	if ops == nil {
		ops = Delta{}
	}
	return ops, nil
}

// toTree converts a state into its canonical JSON tree form
// (map[string]any / []any / float64 / string / bool / nil).
func toTree(s *state.TCGGameState) (any, error) {
	b, err := s.CanonicalJSON()
	if err != nil {
		return nil, err
	}
	var tree any
	if err := json.Unmarshal(b, &tree); err != nil {
		return nil, fmt.Errorf("failed to parse canonical state: %w", err)
	}
	return tree, nil
}

// diff appends the operations that turn oldVal into newVal at path.
// Map keys are visited in sorted order and array tails are removed
// highest-index-first so the emitted patch is deterministic and every
// path stays valid as the patch is applied in order.
func diff(path string, oldVal, newVal any, ops *Delta) {
	if reflect.DeepEqual(oldVal, newVal) {
		return
	}

	switch oldTyped := oldVal.(type) {
	case map[string]any:
		newTyped, ok := newVal.(map[string]any)
		if !ok {
			*ops = append(*ops, Op{Op: OpReplace, Path: path, Value: newVal})
			return
		}
		keys := make([]string, 0, len(oldTyped)+len(newTyped))
		for k := range oldTyped {
			keys = append(keys, k)
		}
		for k := range newTyped {
			if _, seen := oldTyped[k]; !seen {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			childPath := path + "/" + escapePointer(k)
			oldChild, inOld := oldTyped[k]
			newChild, inNew := newTyped[k]
			switch {
			case inOld && !inNew:
				*ops = append(*ops, Op{Op: OpRemove, Path: childPath})
			case !inOld && inNew:
				*ops = append(*ops, Op{Op: OpAdd, Path: childPath, Value: newChild})
			default:
				diff(childPath, oldChild, newChild, ops)
			}
		}

	case []any:
		newTyped, ok := newVal.([]any)
		if !ok {
			*ops = append(*ops, Op{Op: OpReplace, Path: path, Value: newVal})
			return
		}
		common := len(oldTyped)
		if len(newTyped) < common {
			common = len(newTyped)
		}
		for i := 0; i < common; i++ {
			diff(fmt.Sprintf("%s/%d", path, i), oldTyped[i], newTyped[i], ops)
		}
		for i := common; i < len(newTyped); i++ {
			*ops = append(*ops, Op{Op: OpAdd, Path: fmt.Sprintf("%s/%d", path, i), Value: newTyped[i]})
		}
		for i := len(oldTyped) - 1; i >= common; i-- {
			*ops = append(*ops, Op{Op: OpRemove, Path: fmt.Sprintf("%s/%d", path, i)})
		}

	default:
		*ops = append(*ops, Op{Op: OpReplace, Path: path, Value: newVal})
	}
}

// Merge folds a sequence of deltas into one equivalent patch for batched
// transmission. The base strategy is concatenation, which composes by
// construction; adjacent replace operations on the identical path are
// squashed since only the later one can be observed.
func Merge(deltas []Delta) Delta {
	merged := Delta{}
	for _, d := range deltas {
		for _, op := range d {
			if op.Op == OpReplace && len(merged) > 0 {
				last := &merged[len(merged)-1]
				if last.Op == OpReplace && last.Path == op.Path {
					last.Value = op.Value
					continue
				}
			}
			merged = append(merged, op)
		}
	}
	return merged
}

// CompressionRatio reports 1 - size(delta)/size(newState) over canonical
// JSON byte sizes. The transport collaborator, not this package, decides
// between delta and full-state transmission.
func CompressionRatio(newState *state.TCGGameState, d Delta) (float64, error) {
	stateBytes, err := newState.CanonicalJSON()
	if err != nil {
		return 0, err
	}
	deltaBytes, err := json.Marshal(d)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize delta: %w", err)
	}
	if len(stateBytes) == 0 {
		return 0, nil
	}
	return 1 - float64(len(deltaBytes))/float64(len(stateBytes)), nil
}

// escapePointer escapes a JSON Pointer reference token per RFC 6901.
func escapePointer(token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	return strings.ReplaceAll(token, "/", "~1")
}

// unescapePointer reverses escapePointer.
func unescapePointer(token string) string {
	token = strings.ReplaceAll(token, "~1", "/")
	return strings.ReplaceAll(token, "~0", "~")
}

// splitPointer splits a JSON Pointer into unescaped reference tokens.
func splitPointer(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("invalid JSON pointer %q", path)
	}
	raw := strings.Split(path[1:], "/")
	tokens := make([]string, len(raw))
	for i, t := range raw {
		tokens[i] = unescapePointer(t)
	}
	return tokens, nil
}
