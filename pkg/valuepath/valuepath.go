// Package valuepath reads and writes nested values inside a draft object using
// dotted paths such as "real_estates.0.address.postal_code".
//
// Map nodes treat every segment as a key. Slice nodes ([]any) accept numeric
// segments only. Missing intermediate nodes are created on write: a numeric
// segment creates a slice, anything else creates a map.
package valuepath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-hitasforms/pkg/model"
)

var (
	// ErrNilRoot is returned when writing into a nil draft.
	ErrNilRoot = errors.New("valuepath: root map is nil")
	// ErrEmptyPath is returned when writing with an empty path.
	ErrEmptyPath = errors.New("valuepath: path is empty")
	// ErrIndexRange is returned when a numeric segment exceeds
	// model.MaxPathIndex.
	ErrIndexRange = errors.New("valuepath: list index out of range")
)

// Split breaks a dotted path into trimmed segments. Empty input yields nil.
func Split(path string) []string {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	parts := strings.Split(path, ".")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}

// Join concatenates path segments, skipping empty ones.
func Join(segments ...string) string {
	out := make([]string, 0, len(segments))
	for _, segment := range segments {
		if trimmed := strings.Trim(strings.TrimSpace(segment), "."); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, ".")
}

// Get resolves path inside root. It never fails: a missing node, an index out
// of range, or a scalar in the middle of the path all report (nil, false).
func Get(root map[string]any, path string) (any, bool) {
	segments := Split(path)
	if root == nil || len(segments) == 0 {
		return nil, false
	}
	var current any = root
	for _, segment := range segments {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case model.Entity:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, ok := parseIndex(segment)
			if !ok || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// Lookup is Get without the presence flag.
func Lookup(root map[string]any, path string) any {
	value, _ := Get(root, path)
	return value
}

// Set writes value at path, creating intermediate containers when absent.
// Scalars found in the middle of the path are replaced by containers, and a
// list met by a non-numeric segment becomes a map keyed by its indexes.
func Set(root map[string]any, path string, value any) error {
	if root == nil {
		return ErrNilRoot
	}
	segments := Split(path)
	if len(segments) == 0 {
		return ErrEmptyPath
	}
	for _, segment := range segments {
		if segment == "" {
			return fmt.Errorf("valuepath: empty segment in path %q", path)
		}
	}

	head := segments[0]
	if len(segments) == 1 {
		root[head] = value
		return nil
	}
	child, err := setIn(root[head], segments[1:], value)
	if err != nil {
		return fmt.Errorf("valuepath: set %q: %w", path, err)
	}
	root[head] = child
	return nil
}

// Apply runs the supplied changes against root in order. It is the reducer
// forms use to fold widget output into their draft.
func Apply(root map[string]any, changes ...model.FieldChange) error {
	for _, change := range changes {
		if err := Set(root, change.Path, change.Value); err != nil {
			return err
		}
	}
	return nil
}

func setIn(node any, segments []string, value any) (any, error) {
	segment := segments[0]
	rest := segments[1:]

	switch typed := node.(type) {
	case map[string]any:
		return setInMap(typed, segment, rest, value)
	case model.Entity:
		return setInMap(map[string]any(typed), segment, rest, value)
	case []any:
		idx, ok := parseIndex(segment)
		if !ok {
			return setInMap(indexMap(typed), segment, rest, value)
		}
		return setInSlice(typed, idx, rest, value)
	}

	// absent or scalar node: create the container the segment asks for
	if idx, ok := parseIndex(segment); ok {
		return setInSlice(nil, idx, rest, value)
	}
	return setInMap(make(map[string]any), segment, rest, value)
}

func setInMap(node map[string]any, key string, rest []string, value any) (any, error) {
	if len(rest) == 0 {
		node[key] = value
		return node, nil
	}
	child, err := setIn(node[key], rest, value)
	if err != nil {
		return nil, err
	}
	node[key] = child
	return node, nil
}

func setInSlice(node []any, idx int, rest []string, value any) (any, error) {
	if idx > model.MaxPathIndex {
		return nil, fmt.Errorf("%w: %d", ErrIndexRange, idx)
	}
	if len(node) <= idx {
		node = append(node, make([]any, idx+1-len(node))...)
	}
	if len(rest) == 0 {
		node[idx] = value
		return node, nil
	}
	child, err := setIn(node[idx], rest, value)
	if err != nil {
		return nil, err
	}
	node[idx] = child
	return node, nil
}

// indexMap keeps list items reachable under their index keys.
func indexMap(list []any) map[string]any {
	out := make(map[string]any, len(list))
	for idx, item := range list {
		out[strconv.Itoa(idx)] = item
	}
	return out
}

func parseIndex(segment string) (int, bool) {
	if segment == "" {
		return 0, false
	}
	for _, r := range segment {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	idx, err := strconv.Atoi(segment)
	if err != nil {
		return 0, false
	}
	return idx, true
}

// Clone deep-copies maps and slices so a draft can be handed out without
// sharing nested containers.
func Clone(src map[string]any) map[string]any {
	if src == nil {
		return make(map[string]any)
	}
	out := make(map[string]any, len(src))
	for key, value := range src {
		out[key] = deepCopy(value)
	}
	return out
}

func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		clone := make(map[string]any, len(typed))
		for k, v := range typed {
			clone[k] = deepCopy(v)
		}
		return clone
	case model.Entity:
		clone := make(model.Entity, len(typed))
		for k, v := range typed {
			clone[k] = deepCopy(v)
		}
		return clone
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = deepCopy(v)
		}
		return clone
	default:
		return typed
	}
}
