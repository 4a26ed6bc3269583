package store

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Snapshot is an immutable view of a subtree value. Values follow JSON
// shapes: map[string]any for branches, string/float64/bool for leaves, nil
// for absent nodes.
type Snapshot struct {
	key   string
	value any
}

// NewSnapshot wraps a raw value. Key is the last path segment of the node.
func NewSnapshot(key string, value any) Snapshot {
	return Snapshot{key: key, value: value}
}

func (s Snapshot) Key() string { return s.key }

func (s Snapshot) Value() any { return s.value }

// Exists reports whether the node holds any value.
func (s Snapshot) Exists() bool { return s.value != nil }

// Child navigates one level down. Missing children yield a non-existent
// snapshot rather than an error, so chained navigation stays flat.
func (s Snapshot) Child(key string) Snapshot {
	branch, ok := s.value.(map[string]any)
	if !ok {
		return Snapshot{key: key}
	}
	return Snapshot{key: key, value: branch[key]}
}

// Children returns the direct children sorted by key.
func (s Snapshot) Children() []Snapshot {
	branch, ok := s.value.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(branch))
	for k := range branch {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	children := make([]Snapshot, 0, len(keys))
	for _, k := range keys {
		children = append(children, Snapshot{key: k, value: branch[k]})
	}
	return children
}

// Text returns the node's string value, or "" for anything else.
func (s Snapshot) Text() string {
	str, _ := s.value.(string)
	return str
}

// Int64 returns the node's numeric value. JSON decoding produces float64,
// but values written in-process may still be integers.
func (s Snapshot) Int64() int64 {
	switch v := s.value.(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	default:
		return 0
	}
}

// Decode maps the node value onto out via its JSON tags, then validates the
// result. Records that fail decoding or validation are malformed by the
// store's standards and callers skip them.
func (s Snapshot) Decode(out any) error {
	raw, err := json.Marshal(s.value)
	if err != nil {
		return fmt.Errorf("encode snapshot %q: %w", s.key, err)
	}
	if err = json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode snapshot %q: %w", s.key, err)
	}
	if err = validate.Struct(out); err != nil {
		return fmt.Errorf("invalid record %q: %w", s.key, err)
	}
	return nil
}
