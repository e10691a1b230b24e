package form

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var ErrInvalidPath = errors.New("invalid field path")

// GetPath reads a dot-separated path out of a decoded JSON tree. Numeric
// segments index into arrays.
func GetPath(root map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	var cur any = root
	for _, key := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[key]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// SetPath overwrites the value at an existing path. It never creates keys,
// so only fields the document already has can be written.
func SetPath(root map[string]any, path string, value any) error {
	if path == "" {
		return ErrInvalidPath
	}
	keys := strings.Split(path, ".")
	var cur any = root
	for i, key := range keys {
		last := i == len(keys)-1
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[key]
			if !ok {
				return fmt.Errorf("%w: %s", ErrInvalidPath, path)
			}
			if last {
				node[key] = value
				return nil
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(node) {
				return fmt.Errorf("%w: %s", ErrInvalidPath, path)
			}
			if last {
				node[idx] = value
				return nil
			}
			cur = node[idx]
		default:
			return fmt.Errorf("%w: %s", ErrInvalidPath, path)
		}
	}
	return nil
}

// Get returns the value at path as decoded JSON.
func (f FormData) Get(path string) (any, error) {
	m, err := f.ToMap()
	if err != nil {
		return nil, err
	}
	v, ok := GetPath(m, path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}
	return v, nil
}

// Set returns a copy of f with value written at path.
func (f FormData) Set(path string, value any) (FormData, error) {
	m, err := f.ToMap()
	if err != nil {
		return f, err
	}
	if err := SetPath(m, path, value); err != nil {
		return f, err
	}
	return FromMap(m)
}

// ToMap converts f to its JSON tree.
func (f FormData) ToMap() (map[string]any, error) {
	if f.Style.Tone == nil {
		f.Style.Tone = []string{}
	}
	if f.TimeAxis == nil {
		f.TimeAxis = []TimeSegment{}
	}
	return toMap(f)
}

func FromMap(m map[string]any) (FormData, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return FormData{}, err
	}
	var f FormData
	if err := json.Unmarshal(raw, &f); err != nil {
		return FormData{}, fmt.Errorf("decode form data: %w", err)
	}
	if f.Style.Tone == nil {
		f.Style.Tone = []string{}
	}
	return f, nil
}

func toMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// walkLeaves visits every non-map value in key order. Arrays are leaves.
func walkLeaves(m map[string]any, prefix string, fn func(path string, v any)) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		path := joinPath(prefix, k)
		if child, ok := m[k].(map[string]any); ok {
			walkLeaves(child, path, fn)
			continue
		}
		fn(path, m[k])
	}
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func hasPathPrefix(path, prefix string) bool {
	return strings.HasPrefix(path, prefix+".")
}
