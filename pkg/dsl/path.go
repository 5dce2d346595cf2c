package dsl

import (
	"fmt"
	"strings"
)

func splitPath(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("empty path")
	}
	parts := strings.Split(path, ".")
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("path %q has an empty segment", path)
		}
	}
	return parts, nil
}

// setPath writes value at a dotted path, creating intermediate maps.
func setPath(facts Facts, path string, value any) error {
	parts, err := splitPath(path)
	if err != nil {
		return err
	}

	current := facts
	for i, key := range parts[:len(parts)-1] {
		next, ok := current[key]
		if !ok || next == nil {
			child := map[string]any{}
			current[key] = child
			current = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("cannot set %q: %q is %T, not an object", path, strings.Join(parts[:i+1], "."), next)
		}
		current = child
	}

	current[parts[len(parts)-1]] = value
	return nil
}

// unsetPath removes the value at a dotted path. Missing paths are ignored.
func unsetPath(facts Facts, path string) error {
	parts, err := splitPath(path)
	if err != nil {
		return err
	}

	current := facts
	for _, key := range parts[:len(parts)-1] {
		child, ok := current[key].(map[string]any)
		if !ok {
			return nil
		}
		current = child
	}

	delete(current, parts[len(parts)-1])
	return nil
}

// Lookup reads the value at a dotted path of facts.
func Lookup(facts Facts, path string) (any, bool) {
	parts, err := splitPath(path)
	if err != nil {
		return nil, false
	}

	var current any = facts
	for _, key := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// cloneValue deep-copies maps and slices so literal values are never shared
// between passes.
func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
