package cplugin

import (
	"fmt"

	"cobble/cmd/cobble/env"
)

// stringListParam reads an optional []string-shaped parameter, defaulting
// to nil (treated as "no sources"/"no deps").
func stringListParam(params map[string]any, name string) ([]string, error) {
	raw, ok := params[name]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, len(v))
		for i, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("parameter %q: element %d is not a string: %#v", name, i, e)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("parameter %q: expected a list of strings, got %#v", name, raw)
	}
}

// deltaParam reads an optional map-shaped parameter as an env.MapDelta. A
// missing or nil parameter is "no change" (nil Delta).
func deltaParam(params map[string]any, name string) (env.Delta, error) {
	raw, ok := params[name]
	if !ok || raw == nil {
		return nil, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("parameter %q: expected a mapping, got %#v", name, raw)
	}
	return env.MapDelta(m), nil
}

// stringParam reads a required string parameter.
func stringParam(params map[string]any, name string) (string, error) {
	raw, ok := params[name]
	if !ok {
		return "", fmt.Errorf("missing required parameter %q", name)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q: expected a string, got %#v", name, raw)
	}
	return s, nil
}
