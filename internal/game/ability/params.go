package ability

import (
	"fmt"
	"math"
)

// Params holds the free-form parameters of a feature spec as decoded from YAML.
type Params map[string]any

// Int returns the integer parameter key, or def when absent.
func (p Params) Int(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("param %s: %v is not an integer", key, n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("param %s: want integer, got %T", key, v)
	}
}

// String returns the string parameter key, or def when absent.
func (p Params) String(key, def string) (string, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("param %s: want string, got %T", key, v)
	}
	return s, nil
}

// Bool returns the boolean parameter key, or def when absent.
func (p Params) Bool(key string, def bool) (bool, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("param %s: want bool, got %T", key, v)
	}
	return b, nil
}

// Strings returns the string list parameter key, or def when absent.
func (p Params) Strings(key string, def []string) ([]string, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	switch list := v.(type) {
	case []string:
		return list, nil
	case []any:
		out := make([]string, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("param %s[%d]: want string, got %T", key, i, item)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("param %s: want list, got %T", key, v)
	}
}
