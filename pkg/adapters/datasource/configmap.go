package datasource

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ConfigMap is a decoded connection config. JSON bodies decode numbers as
// float64 and YAML bodies as int, so every accessor accepts both.
type ConfigMap map[string]any

// String returns the first non-empty string stored under any of keys.
// Later keys are aliases for the first.
func (m ConfigMap) String(keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// Int returns the integer stored under key, or def when the key is absent.
func (m ConfigMap) Int(key string, def int) (int, error) {
	switch v := m[key].(type) {
	case nil:
		return def, nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%s must be a whole number", key)
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%s must be a number", key)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be a number", key)
	}
}

// Bool returns the boolean stored under key, or def when the key is absent.
// Strings accepted by strconv.ParseBool are converted.
func (m ConfigMap) Bool(key string, def bool) (bool, error) {
	switch v := m[key].(type) {
	case nil:
		return def, nil
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("%s must be true or false", key)
		}
		return b, nil
	default:
		return false, fmt.Errorf("%s must be true or false", key)
	}
}

// Strings returns the list stored under key. A comma-separated string is
// split. Blank entries are dropped.
func (m ConfigMap) Strings(key string) []string {
	var raw []string
	switch v := m[key].(type) {
	case []string:
		raw = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	case string:
		raw = strings.Split(v, ",")
	}

	var out []string
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
