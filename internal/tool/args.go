// SPDX-License-Identifier: Apache-2.0

package tool

import "fmt"

// Args holds decoded tool arguments. JSON transports decode numbers as
// float64, so the integer accessors accept both forms.
type Args map[string]any

// String returns the named argument, failing if absent or not a string.
func (a Args) String(key string) (string, error) {
	v, ok := a[key]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string", key)
	}
	return s, nil
}

// StringOr returns the named argument or def when absent.
func (a Args) StringOr(key, def string) string {
	if s, ok := a[key].(string); ok {
		return s
	}
	return def
}

// Int returns the named argument as an int, failing if absent.
func (a Args) Int(key string) (int, error) {
	v, ok := a[key]
	if !ok {
		return 0, fmt.Errorf("missing required argument %q", key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("argument %q must be a number", key)
	}
}

// IntOr returns the named argument or def when absent.
func (a Args) IntOr(key string, def int) int {
	n, err := a.Int(key)
	if err != nil {
		return def
	}
	return n
}

// BoolOr returns the named argument or def when absent.
func (a Args) BoolOr(key string, def bool) bool {
	if b, ok := a[key].(bool); ok {
		return b
	}
	return def
}

// MapOr returns the named argument as a nested object or nil when absent.
func (a Args) MapOr(key string) map[string]any {
	if m, ok := a[key].(map[string]any); ok {
		return m
	}
	return nil
}
