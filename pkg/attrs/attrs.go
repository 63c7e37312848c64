// Package attrs reads values back out of slog-style key/value slices so that
// audit helpers can log and publish from the same attribute list.
package attrs

import "fmt"

// Extract returns the first value stored under key that has type T.
// The slice is formatted as [key1, value1, key2, value2, ...].
func Extract[T any](attrs []any, key string) (T, bool) {
	var zero T
	for i := 0; i < len(attrs)-1; i += 2 {
		k, ok := attrs[i].(string)
		if !ok || k != key {
			continue
		}
		if v, ok := attrs[i+1].(T); ok {
			return v, true
		}
	}
	return zero, false
}

// ExtractString returns the value under key as a string. Typed IDs and other
// fmt.Stringer values are rendered with String. Missing keys yield "".
func ExtractString(attrs []any, key string) string {
	for i := 0; i < len(attrs)-1; i += 2 {
		k, ok := attrs[i].(string)
		if !ok || k != key {
			continue
		}
		switch v := attrs[i+1].(type) {
		case string:
			return v
		case fmt.Stringer:
			return v.String()
		}
	}
	return ""
}
