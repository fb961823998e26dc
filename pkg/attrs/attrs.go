// Package attrs reads well-known keys back out of slog-style attribute lists,
// so one list can feed both a log line and a structured event.
package attrs

import "fmt"

// Set is a flat key/value list as passed to slog: key1, value1, key2, value2.
// A trailing key without a value is ignored.
type Set []any

// Lookup returns the value stored under key, rendered as a string. When a key
// repeats the last value wins. Strings and fmt.Stringer values are accepted;
// any other value type counts as absent.
func (s Set) Lookup(key string) (string, bool) {
	var (
		found string
		ok    bool
	)
	for i := 0; i+1 < len(s); i += 2 {
		if k, isKey := s[i].(string); !isKey || k != key {
			continue
		}
		switch v := s[i+1].(type) {
		case string:
			found, ok = v, true
		case fmt.Stringer:
			found, ok = v.String(), true
		}
	}
	return found, ok
}

// String is Lookup without the presence flag.
func (s Set) String(key string) string {
	v, _ := s.Lookup(key)
	return v
}

// With returns a copy of the set with key and value appended.
func (s Set) With(key string, value any) Set {
	out := make(Set, len(s), len(s)+2)
	copy(out, s)
	return append(out, key, value)
}
