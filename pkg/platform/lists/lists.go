// Package lists cleans comma separated configuration values.
package lists

import "strings"

// Clean trims each value and drops blanks and repeats, keeping first-seen
// order. A list that cleans to nothing is returned as nil.
func Clean(values []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
