// Package strings provides helpers for list-valued configuration.
package strings

import "strings"

// CleanList trims each value and drops empties and repeats, keeping the
// first-seen order. Comma-separated environment values arrive with stray
// spaces, so config lists go through here.
func CleanList(values []string) []string {
	return cleanList(values, strings.TrimSpace)
}

// CleanFoldedList is CleanList for case-insensitive values such as MIME types.
func CleanFoldedList(values []string) []string {
	return cleanList(values, func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	})
}

func cleanList(values []string, norm func(string) string) []string {
	if values == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = norm(v)
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
