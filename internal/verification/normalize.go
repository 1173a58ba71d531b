package verification

import (
	"strings"
	"unicode"
)

// NormalizeName uppercases s, drops everything that is not a letter or
// whitespace, and collapses whitespace runs to single spaces.
func NormalizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			b.WriteRune(unicode.ToUpper(r))
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// normalizeField compares free-text fields case- and whitespace-insensitively.
func normalizeField(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}
