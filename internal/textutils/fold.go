// Package textutils normalizes free text for case- and accent-insensitive
// matching of names, activities and descriptions.
package textutils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s and strips combining marks, so "CAFÉ Católica" and
// "cafe catolica" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// ContainsAny reports whether the folded haystack contains any folded needle.
func ContainsAny(haystack string, needles ...string) bool {
	h := Fold(haystack)
	for _, n := range needles {
		if n != "" && strings.Contains(h, Fold(n)) {
			return true
		}
	}
	return false
}

// Snippet returns at most n runes of s, with "..." appended when cut.
func Snippet(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
