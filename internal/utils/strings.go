package utils

import (
	"strings"
)

// TrimOrEmpty normalizes user input without turning nil into "nil".
func TrimOrEmpty(s string) string {
	return strings.TrimSpace(s)
}

// NormalizeSpace collapses repeated whitespace into a single space.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeCity lowercases and collapses whitespace for route comparison.
func NormalizeCity(s string) string {
	return strings.ToLower(NormalizeSpace(s))
}

// CityMatches compares two city names case-insensitively. Either name may be a
// substring of the other ("Paris" matches "Paris CDG").
func CityMatches(a, b string) bool {
	a, b = NormalizeCity(a), NormalizeCity(b)
	if a == "" || b == "" {
		return false
	}
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}

// SplitList splits comma/semicolon/newline separated values into cleaned entries.
func SplitList(raw string) []string {
	out := []string{}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
