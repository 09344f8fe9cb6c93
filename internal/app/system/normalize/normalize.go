// Package normalize canonicalizes user input before it is validated or stored.
package normalize

import (
	"strings"
	"unicode"
)

// Email trims and lowercases.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims and collapses inner whitespace, preserving case.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Phone keeps a leading '+' and digits only, so "+1 (555) 010-2000" and
// "+15550102000" compare equal.
func Phone(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for i, r := range s {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Department trims, collapses whitespace and title-cases the first letter of
// each word so "camera  dept" and "Camera Dept" share one budget line.
func Department(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// Category is normalized like Department.
func Category(s string) string {
	return Department(s)
}

// Currency trims and uppercases an ISO 4217 code.
func Currency(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// QueryParam trims whitespace, preserving case.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}
