package utils

import (
	"strings"
	"unicode"
)

// IsOnlyNumbers checks if a string consists entirely of numeric digits
func IsOnlyNumbers(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// ContainsMarkup checks for characters that would break out of an attribute value or text node.
func ContainsMarkup(s string) bool {
	return strings.ContainsAny(s, `<>&"`)
}

// IsValidWord checks if a word can be looked up as a new lemma. Multiword lemmas are allowed but
// not with leading, trailing or doubled spaces.
func IsValidWord(s string) bool {
	if s == "" || IsOnlyNumbers(s) || ContainsMarkup(s) {
		return false
	}
	if strings.TrimSpace(s) != s || strings.Contains(s, "  ") {
		return false
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}
