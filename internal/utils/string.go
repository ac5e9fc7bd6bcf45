package utils

import "strings"

// LineStart returns the offset of the first byte of the line containing offset.
func LineStart(s string, offset int) int {
	offset = min(max(offset, 0), len(s))
	return strings.LastIndexByte(s[:offset], '\n') + 1
}

// LineEnd returns the offset of the newline ending the line containing offset, or len(s).
func LineEnd(s string, offset int) int {
	offset = min(max(offset, 0), len(s))
	if i := strings.IndexByte(s[offset:], '\n'); i >= 0 {
		return offset + i
	}
	return len(s)
}

// Indentation returns the leading spaces and tabs of s.
func Indentation(s string) string {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return s[:i]
}

// LineIndentation returns the indentation of the line containing offset.
func LineIndentation(s string, offset int) string {
	return Indentation(s[LineStart(s, offset):])
}
