package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLineHelpers(t *testing.T) {
	s := "a\n  \tbc\nd"
	testCases := []struct {
		offset     int
		start, end int
		indent     string
	}{
		{0, 0, 1, ""},
		{1, 0, 1, ""},
		{2, 2, 7, "  \t"},
		{6, 2, 7, "  \t"},
		{8, 8, 9, ""},
		{-3, 0, 1, ""},
		{99, 8, 9, ""},
	}
	for _, tc := range testCases {
		if got := LineStart(s, tc.offset); got != tc.start {
			t.Errorf("LineStart(%d) = %d, want %d", tc.offset, got, tc.start)
		}
		if got := LineEnd(s, tc.offset); got != tc.end {
			t.Errorf("LineEnd(%d) = %d, want %d", tc.offset, got, tc.end)
		}
		if got := LineIndentation(s, tc.offset); got != tc.indent {
			t.Errorf("LineIndentation(%d) = %q, want %q", tc.offset, got, tc.indent)
		}
	}
}

func TestIsValidWord(t *testing.T) {
	testCases := []struct {
		word string
		want bool
	}{
		{"gruppe", true},
		{"take out", true},
		{"øy-gruppe", true},
		{"", false},
		{"1234", false},
		{"a<b", false},
		{`say "hi"`, false},
		{" lead", false},
		{"two  spaces", false},
		{"tab\there", false},
	}
	for _, tc := range testCases {
		if got := IsValidWord(tc.word); got != tc.want {
			t.Errorf("IsValidWord(%q) = %v, want %v", tc.word, got, tc.want)
		}
	}
}

func TestReadTextFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.dix")
	if err := os.WriteFile(path, []byte("\xEF\xBB\xBF<dictionary/>"), 0644); err != nil {
		t.Fatal(err)
	}

	text, err := ReadTextFile(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if text != "<dictionary/>" {
		t.Errorf("text = %q, BOM not stripped", text)
	}

	if _, err := ReadTextFile(path, 4); err == nil {
		t.Error("expected size limit error")
	}
	if _, err := ReadTextFile(dir, 0); err == nil {
		t.Error("expected directory error")
	}
}

func TestTOMLRecoveryHelpers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.toml")
	data := "[nav]\nmax_steps = 12\nbarrier = \"section\"\n[interest]\nskip = [\"a\", \"b\"]\nbad = [1, \"x\"]\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	parsed, err := ParseTOMLWithRecovery(path)
	if err != nil {
		t.Fatal(err)
	}
	nav, ok := ExtractSection(parsed, "nav")
	if !ok {
		t.Fatal("no nav section")
	}
	if v, ok := ExtractInt64(nav, "max_steps"); !ok || v != 12 {
		t.Errorf("max_steps = %d, %v", v, ok)
	}
	if v, ok := ExtractString(nav, "barrier"); !ok || v != "section" {
		t.Errorf("barrier = %q, %v", v, ok)
	}
	interest, _ := ExtractSection(parsed, "interest")
	if v, ok := ExtractStringSlice(interest, "skip"); !ok || len(v) != 2 || v[1] != "b" {
		t.Errorf("skip = %v, %v", v, ok)
	}
	if _, ok := ExtractStringSlice(interest, "bad"); ok {
		t.Error("mixed array should not extract")
	}
}
