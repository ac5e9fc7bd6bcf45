package nav

import (
	"maps"
	"slices"
)

// Table says which attributes of which elements are worth landing on, which containers to skip over,
// and which start-tags end backward motion out of character data.
// A Table is read-only once built; use Extend to derive a modified copy.
type Table struct {
	attrs map[string][]string
	skip  map[string]bool
	stops map[string]bool
}

var defaultInterest = map[string][]string{
	// transfer rules
	"clip":         {"part", "side", "link-to"},
	"lit-tag":      {"v"},
	"lit":          {"v"},
	"with-param":   {"pos"},
	"call-macro":   {"n"},
	"def-macro":    {"n", "npar"},
	"cat-item":     {"lemma", "tags", "name"},
	"attr-item":    {"tags"},
	"list-item":    {"v"},
	"list":         {"n"},
	"def-attr":     {"n"},
	"def-cat":      {"n"},
	"def-list":     {"n"},
	"def-var":      {"n", "v"},
	"pattern-item": {"n"},
	"chunk":        {"name", "namefrom", "case"},
	"var":          {"n"},
	// dix
	"e":       {"lm", "r", "c", "i", "slr", "srl", "alt", "v", "vl", "vr"},
	"par":     {"n"},
	"section": {"id", "type"},
	"pardef":  {"n"},
	"s":       {"n"},
	"sdef":    {"n", "c"},
	// lrx
	"match":  {"lemma", "tags"},
	"select": {"lemma", "tags"},
	"remove": {"lemma", "tags"},
	"rule":   {"weight"},
	"repeat": {"from", "upto"},
}

var defaultSkip = []string{
	"dictionary", "alphabet", "sdefs", "pardefs", "lr", "p", "e", "tags", "chunk", "tag", "pattern",
	"rule", "action", "out", "b", "def-macro", "choose", "when", "test", "equal", "and", "or", "not",
	"otherwise", "let", "section", "concat", "append", "modify-case", "def-cat", "def-attr", "def-var",
	"def-list", "section-def-cats", "section-def-attrs", "section-def-vars", "section-def-lists",
	"section-def-macros", "section-rules",
}

// Content zones entered from behind when stepping backward.
var defaultStops = []string{"r", "l", "i"}

// DefaultTable returns the built-in table for dix, transfer and lexical-selection files.
func DefaultTable() *Table {
	return NewTable(defaultInterest, defaultSkip, defaultStops)
}

func NewTable(attrs map[string][]string, skip, stops []string) *Table {
	t := &Table{
		attrs: make(map[string][]string, len(attrs)),
		skip:  make(map[string]bool, len(skip)),
		stops: make(map[string]bool, len(stops)),
	}
	for name, list := range attrs {
		t.attrs[name] = slices.Clone(list)
	}
	for _, name := range skip {
		t.skip[name] = true
	}
	for _, name := range stops {
		t.stops[name] = true
	}
	return t
}

// Extend returns a copy of t where attrs replaces the attribute list of each element it names and
// skip is added to the skip set.
func (t *Table) Extend(attrs map[string][]string, skip []string) *Table {
	out := &Table{
		attrs: maps.Clone(t.attrs),
		skip:  maps.Clone(t.skip),
		stops: maps.Clone(t.stops),
	}
	for name, list := range attrs {
		if len(list) == 0 {
			delete(out.attrs, name)
			continue
		}
		out.attrs[name] = slices.Clone(list)
	}
	for _, name := range skip {
		out.skip[name] = true
	}
	return out
}

func (t *Table) Attributes(name string) []string {
	return t.attrs[name]
}

// Interesting reports whether name has a non-empty attribute list.
func (t *Table) Interesting(name string) bool {
	return len(t.attrs[name]) > 0
}

func (t *Table) Skips(name string) bool {
	return t.skip[name]
}

func (t *Table) Stops(name string) bool {
	return t.stops[name]
}
