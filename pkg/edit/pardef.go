package edit

import (
	"regexp"
	"slices"
	"strings"

	"github.com/bastiangx/dixserve/pkg/nav"
	"github.com/bastiangx/dixserve/pkg/xmlscan"
)

var (
	pardefRe = regexp.MustCompile(`(?s)<pardef\s+n="([^"]*)"[^>/]*>(.*?)</pardef>`)
	pairRe   = regexp.MustCompile(`(?s)<p>(.*?)</p>`)
	leftRe   = regexp.MustCompile(`(?s)<l>(.*?)</l>|<l\s*/>`)
	rightRe  = regexp.MustCompile(`(?s)<r>(.*?)</r>|<r\s*/>`)
	blankRe  = regexp.MustCompile(`<b\s*/>`)
	entryRe  = regexp.MustCompile(`(?s)<e(\s[^>]*)?>(.*?)</e>`)
	partRe   = regexp.MustCompile(`(?s)<p>(.*?)</p>|<i>(.*?)</i>|<par\s+n="([^"]*)"`)
)

// SortedSuffixList returns the <l> contents of a pardef in sorted order, <b/> read as a space.
// An empty <l/> gives "". Duplicates are kept.
func SortedSuffixList(pardef string) []string {
	ms := leftRe.FindAllStringSubmatch(pardef, -1)
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, blankRe.ReplaceAllString(m[1], " "))
	}
	slices.Sort(out)
	return out
}

// DuplicateGroup is a set of pardefs of one paradigm type with the same suffixes and analyses.
type DuplicateGroup struct {
	PType string   `msgpack:"ptype" json:"ptype"`
	Names []string `msgpack:"names" json:"names"`
}

// FindDuplicatePardefs groups the pardefs of text whose entries are identical, ignoring entry order and
// whitespace between tags. An entry is compared on its attributes and its <p>, <i> and <par> parts.
// Only groups of two or more are returned, in order of first appearance.
func FindDuplicatePardefs(text string) []DuplicateGroup {
	var order []string
	groups := make(map[string]*DuplicateGroup)

	for _, m := range pardefRe.FindAllStringSubmatch(text, -1) {
		name, body := m[1], m[2]
		ptype := ""
		if i := strings.LastIndex(name, "__"); i >= 0 {
			ptype = name[i+2:]
		}
		key := ptype + "\x00" + strings.Join(entryList(body), "\x00")
		g, ok := groups[key]
		if !ok {
			g = &DuplicateGroup{PType: ptype}
			groups[key] = g
			order = append(order, key)
		}
		g.Names = append(g.Names, name)
	}

	var out []DuplicateGroup
	for _, key := range order {
		if g := groups[key]; len(g.Names) > 1 {
			out = append(out, *g)
		}
	}
	return out
}

// entryList returns one signature per <e> of a pardef body, sorted.
func entryList(body string) []string {
	var entries []string
	for _, e := range entryRe.FindAllStringSubmatch(body, -1) {
		parts := []string{strings.Join(strings.Fields(e[1]), " ")}
		for _, m := range partRe.FindAllStringSubmatch(e[2], -1) {
			switch {
			case strings.HasPrefix(m[0], "<p>"):
				parts = append(parts, "p:"+firstGroup(leftRe, m[1])+"\t"+firstGroup(rightRe, m[1]))
			case strings.HasPrefix(m[0], "<i>"):
				parts = append(parts, "i:"+blankRe.ReplaceAllString(m[2], " "))
			default:
				parts = append(parts, "par:"+m[3])
			}
		}
		entries = append(entries, strings.Join(parts, "\x01"))
	}
	slices.Sort(entries)
	return entries
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return blankRe.ReplaceAllString(m[1], " ")
}

// EnclosingPardef returns the name and full text of the pardef around offset.
func EnclosingPardef(cur xmlscan.Cursor, offset int, b nav.Bound) (string, string, error) {
	tok, end, err := element(cur, offset, "pardef", b.WithBarrier("pardefs"))
	if err != nil {
		return "", "", err
	}
	name := ""
	if a, ok := tok.Attr("n"); ok {
		name = cur.Text(a.ValueStart, a.ValueEnd)
	}
	return name, cur.Text(tok.Start, end), nil
}

type span struct {
	start, end int
	key        string
}

// SortPardefEntries sorts the <e> children of the pardef around offset by their <r> content. The sort
// is stable and entries are put back into the existing slots, so comments and line breaks between
// them stay where they were.
func SortPardefEntries(cur xmlscan.Cursor, offset int, b nav.Bound) (Edit, error) {
	tok, end, err := element(cur, offset, "pardef", b.WithBarrier("pardefs"))
	if err != nil {
		return Edit{}, err
	}
	if tok.Kind == xmlscan.KindEmptyElement {
		return Edit{Start: offset, End: offset, Point: offset}, nil
	}

	closeStart := tok.Start + strings.LastIndex(cur.Text(tok.Start, end), "</")
	var entries []span
	for p := tok.End; p < closeStart; {
		t, err := cur.TokenAfter(p)
		if err != nil {
			return Edit{}, err
		}
		if t.Kind == xmlscan.KindStartTag && t.Name == "e" {
			eEnd, err := cur.ScanElementForward(t.Start)
			if err != nil {
				return Edit{}, err
			}
			entries = append(entries, span{start: t.Start, end: eEnd, key: firstGroup(rightRe, cur.Text(t.Start, eEnd))})
			p = eEnd
			continue
		}
		p = t.End
	}
	if len(entries) < 2 {
		return Edit{Start: offset, End: offset, Point: offset}, nil
	}

	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b span) int {
		return strings.Compare(a.key, b.key)
	})

	first, last := entries[0].start, entries[len(entries)-1].end
	var sb strings.Builder
	prev := first
	for i, slot := range entries {
		sb.WriteString(cur.Text(prev, slot.start))
		sb.WriteString(cur.Text(sorted[i].start, sorted[i].end))
		prev = slot.end
	}
	e := Edit{Start: first, End: last, Text: sb.String()}
	e.Point = e.Shift(offset)
	return e, nil
}
