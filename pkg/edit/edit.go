// Package edit computes editing operations on dictionary buffers: restriction cycling, entry copies,
// guessed entries and pardef sorting.
//
// Nothing here mutates a buffer. Every operation returns a single Edit that the caller applies, so a
// failing operation leaves the buffer exactly as it was.
package edit

import (
	"fmt"

	"github.com/bastiangx/dixserve/pkg/nav"
	"github.com/bastiangx/dixserve/pkg/xmlscan"
)

// Edit replaces text[Start:End] with Text. Point is where the cursor belongs afterwards, as an offset
// into the edited text.
type Edit struct {
	Start int    `msgpack:"start" json:"start"`
	End   int    `msgpack:"end" json:"end"`
	Text  string `msgpack:"text" json:"text"`
	Point int    `msgpack:"point" json:"point"`
}

// Apply returns text with the edit applied.
func (e Edit) Apply(text string) (string, error) {
	if e.Start < 0 || e.End < e.Start || e.End > len(text) {
		return "", fmt.Errorf("edit [%d,%d) outside text of length %d", e.Start, e.End, len(text))
	}
	return text[:e.Start] + e.Text + text[e.End:], nil
}

// Shift maps an offset in the original text to the edited text. Offsets inside the replaced range
// move to its start.
func (e Edit) Shift(pos int) int {
	switch {
	case pos <= e.Start:
		return pos
	case pos >= e.End:
		return pos + len(e.Text) - (e.End - e.Start)
	default:
		return e.Start
	}
}

// element finds the enclosing element called name and returns its start-tag and end offset.
func element(cur xmlscan.Cursor, offset int, name string, b nav.Bound) (xmlscan.Token, int, error) {
	res, err := nav.FindEnclosing(cur, offset, name, b)
	if err != nil {
		return xmlscan.Token{}, 0, err
	}
	if err := res.Err(); err != nil {
		return xmlscan.Token{}, 0, fmt.Errorf("no enclosing <%s>: %w", name, err)
	}
	tok, err := cur.TokenAfter(res.Offset)
	if err != nil {
		return xmlscan.Token{}, 0, err
	}
	end, err := cur.ScanElementForward(res.Offset)
	if err != nil {
		return xmlscan.Token{}, 0, err
	}
	return tok, end, nil
}

// setAttr returns elem, the text of the element opened by tok, with attribute name set to value.
// A missing attribute is added right after the element name.
func setAttr(elem string, tok xmlscan.Token, name, value string) string {
	base := tok.Start
	if a, ok := tok.Attr(name); ok {
		return elem[:a.ValueStart-base] + value + elem[a.ValueEnd-base:]
	}
	at := 1 + len(tok.Name)
	return elem[:at] + " " + name + `="` + value + `"` + elem[at:]
}
