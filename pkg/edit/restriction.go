package edit

import (
	"fmt"
	"strings"

	"github.com/bastiangx/dixserve/internal/utils"
	"github.com/bastiangx/dixserve/pkg/nav"
	"github.com/bastiangx/dixserve/pkg/xmlscan"
)

// Direction is a translation restriction on a bidix entry.
type Direction string

const (
	LR Direction = "LR"
	RL Direction = "RL"
)

func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(s) {
	case "LR":
		return LR, nil
	case "RL":
		return RL, nil
	}
	return "", fmt.Errorf("unknown restriction %q", s)
}

func (d Direction) Opposite() Direction {
	if d == LR {
		return RL
	}
	return LR
}

// CycleRestriction moves the r attribute of the entry around offset through none, LR, RL and back
// to none. Entries are looked for inside the current section only.
func CycleRestriction(cur xmlscan.Cursor, offset int, b nav.Bound) (Edit, error) {
	tok, _, err := element(cur, offset, "e", b.WithBarrier("section"))
	if err != nil {
		return Edit{}, err
	}

	var e Edit
	a, ok := tok.Attr("r")
	switch {
	case !ok:
		at := tok.Start + 1 + len(tok.Name)
		e = Edit{Start: at, End: at, Text: ` r="LR"`}
	case cur.Text(a.ValueStart, a.ValueEnd) == string(LR):
		e = Edit{Start: a.ValueStart, End: a.ValueEnd, Text: string(RL)}
	case cur.Text(a.ValueStart, a.ValueEnd) == string(RL):
		start := a.NameStart
		for start > tok.Start && isSpace(cur.Text(start-1, start)) {
			start--
		}
		e = Edit{Start: start, End: a.ValueEnd + 1}
	default:
		e = Edit{Start: a.ValueStart, End: a.ValueEnd, Text: string(LR)}
	}
	e.Point = e.Shift(offset)
	return e, nil
}

// CopyWithRestriction duplicates the entry around offset onto the next line at the same indentation.
// The original is restricted to dir and the copy to the opposite direction; point lands on the copy.
func CopyWithRestriction(cur xmlscan.Cursor, offset int, dir Direction, b nav.Bound) (Edit, error) {
	tok, end, err := element(cur, offset, "e", b.WithBarrier("section"))
	if err != nil {
		return Edit{}, err
	}

	elem := cur.Text(tok.Start, end)
	before := cur.Text(0, tok.Start)
	indent := utils.Indentation(before[utils.LineStart(before, tok.Start):])

	orig := setAttr(elem, tok, "r", string(dir))
	dup := setAttr(elem, tok, "r", string(dir.Opposite()))
	return Edit{
		Start: tok.Start,
		End:   end,
		Text:  orig + "\n" + indent + dup,
		Point: tok.Start + len(orig) + 1 + len(indent),
	}, nil
}

func isSpace(s string) bool {
	return s == " " || s == "\t" || s == "\n" || s == "\r"
}
