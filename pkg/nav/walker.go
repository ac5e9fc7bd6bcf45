package nav

import (
	"errors"
	"slices"

	"github.com/bastiangx/dixserve/pkg/xmlscan"
)

// DefaultMaxSteps bounds the number of tokens a single Step may pass over.
const DefaultMaxSteps = 4096

var ErrStepLimit = errors.New("nav: step passed too many tokens")

// Walker moves between the interesting positions of a buffer: attribute values named in its Table and the
// content of elements that are neither interesting nor skipped.
type Walker struct {
	cur      xmlscan.Cursor
	table    *Table
	maxSteps int
}

func NewWalker(cur xmlscan.Cursor, table *Table, maxSteps int) *Walker {
	if table == nil {
		table = DefaultTable()
	}
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &Walker{cur: cur, table: table, maxSteps: maxSteps}
}

// MoveBy applies Step |steps| times, backward when steps is negative.
func (w *Walker) MoveBy(from, steps int) (int, error) {
	backward := steps < 0
	if backward {
		steps = -steps
	}
	pos := from
	for range steps {
		next, err := w.Step(pos, backward)
		if err != nil {
			return pos, err
		}
		pos = next
	}
	return pos, nil
}

// Step returns the next interesting offset after (or before) from.
func (w *Walker) Step(from int, backward bool) (int, error) {
	pos := from
	for range w.maxSteps {
		if backward && pos <= 0 {
			return 0, nil
		}
		if !backward && pos >= w.cur.Len() {
			return w.cur.Len(), nil
		}

		var (
			tok  xmlscan.Token
			next int
			err  error
		)
		if backward {
			tok, err = w.cur.TokenBefore(pos)
			next = tok.Start
		} else {
			tok, err = w.cur.TokenAfter(pos)
			next = tok.End
		}
		if err != nil {
			return pos, err
		}

		var name string
		if tok.IsTag() {
			name = tok.Name
		}
		interest := w.table.Attributes(name)

		if tok.Kind == xmlscan.KindComment || tok.Kind == xmlscan.KindProlog {
			pos = next
			continue
		}
		if near, ok := nearestAttr(tok.Attrs, interest, pos, backward); ok {
			return near, nil
		}
		if len(interest) > 0 || w.table.Skips(name) {
			pos = next
			continue
		}
		// Leaving a content zone backward: its start-tag is not a landing spot.
		if backward && tok.Kind == xmlscan.KindStartTag && w.table.Stops(name) && tok.End == pos {
			pos = tok.Start
			continue
		}
		switch tok.Kind {
		case xmlscan.KindSpace, xmlscan.KindData, xmlscan.KindEndTag:
			pos = next
			if backward && pos > 0 {
				prev, err := w.cur.TokenBefore(pos)
				if err != nil {
					return pos, err
				}
				if prev.Kind == xmlscan.KindStartTag && w.table.Stops(prev.Name) {
					return pos, nil
				}
			}
			continue
		}
		return next, nil
	}
	return pos, ErrStepLimit
}

// nearestAttr picks the value start of an interesting attribute nearest to pivot on the requested side.
// Only proximity decides; the order of names in interest does not.
func nearestAttr(attrs []xmlscan.Attr, interest []string, pivot int, backward bool) (int, bool) {
	best, found := 0, false
	for _, a := range attrs {
		if !slices.Contains(interest, a.Name) {
			continue
		}
		v := a.ValueStart
		switch {
		case backward && v < pivot:
			if !found || v > best {
				best, found = v, true
			}
		case !backward && v > pivot:
			if !found || v < best {
				best, found = v, true
			}
		}
	}
	return best, found
}
