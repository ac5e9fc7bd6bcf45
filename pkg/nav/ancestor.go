// Package nav answers structural questions about a dictionary buffer: which element encloses a point, and
// where the next field worth editing is. Every walk is bounded so that a multi-megabyte file never costs a
// scan from the top.
package nav

import (
	"errors"
	"fmt"

	"github.com/bastiangx/dixserve/pkg/xmlscan"
)

// DefaultMaxDistance is used when a Bound has no positive MaxDistance.
const DefaultMaxDistance = 10000

var (
	ErrBoundedSearch = errors.New("nav: element not found within search bound")
	ErrBarrier       = errors.New("nav: reached barrier element")
)

// Bound limits an upward walk. Barrier names an outer container (e.g. "pardefs" or "section") that ends
// the search early; MaxDistance is measured in bytes back from the starting offset.
type Bound struct {
	Barrier     string
	MaxDistance int
}

// DefaultBound returns a bound with no barrier and the default distance.
func DefaultBound() Bound {
	return Bound{MaxDistance: DefaultMaxDistance}
}

// WithBarrier returns a copy of b using barrier when b has none.
func (b Bound) WithBarrier(barrier string) Bound {
	if b.Barrier == "" {
		b.Barrier = barrier
	}
	return b
}

func (b Bound) lower(offset int) int {
	d := b.MaxDistance
	if d <= 0 {
		d = DefaultMaxDistance
	}
	return max(0, offset-d)
}

type ResultKind uint8

const (
	Found ResultKind = iota
	HitBarrier
	HitBound
)

func (k ResultKind) String() string {
	switch k {
	case Found:
		return "found"
	case HitBarrier:
		return "barrier"
	case HitBound:
		return "bound"
	default:
		return "unknown"
	}
}

// Result is the outcome of an upward walk. Offset and Name describe the element where the walk
// stopped; they are zero for HitBound.
type Result struct {
	Kind   ResultKind
	Offset int
	Name   string
}

// Err converts a failed walk into ErrBoundedSearch or ErrBarrier. It returns nil for Found.
func (r Result) Err() error {
	switch r.Kind {
	case Found:
		return nil
	case HitBarrier:
		return fmt.Errorf("%w: <%s> at %d", ErrBarrier, r.Name, r.Offset)
	default:
		return ErrBoundedSearch
	}
}

// FindEnclosing walks up from offset to the nearest element named target. An empty target accepts the
// first enclosing element of any name. Being on a start-tag or empty-element counts as being inside it.
// Malformed text is reported as an error wrapping xmlscan.ErrMalformed; the other outcomes are in Result.
func FindEnclosing(cur xmlscan.Cursor, offset int, target string, b Bound) (Result, error) {
	lower := b.lower(offset)

	tok, ok, err := current(cur, offset, lower)
	for {
		if err != nil {
			if errors.Is(err, xmlscan.ErrScanBound) {
				return Result{Kind: HitBound}, nil
			}
			return Result{}, err
		}
		if !ok || tok.Start < lower {
			return Result{Kind: HitBound}, nil
		}
		if target == "" || tok.Name == target {
			return Result{Kind: Found, Offset: tok.Start, Name: tok.Name}, nil
		}
		if b.Barrier != "" && tok.Name == b.Barrier {
			return Result{Kind: HitBarrier, Offset: tok.Start, Name: tok.Name}, nil
		}
		tok, ok, err = parent(cur, tok.Start, lower)
	}
}

// EnclosingElement returns the name of the innermost element around offset.
func EnclosingElement(cur xmlscan.Cursor, offset int, b Bound) (string, error) {
	r, err := FindEnclosing(cur, offset, "", b)
	if err != nil {
		return "", err
	}
	if err := r.Err(); err != nil {
		return "", err
	}
	return r.Name, nil
}

func current(cur xmlscan.Cursor, offset, lower int) (xmlscan.Token, bool, error) {
	if offset < cur.Len() {
		tok, err := cur.TokenAfter(offset)
		if err != nil {
			return tok, false, err
		}
		if tok.IsTag() {
			return tok, true, nil
		}
	}
	return parent(cur, offset, lower)
}

// parent finds the start-tag of the element containing pos.
func parent(cur xmlscan.Cursor, pos, lower int) (xmlscan.Token, bool, error) {
	if pos <= 0 {
		return xmlscan.Token{}, false, nil
	}
	tok, err := cur.TokenBefore(pos)
	if err != nil {
		return tok, false, err
	}
	switch {
	case tok.Kind == xmlscan.KindStartTag:
		return tok, true, nil
	case tok.Kind == xmlscan.KindEmptyElement && pos < tok.End:
		return tok, true, nil
	}

	from := tok.Start
	if tok.Kind == xmlscan.KindEndTag && pos == tok.End {
		from = tok.End
	}
	return scanUp(cur, from, lower)
}

// scanUp returns the nearest unclosed start-tag before from, skipping balanced elements.
func scanUp(cur xmlscan.Cursor, from, lower int) (xmlscan.Token, bool, error) {
	for p := from; p > 0; {
		tok, err := cur.TokenBefore(p)
		if err != nil {
			return tok, false, err
		}
		if tok.Start < lower {
			return tok, false, xmlscan.ErrScanBound
		}
		switch tok.Kind {
		case xmlscan.KindStartTag:
			return tok, true, nil
		case xmlscan.KindEndTag:
			start, err := cur.ScanElementBackward(tok.End, lower)
			if err != nil {
				return tok, false, err
			}
			p = start
		default:
			p = tok.Start
		}
	}
	return xmlscan.Token{}, false, nil
}
