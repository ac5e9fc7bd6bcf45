// Package xmlscan classifies the XML token around a buffer offset without parsing the whole document.
//
// Dictionary files are routinely tens of megabytes, so nothing here builds a tree: every lookup starts at an
// offset, looks a bounded distance backwards for the nearest token boundary and lexes forward from there.
// Text outside that window is never read.
package xmlscan

// Kind identifies the lexical kind of a token.
type Kind uint8

const (
	KindNone Kind = iota
	KindStartTag
	KindEndTag
	KindEmptyElement
	KindData
	KindSpace
	KindComment
	KindProlog
	KindNotWellFormed
)

// String returns a stable name for the kind, suitable for debugging.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindStartTag:
		return "StartTag"
	case KindEndTag:
		return "EndTag"
	case KindEmptyElement:
		return "EmptyElement"
	case KindData:
		return "Data"
	case KindSpace:
		return "Space"
	case KindComment:
		return "Comment"
	case KindProlog:
		return "Prolog"
	case KindNotWellFormed:
		return "NotWellFormed"
	default:
		return "Unknown"
	}
}

// Attr locates one attribute of a start-tag or empty-element.
// Offsets are byte offsets into the scanned buffer; the value range excludes the quotes.
type Attr struct {
	Name       string
	NameStart  int
	ValueStart int
	ValueEnd   int
}

// Token is a snapshot of the token covering some offset. It is only valid for the buffer it was read from.
type Token struct {
	Kind  Kind
	Start int
	End   int
	Name  string
	Attrs []Attr
}

// IsTag reports whether the token opens an element (start-tag or empty-element).
func (t Token) IsTag() bool {
	return t.Kind == KindStartTag || t.Kind == KindEmptyElement
}

// Attr returns the attribute called name.
func (t Token) Attr(name string) (Attr, bool) {
	for _, a := range t.Attrs {
		if a.Name == name {
			return a, true
		}
	}
	return Attr{}, false
}

// Cursor is the lexical capability the navigation and editing code is written against.
type Cursor interface {
	// Len is the buffer length in bytes.
	Len() int
	// Text returns the raw buffer slice [start, end).
	Text(start, end int) string
	// TokenAfter returns the token covering the byte at offset.
	TokenAfter(offset int) (Token, error)
	// TokenBefore returns the token covering the byte at offset-1.
	TokenBefore(offset int) (Token, error)
	// ScanElementForward returns the end of the element whose start-tag begins at offset.
	ScanElementForward(offset int) (int, error)
	// ScanElementBackward returns the start of the element whose end-tag ends at offset,
	// failing with ErrScanBound if that would read below bound.
	ScanElementBackward(offset, bound int) (int, error)
}
