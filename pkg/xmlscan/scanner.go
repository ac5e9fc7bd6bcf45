package xmlscan

import "strings"

// DefaultWindow bounds how far back the scanner looks for a token boundary.
const DefaultWindow = 16 << 10

type special struct {
	open  string
	close string
	kind  Kind
}

// Ordered so that a comment wins over a "<?" that only appears inside it.
var specials = []special{
	{"<!--", "-->", KindComment},
	{"<![CDATA[", "]]>", KindData},
	{"<?", "?>", KindProlog},
}

// Scanner implements Cursor over an immutable string.
// A new Scanner must be created whenever the underlying text changes.
type Scanner struct {
	src    string
	window int
}

var _ Cursor = (*Scanner)(nil)

// New returns a scanner with the default look-back window.
func New(src string) *Scanner {
	return NewWithWindow(src, DefaultWindow)
}

// NewWithWindow returns a scanner that never looks further back than window bytes for a token boundary.
func NewWithWindow(src string, window int) *Scanner {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Scanner{src: src, window: window}
}

func (s *Scanner) Len() int {
	return len(s.src)
}

func (s *Scanner) Text(start, end int) string {
	start = max(0, start)
	end = min(len(s.src), end)
	if start >= end {
		return ""
	}
	return s.src[start:end]
}

func (s *Scanner) TokenAfter(offset int) (Token, error) {
	if offset < 0 || offset >= len(s.src) {
		return Token{}, &SyntaxError{Offset: offset, Err: ErrOutOfRange}
	}
	start, err := s.tokenStart(offset)
	if err != nil {
		return Token{}, err
	}
	return s.lex(start)
}

func (s *Scanner) TokenBefore(offset int) (Token, error) {
	if offset <= 0 || offset > len(s.src) {
		return Token{}, &SyntaxError{Offset: offset, Err: ErrOutOfRange}
	}
	return s.TokenAfter(offset - 1)
}

func (s *Scanner) ScanElementForward(offset int) (int, error) {
	if offset < 0 || offset >= len(s.src) {
		return 0, &SyntaxError{Offset: offset, Err: ErrOutOfRange}
	}
	t, err := s.lex(offset)
	if err != nil {
		return 0, err
	}
	switch t.Kind {
	case KindEmptyElement:
		return t.End, nil
	case KindStartTag:
	default:
		return 0, malformed(offset, "not at a start-tag")
	}

	open := []string{t.Name}
	p := t.End
	for len(open) > 0 {
		if p >= len(s.src) {
			return 0, malformed(p, "unclosed element "+open[len(open)-1])
		}
		t, err = s.lex(p)
		if err != nil {
			return 0, err
		}
		switch t.Kind {
		case KindStartTag:
			open = append(open, t.Name)
		case KindEndTag:
			if top := open[len(open)-1]; t.Name != top {
				return 0, malformed(t.Start, "end-tag "+t.Name+" does not close "+top)
			}
			open = open[:len(open)-1]
		}
		p = t.End
	}
	return p, nil
}

func (s *Scanner) ScanElementBackward(offset, bound int) (int, error) {
	if offset <= 0 || offset > len(s.src) {
		return 0, &SyntaxError{Offset: offset, Err: ErrOutOfRange}
	}
	t, err := s.prevToken(offset)
	if err != nil {
		return 0, err
	}
	if t.Kind != KindEndTag {
		return 0, malformed(offset, "not after an end-tag")
	}

	closed := []string{t.Name}
	p := t.Start
	for {
		if p <= 0 {
			return 0, malformed(0, "no start-tag for "+closed[len(closed)-1])
		}
		t, err = s.prevToken(p)
		if err != nil {
			return 0, err
		}
		if t.Start < bound {
			return 0, ErrScanBound
		}
		switch t.Kind {
		case KindEndTag:
			closed = append(closed, t.Name)
		case KindStartTag:
			if top := closed[len(closed)-1]; t.Name != top {
				return 0, malformed(t.Start, "start-tag "+t.Name+" does not open "+top)
			}
			closed = closed[:len(closed)-1]
			if len(closed) == 0 {
				return t.Start, nil
			}
		}
		p = t.Start
	}
}

// tokenStart finds the start of the token covering offset, looking back at most s.window bytes.
// A '>' inside an attribute value is taken as a tag end; dictionary files escape it in practice.
func (s *Scanner) tokenStart(offset int) (int, error) {
	lo := max(0, offset-s.window)
	if start, ok := s.specialStart(offset, lo); ok {
		return start, nil
	}
	for p := offset; p >= lo; p-- {
		switch s.src[p] {
		case '<':
			return p, nil
		case '>':
			if p < offset {
				return p + 1, nil
			}
		}
	}
	if lo == 0 {
		return 0, nil
	}
	return 0, malformed(offset, "no token boundary within window")
}

// specialStart reports the start of a comment, CDATA section or processing instruction covering offset.
func (s *Scanner) specialStart(offset, lo int) (int, bool) {
	for _, sp := range specials {
		hi := min(len(s.src), offset+len(sp.open))
		i := strings.LastIndex(s.src[lo:hi], sp.open)
		if i < 0 {
			continue
		}
		start := lo + i
		body := start + len(sp.open)
		j := strings.Index(s.src[body:], sp.close)
		if j < 0 || body+j+len(sp.close) > offset {
			return start, true
		}
	}
	return 0, false
}

// prevToken returns the token that ends exactly at p, where p is known to be a token boundary.
func (s *Scanner) prevToken(p int) (Token, error) {
	start, err := s.startBefore(p)
	if err != nil {
		return Token{}, err
	}
	t, err := s.lex(start)
	if err != nil {
		return t, err
	}
	if t.End != p {
		return t, malformed(start, "token boundary mismatch")
	}
	return t, nil
}

func (s *Scanner) startBefore(p int) (int, error) {
	lo := max(0, p-s.window)
	head := s.src[lo:p]
	if s.src[p-1] != '>' {
		i := strings.LastIndexByte(head, '>')
		if i < 0 && lo > 0 {
			return 0, malformed(p, "no token boundary within window")
		}
		return lo + i + 1, nil
	}
	for _, sp := range specials {
		if strings.HasSuffix(head, sp.close) {
			if i := strings.LastIndex(head, sp.open); i >= 0 {
				return lo + i, nil
			}
		}
	}
	i := strings.LastIndexByte(head, '<')
	if i < 0 {
		return 0, malformed(p, "stray '>'")
	}
	return lo + i, nil
}

func (s *Scanner) lex(p int) (Token, error) {
	src := s.src
	if src[p] != '<' {
		end := strings.IndexByte(src[p:], '<')
		if end < 0 {
			end = len(src)
		} else {
			end += p
		}
		kind := KindData
		if isBlank(src[p:end]) {
			kind = KindSpace
		}
		return Token{Kind: kind, Start: p, End: end}, nil
	}
	rest := src[p:]
	for _, sp := range specials {
		if strings.HasPrefix(rest, sp.open) {
			return s.lexDelimited(p, sp)
		}
	}
	switch {
	case strings.HasPrefix(rest, "<!"):
		return s.lexDelimited(p, special{"<!", ">", KindProlog})
	case strings.HasPrefix(rest, "</"):
		return s.lexEndTag(p)
	}
	return s.lexStartTag(p)
}

func (s *Scanner) lexDelimited(p int, sp special) (Token, error) {
	body := p + len(sp.open)
	j := strings.Index(s.src[body:], sp.close)
	if j < 0 {
		return bad(p, len(s.src), "unterminated "+sp.kind.String())
	}
	return Token{Kind: sp.kind, Start: p, End: body + j + len(sp.close)}, nil
}

func (s *Scanner) lexEndTag(p int) (Token, error) {
	name, i := s.readName(p + 2)
	if name == "" {
		return bad(p, i, "missing end-tag name")
	}
	i = s.skipSpace(i)
	if i >= len(s.src) || s.src[i] != '>' {
		return bad(p, i, "unterminated end-tag "+name)
	}
	return Token{Kind: KindEndTag, Start: p, End: i + 1, Name: name}, nil
}

func (s *Scanner) lexStartTag(p int) (Token, error) {
	src := s.src
	name, i := s.readName(p + 1)
	if name == "" {
		return bad(p, i, "missing element name")
	}

	var attrs []Attr
	for {
		j := s.skipSpace(i)
		if j >= len(src) {
			return bad(p, j, "unterminated tag "+name)
		}
		switch c := src[j]; {
		case c == '>':
			return Token{Kind: KindStartTag, Start: p, End: j + 1, Name: name, Attrs: attrs}, nil
		case c == '/' && j+1 < len(src) && src[j+1] == '>':
			return Token{Kind: KindEmptyElement, Start: p, End: j + 2, Name: name, Attrs: attrs}, nil
		case j == i:
			return bad(p, j, "expected whitespace in tag "+name)
		}

		attrName, k := s.readName(j)
		if attrName == "" {
			return bad(p, j, "bad attribute in tag "+name)
		}
		k = s.skipSpace(k)
		if k >= len(src) || src[k] != '=' {
			return bad(p, k, "attribute "+attrName+" has no value")
		}
		k = s.skipSpace(k + 1)
		if k >= len(src) || (src[k] != '"' && src[k] != '\'') {
			return bad(p, k, "unquoted value for "+attrName)
		}
		end := strings.IndexByte(src[k+1:], src[k])
		if end < 0 {
			return bad(p, len(src), "unterminated value for "+attrName)
		}
		end += k + 1
		if strings.IndexByte(src[k+1:end], '<') >= 0 {
			return bad(p, k, "'<' in value of "+attrName)
		}
		attrs = append(attrs, Attr{Name: attrName, NameStart: j, ValueStart: k + 1, ValueEnd: end})
		i = end + 1
	}
}

func (s *Scanner) readName(i int) (string, int) {
	start := i
	for i < len(s.src) && isNameByte(s.src[i]) {
		i++
	}
	return s.src[start:i], i
}

func (s *Scanner) skipSpace(i int) int {
	for i < len(s.src) && isSpace(s.src[i]) {
		i++
	}
	return i
}

func bad(start, at int, msg string) (Token, error) {
	return Token{Kind: KindNotWellFormed, Start: start, End: at}, malformed(at, msg)
}

func isNameByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '-' || c == '_' || c == ':' || c == '.' || c >= 0x80
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isBlank(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isSpace(s[i]) {
			return false
		}
	}
	return true
}
