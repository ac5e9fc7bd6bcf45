package xmlscan

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed marks text that is not locally well-formed: partial tags, unbalanced elements,
	// unterminated comments.
	ErrMalformed = errors.New("not well-formed")
	// ErrOutOfRange is returned for offsets outside the buffer.
	ErrOutOfRange = errors.New("offset out of range")
	// ErrScanBound is returned when a backward element scan would cross its lower bound.
	ErrScanBound = errors.New("scan bound exceeded")
)

// SyntaxError reports malformed input with the offset where the scanner gave up.
type SyntaxError struct {
	Offset int
	Msg    string
	Err    error
}

// Error formats the syntax error with location and cause.
func (e *SyntaxError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return fmt.Sprintf("xmlscan: offset %d: %v", e.Offset, e.Err)
	}
	return fmt.Sprintf("xmlscan: offset %d: %v: %s", e.Offset, e.Err, e.Msg)
}

// Unwrap exposes the underlying error.
func (e *SyntaxError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func malformed(offset int, msg string) error {
	return &SyntaxError{Offset: offset, Msg: msg, Err: ErrMalformed}
}
