package parser

import (
	"errors"
	"fmt"
	"io"
)

// Error reports malformed wire data. Partial holds whatever bytes of the
// offending section were read before the problem was found.
type Error struct {
	message string
	partial []byte
}

func (e Error) Error() string {
	if len(e.partial) > 0 {
		return fmt.Sprintf("[Parse error]: %s (%d bytes read)", e.message, len(e.partial))
	}
	return fmt.Sprintf("[Parse error]: %s", e.message)
}

func (e Error) Partial() []byte {
	return e.partial
}

func Errorf(format string, args ...any) Error {
	return Error{message: fmt.Sprintf(format, args...)}
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

// WithPartial returns a copy of e that carries the bytes read before the failure.
func (e Error) WithPartial(partial []byte) Error {
	e.partial = partial
	return e
}
