package parser

import (
	"fmt"
	"slices"

	"github.com/tony-montemuro/httpkit/internal/lws"
)

const (
	byteQuery = '?'
	crlf      = "\r\n"
)

type httpByte byte

func (b httpByte) isEscape() bool {
	return b == '%'
}

func (b httpByte) isControl() bool {
	return b < 32 || b == 127
}

func (b httpByte) isUSAscii() bool {
	return b < 128
}

func (b httpByte) isQdTextByte() bool {
	return b.isUSAscii() && !b.isControl() && b != '"'
}

func (b httpByte) isTSpecial() bool {
	tSpecials := []httpByte{'(', ')', '<', '>', '@', ',', ';', ':', '\\', '"', '/', '[', ']', '?', '=', ' ', '\t', '{', '}'}
	return slices.Contains(tSpecials, b)
}

type token string

func (t token) validate() error {
	if len(t) == 0 {
		return fmt.Errorf("token cannot be empty")
	}

	for i := 0; i < len(t); i++ {
		c := httpByte(t[i])
		if c.isControl() {
			return fmt.Errorf("token cannot contain control character (%q)", string(t))
		}
		if !c.isUSAscii() {
			return fmt.Errorf("token cannot contain extended ascii characters (%q)", string(t))
		}
		if c.isTSpecial() {
			return fmt.Errorf("token contains invalid symbol (%q)", string(t))
		}
	}

	return nil
}

// ValidToken reports whether s is an RFC 2616 token, as header names and methods must be.
func ValidToken(s string) bool {
	return token(s).validate() == nil
}

type quotedString string

func (qs quotedString) validate() error {
	if len(qs) < 2 {
		return fmt.Errorf("incomplete quote string (%s)", qs)
	}

	if qs[0] != '"' || qs[len(qs)-1] != '"' {
		return fmt.Errorf("quoted string must begin and end with a \" character (%s)", qs)
	}

	i := 1
	for i < len(qs)-1 {
		isLws, next := lws.Check(string(qs), i)
		if isLws {
			i = next
			continue
		}

		if qs[i] == '\\' && i+1 < len(qs)-1 {
			i += 2
			continue
		}

		if !httpByte(qs[i]).isQdTextByte() {
			return fmt.Errorf("quoted string contains invalid character (%s)", qs)
		}
		i++
	}

	return nil
}

// parse unwraps the quotes and resolves quoted-pair escapes.
func (qs quotedString) parse() (string, error) {
	err := qs.validate()
	if err != nil {
		return string(qs), fmt.Errorf("not a quoted string (%s)", qs)
	}

	inner := qs[1 : len(qs)-1]
	unquoted := make([]byte, 0, len(inner))
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' && i+1 < len(inner) {
			i++
		}
		unquoted = append(unquoted, inner[i])
	}

	return string(unquoted), nil
}

type hex byte

func (b hex) value() (byte, error) {
	switch {
	case b >= '0' && b <= '9':
		return byte(b - '0'), nil
	case b >= 'a' && b <= 'f':
		return byte(b - 'a' + 10), nil
	case b >= 'A' && b <= 'F':
		return byte(b - 'A' + 10), nil
	}

	return 0, fmt.Errorf("non-hex byte (%q)", byte(b))
}

type text string

func (t text) validate() error {
	i := 0

	for i < len(t) {
		isLws, next := lws.Check(string(t), i)
		if isLws {
			i = next
			continue
		}

		if httpByte(t[i]).isControl() && t[i] != lws.HT {
			return fmt.Errorf("not a valid sequence of text bytes (%q)", string(t))
		}

		i++
	}

	return nil
}
