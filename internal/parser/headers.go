package parser

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/tony-montemuro/httpkit/internal/lws"
)

type Field struct {
	Name  string
	Value string
}

// LineReader reads CRLF (or bare LF) terminated lines. A positive limit caps
// the total bytes it will consume, which bounds a message head.
type LineReader struct {
	r     *bufio.Reader
	limit int
	used  int
}

func NewLineReader(r *bufio.Reader, limit int) *LineReader {
	return &LineReader{r: r, limit: limit}
}

// ReadLine returns the next line without its terminator. io.EOF means nothing
// at all was read; a line cut short by EOF yields io.ErrUnexpectedEOF.
func (lr *LineReader) ReadLine() (string, error) {
	var line []byte
	for {
		chunk, err := lr.r.ReadSlice('\n')
		line = append(line, chunk...)
		if lr.limit > 0 && lr.used+len(line) > lr.limit {
			return "", Errorf("message head exceeds %d bytes", lr.limit)
		}

		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}

	lr.used += len(line)
	line = bytes.TrimSuffix(line, []byte{lws.LF})
	line = bytes.TrimSuffix(line, []byte{lws.CR})
	return string(line), nil
}

// ReadHeaders reads header lines up to the blank line that ends the block.
// Continuation lines are folded onto the previous field; repeated names are
// returned as separate fields.
func (lr *LineReader) ReadHeaders() ([]Field, error) {
	fields := []Field{}

	for {
		line, err := lr.ReadLine()
		if err != nil {
			if isEOF(err) {
				return nil, Errorf("truncated header section after %d fields", len(fields))
			}
			return nil, err
		}

		if line == "" {
			return fields, nil
		}

		if lws.Continues(line) {
			if len(fields) == 0 {
				return nil, Errorf("Invalid header: continuation line before any header (%q)", line)
			}
			last := &fields[len(fields)-1]
			last.Value = lws.Fold(last.Value, line)
			continue
		}

		field, err := headerLineParser(line).parse()
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
}

// ReadHeaders parses a complete header block held in memory, such as the head
// of a multipart body part.
func ReadHeaders(block []byte) ([]Field, error) {
	if len(bytes.TrimSpace(block)) == 0 {
		return []Field{}, nil
	}
	if !bytes.HasSuffix(block, []byte(crlf+crlf)) {
		block = append(bytes.Clone(bytes.TrimRight(block, crlf)), crlf+crlf...)
	}

	return NewLineReader(bufio.NewReader(bytes.NewReader(block)), 0).ReadHeaders()
}

type headerLineParser string

func (hl headerLineParser) parse() (Field, error) {
	name, value, found := strings.Cut(string(hl), ":")
	if !found {
		return Field{}, Errorf("Invalid header: cannot determine header name (%q)", string(hl))
	}

	name = lws.Trim(name)
	err := token(name).validate()
	if err != nil {
		return Field{}, Errorf("Invalid header: %s", err.Error())
	}

	value = lws.Trim(value)
	err = text(value).validate()
	if err != nil {
		return Field{}, Errorf("Invalid header %s: %s", name, err.Error())
	}

	return Field{Name: name, Value: value}, nil
}
