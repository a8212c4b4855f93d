package parser

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/tony-montemuro/httpkit/internal/lws"
)

const maxChunkSize = 1 << 40

type chunkSizeParser string

// parse reads the hex size of a chunk, ignoring any extensions.
func (c chunkSizeParser) parse() (int64, error) {
	size, _, _ := strings.Cut(string(c), ";")
	size = lws.Trim(size)
	if size == "" {
		return 0, Errorf("Invalid chunk: missing chunk size")
	}

	var n int64
	for i := 0; i < len(size); i++ {
		val, err := hex(size[i]).value()
		if err != nil {
			return 0, Errorf("Invalid chunk: %s", err.Error())
		}
		n = n<<4 | int64(val)
		if n > maxChunkSize {
			return 0, Errorf("Invalid chunk: chunk size too large (%q)", size)
		}
	}

	return n, nil
}

// ReadChunked decodes a chunked body and consumes its trailer section. The
// decoded body may not exceed limit bytes; zero or less means maxChunkSize.
// On failure the returned Error carries the body bytes decoded so far.
func ReadChunked(r *bufio.Reader, limit int64) ([]byte, []Field, error) {
	if limit <= 0 {
		limit = maxChunkSize
	}
	lines := NewLineReader(r, 0)
	var body bytes.Buffer

	fail := func(err error) ([]byte, []Field, error) {
		var perr Error
		switch {
		case errors.As(err, &perr):
		case isEOF(err):
			perr = Errorf("truncated chunked body")
		default:
			return nil, nil, err
		}
		perr.partial = body.Bytes()
		return nil, nil, perr
	}

	for {
		line, err := lines.ReadLine()
		if err != nil {
			return fail(err)
		}
		if lws.Trim(line) == "" {
			continue
		}

		size, err := chunkSizeParser(line).parse()
		if err != nil {
			return fail(err)
		}
		if size == 0 {
			break
		}
		if size > limit-int64(body.Len()) {
			return fail(Errorf("Invalid chunk: body exceeds %d bytes", limit))
		}

		if _, err := io.CopyN(&body, r, size); err != nil {
			return fail(err)
		}

		var end [2]byte
		if _, err := io.ReadFull(r, end[:]); err != nil {
			return fail(err)
		}
		if string(end[:]) != "\r\n" {
			return fail(Errorf("Invalid chunk: data does not match declared size %d", size))
		}
	}

	trailers, err := lines.ReadHeaders()
	if err != nil {
		return fail(err)
	}

	if body.Len() == 0 {
		return []byte{}, trailers, nil
	}

	return body.Bytes(), trailers, nil
}
