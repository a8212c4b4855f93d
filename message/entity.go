package message

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tony-montemuro/httpkit/internal/parser"
	"github.com/valyala/bytebufferpool"
)

const (
	DefaultVersion        = "HTTP/1.1"
	DefaultMaxHeaderBytes = 64 << 10
	DefaultMaxBodyBytes   = 64 << 20
	DefaultChunkSize      = 4096
	crlf                  = "\r\n"
)

// Entity holds what requests and responses share: version, headers and a body
// kept in its wire form and its user form.
type Entity struct {
	Version string
	Header  Header

	// DumpLimit bounds how many body characters String renders. Zero or less
	// renders everything.
	DumpLimit int

	// ChunkSize is the chunk length used when the entity is sent with
	// Transfer-Encoding: chunked.
	ChunkSize int

	// OnWriteError may handle a failed write; returning true suppresses it.
	OnWriteError func(error) bool

	// AfterWrite runs once after the entity has been written successfully.
	AfterWrite func()

	body []byte
	wire []byte
}

type ReadOptions struct {
	Timeout        time.Duration
	MaxHeaderBytes int
	DumpLimit      int

	// MaxBodyBytes bounds the wire body. Zero or less means DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

func (o ReadOptions) headerLimit() int {
	if o.MaxHeaderBytes <= 0 {
		return DefaultMaxHeaderBytes
	}

	return o.MaxHeaderBytes
}

func (o ReadOptions) bodyLimit() int64 {
	if o.MaxBodyBytes <= 0 {
		return DefaultMaxBodyBytes
	}

	return o.MaxBodyBytes
}

// Body returns the user form of the body.
func (e *Entity) Body() []byte {
	return e.body
}

// WireBody returns the body as it is sent or was received.
func (e *Entity) WireBody() []byte {
	if e.wire != nil {
		return e.wire
	}

	return e.body
}

func (e *Entity) HasBody() bool {
	return len(e.WireBody()) > 0
}

func (e *Entity) version() string {
	if e.Version == "" {
		return DefaultVersion
	}

	return e.Version
}

// readStartLine returns the first non-empty line. io.EOF is returned as is
// when the peer closed before sending anything.
func readStartLine(lines *parser.LineReader) (string, error) {
	for {
		line, err := lines.ReadLine()
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return "", parser.Errorf("truncated start line")
		}
		if err != nil {
			return "", err
		}
		if line != "" {
			return line, nil
		}
	}
}

func (e *Entity) readHeader(lines *parser.LineReader) error {
	fields, err := lines.ReadHeaders()
	if err != nil {
		return err
	}

	e.Header = HeaderFromFields(fields)
	return nil
}

type framing int

const (
	framingNone framing = iota
	framingLength
	framingChunked
	framingClose
)

// framing decides how the body is delimited: chunked first, then
// Content-Length, otherwise none.
func (e *Entity) framing() (framing, int64, error) {
	chunked := false
	for _, v := range e.Header.Values("Transfer-Encoding") {
		for _, coding := range parser.SplitList(v) {
			switch strings.ToLower(coding) {
			case "chunked":
				chunked = true
			case EncodingIdentity:
			default:
				return framingNone, 0, parser.Errorf("Invalid body: unsupported transfer coding (%q)", coding)
			}
		}
	}
	if chunked {
		return framingChunked, 0, nil
	}

	lengths := e.Header.Values("Content-Length")
	if len(lengths) == 0 {
		return framingNone, 0, nil
	}

	var length int64 = -1
	for _, v := range lengths {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || n < 0 {
			return framingNone, 0, parser.Errorf("Invalid body: bad Content-Length (%q)", v)
		}
		if length != -1 && n != length {
			return framingNone, 0, parser.Errorf("Invalid body: conflicting Content-Length values")
		}
		length = n
	}

	return framingLength, length, nil
}

func (e *Entity) readBody(r *bufio.Reader, f framing, length, limit int64) error {
	switch f {
	case framingChunked:
		body, trailers, err := parser.ReadChunked(r, limit)
		if err != nil {
			return err
		}
		for _, t := range trailers {
			e.Header.Add(t.Name, t.Value)
		}
		e.wire = body
	case framingLength:
		if length > limit {
			return parser.Errorf("Invalid body: Content-Length %d exceeds %d bytes", length, limit)
		}
		var body bytes.Buffer
		n, err := io.CopyN(&body, r, length)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return parser.Errorf("truncated body: expected %d bytes, got %d", length, n).WithPartial(body.Bytes())
		}
		if err != nil {
			return err
		}
		e.wire = body.Bytes()
		if e.wire == nil {
			e.wire = []byte{}
		}
	case framingClose:
		body, err := io.ReadAll(io.LimitReader(r, limit+1))
		if err != nil {
			return err
		}
		if int64(len(body)) > limit {
			return parser.Errorf("Invalid body: body exceeds %d bytes", limit).WithPartial(body[:limit])
		}
		e.wire = body
	default:
		e.wire = nil
	}

	return e.decodeWire()
}

func (e *Entity) decodeWire() error {
	coding := strings.TrimSpace(e.Header.Get("Content-Encoding"))
	if coding == "" || strings.EqualFold(coding, EncodingIdentity) {
		e.body = e.wire
		e.wire = nil
		return nil
	}

	body, err := Decompress(coding, e.wire)
	if err != nil {
		return err
	}

	e.body = body
	return nil
}

// write serializes the entity after startLine. The body is only sent when
// sendBody is set; declareLength forces a Content-Length even for an empty body.
func (e *Entity) write(s *Stream, timeout time.Duration, startLine string, sendBody, declareLength bool) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	wire := e.WireBody()
	chunked := e.Header.Contains("Transfer-Encoding", "chunked")
	switch {
	case chunked:
		e.Header.Drop("Content-Length")
	case sendBody && (declareLength || len(wire) > 0):
		e.Header.Set("Content-Length", strconv.Itoa(len(wire)))
	}

	_, _ = buf.WriteString(startLine)
	_, _ = buf.WriteString(crlf)
	_ = e.Header.Write(buf)
	_, _ = buf.WriteString(crlf)

	if sendBody {
		if chunked {
			writeChunks(buf, wire, e.ChunkSize)
		} else {
			_, _ = buf.Write(wire)
		}
	}

	err := s.Write(buf.B, timeout)
	if err != nil {
		if e.OnWriteError != nil && e.OnWriteError(err) {
			return nil
		}
		return err
	}

	if e.AfterWrite != nil {
		e.AfterWrite()
	}

	return nil
}

func writeChunks(buf *bytebufferpool.ByteBuffer, body []byte, size int) {
	if size <= 0 {
		size = DefaultChunkSize
	}

	for len(body) > 0 {
		n := min(size, len(body))
		_, _ = buf.WriteString(strconv.FormatInt(int64(n), 16))
		_, _ = buf.WriteString(crlf)
		_, _ = buf.Write(body[:n])
		_, _ = buf.WriteString(crlf)
		body = body[n:]
	}

	_, _ = buf.WriteString("0" + crlf + crlf)
}

func (e *Entity) clone() Entity {
	c := *e
	c.Header = e.Header.Clone()
	c.OnWriteError = nil
	c.AfterWrite = nil
	return c
}
