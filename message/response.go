package message

import (
	"bufio"
	"strconv"
	"time"

	"github.com/tony-montemuro/httpkit/internal/parser"
)

type Response struct {
	Entity
	Status Status

	// AcceptEncoding is copied from the request this response answers and
	// decides whether the body is compressed on the way out.
	AcceptEncoding string

	// RequestMethod is the method of the request this response answers.
	RequestMethod Method
}

func NewResponse(code int) *Response {
	r := &Response{Status: NewStatus(code)}
	r.Version = DefaultVersion
	return r
}

// KeepAlive reports whether the sender left the connection open.
func (r *Response) KeepAlive() bool {
	if r.Header.Contains("Connection", "close") {
		return false
	}
	if r.version() == "HTTP/1.0" {
		return r.Header.Contains("Connection", "keep-alive")
	}

	return true
}

func (r *Response) carriesBody() bool {
	return r.RequestMethod != MethodHead && !r.Status.bodyless()
}

func (r *Response) startLine() string {
	reason := r.Status.Reason
	if reason == "" {
		reason = StatusText(r.Status.Code)
	}

	return r.version() + " " + strconv.Itoa(r.Status.Code) + " " + reason
}

// compress applies the best coding the client accepts, keeping it only when
// the result is strictly smaller.
func (r *Response) compress() error {
	if r.wire != nil || len(r.body) == 0 || r.Header.Has("Content-Encoding") {
		return nil
	}

	coding := NegotiateEncoding(r.AcceptEncoding)
	if coding == "" {
		return nil
	}

	compressed, err := Compress(coding, r.body)
	if err != nil {
		return err
	}
	if len(compressed) < len(r.body) {
		r.setWireBody(compressed, coding)
	}

	return nil
}

func (r *Response) Write(s *Stream, timeout time.Duration) error {
	if r.Status.Code <= 0 {
		return &ValidationError{message: "response status is not set"}
	}

	if r.Status.bodyless() {
		r.Header.Drop("Content-Length")
	}

	carries := r.carriesBody()
	if carries {
		if err := r.compress(); err != nil {
			return err
		}
	}

	return r.write(s, timeout, r.startLine(), carries, !r.Status.bodyless())
}

type responseReader struct {
	method Method
	opts   ReadOptions
}

func (rr responseReader) read(br *bufio.Reader) (*Response, error) {
	lines := parser.NewLineReader(br, rr.opts.headerLimit())

	line, err := readStartLine(lines)
	if err != nil {
		return nil, err
	}

	parsed, err := parser.ParseStatusLine(line)
	if err != nil {
		return nil, err
	}

	r := &Response{
		Status:        Status{Code: parsed.Code, Reason: parsed.Reason},
		RequestMethod: rr.method,
	}
	r.Version = parsed.Version
	r.DumpLimit = rr.opts.DumpLimit

	err = r.readHeader(lines)
	if err != nil {
		return nil, err
	}

	if !r.carriesBody() {
		return r, nil
	}

	f, length, err := r.framing()
	if err != nil {
		return nil, err
	}
	if f == framingNone && r.Header.Contains("Connection", "close") {
		f = framingClose
	}

	err = r.readBody(br, f, length, rr.opts.bodyLimit())
	if err != nil {
		return nil, err
	}

	return r, nil
}

// ReadResponse parses the response to a request made with method.
func ReadResponse(s *Stream, method Method, opts ReadOptions) (*Response, error) {
	var r *Response

	err := s.Read(opts.Timeout, func(br *bufio.Reader) error {
		var err error
		r, err = responseReader{method: method, opts: opts}.read(br)
		return err
	})
	if err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Response) String() string {
	return r.dump(r.startLine())
}
