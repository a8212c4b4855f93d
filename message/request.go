package message

import (
	"bufio"
	"net/url"
	"strings"
	"time"

	"github.com/tony-montemuro/httpkit/internal/parser"
)

type Request struct {
	Entity
	Method   Method
	Path     string
	RawQuery string
}

// NewRequest builds a request for target, which may carry a query.
func NewRequest(method Method, target string) *Request {
	r := &Request{Method: method}
	r.Version = DefaultVersion
	r.SetTarget(target)
	return r
}

func (r *Request) SetTarget(target string) {
	r.Path, r.RawQuery = parser.SplitTarget(target)
}

func (r *Request) Target() string {
	path := r.Path
	if path == "" {
		path = "/"
	}
	if r.RawQuery == "" {
		return path
	}

	return path + "?" + r.RawQuery
}

func (r *Request) Query() (url.Values, error) {
	values, err := url.ParseQuery(r.RawQuery)
	if err != nil {
		return nil, parser.Errorf("Invalid query: %s", err.Error())
	}

	return values, nil
}

// KeepAlive reports whether the sender wants the connection kept open after
// this exchange.
func (r *Request) KeepAlive() bool {
	if r.Header.Contains("Connection", "close") {
		return false
	}
	if r.version() == "HTTP/1.0" {
		return r.Header.Contains("Connection", "keep-alive")
	}

	return true
}

func (r *Request) startLine() string {
	return string(r.Method) + " " + r.Target() + " " + r.version()
}

func (r *Request) Write(s *Stream, timeout time.Duration) error {
	if err := r.Method.Validate(); err != nil {
		return err
	}

	sendBody := r.Method.AllowsBody()
	if !sendBody {
		r.Header.Drop("Content-Length")
	}

	return r.write(s, timeout, r.startLine(), sendBody, sendBody)
}

type requestReader struct {
	opts ReadOptions
}

func (rr requestReader) read(br *bufio.Reader) (*Request, error) {
	lines := parser.NewLineReader(br, rr.opts.headerLimit())

	line, err := readStartLine(lines)
	if err != nil {
		return nil, err
	}

	parsed, err := parser.ParseRequestLine(line)
	if err != nil {
		return nil, err
	}

	method := Method(parsed.Method)
	if !method.Known() {
		return nil, parser.Errorf("Invalid request line: unknown method (%q)", parsed.Method)
	}

	r := &Request{Method: method}
	r.Version = parsed.Version
	r.DumpLimit = rr.opts.DumpLimit
	r.SetTarget(parsed.Target)
	if r.Path != "*" && !strings.HasPrefix(r.Path, "/") {
		return nil, parser.Errorf("Invalid request line: target must begin with '/' (%q)", parsed.Target)
	}

	err = r.readHeader(lines)
	if err != nil {
		return nil, err
	}

	if !method.AllowsBody() {
		return r, nil
	}

	f, length, err := r.framing()
	if err != nil {
		return nil, err
	}

	err = r.readBody(br, f, length, rr.opts.bodyLimit())
	if err != nil {
		return nil, err
	}

	return r, nil
}

// ReadRequest parses the next request on s. It returns io.EOF, unwrapped,
// when the peer closed the stream before sending anything.
func ReadRequest(s *Stream, opts ReadOptions) (*Request, error) {
	var r *Request

	err := s.Read(opts.Timeout, func(br *bufio.Reader) error {
		var err error
		r, err = requestReader{opts: opts}.read(br)
		return err
	})
	if err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Request) Clone() *Request {
	c := *r
	c.Entity = r.clone()
	return &c
}

func (r *Request) String() string {
	return r.dump(r.startLine())
}
