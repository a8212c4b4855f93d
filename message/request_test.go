package message

import (
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"

	"github.com/tony-montemuro/httpkit/internal/assert"
)

func TestReadRequest(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		method      Method
		path        string
		query       string
		version     string
		body        string
		expectError bool
	}{
		{
			name:    "Simple GET",
			input:   "GET /ping HTTP/1.1\r\nHost: localhost\r\n\r\n",
			method:  MethodGet,
			path:    "/ping",
			version: "HTTP/1.1",
		},
		{
			name:    "Leading blank lines",
			input:   "\r\n\r\nGET / HTTP/1.0\r\n\r\n",
			method:  MethodGet,
			path:    "/",
			version: "HTTP/1.0",
		},
		{
			name:    "Query string",
			input:   "GET /search?q=go&page=2 HTTP/1.1\r\n\r\n",
			method:  MethodGet,
			path:    "/search",
			query:   "q=go&page=2",
			version: "HTTP/1.1",
		},
		{
			name:    "Absolute form target",
			input:   "GET http://example.com/a/b?c=d HTTP/1.1\r\n\r\n",
			method:  MethodGet,
			path:    "/a/b",
			query:   "c=d",
			version: "HTTP/1.1",
		},
		{
			name:    "GET ignores body headers",
			input:   "GET / HTTP/1.1\r\nContent-Length: 5\r\n\r\n",
			method:  MethodGet,
			path:    "/",
			version: "HTTP/1.1",
		},
		{
			name:    "DELETE ignores body headers",
			input:   "DELETE /x HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n",
			method:  MethodDelete,
			path:    "/x",
			version: "HTTP/1.1",
		},
		{
			name:    "POST with Content-Length",
			input:   "POST /echo HTTP/1.1\r\nContent-Length: 11\r\n\r\nhello world",
			method:  MethodPost,
			path:    "/echo",
			version: "HTTP/1.1",
			body:    "hello world",
		},
		{
			name:    "POST chunked",
			input:   "POST /echo HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n",
			method:  MethodPost,
			path:    "/echo",
			version: "HTTP/1.1",
			body:    "hello world",
		},
		{
			name:    "PUT without framing",
			input:   "PUT /x HTTP/1.1\r\n\r\n",
			method:  MethodPut,
			path:    "/x",
			version: "HTTP/1.1",
		},
		{
			name:        "Unknown method",
			input:       "BREW /pot HTTP/1.1\r\n\r\n",
			expectError: true,
		},
		{
			name:        "Relative target",
			input:       "GET pot HTTP/1.1\r\n\r\n",
			expectError: true,
		},
		{
			name:        "Negative Content-Length",
			input:       "POST / HTTP/1.1\r\nContent-Length: -1\r\n\r\n",
			expectError: true,
		},
		{
			name:        "Non numeric Content-Length",
			input:       "POST / HTTP/1.1\r\nContent-Length: ten\r\n\r\n",
			expectError: true,
		},
		{
			name:        "Unsupported transfer coding",
			input:       "POST / HTTP/1.1\r\nTransfer-Encoding: compress\r\n\r\n",
			expectError: true,
		},
		{
			name:        "Truncated start line",
			input:       "GET / HT",
			expectError: true,
		},
		{
			name:        "Truncated headers",
			input:       "GET / HTTP/1.1\r\nHost: x\r\n",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newMemStream(tt.input)
			r, err := ReadRequest(s, ReadOptions{})
			if !assert.ErrorStatus(t, err, tt.expectError) {
				if err != nil {
					assert.Equal(t, IsParseError(err), true)
				}
				return
			}

			assert.Equal(t, r.Method, tt.method)
			assert.Equal(t, r.Path, tt.path)
			assert.Equal(t, r.RawQuery, tt.query)
			assert.Equal(t, r.Version, tt.version)
			assert.Equal(t, string(r.Body()), tt.body)
		})
	}
}

func TestReadRequest_EOF(t *testing.T) {
	s, _ := newMemStream("")
	_, err := ReadRequest(s, ReadOptions{})

	assert.Equal(t, errors.Is(err, io.EOF), true)
	assert.Equal(t, IsParseError(err), false)
	assert.Equal(t, s.HalfShut(), true)
}

func TestReadRequest_TruncatedBody(t *testing.T) {
	s, _ := newMemStream("POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\nabc")
	_, err := ReadRequest(s, ReadOptions{})

	perr := assert.ErrorAs[ParseError](t, err)
	assert.BytesEqual(t, perr.Partial(), []byte("abc"))
}

func TestReadRequest_BodyLimit(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		limit       int64
		body        string
		partial     string
		expectError bool
	}{
		{
			name:  "Content-Length at limit",
			input: "POST / HTTP/1.1\r\nContent-Length: 4\r\n\r\nabcd",
			limit: 4,
			body:  "abcd",
		},
		{
			name:        "Content-Length over limit",
			input:       "POST / HTTP/1.1\r\nContent-Length: 5\r\n\r\nabcde",
			limit:       4,
			expectError: true,
		},
		{
			name:        "Huge Content-Length under default limit",
			input:       "POST / HTTP/1.1\r\nContent-Length: 400000000000\r\n\r\nab",
			expectError: true,
		},
		{
			name:        "Largest Content-Length",
			input:       "POST / HTTP/1.1\r\nContent-Length: 9223372036854775807\r\n\r\n",
			expectError: true,
		},
		{
			name:        "Chunked body over limit",
			input:       "POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n3\r\nabc\r\n3\r\ndef\r\n0\r\n\r\n",
			limit:       4,
			partial:     "abc",
			expectError: true,
		},
		{
			name:        "Chunk size over default limit",
			input:       "POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\nffffffffff\r\nab",
			expectError: true,
		},
		{
			name:        "Chunk data longer than declared",
			input:       "POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n3\r\nab\r\n0\r\n\r\n",
			partial:     "ab\r",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newMemStream(tt.input)
			r, err := ReadRequest(s, ReadOptions{MaxBodyBytes: tt.limit})
			if assert.ErrorStatus(t, err, tt.expectError) {
				assert.Equal(t, string(r.Body()), tt.body)
				return
			}

			perr := assert.ErrorAs[ParseError](t, err)
			assert.BytesEqual(t, perr.Partial(), []byte(tt.partial))
		})
	}
}

func TestReadRequest_HeaderLimit(t *testing.T) {
	input := "GET / HTTP/1.1\r\nX-Big: " + strings.Repeat("a", 200) + "\r\n\r\n"

	s, _ := newMemStream(input)
	_, err := ReadRequest(s, ReadOptions{MaxHeaderBytes: 100})
	assert.Equal(t, IsParseError(err), true)

	s, _ = newMemStream(input)
	_, err = ReadRequest(s, ReadOptions{MaxHeaderBytes: 1000})
	assert.ErrorStatus(t, err, false)
}

func TestReadRequest_Pipelined(t *testing.T) {
	s, _ := newMemStream("POST /a HTTP/1.1\r\nContent-Length: 2\r\n\r\nhiGET /b HTTP/1.1\r\n\r\n")

	first, err := ReadRequest(s, ReadOptions{})
	assert.ErrorStatus(t, err, false)
	assert.Equal(t, first.Path, "/a")
	assert.Equal(t, string(first.Body()), "hi")

	second, err := ReadRequest(s, ReadOptions{})
	assert.ErrorStatus(t, err, false)
	assert.Equal(t, second.Path, "/b")
}

func TestRequest_Write(t *testing.T) {
	tests := []struct {
		name        string
		request     func() *Request
		expected    string
		expectError bool
	}{
		{
			name: "GET without body",
			request: func() *Request {
				r := NewRequest(MethodGet, "/ping?x=1")
				r.Header.Set("Host", "localhost")
				return r
			},
			expected: "GET /ping?x=1 HTTP/1.1\r\nHost: localhost\r\n\r\n",
		},
		{
			name: "GET drops a body",
			request: func() *Request {
				r := NewRequest(MethodGet, "/")
				r.SetText("ignored")
				return r
			},
			expected: "GET / HTTP/1.1\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n",
		},
		{
			name: "POST with form",
			request: func() *Request {
				r := NewRequest(MethodPost, "/login")
				r.SetForm(url.Values{"user": {"a b"}})
				return r
			},
			expected: "POST /login HTTP/1.1\r\nContent-Type: application/x-www-form-urlencoded\r\nContent-Length: 8\r\n\r\nuser=a+b",
		},
		{
			name: "POST without body declares zero length",
			request: func() *Request {
				return NewRequest(MethodPost, "/")
			},
			expected: "POST / HTTP/1.1\r\nContent-Length: 0\r\n\r\n",
		},
		{
			name: "Chunked POST",
			request: func() *Request {
				r := NewRequest(MethodPost, "/up")
				r.SetBody([]byte("abcdefg"), "application/octet-stream")
				r.Header.Set("Transfer-Encoding", "chunked")
				r.ChunkSize = 3
				return r
			},
			expected: "POST /up HTTP/1.1\r\nContent-Type: application/octet-stream\r\nTransfer-Encoding: chunked\r\n\r\n3\r\nabc\r\n3\r\ndef\r\n1\r\ng\r\n0\r\n\r\n",
		},
		{
			name: "Missing method",
			request: func() *Request {
				return NewRequest("", "/")
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, m := newMemStream("")
			err := tt.request().Write(s, 0)
			if !assert.ErrorStatus(t, err, tt.expectError) {
				if err != nil {
					assert.Equal(t, IsValidationError(err), true)
				}
				return
			}

			assert.Equal(t, m.written(), tt.expected)
		})
	}
}

func TestRequest_WriteHooks(t *testing.T) {
	s, _ := newMemStream("")
	calls := 0

	r := NewRequest(MethodGet, "/")
	r.AfterWrite = func() { calls++ }

	assert.ErrorStatus(t, r.Write(s, 0), false)
	assert.Equal(t, calls, 1)

	failing := NewStream(failingTransport{})
	handled := false
	r.OnWriteError = func(err error) bool {
		handled = true
		return true
	}

	assert.ErrorStatus(t, r.Write(failing, 0), false)
	assert.Equal(t, handled, true)
	assert.Equal(t, calls, 1)

	r.OnWriteError = nil
	assert.ErrorStatus(t, r.Write(failing, 0), true)
}

func TestRequest_RoundTrip(t *testing.T) {
	r := NewRequest(MethodPut, "/doc/1")
	r.Header.Set("Host", "example.com")
	r.Header.Add("X-Tag", "a")
	r.Header.Add("X-Tag", "b")
	assert.ErrorStatus(t, r.SetJSON(map[string]int{"n": 1}), false)

	s, m := newMemStream("")
	assert.ErrorStatus(t, r.Write(s, 0), false)

	parsed, err := ReadRequest(NewStream(&memTransport{in: strings.NewReader(m.written())}), ReadOptions{})
	assert.ErrorStatus(t, err, false)
	assert.Equal(t, parsed.Method, MethodPut)
	assert.Equal(t, parsed.Target(), "/doc/1")
	assert.SliceEqual(t, parsed.Header.Values("x-tag"), []string{"a", "b"})

	var decoded map[string]int
	assert.ErrorStatus(t, parsed.DecodeJSON(&decoded), false)
	assert.MapEqual(t, decoded, map[string]int{"n": 1})
}

func TestRequest_KeepAlive(t *testing.T) {
	tests := []struct {
		name       string
		version    string
		connection string
		expected   bool
	}{
		{name: "HTTP/1.1 default", version: "HTTP/1.1", expected: true},
		{name: "HTTP/1.1 close", version: "HTTP/1.1", connection: "close", expected: false},
		{name: "HTTP/1.0 default", version: "HTTP/1.0", expected: false},
		{name: "HTTP/1.0 keep-alive", version: "HTTP/1.0", connection: "Keep-Alive", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRequest(MethodGet, "/")
			r.Version = tt.version
			if tt.connection != "" {
				r.Header.Set("Connection", tt.connection)
			}
			assert.Equal(t, r.KeepAlive(), tt.expected)
		})
	}
}

type failingTransport struct{}

func (failingTransport) Read([]byte) (int, error)  { return 0, io.EOF }
func (failingTransport) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }
func (failingTransport) Close() error              { return nil }
