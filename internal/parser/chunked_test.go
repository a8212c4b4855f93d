package parser

import (
	"bufio"
	"strconv"
	"strings"
	"testing"

	"github.com/tony-montemuro/httpkit/internal/assert"
)

func TestChunkSizeParser_Parse(t *testing.T) {
	tests := []struct {
		name        string
		line        string
		expected    int64
		expectError bool
	}{
		{
			name:     "Single digit",
			line:     "a",
			expected: 10,
		},
		{
			name:     "Upper case",
			line:     "1F",
			expected: 31,
		},
		{
			name:     "Extension ignored",
			line:     "4;name=value",
			expected: 4,
		},
		{
			name:     "Zero",
			line:     "0",
			expected: 0,
		},
		{
			name:        "Not hex",
			line:        "zz",
			expectError: true,
		},
		{
			name:        "Empty",
			line:        ";ext",
			expectError: true,
		},
		{
			name:        "Too large",
			line:        "ffffffffffffffff",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := chunkSizeParser(tt.line).parse()
			if assert.ErrorStatus(t, err, tt.expectError) {
				assert.Equal(t, actual, tt.expected)
			}
		})
	}
}

func TestReadChunked(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    string
		trailers    []Field
		rest        string
		limit       int64
		partial     string
		expectError bool
	}{
		{
			name:     "Single chunk",
			input:    "5\r\nhello\r\n0\r\n\r\n",
			expected: "hello",
			trailers: []Field{},
		},
		{
			name:     "Several chunks with extensions",
			input:    "3;a=b\r\nabc\r\n4\r\n\r\nde\r\n0\r\n\r\n",
			expected: "abc\r\nde",
			trailers: []Field{},
		},
		{
			name:     "Empty body",
			input:    "0\r\n\r\n",
			expected: "",
			trailers: []Field{},
		},
		{
			name:     "Blank lines between chunks",
			input:    "2\r\nab\r\n\r\n2\r\ncd\r\n0\r\n\r\n",
			expected: "abcd",
			trailers: []Field{},
		},
		{
			name:     "Trailers",
			input:    "1\r\nx\r\n0\r\nExpires: never\r\n\r\n",
			expected: "x",
			trailers: []Field{{Name: "Expires", Value: "never"}},
		},
		{
			name:     "Next message left unread",
			input:    "1\r\nx\r\n0\r\n\r\nGET / HTTP/1.1",
			expected: "x",
			trailers: []Field{},
			rest:     "GET / HTTP/1.1",
		},
		{
			name:        "Short chunk",
			input:       "a\r\nabc",
			partial:     "abc",
			expectError: true,
		},
		{
			name:        "Malformed size after data",
			input:       "2\r\nok\r\nxyz\r\n",
			partial:     "ok",
			expectError: true,
		},
		{
			name:        "Data longer than declared size",
			input:       "3\r\nab\r\n0\r\n\r\n",
			partial:     "ab\r",
			expectError: true,
		},
		{
			name:        "Data shorter than declared size",
			input:       "3\r\nabcd\r\n0\r\n\r\n",
			partial:     "abc",
			expectError: true,
		},
		{
			name:     "Body at limit",
			input:    "3\r\nabc\r\n1\r\nd\r\n0\r\n\r\n",
			limit:    4,
			expected: "abcd",
			trailers: []Field{},
		},
		{
			name:        "Body over limit",
			input:       "3\r\nabc\r\n3\r\ndef\r\n0\r\n\r\n",
			limit:       4,
			partial:     "abc",
			expectError: true,
		},
		{
			name:        "Chunk size over limit before any data",
			input:       "ffffffffff\r\nab",
			limit:       1 << 20,
			partial:     "",
			expectError: true,
		},
		{
			name:        "Missing terminator",
			input:       "2\r\nok\r\n0\r\n",
			partial:     "ok",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bufio.NewReader(strings.NewReader(tt.input))
			body, trailers, err := ReadChunked(r, tt.limit)
			if assert.ErrorStatus(t, err, tt.expectError) {
				assert.BytesEqual(t, body, []byte(tt.expected))
				assert.SliceEqual(t, trailers, tt.trailers)
				rest := make([]byte, len(tt.rest))
				_, _ = r.Read(rest)
				assert.Equal(t, string(rest), tt.rest)
				return
			}

			perr := assert.ErrorAs[Error](t, err)
			assert.BytesEqual(t, perr.Partial(), []byte(tt.partial))
		})
	}
}

func TestReadChunked_ArbitrarySplits(t *testing.T) {
	body := "The quick brown fox\r\njumps over the lazy dog"

	for size := 1; size <= len(body); size++ {
		var b strings.Builder
		for i := 0; i < len(body); i += size {
			end := min(i+size, len(body))
			b.WriteString(strconv.FormatInt(int64(end-i), 16))
			b.WriteString("\r\n")
			b.WriteString(body[i:end])
			b.WriteString("\r\n")
		}
		b.WriteString("0\r\n\r\n")

		actual, _, err := ReadChunked(bufio.NewReader(strings.NewReader(b.String())), 0)
		assert.ErrorStatus(t, err, false)
		assert.Equal(t, string(actual), body)
	}
}
