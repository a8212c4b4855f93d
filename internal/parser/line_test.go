package parser

import (
	"testing"

	"github.com/tony-montemuro/httpkit/internal/assert"
)

func TestRequestLineParser_Parse(t *testing.T) {
	tests := []struct {
		name        string
		line        string
		expected    ParsedRequestLine
		expectError bool
	}{
		{
			name:        "Standard GET method",
			line:        "GET / HTTP/1.0",
			expected:    ParsedRequestLine{Method: "GET", Target: "/", Version: "HTTP/1.0"},
			expectError: false,
		},
		{
			name:        "POST with query",
			line:        "POST /data/document/4?foo=bar HTTP/1.1",
			expected:    ParsedRequestLine{Method: "POST", Target: "/data/document/4?foo=bar", Version: "HTTP/1.1"},
			expectError: false,
		},
		{
			name:        "Absolute form target",
			line:        "GET http://example.com/x HTTP/1.1",
			expected:    ParsedRequestLine{Method: "GET", Target: "http://example.com/x", Version: "HTTP/1.1"},
			expectError: false,
		},
		{
			name:        "Incomplete line",
			line:        "GET /test",
			expectError: true,
		},
		{
			name:        "Overcomplete line",
			line:        "HEAD /test/document?baz=x HTTP/1.0 bad",
			expectError: true,
		},
		{
			name:        "Double space",
			line:        "GET  / HTTP/1.1",
			expectError: true,
		},
		{
			name:        "Bad method",
			line:        "WR\rONG / HTTP/1.0",
			expectError: true,
		},
		{
			name:        "Control character in target",
			line:        "GET /a\x7f HTTP/1.1",
			expectError: true,
		},
		{
			name:        "Bad version",
			line:        "GET / HTTP/0.9",
			expectError: true,
		},
		{
			name:        "Wrong protocol",
			line:        "GET / HTTPS/1.1",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := ParseRequestLine(tt.line)
			if assert.ErrorStatus(t, err, tt.expectError) {
				assert.Equal(t, actual, tt.expected)
			}
		})
	}
}

func TestStatusLineParser_Parse(t *testing.T) {
	tests := []struct {
		name        string
		line        string
		expected    ParsedStatusLine
		expectError bool
	}{
		{
			name:     "OK",
			line:     "HTTP/1.1 200 OK",
			expected: ParsedStatusLine{Version: "HTTP/1.1", Code: 200, Reason: "OK"},
		},
		{
			name:     "Reason with spaces",
			line:     "HTTP/1.0 404 Not Found",
			expected: ParsedStatusLine{Version: "HTTP/1.0", Code: 404, Reason: "Not Found"},
		},
		{
			name:     "Missing reason",
			line:     "HTTP/1.1 204",
			expected: ParsedStatusLine{Version: "HTTP/1.1", Code: 204},
		},
		{
			name:        "Non numeric code",
			line:        "HTTP/1.1 abc OK",
			expectError: true,
		},
		{
			name:        "Negative code",
			line:        "HTTP/1.1 -200 OK",
			expectError: true,
		},
		{
			name:        "Missing code",
			line:        "HTTP/1.1",
			expectError: true,
		},
		{
			name:        "Malformed version",
			line:        "HTTP/x.1 200 OK",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := ParseStatusLine(tt.line)
			if assert.ErrorStatus(t, err, tt.expectError) {
				assert.Equal(t, actual, tt.expected)
			}
			if err != nil {
				requireParseError(t, err)
			}
		})
	}
}

func requireParseError(t *testing.T, err error) {
	t.Helper()
	assert.ErrorAs[Error](t, err)
}
