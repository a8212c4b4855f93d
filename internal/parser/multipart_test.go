package parser

import (
	"testing"

	"github.com/tony-montemuro/httpkit/internal/assert"
)

func TestScanMultipart(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		boundary    string
		expected    []PartRegion
		expectError bool
	}{
		{
			name:     "No parts",
			body:     "--xyz--\r\n",
			boundary: "xyz",
			expected: []PartRegion{},
		},
		{
			name:     "One part",
			body:     "--xyz\r\nContent-Disposition: form-data; name=\"a\"\r\n\r\nhello\r\n--xyz--\r\n",
			boundary: "xyz",
			expected: []PartRegion{
				{Head: []byte("Content-Disposition: form-data; name=\"a\""), Body: []byte("hello")},
			},
		},
		{
			name:     "Embedded CRLF and preamble",
			body:     "preamble\r\n--xyz\r\nX: 1\r\n\r\nline one\r\n\r\nline two\r\n--xyz\r\n\r\nno headers\r\n--xyz--",
			boundary: "xyz",
			expected: []PartRegion{
				{Head: []byte("X: 1"), Body: []byte("line one\r\n\r\nline two")},
				{Head: []byte{}, Body: []byte("no headers")},
			},
		},
		{
			name:        "Boundary absent",
			body:        "plain text",
			boundary:    "xyz",
			expectError: true,
		},
		{
			name:        "Missing closing boundary",
			body:        "--xyz\r\nX: 1\r\n\r\ndata",
			boundary:    "xyz",
			expectError: true,
		},
		{
			name:        "Unterminated part headers",
			body:        "--xyz\r\nX: 1\r\n--xyz--",
			boundary:    "xyz",
			expectError: true,
		},
		{
			name:        "Empty boundary",
			body:        "--\r\n",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := ScanMultipart([]byte(tt.body), tt.boundary)
			if !assert.ErrorStatus(t, err, tt.expectError) {
				return
			}

			assert.Equal(t, len(actual), len(tt.expected))
			for i := range min(len(actual), len(tt.expected)) {
				assert.BytesEqual(t, actual[i].Head, tt.expected[i].Head)
				assert.BytesEqual(t, actual[i].Body, tt.expected[i].Body)
			}
		})
	}
}

func TestSniffBoundary(t *testing.T) {
	boundary, ok := SniffBoundary([]byte("--abc123\r\nX: 1\r\n"))
	assert.Equal(t, ok, true)
	assert.Equal(t, boundary, "abc123")

	_, ok = SniffBoundary([]byte("no line break"))
	assert.Equal(t, ok, false)
}
