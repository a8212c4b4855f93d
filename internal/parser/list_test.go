package parser

import (
	"testing"

	"github.com/tony-montemuro/httpkit/internal/assert"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected []string
	}{
		{
			name:     "Single element",
			value:    "chunked",
			expected: []string{"chunked"},
		},
		{
			name:     "Several elements",
			value:    "gzip, deflate,br",
			expected: []string{"gzip", "deflate", "br"},
		},
		{
			name:     "Empty elements dropped",
			value:    ", close,,",
			expected: []string{"close"},
		},
		{
			name:     "Empty value",
			value:    "",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.SliceEqual(t, SplitList(tt.value), tt.expected)
		})
	}
}

func TestParseCodings(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected []Coding
	}{
		{
			name:     "No quality values",
			value:    "gzip, deflate",
			expected: []Coding{{Name: "gzip", Quality: 1}, {Name: "deflate", Quality: 1}},
		},
		{
			name:     "Quality values",
			value:    "GZIP;q=0.5, deflate;q=0, *;q=0.1",
			expected: []Coding{{Name: "gzip", Quality: 0.5}, {Name: "deflate", Quality: 0}, {Name: "*", Quality: 0.1}},
		},
		{
			name:     "Malformed element skipped",
			value:    "gzip;q=2, identity",
			expected: []Coding{{Name: "identity", Quality: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.SliceEqual(t, ParseCodings(tt.value), tt.expected)
		})
	}
}
