package message

import (
	"fmt"
	"testing"

	"github.com/tony-montemuro/httpkit/internal/assert"
)

func TestEntity_Parts(t *testing.T) {
	for _, k := range []int{0, 1, 5} {
		t.Run(fmt.Sprintf("%d parts", k), func(t *testing.T) {
			m := NewMultipart("----boundary42")
			names := []string{}
			for i := range k {
				name := fmt.Sprintf("field%d", i)
				names = append(names, name)
				m.AddField(name, fmt.Sprintf("line one\r\nline two\r\n\r\nvalue %d", i))
			}

			r := NewRequest(MethodPost, "/upload")
			r.SetMultipart(m)

			parts, err := r.Parts()
			if !assert.ErrorStatus(t, err, false) {
				return
			}

			assert.Equal(t, parts.Len(), k)
			assert.SliceEqual(t, parts.Names(), names)
			for i, name := range names {
				part, ok := parts.Get(name)
				assert.Equal(t, ok, true)
				assert.Equal(t, part.Disposition, "form-data")
				assert.BytesEqual(t, part.Data, fmt.Appendf(nil, "line one\r\nline two\r\n\r\nvalue %d", i))
			}
		})
	}
}

func TestEntity_PartsFile(t *testing.T) {
	m := NewMultipart("")
	m.AddFile("upload", `report "final".csv`, "text/csv", []byte("a,b\r\n1,2\r\n"))

	r := NewRequest(MethodPost, "/upload")
	r.SetMultipart(m)

	parts, err := r.Parts()
	assert.ErrorStatus(t, err, false)

	part, ok := parts.Get("upload")
	assert.Equal(t, ok, true)
	assert.Equal(t, part.Filename(), `report "final".csv`)
	assert.Equal(t, part.Header.Get("content-type"), "text/csv")
	assert.BytesEqual(t, part.Data, []byte("a,b\r\n1,2\r\n"))
}

func TestEntity_PartsDuplicateNames(t *testing.T) {
	m := NewMultipart("b")
	m.AddField("a", "first")
	m.AddField("b", "middle")
	m.AddField("a", "second")

	r := NewRequest(MethodPost, "/")
	r.SetMultipart(m)

	parts, err := r.Parts()
	assert.ErrorStatus(t, err, false)
	assert.Equal(t, parts.Len(), 2)
	assert.SliceEqual(t, parts.Names(), []string{"a", "b"})

	part, _ := parts.Get("a")
	assert.Equal(t, string(part.Data), "second")
}

func TestEntity_PartsFallbacks(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		parts       int
		first       string
		expectError bool
	}{
		{
			name:        "Not multipart",
			contentType: "text/plain",
			body:        "just text",
			parts:       1,
			first:       "just text",
		},
		{
			name:  "No content type",
			body:  "raw",
			parts: 1,
			first: "raw",
		},
		{
			name:        "Boundary sniffed from body",
			contentType: "multipart/form-data",
			body:        "--xyz\r\nContent-Disposition: form-data; name=\"n\"\r\n\r\nv\r\n--xyz--\r\n",
			parts:       1,
			first:       "v",
		},
		{
			name:        "No line break to sniff",
			contentType: "multipart/form-data",
			body:        "opaque",
			parts:       1,
			first:       "opaque",
		},
		{
			name:        "Wrong boundary",
			contentType: "multipart/form-data; boundary=abc",
			body:        "--xyz\r\n\r\nv\r\n--xyz--\r\n",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRequest(MethodPost, "/")
			r.SetBody([]byte(tt.body), tt.contentType)

			parts, err := r.Parts()
			if !assert.ErrorStatus(t, err, tt.expectError) {
				return
			}

			assert.Equal(t, parts.Len(), tt.parts)
			assert.Equal(t, string(parts.At(0).Data), tt.first)
		})
	}
}
