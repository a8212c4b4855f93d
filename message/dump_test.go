package message

import (
	"strings"
	"testing"

	"github.com/tony-montemuro/httpkit/internal/assert"
)

func TestEntity_String(t *testing.T) {
	tests := []struct {
		name     string
		response func() *Response
		contains []string
		excludes []string
	}{
		{
			name: "Text body",
			response: func() *Response {
				r := NewResponse(StatusOK)
				r.SetText("pong")
				return r
			},
			contains: []string{"HTTP/1.1 200 OK\n", "Content-Type: text/plain; charset=utf-8\n", "\n\npong"},
		},
		{
			name: "Truncated text",
			response: func() *Response {
				r := NewResponse(StatusOK)
				r.SetText(strings.Repeat("x", 50))
				r.DumpLimit = 10
				return r
			},
			contains: []string{"\n\nxxxxxxxxxx\n... [truncated, 50 B total]"},
			excludes: []string{"xxxxxxxxxxx"},
		},
		{
			name: "JSON defaults to UTF-8",
			response: func() *Response {
				r := NewResponse(StatusOK)
				r.SetBody([]byte(`{"name":"café"}`), "application/json")
				return r
			},
			contains: []string{`{"name":"café"}`},
		},
		{
			name: "Declared charset",
			response: func() *Response {
				r := NewResponse(StatusOK)
				r.SetBody([]byte{'c', 'a', 'f', 0xe9}, "text/plain; charset=iso-8859-1")
				return r
			},
			contains: []string{"café"},
		},
		{
			name: "Binary body",
			response: func() *Response {
				r := NewResponse(StatusOK)
				r.SetBody([]byte{0x00, 0x01, 0x02}, "application/octet-stream")
				return r
			},
			contains: []string{"00000000  00 01 02"},
		},
		{
			name: "Folded header on separate lines",
			response: func() *Response {
				r := NewResponse(StatusFound)
				r.Header.Add("Set-Cookie", "a=1")
				r.Header.Add("Set-Cookie", "b=2")
				return r
			},
			contains: []string{"HTTP/1.1 302 Found\n", "Set-Cookie: a=1\nSet-Cookie: b=2\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dump := tt.response().String()
			for _, s := range tt.contains {
				if !strings.Contains(dump, s) {
					t.Errorf("dump %q does not contain %q", dump, s)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(dump, s) {
					t.Errorf("dump %q should not contain %q", dump, s)
				}
			}
		})
	}
}

func TestEntity_Text(t *testing.T) {
	r := NewRequest(MethodPost, "/")
	r.SetBody([]byte{'n', 0xe4, 'h'}, "text/plain; charset=windows-1252")

	text, err := r.Text()
	assert.ErrorStatus(t, err, false)
	assert.Equal(t, text, "näh")

	r.SetBody([]byte("x"), "text/plain; charset=no-such-charset")
	_, err = r.Text()
	assert.ErrorStatus(t, err, true)
}

func TestEntity_Form(t *testing.T) {
	r := NewRequest(MethodPost, "/")
	r.SetBody([]byte("a=1&b=two+words&a=3"), ContentTypeForm)

	form, err := r.Form()
	assert.ErrorStatus(t, err, false)
	assert.SliceEqual(t, form["a"], []string{"1", "3"})
	assert.Equal(t, form.Get("b"), "two words")
}

func TestEntity_SetXML(t *testing.T) {
	type note struct {
		To   string `xml:"to"`
		Body string `xml:"body"`
	}

	r := NewRequest(MethodPost, "/")
	assert.ErrorStatus(t, r.SetXML(note{To: "a", Body: "b"}), false)

	assert.Equal(t, r.Header.Get("Content-Type"), ContentTypeXML)
	assert.Equal(t, string(r.Body()), `<?xml version="1.0" encoding="UTF-8"?>`+"\n"+`<note><to>a</to><body>b</body></note>`)
	assert.Equal(t, r.Header.Get("Content-Length"), "76")
}
