package message

import (
	"encoding/json"
	"encoding/xml"
	"net/url"
	"strconv"
	"strings"

	"github.com/tony-montemuro/httpkit/internal/parser"
	"golang.org/x/text/encoding/htmlindex"
)

const (
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypeForm = "application/x-www-form-urlencoded"
	ContentTypeXML  = "application/xml; charset=utf-8"
	ContentTypeJSON = "application/json"
)

type ContentType = parser.ParsedContentType

// SetBody replaces the body. An empty contentType leaves Content-Type untouched.
func (e *Entity) SetBody(body []byte, contentType string) {
	e.body = body
	e.wire = nil
	e.Header.Drop("Content-Encoding")
	if contentType != "" {
		e.Header.Set("Content-Type", contentType)
	}
	e.Header.Set("Content-Length", strconv.Itoa(len(body)))
}

// DropBody removes the body together with the headers describing it.
func (e *Entity) DropBody() {
	e.body = nil
	e.wire = nil
	for _, name := range []string{"Content-Type", "Content-Length", "Content-Encoding", "Transfer-Encoding"} {
		e.Header.Drop(name)
	}
}

func (e *Entity) SetText(text string) {
	e.SetBody([]byte(text), ContentTypeText)
}

func (e *Entity) SetForm(values url.Values) {
	e.SetBody([]byte(values.Encode()), ContentTypeForm)
}

func (e *Entity) SetXML(v any) error {
	body, err := xml.Marshal(v)
	if err != nil {
		return &ValidationError{message: "cannot encode XML body: " + err.Error()}
	}

	e.SetBody(append([]byte(xml.Header), body...), ContentTypeXML)
	return nil
}

func (e *Entity) SetJSON(v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return &ValidationError{message: "cannot encode JSON body: " + err.Error()}
	}

	e.SetBody(body, ContentTypeJSON)
	return nil
}

// setWireBody stores an already encoded body along with its coding.
func (e *Entity) setWireBody(wire []byte, coding string) {
	e.wire = wire
	e.Header.Set("Content-Encoding", coding)
	e.Header.Set("Content-Length", strconv.Itoa(len(wire)))
}

// ContentType parses the Content-Type header. It reports false when the
// header is missing or malformed.
func (e *Entity) ContentType() (ContentType, bool) {
	v, ok := e.Header.Lookup("Content-Type")
	if !ok {
		return ContentType{}, false
	}

	ct, err := parser.ParseContentType(v)
	if err != nil {
		return ContentType{}, false
	}

	return ct, true
}

// charset returns the declared charset, or the default for the media type.
func (e *Entity) charset() string {
	ct, ok := e.ContentType()
	if !ok {
		return "us-ascii"
	}
	if cs, ok := ct.Param("charset"); ok {
		return cs
	}
	if ct.MediaType() == "application/json" {
		return "utf-8"
	}

	return "us-ascii"
}

// Text decodes the body with its declared charset.
func (e *Entity) Text() (string, error) {
	return decodeText(e.body, e.charset())
}

func decodeText(body []byte, charset string) (string, error) {
	if strings.EqualFold(charset, "utf-8") || strings.EqualFold(charset, "utf8") {
		return string(body), nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return "", &ValidationError{message: "unknown charset (" + charset + ")"}
	}

	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", &ValidationError{message: "cannot decode " + charset + " body: " + err.Error()}
	}

	return string(decoded), nil
}

func (e *Entity) Form() (url.Values, error) {
	values, err := url.ParseQuery(string(e.body))
	if err != nil {
		return nil, parser.Errorf("Invalid form body: %s", err.Error())
	}

	return values, nil
}

func (e *Entity) DecodeJSON(v any) error {
	err := json.Unmarshal(e.body, v)
	if err != nil {
		return parser.Errorf("Invalid JSON body: %s", err.Error())
	}

	return nil
}
