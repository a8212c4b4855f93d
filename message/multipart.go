package message

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/tony-montemuro/httpkit/internal/parser"
)

const ContentTypeMultipart = "multipart/form-data"

type BodyPart struct {
	Name        string
	Disposition string
	Params      Header
	Header      Header
	Data        []byte
}

func (p *BodyPart) Filename() string {
	return p.Params.Get("filename")
}

// Parts is an ordered collection of body parts. Adding a part with a name
// that is already present replaces the earlier part in place.
type Parts struct {
	parts  []*BodyPart
	byName map[string]int
}

func (p *Parts) add(part *BodyPart) {
	if p.byName == nil {
		p.byName = map[string]int{}
	}

	if part.Name != "" {
		if i, ok := p.byName[part.Name]; ok {
			p.parts[i] = part
			return
		}
		p.byName[part.Name] = len(p.parts)
	}

	p.parts = append(p.parts, part)
}

func (p *Parts) Len() int {
	return len(p.parts)
}

func (p *Parts) At(i int) *BodyPart {
	return p.parts[i]
}

func (p *Parts) All() []*BodyPart {
	return p.parts
}

func (p *Parts) Get(name string) (*BodyPart, bool) {
	i, ok := p.byName[name]
	if !ok {
		return nil, false
	}

	return p.parts[i], true
}

func (p *Parts) Names() []string {
	names := []string{}
	for _, part := range p.parts {
		if part.Name != "" {
			names = append(names, part.Name)
		}
	}

	return names
}

func single(body []byte) *Parts {
	p := &Parts{}
	p.add(&BodyPart{Data: body})
	return p
}

// Parts splits a multipart/form-data body into its parts. Any other content
// yields a single unnamed part holding the whole body.
func (e *Entity) Parts() (*Parts, error) {
	ct, ok := e.ContentType()
	if !ok || ct.MediaType() != ContentTypeMultipart {
		return single(e.body), nil
	}

	boundary, ok := ct.Param("boundary")
	if !ok || boundary == "" {
		boundary, ok = parser.SniffBoundary(e.body)
		if !ok {
			return single(e.body), nil
		}
	}

	regions, err := parser.ScanMultipart(e.body, boundary)
	if err != nil {
		return nil, err
	}

	parts := &Parts{}
	for _, region := range regions {
		part, err := decodePart(region)
		if err != nil {
			return nil, err
		}
		parts.add(part)
	}

	return parts, nil
}

func decodePart(region parser.PartRegion) (*BodyPart, error) {
	fields, err := parser.ReadHeaders(region.Head)
	if err != nil {
		return nil, err
	}

	part := &BodyPart{Header: HeaderFromFields(fields), Data: region.Body}

	disposition, ok := part.Header.Lookup("Content-Disposition")
	if !ok {
		return part, nil
	}

	kind, params, err := parser.ParseDisposition(disposition)
	if err != nil {
		return nil, err
	}

	part.Disposition = kind
	part.Params = HeaderFromFields(params)
	part.Name = part.Params.Get("name")
	return part, nil
}

// Multipart builds a multipart/form-data body.
type Multipart struct {
	Boundary string
	buf      bytes.Buffer
	closed   bool
}

// NewMultipart starts a body with boundary, or a random one when it is empty.
func NewMultipart(boundary string) *Multipart {
	if boundary == "" {
		b := make([]byte, 16)
		_, _ = rand.Read(b)
		boundary = "httpkit-" + hex.EncodeToString(b)
	}

	return &Multipart{Boundary: boundary}
}

func (m *Multipart) AddField(name, value string) {
	m.AddPart(`form-data; name="`+quoteEscape(name)+`"`, "", []byte(value))
}

func (m *Multipart) AddFile(name, filename, contentType string, data []byte) {
	disposition := `form-data; name="` + quoteEscape(name) + `"; filename="` + quoteEscape(filename) + `"`
	m.AddPart(disposition, contentType, data)
}

func (m *Multipart) AddPart(disposition, contentType string, data []byte) {
	m.buf.WriteString("--" + m.Boundary + crlf)
	m.buf.WriteString("Content-Disposition: " + disposition + crlf)
	if contentType != "" {
		m.buf.WriteString("Content-Type: " + contentType + crlf)
	}
	m.buf.WriteString(crlf)
	m.buf.Write(data)
	m.buf.WriteString(crlf)
}

// Bytes closes the body with the terminating boundary and returns it.
func (m *Multipart) Bytes() []byte {
	if !m.closed {
		m.buf.WriteString("--" + m.Boundary + "--" + crlf)
		m.closed = true
	}

	return m.buf.Bytes()
}

func (m *Multipart) ContentType() string {
	return ContentTypeMultipart + "; boundary=" + strconv.Quote(m.Boundary)
}

func (e *Entity) SetMultipart(m *Multipart) {
	e.SetBody(m.Bytes(), m.ContentType())
}

func quoteEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
