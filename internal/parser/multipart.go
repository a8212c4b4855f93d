package parser

import (
	"bytes"
)

type PartRegion struct {
	Head []byte
	Body []byte
}

type boundaryScanner struct {
	body      []byte
	delimiter []byte
}

func newBoundaryScanner(body []byte, boundary string) boundaryScanner {
	return boundaryScanner{body: body, delimiter: []byte(crlf + "--" + boundary)}
}

// starts returns the offset just past every delimiter in the body. The body
// is treated as if it were preceded by CRLF so a leading delimiter is found.
func (s boundaryScanner) starts() []int {
	starts := []int{}
	prefixed := append([]byte(crlf), s.body...)

	i := 0
	for {
		j := bytes.Index(prefixed[i:], s.delimiter)
		if j == -1 {
			return starts
		}
		end := i + j + len(s.delimiter)
		starts = append(starts, end-len(crlf))
		i = end
	}
}

func (s boundaryScanner) scan() ([]PartRegion, error) {
	starts := s.starts()
	if len(starts) == 0 {
		return nil, Errorf("Invalid multipart body: boundary %q not found", s.delimiter[len(crlf)+2:])
	}

	regions := []PartRegion{}
	for i, start := range starts {
		segment := s.body[start:]
		if i+1 < len(starts) {
			segment = s.body[start : starts[i+1]-len(s.delimiter)]
		}

		if bytes.HasPrefix(segment, []byte("--")) {
			return regions, nil
		}
		if i+1 == len(starts) {
			return nil, Errorf("Invalid multipart body: missing closing boundary")
		}

		region, err := splitPart(segment)
		if err != nil {
			return nil, err
		}
		regions = append(regions, region)
	}

	return regions, nil
}

// splitPart separates a part's header block from its content.
func splitPart(segment []byte) (PartRegion, error) {
	nl := bytes.Index(segment, []byte(crlf))
	if nl == -1 {
		return PartRegion{}, Errorf("Invalid multipart body: malformed boundary line")
	}
	segment = segment[nl+len(crlf):]

	if bytes.HasPrefix(segment, []byte(crlf)) {
		return PartRegion{Head: []byte{}, Body: segment[len(crlf):]}, nil
	}

	head, body, found := bytes.Cut(segment, []byte(crlf+crlf))
	if !found {
		return PartRegion{}, Errorf("Invalid multipart body: part headers are not terminated")
	}

	return PartRegion{Head: head, Body: body}, nil
}

// ScanMultipart splits a multipart body into the raw regions of its parts.
func ScanMultipart(body []byte, boundary string) ([]PartRegion, error) {
	if boundary == "" {
		return nil, Errorf("Invalid multipart body: empty boundary")
	}

	return newBoundaryScanner(body, boundary).scan()
}

// SniffBoundary guesses the boundary from the first CR terminated line of the
// body. It reports false when the body has no line break.
func SniffBoundary(body []byte) (string, bool) {
	line, _, found := bytes.Cut(body, []byte{'\r'})
	if !found {
		return "", false
	}

	return string(bytes.TrimPrefix(line, []byte("--"))), true
}
