package message

import (
	"bytes"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/tony-montemuro/httpkit/internal/parser"
)

const (
	EncodingIdentity = "identity"
	EncodingGzip     = "gzip"
	EncodingXGzip    = "x-gzip"
	EncodingDeflate  = "deflate"
)

func Compress(coding string, body []byte) ([]byte, error) {
	var buf bytes.Buffer
	var w io.WriteCloser

	switch strings.ToLower(coding) {
	case EncodingGzip, EncodingXGzip:
		w = gzip.NewWriter(&buf)
	case EncodingDeflate:
		w = zlib.NewWriter(&buf)
	default:
		return nil, &ValidationError{message: "unsupported content coding (" + coding + ")"}
	}

	if _, err := w.Write(body); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decompress reverses a content coding. Deflate accepts both zlib framed and
// raw streams, since peers disagree on which one the name means.
func Decompress(coding string, body []byte) ([]byte, error) {
	coding = strings.ToLower(coding)
	if coding == "" || coding == EncodingIdentity {
		return body, nil
	}
	if len(body) == 0 && (coding == EncodingGzip || coding == EncodingXGzip || coding == EncodingDeflate) {
		return []byte{}, nil
	}

	var r io.ReadCloser
	var err error

	switch coding {
	case EncodingGzip, EncodingXGzip:
		r, err = gzip.NewReader(bytes.NewReader(body))
	case EncodingDeflate:
		r, err = zlib.NewReader(bytes.NewReader(body))
		if err != nil {
			r, err = flate.NewReader(bytes.NewReader(body)), nil
		}
	default:
		return nil, parser.Errorf("Invalid body: unsupported content coding (%q)", coding)
	}
	if err != nil {
		return nil, parser.Errorf("Invalid body: %s stream is corrupt (%s)", coding, err.Error())
	}
	defer r.Close()

	decoded, err := io.ReadAll(r)
	if err != nil {
		return nil, parser.Errorf("Invalid body: %s stream is corrupt (%s)", coding, err.Error()).WithPartial(decoded)
	}

	return decoded, nil
}

// NegotiateEncoding picks the coding to apply for an Accept-Encoding value.
// gzip wins ties; an empty result means the body goes out as is.
func NegotiateEncoding(accept string) string {
	if strings.TrimSpace(accept) == "" {
		return ""
	}

	qualities := map[string]float64{}
	for _, c := range parser.ParseCodings(accept) {
		if c.Name == EncodingXGzip {
			c.Name = EncodingGzip
		}
		if _, seen := qualities[c.Name]; !seen {
			qualities[c.Name] = c.Quality
		}
	}

	quality := func(name string) float64 {
		if q, ok := qualities[name]; ok {
			return q
		}
		return qualities["*"]
	}

	gz, df := quality(EncodingGzip), quality(EncodingDeflate)
	switch {
	case gz > 0 && gz >= df:
		return EncodingGzip
	case df > 0:
		return EncodingDeflate
	default:
		return ""
	}
}
