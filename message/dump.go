package message

import (
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

var textualTypes = []string{
	"application/json",
	"application/xml",
	"application/x-www-form-urlencoded",
	"application/javascript",
	"application/soap+xml",
	"application/xhtml+xml",
	"application/yaml",
	"application/x-yaml",
}

func (e *Entity) textual() bool {
	if coding := e.Header.Get("Content-Encoding"); coding != "" && !strings.EqualFold(coding, EncodingIdentity) && e.wire != nil {
		return false
	}

	ct, ok := e.ContentType()
	if !ok {
		return false
	}

	return ct.Type == "text" || slices.Contains(textualTypes, ct.MediaType())
}

func truncated(total int) string {
	return fmt.Sprintf("\n... [truncated, %s total]", humanize.Bytes(uint64(total)))
}

// dumpBody renders the body for diagnostics: text when the media type is
// textual, a hex dump otherwise.
func (e *Entity) dumpBody() string {
	if len(e.WireBody()) == 0 {
		return ""
	}

	if e.textual() {
		text, err := decodeText(e.body, e.charset())
		if err == nil {
			if e.DumpLimit > 0 && utf8.RuneCountInString(text) > e.DumpLimit {
				runes := []rune(text)
				return string(runes[:e.DumpLimit]) + truncated(len(e.body))
			}
			return text
		}
	}

	wire := e.WireBody()
	if e.DumpLimit > 0 && len(wire) > e.DumpLimit {
		return hex.Dump(wire[:e.DumpLimit]) + truncated(len(wire))
	}

	return hex.Dump(wire)
}

func (e *Entity) dump(startLine string) string {
	var b strings.Builder

	b.WriteString(startLine)
	b.WriteString("\n")
	for _, f := range e.Header.Dump() {
		for _, v := range strings.Split(f.Value, FoldSeparator) {
			fmt.Fprintf(&b, "%s: %s\n", f.Name, v)
		}
	}
	b.WriteString("\n")
	b.WriteString(e.dumpBody())

	return b.String()
}
