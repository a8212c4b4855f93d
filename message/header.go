package message

import (
	"io"
	"strings"

	"github.com/tony-montemuro/httpkit/internal/parser"
)

// FoldSeparator joins the values of a repeated header into one stored value.
const FoldSeparator = "\r\n"

type Field = parser.Field

// Header is an ordered, case-insensitive header store. The zero value is
// ready to use. A name keeps the spelling it was first stored with.
type Header struct {
	fields []Field
}

func HeaderFromFields(fields []Field) Header {
	var h Header
	for _, f := range fields {
		h.Add(f.Name, f.Value)
	}

	return h
}

func (h *Header) index(name string) int {
	for i, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			return i
		}
	}

	return -1
}

// Set stores value under name, replacing any previous value in place.
func (h *Header) Set(name, value string) {
	i := h.index(name)
	if i == -1 {
		h.fields = append(h.fields, Field{Name: name, Value: value})
		return
	}

	h.fields[i].Value = value
}

// Merge stores value under name, combining it with a previous value when one
// exists.
func (h *Header) Merge(name, value string, combine func(previous, value string) string) {
	i := h.index(name)
	if i == -1 {
		h.fields = append(h.fields, Field{Name: name, Value: value})
		return
	}

	h.fields[i].Value = combine(h.fields[i].Value, value)
}

func fold(previous, value string) string {
	return previous + FoldSeparator + value
}

// Add appends value to name, folding it onto any previous value.
func (h *Header) Add(name, value string) {
	h.Merge(name, value, fold)
}

func (h *Header) Get(name string) string {
	v, _ := h.Lookup(name)
	return v
}

func (h *Header) Lookup(name string) (string, bool) {
	i := h.index(name)
	if i == -1 {
		return "", false
	}

	return h.fields[i].Value, true
}

// Values splits a folded value back into the values it was built from.
func (h *Header) Values(name string) []string {
	v, ok := h.Lookup(name)
	if !ok {
		return nil
	}

	return strings.Split(v, FoldSeparator)
}

// Contains reports whether any comma separated element of the named header
// equals token, ignoring case.
func (h *Header) Contains(name, token string) bool {
	for _, v := range h.Values(name) {
		for _, element := range parser.SplitList(v) {
			if strings.EqualFold(element, token) {
				return true
			}
		}
	}

	return false
}

func (h *Header) Has(name string) bool {
	return h.index(name) != -1
}

func (h *Header) Drop(name string) {
	i := h.index(name)
	if i == -1 {
		return
	}

	h.fields = append(h.fields[:i], h.fields[i+1:]...)
}

// Dump returns a snapshot of the stored fields in insertion order.
func (h *Header) Dump() []Field {
	fields := make([]Field, len(h.fields))
	copy(fields, h.fields)
	return fields
}

func (h *Header) Len() int {
	return len(h.fields)
}

func (h *Header) Clone() Header {
	return Header{fields: h.Dump()}
}

// Write serializes the header as one "name: value" line per folded value.
func (h *Header) Write(w io.StringWriter) error {
	for _, f := range h.fields {
		for v := range strings.SplitSeq(f.Value, FoldSeparator) {
			for _, s := range []string{f.Name, ": ", v, FoldSeparator} {
				if _, err := w.WriteString(s); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func (h *Header) String() string {
	var b strings.Builder
	_ = h.Write(&b)
	return b.String()
}
