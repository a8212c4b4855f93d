package parser

import (
	"strings"
)

type escapeSequence string

func (s escapeSequence) unescape(i int) (byte, error) {
	var b byte

	for j := 1; j <= 2; j++ {
		if i+j >= len(s) {
			return b, Errorf("truncated escape sequence: (char pos: %d, %q)", i+j-1, string(s))
		}

		val, err := hex(s[i+j]).value()
		if err != nil {
			return b, Errorf("malformed escape sequence: (char pos: %d, %q)", i+j, string(s))
		}

		b += val << (4 * (2 - j))
	}

	return b, nil
}

// Unescape decodes %XX sequences.
func Unescape(s string) (string, error) {
	if !strings.ContainsRune(s, '%') {
		return s, nil
	}

	var b strings.Builder
	b.Grow(len(s))
	i := 0
	for i < len(s) {
		if !httpByte(s[i]).isEscape() {
			b.WriteByte(s[i])
			i++
			continue
		}

		c, err := escapeSequence(s).unescape(i)
		if err != nil {
			return s, err
		}
		b.WriteByte(c)
		i += 3
	}

	return b.String(), nil
}

// SplitTarget separates a request target into its path and raw query. An
// absolute-form target has its scheme and authority removed; an empty path
// becomes "/".
func SplitTarget(target string) (path string, query string) {
	if scheme, rest, found := strings.Cut(target, "://"); found && !strings.Contains(scheme, "/") {
		slash := strings.IndexAny(rest, "/?")
		if slash == -1 {
			target = ""
		} else {
			target = rest[slash:]
		}
	}

	if frag := strings.IndexByte(target, '#'); frag != -1 {
		target = target[:frag]
	}

	path, query, _ = strings.Cut(target, string(rune(byteQuery)))
	if path == "" {
		path = "/"
	}

	return path, query
}
