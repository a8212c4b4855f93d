package lws

const (
	SP = ' '
	HT = '\t'
	CR = '\r'
	LF = '\n'
)

func IsBlank(b byte) bool {
	return b == SP || b == HT
}

// Check reports whether s holds linear white space at i ([CRLF] 1*(SP|HT)) and
// returns the position just past it.
func Check(s string, i int) (bool, int) {
	if i >= len(s) {
		return false, i
	}

	start := i
	if s[i] == CR {
		if i+2 >= len(s) || s[i+1] != LF || !IsBlank(s[i+2]) {
			return false, start
		}
		i += 2
	}

	if !IsBlank(s[i]) {
		return false, start
	}

	for i < len(s) && IsBlank(s[i]) {
		i++
	}

	return true, i
}

// Continues reports whether a header line continues the value of the line before it.
func Continues(line string) bool {
	return len(line) > 0 && IsBlank(line[0])
}

// Fold joins a continuation line onto a header value with a single space.
func Fold(value, continuation string) string {
	continuation = Trim(continuation)
	if value == "" {
		return continuation
	}
	if continuation == "" {
		return value
	}

	return value + string(SP) + continuation
}

func TrimLeft(s string) string {
	i := 0
	for i < len(s) {
		isLws, next := Check(s, i)
		if !isLws {
			break
		}
		i = next
	}

	return s[i:]
}

func TrimRight(s string) string {
	last := -1
	i := 0

	for i < len(s) {
		isLws, next := Check(s, i)
		if isLws {
			i = next
			continue
		}
		if s[i] != CR && s[i] != LF {
			last = i
		}
		i++
	}

	return s[:last+1]
}

func Trim(s string) string {
	return TrimRight(TrimLeft(s))
}
