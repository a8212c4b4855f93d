package parser

import (
	"fmt"
	"strconv"
	"strings"
)

type ParsedRequestLine struct {
	Method  string
	Target  string
	Version string
}

type requestLineParser string

func (rl requestLineParser) parse() (ParsedRequestLine, error) {
	parts := strings.Split(string(rl), " ")
	if len(parts) != 3 {
		return ParsedRequestLine{}, Errorf("Invalid request line: malformed request line (%q)", string(rl))
	}

	m := parts[0]
	err := token(m).validate()
	if err != nil {
		return ParsedRequestLine{}, Errorf("Invalid request line: issue with request method (%s)", err.Error())
	}

	if parts[1] == "" {
		return ParsedRequestLine{}, Errorf("Invalid request line: empty request target")
	}
	for i := 0; i < len(parts[1]); i++ {
		if httpByte(parts[1][i]).isControl() {
			return ParsedRequestLine{}, Errorf("Invalid request line: request target contains control characters (%q)", parts[1])
		}
	}

	version, err := versionParser(parts[2]).parse()
	if err != nil {
		return ParsedRequestLine{}, Errorf("Invalid request line: issue with version (%s)", err.Error())
	}

	return ParsedRequestLine{Method: m, Target: parts[1], Version: version}, nil
}

func ParseRequestLine(line string) (ParsedRequestLine, error) {
	return requestLineParser(line).parse()
}

type ParsedStatusLine struct {
	Version string
	Code    int
	Reason  string
}

type statusLineParser string

func (sl statusLineParser) parse() (ParsedStatusLine, error) {
	parts := strings.SplitN(string(sl), " ", 3)
	if len(parts) < 2 {
		return ParsedStatusLine{}, Errorf("Invalid status line: malformed status line (%q)", string(sl))
	}

	version, err := versionParser(parts[0]).parse()
	if err != nil {
		return ParsedStatusLine{}, Errorf("Invalid status line: issue with version (%s)", err.Error())
	}

	code, err := strconv.Atoi(parts[1])
	if err != nil || code <= 0 {
		return ParsedStatusLine{}, Errorf("Invalid status line: status code must be a positive integer (%q)", parts[1])
	}

	var reason string
	if len(parts) == 3 {
		reason = strings.TrimSpace(parts[2])
	}

	return ParsedStatusLine{Version: version, Code: code, Reason: reason}, nil
}

func ParseStatusLine(line string) (ParsedStatusLine, error) {
	return statusLineParser(line).parse()
}

type versionParser string

// parse validates HTTP/x.y and returns it unchanged.
func (v versionParser) parse() (string, error) {
	if len(v) < 8 {
		return string(v), fmt.Errorf("incomplete version (%s)", v)
	}

	protocol, number, found := strings.Cut(string(v), "/")
	if !found || !strings.Contains(number, ".") {
		return string(v), fmt.Errorf("could not determine version number (%s)", v)
	}

	if protocol != "HTTP" {
		return string(v), fmt.Errorf("wrong protocol (%s)", protocol)
	}

	digits := strings.Split(number, ".")
	if len(digits) != 2 {
		return string(v), fmt.Errorf("malformed version number (%s)", number)
	}

	major, err1 := strconv.Atoi(digits[0])
	_, err2 := strconv.Atoi(digits[1])
	if err1 != nil || err2 != nil {
		return string(v), fmt.Errorf("contains invalid characters (%s)", v)
	}
	if major == 0 {
		return string(v), fmt.Errorf("must be at least 1.0 (%s)", v)
	}

	return string(v), nil
}
