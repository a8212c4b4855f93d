package parser

import (
	"strconv"
	"strings"

	"github.com/tony-montemuro/httpkit/internal/lws"
)

type rulesExtractor string

// extract splits a #rule list on commas, dropping empty elements.
func (s rulesExtractor) extract() []string {
	rules := []string{}

	for part := range strings.SplitSeq(string(s), ",") {
		part = lws.Trim(part)
		if part != "" {
			rules = append(rules, part)
		}
	}

	return rules
}

func SplitList(value string) []string {
	return rulesExtractor(value).extract()
}

// Coding is one element of an Accept-Encoding style list.
type Coding struct {
	Name    string
	Quality float64
}

type codingParser string

func (c codingParser) parse() (Coding, error) {
	name, rest, _ := strings.Cut(string(c), ";")
	name = strings.ToLower(lws.Trim(name))
	if err := token(name).validate(); err != nil && name != "*" {
		return Coding{}, Errorf("Invalid coding: %s", err.Error())
	}

	coding := Coding{Name: name, Quality: 1}
	params, err := ParseParameters(rest)
	if err != nil {
		return Coding{}, err
	}

	for _, p := range params {
		if !strings.EqualFold(p.Name, "q") {
			continue
		}
		q, err := strconv.ParseFloat(p.Value, 64)
		if err != nil || q < 0 || q > 1 {
			return Coding{}, Errorf("Invalid coding: bad quality value (%q)", p.Value)
		}
		coding.Quality = q
	}

	return coding, nil
}

// ParseCodings parses a list such as "gzip;q=0.8, deflate". Malformed elements
// are skipped.
func ParseCodings(value string) []Coding {
	codings := []Coding{}

	for _, rule := range SplitList(value) {
		coding, err := codingParser(rule).parse()
		if err != nil {
			continue
		}
		codings = append(codings, coding)
	}

	return codings
}
