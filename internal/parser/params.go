package parser

import (
	"strings"

	"github.com/tony-montemuro/httpkit/internal/lws"
)

type ParsedContentType struct {
	Type       string
	Subtype    string
	Parameters []Field
}

// Param returns the first parameter with the given case-insensitive name.
func (ct ParsedContentType) Param(name string) (string, bool) {
	for _, p := range ct.Parameters {
		if strings.EqualFold(p.Name, name) {
			return p.Value, true
		}
	}

	return "", false
}

func (ct ParsedContentType) MediaType() string {
	return ct.Type + "/" + ct.Subtype
}

type contentTypeParser string

func (c contentTypeParser) parse() (ParsedContentType, error) {
	media, rest := splitParams(string(c))

	t, sub, found := strings.Cut(lws.Trim(media), "/")
	if !found {
		return ParsedContentType{}, Errorf("Invalid content type: missing subtype (%q)", string(c))
	}
	if err := token(t).validate(); err != nil {
		return ParsedContentType{}, Errorf("Invalid content type: %s", err.Error())
	}
	if err := token(sub).validate(); err != nil {
		return ParsedContentType{}, Errorf("Invalid content type: %s", err.Error())
	}

	params, err := ParseParameters(rest)
	if err != nil {
		return ParsedContentType{}, err
	}

	return ParsedContentType{
		Type:       strings.ToLower(t),
		Subtype:    strings.ToLower(sub),
		Parameters: params,
	}, nil
}

func ParseContentType(value string) (ParsedContentType, error) {
	return contentTypeParser(value).parse()
}

// splitParams cuts s at the first ';' outside a quoted string.
func splitParams(s string) (string, string) {
	quoted := false
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && quoted:
			i++
		case s[i] == '"':
			quoted = !quoted
		case s[i] == ';' && !quoted:
			return s[:i], s[i+1:]
		}
	}

	return s, ""
}

type parameterParser string

func (p parameterParser) parse() (Field, error) {
	name, value, found := strings.Cut(string(p), "=")
	if !found {
		return Field{}, Errorf("Invalid parameter: missing '=' (%q)", string(p))
	}

	name = lws.Trim(name)
	if err := token(name).validate(); err != nil {
		return Field{}, Errorf("Invalid parameter: %s", err.Error())
	}

	value = lws.Trim(value)
	if strings.HasPrefix(value, `"`) {
		unquoted, err := quotedString(value).parse()
		if err != nil {
			return Field{}, Errorf("Invalid parameter %s: %s", name, err.Error())
		}
		return Field{Name: strings.ToLower(name), Value: unquoted}, nil
	}

	if err := token(value).validate(); err != nil {
		return Field{}, Errorf("Invalid parameter %s: %s", name, err.Error())
	}

	return Field{Name: strings.ToLower(name), Value: value}, nil
}

// ParseParameters parses a ';' separated list of attribute=value pairs, as
// found after a media type or a Content-Disposition type.
func ParseParameters(s string) ([]Field, error) {
	params := []Field{}

	rest := s
	for lws.Trim(rest) != "" {
		var param string
		param, rest = splitParams(rest)
		if lws.Trim(param) == "" {
			continue
		}

		field, err := parameterParser(param).parse()
		if err != nil {
			return nil, err
		}
		params = append(params, field)
	}

	return params, nil
}

// ParseDisposition parses a Content-Disposition value into its type and parameters.
func ParseDisposition(value string) (string, []Field, error) {
	kind, rest := splitParams(value)
	kind = strings.ToLower(lws.Trim(kind))
	if err := token(kind).validate(); err != nil {
		return "", nil, Errorf("Invalid disposition: %s", err.Error())
	}

	params, err := ParseParameters(rest)
	if err != nil {
		return "", nil, err
	}

	return kind, params, nil
}
