package message

import (
	"github.com/tony-montemuro/httpkit/internal/parser"
)

type Method string

const (
	MethodGet     Method = "GET"
	MethodHead    Method = "HEAD"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodPatch   Method = "PATCH"
	MethodDelete  Method = "DELETE"
	MethodOptions Method = "OPTIONS"
	MethodTrace   Method = "TRACE"
	MethodConnect Method = "CONNECT"
)

var Methods = []Method{
	MethodGet, MethodHead, MethodPost, MethodPut, MethodPatch,
	MethodDelete, MethodOptions, MethodTrace, MethodConnect,
}

func (m Method) Known() bool {
	switch m {
	case MethodGet, MethodHead, MethodPost, MethodPut, MethodPatch,
		MethodDelete, MethodOptions, MethodTrace, MethodConnect:
		return true
	}

	return false
}

// AllowsBody reports whether a request with this method carries a body.
func (m Method) AllowsBody() bool {
	switch m {
	case MethodPost, MethodPut, MethodPatch:
		return true
	}

	return false
}

func (m Method) Validate() error {
	if m == "" {
		return &ValidationError{message: "request method is not set"}
	}
	if !parser.ValidToken(string(m)) {
		return &ValidationError{message: "request method is not a token (" + string(m) + ")"}
	}

	return nil
}

// ValidateKnown is Validate restricted to the methods ReadRequest accepts.
func (m Method) ValidateKnown() error {
	if err := m.Validate(); err != nil {
		return err
	}
	if !m.Known() {
		return &ValidationError{message: "request method is not supported (" + string(m) + ")"}
	}

	return nil
}
