package message

import (
	"strconv"
)

const (
	StatusContinue                = 100
	StatusSwitchingProtocols      = 101
	StatusOK                      = 200
	StatusCreated                 = 201
	StatusAccepted                = 202
	StatusNoContent               = 204
	StatusPartialContent          = 206
	StatusMovedPermanently        = 301
	StatusFound                   = 302
	StatusSeeOther                = 303
	StatusNotModified             = 304
	StatusTemporaryRedirect       = 307
	StatusPermanentRedirect       = 308
	StatusBadRequest              = 400
	StatusUnauthorized            = 401
	StatusForbidden               = 403
	StatusNotFound                = 404
	StatusMethodNotAllowed        = 405
	StatusRequestTimeout          = 408
	StatusLengthRequired          = 411
	StatusPayloadTooLarge         = 413
	StatusUnsupportedMediaType    = 415
	StatusTooManyRequests         = 429
	StatusHeaderFieldsTooLarge    = 431
	StatusInternalServerError     = 500
	StatusNotImplemented          = 501
	StatusBadGateway              = 502
	StatusServiceUnavailable      = 503
	StatusGatewayTimeout          = 504
	StatusHTTPVersionNotSupported = 505
)

func StatusText(code int) string {
	switch code {
	case StatusContinue:
		return "Continue"
	case StatusSwitchingProtocols:
		return "Switching Protocols"
	case StatusOK:
		return "OK"
	case StatusCreated:
		return "Created"
	case StatusAccepted:
		return "Accepted"
	case StatusNoContent:
		return "No Content"
	case StatusPartialContent:
		return "Partial Content"
	case StatusMovedPermanently:
		return "Moved Permanently"
	case StatusFound:
		return "Found"
	case StatusSeeOther:
		return "See Other"
	case StatusNotModified:
		return "Not Modified"
	case StatusTemporaryRedirect:
		return "Temporary Redirect"
	case StatusPermanentRedirect:
		return "Permanent Redirect"
	case StatusBadRequest:
		return "Bad Request"
	case StatusUnauthorized:
		return "Unauthorized"
	case StatusForbidden:
		return "Forbidden"
	case StatusNotFound:
		return "Not Found"
	case StatusMethodNotAllowed:
		return "Method Not Allowed"
	case StatusRequestTimeout:
		return "Request Timeout"
	case StatusLengthRequired:
		return "Length Required"
	case StatusPayloadTooLarge:
		return "Payload Too Large"
	case StatusUnsupportedMediaType:
		return "Unsupported Media Type"
	case StatusTooManyRequests:
		return "Too Many Requests"
	case StatusHeaderFieldsTooLarge:
		return "Request Header Fields Too Large"
	case StatusInternalServerError:
		return "Internal Server Error"
	case StatusNotImplemented:
		return "Not Implemented"
	case StatusBadGateway:
		return "Bad Gateway"
	case StatusServiceUnavailable:
		return "Service Unavailable"
	case StatusGatewayTimeout:
		return "Gateway Timeout"
	case StatusHTTPVersionNotSupported:
		return "HTTP Version Not Supported"
	default:
		return ""
	}
}

type Class int

const (
	ClassUnknown Class = iota
	ClassInformational
	ClassSuccess
	ClassRedirection
	ClassClientError
	ClassServerError
)

func (c Class) String() string {
	switch c {
	case ClassInformational:
		return "informational"
	case ClassSuccess:
		return "success"
	case ClassRedirection:
		return "redirection"
	case ClassClientError:
		return "client error"
	case ClassServerError:
		return "server error"
	default:
		return "unknown"
	}
}

type Status struct {
	Code   int
	Reason string
}

func NewStatus(code int) Status {
	return Status{Code: code, Reason: StatusText(code)}
}

func (s Status) Class() Class {
	switch s.Code / 100 {
	case 1:
		return ClassInformational
	case 2:
		return ClassSuccess
	case 3:
		return ClassRedirection
	case 4:
		return ClassClientError
	case 5:
		return ClassServerError
	default:
		return ClassUnknown
	}
}

// Equal compares status codes only; reason phrases are ignored.
func (s Status) Equal(other Status) bool {
	return s.Code == other.Code
}

// bodyless reports whether a response with this status never carries a body.
func (s Status) bodyless() bool {
	return s.Class() == ClassInformational || s.Code == StatusNoContent || s.Code == StatusNotModified
}

func (s Status) String() string {
	reason := s.Reason
	if reason == "" {
		reason = StatusText(s.Code)
	}

	return strconv.Itoa(s.Code) + " " + reason
}
