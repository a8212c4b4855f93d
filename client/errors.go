package client

import (
	"errors"
	"fmt"
)

var (
	ErrRedirectLoop      = errors.New("redirect loop detected")
	ErrTooManyRedirects  = errors.New("too many redirects")
	ErrUnsupportedScheme = errors.New("unsupported scheme")
)

// RedirectError reports a redirect that could not be followed.
type RedirectError struct {
	Location string
	Err      error
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("[Redirect error]: %s: %s", e.Location, e.Err.Error())
}

func (e *RedirectError) Unwrap() error {
	return e.Err
}
