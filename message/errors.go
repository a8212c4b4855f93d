package message

import (
	"errors"
	"fmt"
	"time"

	"github.com/tony-montemuro/httpkit/internal/parser"
)

// ParseError reports malformed wire data. It is never worth retrying.
type ParseError = parser.Error

type ValidationError struct {
	message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[Validation error]: %s", e.message)
}

var ErrTimeout = errors.New("i/o timed out")

// TimeoutError is returned when a read or write does not finish in time. It
// matches ErrTimeout.
type TimeoutError struct {
	Op    string
	After time.Duration
	Cause error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("[Timeout error]: %s timed out after %s", e.Op, e.After)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

func (e *TimeoutError) Timeout() bool {
	return true
}

func IsParseError(err error) bool {
	var perr ParseError
	return errors.As(err, &perr)
}

func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
