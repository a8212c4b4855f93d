package assert

import (
	"bytes"
	"errors"
	"maps"
	"testing"
)

func Equal[T comparable](t *testing.T, actual, expected T) {
	t.Helper()

	if actual != expected {
		t.Errorf("got: %v; want: %v", actual, expected)
	}
}

func SliceEqual[T comparable](t *testing.T, actual, expected []T) {
	t.Helper()

	if len(actual) != len(expected) {
		t.Errorf("different sizes. got: (%v, len: %d), want: (%v, len: %d)", actual, len(actual), expected, len(expected))
		return
	}

	for i := range len(actual) {
		Equal(t, actual[i], expected[i])
	}
}

// BytesEqual quotes both sides so CR, LF and binary bytes stay readable in failures.
func BytesEqual(t *testing.T, actual, expected []byte) {
	t.Helper()

	if !bytes.Equal(actual, expected) {
		t.Errorf("got: %q (len: %d); want: %q (len: %d)", actual, len(actual), expected, len(expected))
	}
}

func MapEqual[S, T comparable](t *testing.T, actual, expected map[S]T) {
	t.Helper()

	if !maps.Equal(actual, expected) {
		t.Errorf("got: %v, want: %v", actual, expected)
	}
}

func ErrorStatus(t *testing.T, err error, expectError bool) bool {
	t.Helper()

	if err != nil {
		if !expectError {
			t.Errorf("got unexpected error: %s", err.Error())
		}
		return false
	}

	if expectError {
		t.Error("did not get expected error")
		return false
	}

	return true
}

// ErrorAs fails the test unless err wraps an error of type E, which it returns.
func ErrorAs[E error](t *testing.T, err error) E {
	t.Helper()

	var target E
	if !errors.As(err, &target) {
		t.Errorf("got error %v (%T); want %T", err, err, target)
	}

	return target
}
