package message

import (
	"bufio"
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const readBufferSize = 4096

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

type closeReader interface {
	CloseRead() error
}

type closeWriter interface {
	CloseWrite() error
}

// Stream couples a transport with a buffered reader that lives as long as the
// transport, so bytes read ahead of one message stay available for the next.
type Stream struct {
	rw     io.ReadWriteCloser
	reader *bufio.Reader

	mu        sync.Mutex
	closed    bool
	readShut  bool
	writeShut bool
	eof       atomic.Bool
}

func NewStream(rw io.ReadWriteCloser) *Stream {
	s := &Stream{rw: rw}
	s.reader = bufio.NewReaderSize(eofRecorder{s}, readBufferSize)
	return s
}

type eofRecorder struct {
	s *Stream
}

func (r eofRecorder) Read(p []byte) (int, error) {
	n, err := r.s.rw.Read(p)
	if errors.Is(err, io.EOF) {
		r.s.eof.Store(true)
	}

	return n, err
}

func (s *Stream) Transport() io.ReadWriteCloser {
	return s.rw
}

// Read runs fn against the buffered reader under timeout.
func (s *Stream) Read(timeout time.Duration, fn func(r *bufio.Reader) error) error {
	return s.guard("read", timeout, func(t time.Time) func() {
		d, ok := s.rw.(readDeadliner)
		if !ok {
			return nil
		}
		_ = d.SetReadDeadline(t)
		return func() { _ = d.SetReadDeadline(time.Time{}) }
	}, func() error {
		return fn(s.reader)
	})
}

// Write sends p in full under timeout.
func (s *Stream) Write(p []byte, timeout time.Duration) error {
	return s.guard("write", timeout, func(t time.Time) func() {
		d, ok := s.rw.(writeDeadliner)
		if !ok {
			return nil
		}
		_ = d.SetWriteDeadline(t)
		return func() { _ = d.SetWriteDeadline(time.Time{}) }
	}, func() error {
		_, err := s.rw.Write(p)
		return err
	})
}

// guard bounds fn by timeout. Transports with deadlines get one; anything
// else is closed by a watchdog when the time runs out.
func (s *Stream) guard(op string, timeout time.Duration, deadline func(time.Time) func(), fn func() error) error {
	if timeout <= 0 {
		return fn()
	}

	if reset := deadline(time.Now().Add(timeout)); reset != nil {
		defer reset()

		err := fn()
		if isTimeout(err) {
			return &TimeoutError{Op: op, After: timeout, Cause: err}
		}
		return err
	}

	var fired atomic.Bool
	watchdog := time.AfterFunc(timeout, func() {
		fired.Store(true)
		_ = s.Close()
	})

	err := fn()
	watchdog.Stop()
	if err != nil && fired.Load() {
		return &TimeoutError{Op: op, After: timeout, Cause: err}
	}

	return err
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// CloseRead shuts down the reading side when the transport supports it.
func (s *Stream) CloseRead() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.readShut = true
	if c, ok := s.rw.(closeReader); ok {
		return c.CloseRead()
	}

	return nil
}

// CloseWrite shuts down the writing side when the transport supports it.
func (s *Stream) CloseWrite() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writeShut = true
	if c, ok := s.rw.(closeWriter); ok {
		return c.CloseWrite()
	}

	return nil
}

// HalfShut reports whether either direction is known to be shut, including a
// peer that has already sent EOF.
func (s *Stream) HalfShut() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.readShut || s.writeShut || s.eof.Load()
}

func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

// Close is idempotent.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.rw.Close()
}
