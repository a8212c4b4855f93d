package message

import (
	"bytes"
	"io"
	"strings"
	"sync"
)

// memTransport feeds a fixed input and records everything written to it.
type memTransport struct {
	in     io.Reader
	out    bytes.Buffer
	mu     sync.Mutex
	closed bool
}

func (m *memTransport) Read(p []byte) (int, error) {
	return m.in.Read(p)
}

func (m *memTransport) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.out.Write(p)
}

func (m *memTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *memTransport) written() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.out.String()
}

func newMemStream(input string) (*Stream, *memTransport) {
	m := &memTransport{in: strings.NewReader(input)}
	return NewStream(m), m
}
