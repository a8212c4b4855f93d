package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
)

// ListenerFactory binds the listening socket of a server.
type ListenerFactory interface {
	Listen(ctx context.Context, address string) (net.Listener, error)
}

// TCPListenerFactory binds TCP listeners with SO_REUSEADDR set and, when
// ReceiveBuffer is positive, SO_RCVBUF sized to it.
type TCPListenerFactory struct {
	ReceiveBuffer int
}

func (f TCPListenerFactory) Listen(ctx context.Context, address string) (net.Listener, error) {
	lc := net.ListenConfig{Control: socketOptions(f.ReceiveBuffer)}
	return lc.Listen(ctx, "tcp", address)
}

// TLSListenerFactory wraps the listeners of Inner in TLS.
type TLSListenerFactory struct {
	Inner  ListenerFactory
	Config *tls.Config
}

func NewTLSListenerFactory(inner ListenerFactory, certFile, keyFile string) (*TLSListenerFactory, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("cannot load TLS key pair: %w", err)
	}

	return &TLSListenerFactory{
		Inner:  inner,
		Config: &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12},
	}, nil
}

func (f *TLSListenerFactory) Listen(ctx context.Context, address string) (net.Listener, error) {
	ln, err := f.Inner.Listen(ctx, address)
	if err != nil {
		return nil, err
	}

	return tls.NewListener(ln, f.Config), nil
}
