package socket

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"time"
)

// Address names the endpoint a client connects to.
type Address struct {
	Scheme string
	Host   string
	Port   int
}

func DefaultPort(scheme string) int {
	if scheme == "https" {
		return 443
	}

	return 80
}

func (a Address) TLS() bool {
	return a.Scheme == "https"
}

func (a Address) HostPort() string {
	port := a.Port
	if port == 0 {
		port = DefaultPort(a.Scheme)
	}

	return net.JoinHostPort(a.Host, strconv.Itoa(port))
}

// Authority is the value of a Host header for this address: the port is left
// out when it is the default for the scheme.
func (a Address) Authority() string {
	if a.Port == 0 || a.Port == DefaultPort(a.Scheme) {
		return a.Host
	}

	return a.HostPort()
}

func (a Address) String() string {
	return a.Scheme + "://" + a.Authority()
}

type Dialer interface {
	Dial(ctx context.Context, addr Address) (net.Conn, error)
}

type DialerFunc func(ctx context.Context, addr Address) (net.Conn, error)

func (f DialerFunc) Dial(ctx context.Context, addr Address) (net.Conn, error) {
	return f(ctx, addr)
}

// NetDialer opens plain TCP connections, or TLS ones for https addresses.
type NetDialer struct {
	Timeout   time.Duration
	TLSConfig *tls.Config
}

func (d NetDialer) Dial(ctx context.Context, addr Address) (net.Conn, error) {
	nd := &net.Dialer{Timeout: d.Timeout}
	if !addr.TLS() {
		return nd.DialContext(ctx, "tcp", addr.HostPort())
	}

	cfg := &tls.Config{}
	if d.TLSConfig != nil {
		cfg = d.TLSConfig.Clone()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = addr.Host
	}

	td := &tls.Dialer{NetDialer: nd, Config: cfg}
	return td.DialContext(ctx, "tcp", addr.HostPort())
}
