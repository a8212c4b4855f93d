package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tony-montemuro/httpkit/internal/metrics"
	"github.com/tony-montemuro/httpkit/logger"
)

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// ErrAcceptorClosed is returned by Open after Shutdown.
var ErrAcceptorClosed = errors.New("acceptor closed")

// Acceptor owns the listening socket and feeds accepted connections to a
// dispatch func.
type Acceptor struct {
	factory  ListenerFactory
	address  string
	dispatch func(ctx context.Context, conn net.Conn)
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu          sync.Mutex
	ln          net.Listener
	terminating atomic.Bool
	running     atomic.Bool
	done        chan struct{}
}

func NewAcceptor(factory ListenerFactory, address string, dispatch func(ctx context.Context, conn net.Conn), l *slog.Logger, m *metrics.Metrics) *Acceptor {
	return &Acceptor{
		factory:  factory,
		address:  address,
		dispatch: dispatch,
		logger:   logger.OrDiscard(l),
		metrics:  m,
		done:     make(chan struct{}),
	}
}

// Open binds the listener unless it is already bound.
func (a *Acceptor) Open(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.terminating.Load() {
		return ErrAcceptorClosed
	}
	if a.ln != nil {
		return nil
	}

	ln, err := a.factory.Listen(ctx, a.address)
	if err != nil {
		return err
	}

	a.ln = ln
	a.logger.Info("listening", "address", ln.Addr().String())
	return nil
}

// Addr is the bound address, or nil before Open.
func (a *Acceptor) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ln == nil {
		return nil
	}

	return a.ln.Addr()
}

func (a *Acceptor) listener() net.Listener {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.ln
}

// forget drops ln so that the next round binds a new listener.
func (a *Acceptor) forget(ln net.Listener) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ln == ln {
		_ = ln.Close()
		a.ln = nil
	}
}

func backoff(delay time.Duration) time.Duration {
	if delay == 0 {
		return minAcceptDelay
	}

	return min(2*delay, maxAcceptDelay)
}

func (a *Acceptor) sleep(ctx context.Context, delay time.Duration) bool {
	t := time.NewTimer(delay)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Run accepts connections until Shutdown is called or ctx ends. Failed binds
// and accepts are retried with a growing delay.
func (a *Acceptor) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return errors.New("acceptor already running")
	}
	defer close(a.done)

	stop := context.AfterFunc(ctx, func() { a.close() })
	defer stop()

	var delay time.Duration
	for {
		if a.terminating.Load() {
			return nil
		}

		ln := a.listener()
		if ln == nil {
			if err := a.Open(ctx); err != nil {
				if a.terminating.Load() || ctx.Err() != nil {
					return nil
				}
				delay = backoff(delay)
				a.logger.Error("bind_failed", "address", a.address, "error", err.Error(), "retry_in", delay.String())
				if !a.sleep(ctx, delay) {
					return nil
				}
				continue
			}
			ln = a.listener()
		}

		conn, err := ln.Accept()
		if err != nil {
			if a.terminating.Load() {
				return nil
			}

			a.metrics.AcceptError()
			delay = backoff(delay)
			a.logger.Warn("accept_failed", "address", a.address, "error", err.Error(), "retry_in", delay.String())
			if errors.Is(err, net.ErrClosed) {
				a.forget(ln)
			}
			if !a.sleep(ctx, delay) {
				return nil
			}
			continue
		}

		delay = 0
		a.dispatch(ctx, conn)
	}
}

func (a *Acceptor) close() error {
	a.terminating.Store(true)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ln == nil {
		return nil
	}

	err := a.ln.Close()
	a.ln = nil
	return err
}

// Shutdown stops accepting and waits for Run to return.
func (a *Acceptor) Shutdown(ctx context.Context) error {
	err := a.close()
	if !a.running.Load() {
		return err
	}

	select {
	case <-a.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
