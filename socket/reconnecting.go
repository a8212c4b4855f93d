package socket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tony-montemuro/httpkit/internal/metrics"
	"github.com/tony-montemuro/httpkit/logger"
	"github.com/tony-montemuro/httpkit/message"
)

// Reconnecting owns one client connection and replaces it when it breaks. A
// failure on a connection that already served an exchange is retried once on
// a fresh connection; a failure on a fresh connection is returned as is.
type Reconnecting struct {
	addr    Address
	dialer  Dialer
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	stream *message.Stream
	reused bool
}

type Option func(*Reconnecting)

func WithLogger(l *slog.Logger) Option {
	return func(r *Reconnecting) {
		r.logger = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reconnecting) {
		r.metrics = m
	}
}

func NewReconnecting(addr Address, dialer Dialer, opts ...Option) *Reconnecting {
	r := &Reconnecting{addr: addr, dialer: dialer}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logger.OrDiscard(r.logger)

	return r
}

func (r *Reconnecting) Address() Address {
	return r.addr
}

// Reused reports whether the current connection has served an exchange before.
func (r *Reconnecting) Reused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.reused
}

func (r *Reconnecting) acquire(ctx context.Context) (*message.Stream, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stream != nil && !r.stream.Closed() {
		if !r.stream.HalfShut() {
			r.reused = true
			return r.stream, true, nil
		}
		r.logger.Debug("socket_half_shut", "address", r.addr.String())
		_ = r.stream.Close()
	}

	conn, err := r.dialer.Dial(ctx, r.addr)
	if err != nil {
		r.stream = nil
		return nil, false, err
	}

	r.metrics.SocketReconnect()
	r.logger.Debug("socket_reconnect", "address", r.addr.String(), "local", conn.LocalAddr().String())

	r.stream = message.NewStream(conn)
	r.reused = false
	return r.stream, false, nil
}

// Close is idempotent and safe to call while an exchange is running, which
// then fails with an I/O error. The next exchange reconnects.
func (r *Reconnecting) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stream == nil {
		return nil
	}

	err := r.stream.Close()
	r.stream = nil
	r.reused = false
	return err
}

// IsIOError reports whether err came from the transport rather than from
// malformed data, an invalid message or the caller giving up.
func IsIOError(err error) bool {
	if err == nil {
		return false
	}

	return !message.IsParseError(err) &&
		!message.IsValidationError(err) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

func (r *Reconnecting) WithSocket(ctx context.Context, action func(s *message.Stream) error) error {
	_, err := WithSocketResult(ctx, r, func(s *message.Stream) (struct{}, error) {
		return struct{}{}, action(s)
	})

	return err
}

// WithSocketResult runs action on the current connection, reconnecting and
// retrying once when a reused connection fails with an I/O error. Cancelling
// ctx closes the connection under the running action.
func WithSocketResult[T any](ctx context.Context, r *Reconnecting, action func(s *message.Stream) (T, error)) (T, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		s, reused, err := r.acquire(ctx)
		if err != nil {
			return zero, err
		}

		stop := context.AfterFunc(ctx, func() { _ = s.Close() })
		v, err := action(s)
		stop()

		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil {
			_ = r.Close()
			return zero, fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		if !message.IsValidationError(err) {
			_ = r.Close()
		}
		if !reused || attempt > 0 || !IsIOError(err) {
			return zero, err
		}

		r.metrics.SocketRetry()
		r.logger.Debug("socket_retry", "address", r.addr.String(), "error", err.Error())
	}
}
