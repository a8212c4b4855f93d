package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"

	"github.com/tony-montemuro/httpkit/config"
	"github.com/tony-montemuro/httpkit/internal/metrics"
	"github.com/tony-montemuro/httpkit/logger"
	"golang.org/x/time/rate"
)

// Server ties a listener, the acceptor, the dispatcher and the HTTP loop
// together.
type Server struct {
	logger *slog.Logger

	acceptor   *Acceptor
	dispatcher *Dispatcher

	cancel context.CancelFunc
	runErr chan error
}

type options struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	factory ListenerFactory
}

type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func WithListenerFactory(f ListenerFactory) Option {
	return func(o *options) {
		o.factory = f
	}
}

func listenerFactory(settings config.Server) (ListenerFactory, error) {
	var factory ListenerFactory = TCPListenerFactory{ReceiveBuffer: settings.ReceiveBuffer.Int()}
	if !settings.TLS.Enabled() {
		return factory, nil
	}

	tlsFactory, err := NewTLSListenerFactory(factory, settings.TLS.CertFile, settings.TLS.KeyFile)
	if err != nil {
		return nil, err
	}

	return tlsFactory, nil
}

func New(settings config.Server, handler Handler, opts ...Option) (*Server, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = logger.OrDiscard(o.logger)

	if o.factory == nil {
		factory, err := listenerFactory(settings)
		if err != nil {
			return nil, err
		}
		o.factory = factory
	}

	loop := &HTTP{
		Handler:        handler,
		Name:           settings.Name,
		ReadTimeout:    settings.ReadTimeout.Duration(),
		WriteTimeout:   settings.WriteTimeout.Duration(),
		IdleTimeout:    settings.IdleTimeout.Duration(),
		MaxHeaderBytes: settings.MaxHeaderBytes.Int(),
		MaxBodyBytes:   int64(settings.MaxBodyBytes),
		DumpLimit:      settings.DumpLimit,
		Logger:         o.logger,
		Metrics:        o.metrics,
	}

	dopts := []DispatcherOption{WithDispatcherLogger(o.logger), WithDispatcherMetrics(o.metrics)}
	if settings.DumpWorkers {
		dopts = append(dopts, WithDiagnostics(NewDiagnostics()))
	}
	if settings.AcceptRate > 0 {
		dopts = append(dopts, WithPacing(rate.NewLimiter(rate.Limit(settings.AcceptRate), max(1, settings.AcceptBurst))))
	}
	dispatcher := NewDispatcher(loop, NewAdmission(settings.MaxConnections), dopts...)

	address := net.JoinHostPort(settings.Address, strconv.Itoa(settings.Port))
	s := &Server{
		logger:     o.logger,
		dispatcher: dispatcher,
		acceptor:   NewAcceptor(o.factory, address, dispatcher.Dispatch, o.logger, o.metrics),
	}

	return s, nil
}

// Start binds the listener and serves in the background until Shutdown or
// until ctx ends.
func (s *Server) Start(ctx context.Context) error {
	if s.runErr != nil {
		return errors.New("server already started")
	}
	if err := s.acceptor.Open(ctx); err != nil {
		return err
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.runErr = make(chan error, 1)
	go func() {
		s.runErr <- s.acceptor.Run(ctx)
	}()

	return nil
}

func (s *Server) Addr() net.Addr {
	return s.acceptor.Addr()
}

// Shutdown stops accepting, then waits for open connections to finish. When
// ctx ends first, the remaining connections are closed.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	err := s.acceptor.Shutdown(ctx)
	if s.runErr != nil {
		select {
		case rerr := <-s.runErr:
			err = errors.Join(err, rerr)
		default:
		}
	}

	err = errors.Join(err, s.dispatcher.Drain(ctx))
	s.logger.Info("server_stopped", "error", err)
	return err
}
