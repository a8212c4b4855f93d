package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/tony-montemuro/httpkit/internal/metrics"
	"github.com/tony-montemuro/httpkit/logger"
	"golang.org/x/time/rate"
)

// ConnHandler serves one accepted connection. It returns true when the
// connection should be closed once it is done.
type ConnHandler interface {
	ServeConn(conn net.Conn) bool
}

type ConnHandlerFunc func(conn net.Conn) bool

func (f ConnHandlerFunc) ServeConn(conn net.Conn) bool {
	return f(conn)
}

// Dispatcher hands accepted connections to workers, one goroutine each,
// never running more than the admission allows.
type Dispatcher struct {
	handler     ConnHandler
	admission   *Admission
	limiter     *rate.Limiter
	diagnostics *Diagnostics
	logger      *slog.Logger
	metrics     *metrics.Metrics

	wg    sync.WaitGroup
	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

type DispatcherOption func(*Dispatcher)

// WithPacing spaces out accepted connections. Connections wait for the
// limiter; none is turned away.
func WithPacing(limiter *rate.Limiter) DispatcherOption {
	return func(d *Dispatcher) {
		d.limiter = limiter
	}
}

func WithDiagnostics(diagnostics *Diagnostics) DispatcherOption {
	return func(d *Dispatcher) {
		d.diagnostics = diagnostics
	}
}

func WithDispatcherLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

func WithDispatcherMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

func NewDispatcher(handler ConnHandler, admission *Admission, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		handler:   handler,
		admission: admission,
		conns:     make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logger.OrDiscard(d.logger)

	return d
}

// Dispatch starts a worker for conn, blocking while every slot is taken. The
// connection is closed when ctx ends before a slot frees.
func (d *Dispatcher) Dispatch(ctx context.Context, conn net.Conn) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			_ = conn.Close()
			return
		}
	}

	release, ok := d.admission.TryAdmit()
	if !ok {
		d.metrics.AdmissionWait()
		d.logger.Warn("admission_saturated",
			"remote", conn.RemoteAddr().String(),
			"capacity", d.admission.Capacity(),
		)
		d.diagnostics.Dump(d.logger)

		var err error
		release, err = d.admission.Admit(ctx)
		if err != nil {
			_ = conn.Close()
			return
		}
	}

	d.track(conn, true)
	d.wg.Add(1)
	go d.work(conn, release)
}

func (d *Dispatcher) track(conn net.Conn, add bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if add {
		d.conns[conn] = struct{}{}
	} else {
		delete(d.conns, conn)
	}
}

func (d *Dispatcher) work(conn net.Conn, release func()) {
	defer d.wg.Done()

	id := d.diagnostics.start(conn.RemoteAddr().String())
	d.metrics.WorkerStarted()

	autoClose := true
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error("worker_panic", "remote", conn.RemoteAddr().String(), "panic", fmt.Sprint(p))
			autoClose = true
		}

		release()
		d.track(conn, false)
		if autoClose {
			_ = conn.Close()
		}
		d.metrics.WorkerFinished()
		d.diagnostics.finish(id)
	}()

	autoClose = d.handler.ServeConn(conn)
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Drain waits for the workers until ctx ends, then closes the connections
// still open and waits for their workers to notice.
func (d *Dispatcher) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
	}

	d.mu.Lock()
	for conn := range d.conns {
		_ = conn.Close()
	}
	d.mu.Unlock()

	<-done
	return ctx.Err()
}
