package metrics

import (
	"io"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const namespace = "httpkit"

// Metrics groups the collectors of one client or server. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	clientRequests   *prometheus.CounterVec
	clientRedirects  prometheus.Counter
	socketReconnects prometheus.Counter
	socketRetries    prometheus.Counter
	serverRequests   *prometheus.CounterVec
	activeWorkers    prometheus.Gauge
	admissionWaits   prometheus.Counter
	acceptErrors     prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		clientRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Requests sent by the client, by method and response status.",
		}, []string{"method", "code"}),
		clientRedirects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "redirects_total",
			Help:      "Redirects followed by the client.",
		}),
		socketReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "socket",
			Name:      "reconnects_total",
			Help:      "Connections established by reconnecting sockets.",
		}),
		socketRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "socket",
			Name:      "retries_total",
			Help:      "Exchanges retried after an I/O failure on a reused connection.",
		}),
		serverRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "requests_total",
			Help:      "Requests served, by method and response status.",
		}, []string{"method", "code"}),
		activeWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "active_workers",
			Help:      "Connection workers currently running.",
		}),
		admissionWaits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "admission_waits_total",
			Help:      "Accepted connections that had to wait for a free slot.",
		}),
		acceptErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "accept_errors_total",
			Help:      "Failed bind or accept attempts.",
		}),
	}

	m.registry.MustRegister(
		m.clientRequests,
		m.clientRedirects,
		m.socketReconnects,
		m.socketRetries,
		m.serverRequests,
		m.activeWorkers,
		m.admissionWaits,
		m.acceptErrors,
	)

	return m
}

func (m *Metrics) ClientRequest(method string, code int) {
	if m == nil {
		return
	}
	m.clientRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

func (m *Metrics) ClientRedirect() {
	if m == nil {
		return
	}
	m.clientRedirects.Inc()
}

func (m *Metrics) SocketReconnect() {
	if m == nil {
		return
	}
	m.socketReconnects.Inc()
}

func (m *Metrics) SocketRetry() {
	if m == nil {
		return
	}
	m.socketRetries.Inc()
}

func (m *Metrics) ServerRequest(method string, code int) {
	if m == nil {
		return
	}
	m.serverRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

func (m *Metrics) WorkerStarted() {
	if m == nil {
		return
	}
	m.activeWorkers.Inc()
}

func (m *Metrics) WorkerFinished() {
	if m == nil {
		return
	}
	m.activeWorkers.Dec()
}

func (m *Metrics) AdmissionWait() {
	if m == nil {
		return
	}
	m.admissionWaits.Inc()
}

func (m *Metrics) AcceptError() {
	if m == nil {
		return
	}
	m.acceptErrors.Inc()
}

// WriteText writes every collected family in the Prometheus text format.
func (m *Metrics) WriteText(w io.Writer) error {
	if m == nil {
		return nil
	}

	families, err := m.registry.Gather()
	if err != nil {
		return err
	}

	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}

	return nil
}

// ContentType is the media type of the text written by WriteText.
const ContentType = string(expfmt.FmtText)
