package metrics

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_WriteText(t *testing.T) {
	m := New()
	m.ClientRequest("GET", 200)
	m.ClientRequest("GET", 200)
	m.SocketReconnect()
	m.WorkerStarted()
	m.WorkerStarted()
	m.WorkerFinished()

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))

	out := buf.String()
	assert.Contains(t, out, `httpkit_client_requests_total{code="200",method="GET"} 2`)
	assert.Contains(t, out, "httpkit_socket_reconnects_total 1")
	assert.Contains(t, out, "httpkit_server_active_workers 1")
	assert.Contains(t, out, "# TYPE httpkit_server_admission_waits_total counter")
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ClientRequest("GET", 200)
		m.ClientRedirect()
		m.SocketReconnect()
		m.SocketRetry()
		m.ServerRequest("POST", 500)
		m.WorkerStarted()
		m.WorkerFinished()
		m.AdmissionWait()
		m.AcceptError()
	})

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))
	assert.Empty(t, buf.String())
}
