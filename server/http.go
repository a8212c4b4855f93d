package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/tony-montemuro/httpkit/internal/metrics"
	"github.com/tony-montemuro/httpkit/logger"
	"github.com/tony-montemuro/httpkit/message"
)

// dateLayout is the IMF-fixdate form used in Date headers.
const dateLayout = "Mon, 02 Jan 2006 15:04:05 GMT"

// Conn is the connection a request arrived on.
type Conn struct {
	net.Conn
	Stream *message.Stream

	// Requests counts the requests read so far, this one included.
	Requests int
	Opened   time.Time
}

func newConn(nc net.Conn) *Conn {
	return &Conn{Conn: nc, Stream: message.NewStream(nc), Opened: time.Now()}
}

// HTTP serves HTTP/1.x on accepted connections.
type HTTP struct {
	Handler Handler
	Name    string

	// ReadTimeout bounds reading the first request, IdleTimeout the wait
	// for every later one on a kept-alive connection.
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodyBytes   int64
	DumpLimit      int

	Logger  *slog.Logger
	Metrics *metrics.Metrics

	now func() time.Time
}

func (h *HTTP) clock() time.Time {
	if h.now != nil {
		return h.now()
	}

	return time.Now()
}

func (h *HTTP) readOptions(conn *Conn) message.ReadOptions {
	timeout := h.ReadTimeout
	if conn.Requests > 0 && h.IdleTimeout > 0 {
		timeout = h.IdleTimeout
	}

	return message.ReadOptions{
		Timeout:        timeout,
		MaxHeaderBytes: h.MaxHeaderBytes,
		MaxBodyBytes:   h.MaxBodyBytes,
		DumpLimit:      h.DumpLimit,
	}
}

func (h *HTTP) ServeConn(nc net.Conn) bool {
	log := logger.OrDiscard(h.Logger)
	conn := newConn(nc)
	remote := nc.RemoteAddr().String()

	for {
		req, err := message.ReadRequest(conn.Stream, h.readOptions(conn))
		if err != nil {
			if message.IsParseError(err) {
				log.Debug("request_malformed", "remote", remote, "error", err.Error())
				res := errorResponse(message.StatusBadRequest, "Bad Request: "+err.Error())
				res.Header.Set("Connection", "close")
				h.stamp(res)
				_ = res.Write(conn.Stream, h.WriteTimeout)
			}
			return true
		}
		conn.Requests++

		res := h.respond(log, conn, req)
		keepAlive := req.KeepAlive() && res.KeepAlive()
		switch {
		case !keepAlive:
			res.Header.Set("Connection", "close")
		case req.Version == "HTTP/1.0":
			res.Header.Set("Connection", "keep-alive")
		}

		err = res.Write(conn.Stream, h.WriteTimeout)
		h.Metrics.ServerRequest(string(req.Method), res.Status.Code)
		if err != nil {
			log.Debug("response_failed", "remote", remote, "error", err.Error())
			return true
		}
		if !keepAlive {
			return true
		}
	}
}

func (h *HTTP) respond(log *slog.Logger, conn *Conn, req *message.Request) *message.Response {
	res, err := h.Handler.Handle(conn, req)
	if err == nil && res == nil {
		err = errors.New("handler returned no response")
	}
	if err != nil {
		log.Error("handler_failed", "method", string(req.Method), "path", req.Path, "error", err.Error())
		res = errorResponse(message.StatusInternalServerError, message.StatusText(message.StatusInternalServerError))
	}

	res.RequestMethod = req.Method
	if res.AcceptEncoding == "" {
		res.AcceptEncoding = req.Header.Get("Accept-Encoding")
	}
	if res.DumpLimit == 0 {
		res.DumpLimit = h.DumpLimit
	}
	h.stamp(res)

	return res
}

func (h *HTTP) stamp(res *message.Response) {
	res.Header.Set("Date", h.clock().UTC().Format(dateLayout))
	if h.Name != "" && !res.Header.Has("Server") {
		res.Header.Set("Server", h.Name)
	}
}

// Text builds a 200 response with a plain text body.
func Text(body string) *message.Response {
	res := message.NewResponse(message.StatusOK)
	res.SetText(body)
	return res
}

// Status builds a response with the standard reason as its body.
func Status(code int) *message.Response {
	return errorResponse(code, strconv.Itoa(code)+" "+message.StatusText(code))
}

// Redirect builds a redirect to location.
func Redirect(code int, location string) *message.Response {
	res := message.NewResponse(code)
	res.Header.Set("Location", location)
	res.SetText(fmt.Sprintf("Redirecting to %s\n", location))
	return res
}
