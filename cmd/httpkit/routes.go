package main

import (
	"bytes"
	"log/slog"

	"github.com/tony-montemuro/httpkit/internal/metrics"
	"github.com/tony-montemuro/httpkit/message"
	"github.com/tony-montemuro/httpkit/server"
)

type partSummary struct {
	Name        string `json:"name"`
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Size        int    `json:"size"`
}

func ping(*server.Conn, *message.Request) (*message.Response, error) {
	return server.Text("pong"), nil
}

// echo answers with the request body, or with the query when there is none.
func echo(_ *server.Conn, req *message.Request) (*message.Response, error) {
	res := message.NewResponse(message.StatusOK)
	if !req.HasBody() {
		query, err := req.Query()
		if err != nil {
			return server.Status(message.StatusBadRequest), nil
		}
		res.SetForm(query)
		return res, nil
	}

	res.SetBody(req.Body(), req.Header.Get("Content-Type"))
	return res, nil
}

// upload lists the parts of a multipart body.
func upload(_ *server.Conn, req *message.Request) (*message.Response, error) {
	parts, err := req.Parts()
	if err != nil {
		res := server.Status(message.StatusBadRequest)
		res.SetText(err.Error() + "\n")
		return res, nil
	}

	summaries := make([]partSummary, 0, parts.Len())
	for _, part := range parts.All() {
		summaries = append(summaries, partSummary{
			Name:        part.Name,
			Filename:    part.Filename(),
			ContentType: part.Header.Get("Content-Type"),
			Size:        len(part.Data),
		})
	}

	res := message.NewResponse(message.StatusOK)
	if err := res.SetJSON(summaries); err != nil {
		return nil, err
	}
	return res, nil
}

func secret(*server.Conn, *message.Request) (*message.Response, error) {
	return server.Text("the cake is in the fridge"), nil
}

func metricsHandler(m *metrics.Metrics) server.HandlerFunc {
	return func(*server.Conn, *message.Request) (*message.Response, error) {
		var buf bytes.Buffer
		if err := m.WriteText(&buf); err != nil {
			return nil, err
		}

		res := message.NewResponse(message.StatusOK)
		res.SetBody(buf.Bytes(), metrics.ContentType)
		return res, nil
	}
}

func newRouter(log *slog.Logger, m *metrics.Metrics, credentials map[string]string) (*server.Router, error) {
	r := server.NewRouter(log)

	routes := []struct {
		method  message.Method
		pattern string
		handler server.HandlerFunc
	}{
		{message.MethodGet, "/ping", ping},
		{message.MethodGet, "/echo", echo},
		{message.MethodPost, "/echo", echo},
		{message.MethodPut, "/echo", echo},
		{message.MethodPost, "/upload", upload},
		{message.MethodGet, "/metrics", metricsHandler(m)},
	}
	for _, rt := range routes {
		if err := r.Register(rt.method, rt.pattern, rt.handler, nil); err != nil {
			return nil, err
		}
	}

	if credentials != nil {
		auth := server.NewBasicAuth("httpkit", credentials)
		if err := r.Register(message.MethodGet, "/secret", server.HandlerFunc(secret), auth); err != nil {
			return nil, err
		}
	}

	return r, nil
}
