package client

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tony-montemuro/httpkit/internal/metrics"
	"github.com/tony-montemuro/httpkit/logger"
	"github.com/tony-montemuro/httpkit/message"
	"github.com/tony-montemuro/httpkit/socket"
)

const acceptEncoding = message.EncodingGzip + ", " + message.EncodingDeflate

// Setup adjusts a request before it is sent.
type Setup func(r *message.Request)

func WithHeader(name, value string) Setup {
	return func(r *message.Request) {
		r.Header.Set(name, value)
	}
}

func WithBody(body []byte, contentType string) Setup {
	return func(r *message.Request) {
		r.SetBody(body, contentType)
	}
}

func WithText(text string) Setup {
	return func(r *message.Request) {
		r.SetText(text)
	}
}

func WithForm(values url.Values) Setup {
	return func(r *message.Request) {
		r.SetForm(values)
	}
}

func WithMultipart(m *message.Multipart) Setup {
	return func(r *message.Request) {
		r.SetMultipart(m)
	}
}

type options struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	dialer  socket.Dialer
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

// WithDialer replaces the TCP/TLS dialer, mostly for tests.
func WithDialer(d socket.Dialer) Option {
	return func(o *options) {
		o.dialer = d
	}
}

// client is shared by the host-bound and url-bound views. One exchange at a
// time holds mu.
type client struct {
	base     *url.URL
	addr     socket.Address
	settings Settings
	auth     string
	opts     []Option

	logger  *slog.Logger
	metrics *metrics.Metrics

	mu   sync.Mutex
	sock *socket.Reconnecting
}

func parseAddress(u *url.URL) (socket.Address, error) {
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return socket.Address{}, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return socket.Address{}, fmt.Errorf("missing host in %q", u.String())
	}

	addr := socket.Address{Scheme: scheme, Host: host}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return socket.Address{}, fmt.Errorf("invalid port %q", p)
		}
		addr.Port = port
	}

	return addr, nil
}

func basicCredentials(user *url.Userinfo) string {
	if user == nil {
		return ""
	}

	password, _ := user.Password()
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user.Username()+":"+password))
}

func newClient(u *url.URL, settings Settings, opts []Option) (*client, error) {
	addr, err := parseAddress(u)
	if err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.dialer == nil {
		o.dialer = socket.NetDialer{Timeout: settings.ConnectTimeout, TLSConfig: settings.TLSConfig}
	}

	c := &client{
		base:     &url.URL{Scheme: addr.Scheme, Host: addr.Authority(), Path: "/"},
		addr:     addr,
		settings: settings,
		auth:     basicCredentials(u.User),
		opts:     opts,
		logger:   logger.OrDiscard(o.logger),
		metrics:  o.metrics,
	}
	c.sock = socket.NewReconnecting(addr, o.dialer, socket.WithLogger(c.logger), socket.WithMetrics(o.metrics))

	return c, nil
}

func (c *client) newRequest(method message.Method, target string, setup []Setup) *message.Request {
	req := message.NewRequest(method, target)
	req.DumpLimit = c.settings.DumpLimit
	req.Header.Set("Host", c.addr.Authority())
	if c.settings.UserAgent != "" {
		req.Header.Set("User-Agent", c.settings.UserAgent)
	}
	req.Header.Set("Accept-Encoding", acceptEncoding)
	if c.auth != "" {
		req.Header.Set("Authorization", c.auth)
	}

	for _, fn := range setup {
		fn(req)
	}

	return req
}

func keepAliveSeconds(d time.Duration) int {
	return max(1, int(d/time.Second))
}

// exchange sends req and reads its response on the client's connection.
func (c *client) exchange(ctx context.Context, req *message.Request) (*message.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keepAlive := c.settings.KeepAlive > 0
	if keepAlive {
		req.Header.Set("Connection", "keep-alive")
		req.Header.Set("Keep-Alive", "timeout="+strconv.Itoa(keepAliveSeconds(c.settings.KeepAlive)))
	} else {
		req.Header.Set("Connection", "close")
		req.Header.Drop("Keep-Alive")
	}

	opts := message.ReadOptions{Timeout: c.settings.Timeout, MaxBodyBytes: c.settings.MaxBodyBytes, DumpLimit: c.settings.DumpLimit}
	res, err := socket.WithSocketResult(ctx, c.sock, func(s *message.Stream) (*message.Response, error) {
		if err := req.Write(s, c.settings.Timeout); err != nil {
			return nil, err
		}

		return message.ReadResponse(s, req.Method, opts)
	})
	if err != nil {
		return nil, err
	}

	c.metrics.ClientRequest(string(req.Method), res.Status.Code)
	c.logger.Debug("client_exchange", "address", c.addr.String(), "method", string(req.Method), "target", req.Target(), "status", res.Status.Code)

	if !keepAlive || !res.KeepAlive() {
		_ = c.sock.Close()
	}

	return res, nil
}

func (c *client) do(ctx context.Context, req *message.Request) (*message.Response, error) {
	res, err := c.exchange(ctx, req)
	if err != nil || !c.settings.FollowRedirects {
		return res, err
	}

	return c.follow(ctx, req, res)
}

func (c *client) close() error {
	return c.sock.Close()
}

// HostClient sends requests to one scheme, host and port.
type HostClient struct {
	c *client
}

// New binds a client to the scheme, host, port and credentials of base.
// Credentials become a Basic Authorization header on every request.
func New(base string, settings Settings, opts ...Option) (*HostClient, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", base, err)
	}

	c, err := newClient(u, settings, opts)
	if err != nil {
		return nil, err
	}

	return &HostClient{c: c}, nil
}

func (h *HostClient) Address() socket.Address {
	return h.c.addr
}

func (h *HostClient) Do(ctx context.Context, method message.Method, target string, setup ...Setup) (*message.Response, error) {
	return h.c.do(ctx, h.c.newRequest(method, target, setup))
}

func (h *HostClient) Get(ctx context.Context, target string, setup ...Setup) (*message.Response, error) {
	return h.Do(ctx, message.MethodGet, target, setup...)
}

func (h *HostClient) Head(ctx context.Context, target string, setup ...Setup) (*message.Response, error) {
	return h.Do(ctx, message.MethodHead, target, setup...)
}

func (h *HostClient) Post(ctx context.Context, target string, setup ...Setup) (*message.Response, error) {
	return h.Do(ctx, message.MethodPost, target, setup...)
}

func (h *HostClient) Put(ctx context.Context, target string, setup ...Setup) (*message.Response, error) {
	return h.Do(ctx, message.MethodPut, target, setup...)
}

func (h *HostClient) Delete(ctx context.Context, target string, setup ...Setup) (*message.Response, error) {
	return h.Do(ctx, message.MethodDelete, target, setup...)
}

// SetURL returns a view bound to target that shares this client's connection.
func (h *HostClient) SetURL(target string) *URLClient {
	return &URLClient{c: h.c, target: target}
}

// Close drops the connection; the next request reconnects.
func (h *HostClient) Close() error {
	return h.c.close()
}

// URLClient sends requests to one target on a host.
type URLClient struct {
	c      *client
	target string
}

func (u *URLClient) Target() string {
	return u.target
}

func (u *URLClient) DropURL() *HostClient {
	return &HostClient{c: u.c}
}

func (u *URLClient) Do(ctx context.Context, method message.Method, setup ...Setup) (*message.Response, error) {
	return u.c.do(ctx, u.c.newRequest(method, u.target, setup))
}

func (u *URLClient) Get(ctx context.Context, setup ...Setup) (*message.Response, error) {
	return u.Do(ctx, message.MethodGet, setup...)
}

func (u *URLClient) Head(ctx context.Context, setup ...Setup) (*message.Response, error) {
	return u.Do(ctx, message.MethodHead, setup...)
}

func (u *URLClient) Post(ctx context.Context, setup ...Setup) (*message.Response, error) {
	return u.Do(ctx, message.MethodPost, setup...)
}

func (u *URLClient) Put(ctx context.Context, setup ...Setup) (*message.Response, error) {
	return u.Do(ctx, message.MethodPut, setup...)
}

func (u *URLClient) Delete(ctx context.Context, setup ...Setup) (*message.Response, error) {
	return u.Do(ctx, message.MethodDelete, setup...)
}

func (u *URLClient) Close() error {
	return u.c.close()
}
