package server

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ryanuber/go-glob"
	"github.com/tony-montemuro/httpkit/internal/parser"
	"github.com/tony-montemuro/httpkit/logger"
	"github.com/tony-montemuro/httpkit/message"
)

// Handler answers one request. A returned error is turned into a 500.
type Handler interface {
	Handle(conn *Conn, req *message.Request) (*message.Response, error)
}

type HandlerFunc func(conn *Conn, req *message.Request) (*message.Response, error)

func (f HandlerFunc) Handle(conn *Conn, req *message.Request) (*message.Response, error) {
	return f(conn, req)
}

var ErrRouteConflict = errors.New("route conflict")

type route struct {
	pattern string
	auth    Authorizer
	handler Handler
}

// Router maps method and path to handlers. Patterns are glob expressions
// with '*' matching any run of characters; leading and trailing slashes are
// ignored on both patterns and paths. HEAD requests use the GET routes when
// no HEAD route is registered.
type Router struct {
	logger *slog.Logger

	mu     sync.RWMutex
	routes map[message.Method][]route
	orphan Handler
}

func NewRouter(l *slog.Logger) *Router {
	return &Router{logger: logger.OrDiscard(l), routes: make(map[message.Method][]route)}
}

func normalize(path string) string {
	return strings.Trim(path, "/")
}

// Register adds a route. auth may be nil for an open route. Two open routes
// on one pattern, an open and a guarded route on one pattern, and guarded
// routes with different challenges on one pattern are rejected.
func (r *Router) Register(method message.Method, pattern string, handler Handler, auth Authorizer) error {
	if err := method.ValidateKnown(); err != nil {
		return err
	}

	pattern = normalize(pattern)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.routes[method] {
		if existing.pattern != pattern {
			continue
		}

		switch {
		case existing.auth == nil && auth == nil:
			return fmt.Errorf("%w: %s /%s is already registered", ErrRouteConflict, method, pattern)
		case (existing.auth == nil) != (auth == nil):
			return fmt.Errorf("%w: %s /%s mixes open and guarded routes", ErrRouteConflict, method, pattern)
		case existing.auth.Challenge() != auth.Challenge():
			return fmt.Errorf("%w: %s /%s has incompatible challenges", ErrRouteConflict, method, pattern)
		}
	}

	r.routes[method] = append(r.routes[method], route{pattern: pattern, auth: auth, handler: handler})
	return nil
}

func (r *Router) Get(pattern string, handler HandlerFunc) error {
	return r.Register(message.MethodGet, pattern, handler, nil)
}

func (r *Router) Post(pattern string, handler HandlerFunc) error {
	return r.Register(message.MethodPost, pattern, handler, nil)
}

// SetOrphan sets the handler for requests no route matches.
func (r *Router) SetOrphan(handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.orphan = handler
}

func (r *Router) candidates(method message.Method, path string) ([]route, Handler) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	routes, ok := r.routes[method]
	if !ok && method == message.MethodHead {
		routes = r.routes[message.MethodGet]
	}

	var matched []route
	for _, rt := range routes {
		if glob.Glob(rt.pattern, path) {
			matched = append(matched, rt)
		}
	}

	return matched, r.orphan
}

func (r *Router) Handle(conn *Conn, req *message.Request) (*message.Response, error) {
	path, err := parser.Unescape(req.Path)
	if err != nil {
		return errorResponse(message.StatusBadRequest, err.Error()), nil
	}
	path = normalize(path)

	matched, orphan := r.candidates(req.Method, path)

	var (
		passing []route
		denied  *AuthError
		failed  Authorizer
	)
	for _, rt := range matched {
		if rt.auth == nil {
			passing = append(passing, rt)
			continue
		}

		err := rt.auth.CheckAuthorization(req)
		if err == nil {
			passing = append(passing, rt)
			continue
		}

		var aerr *AuthError
		if !errors.As(err, &aerr) {
			return nil, err
		}
		if denied == nil {
			denied, failed = aerr, rt.auth
		}
	}

	switch {
	case len(passing) == 1:
		return passing[0].handler.Handle(conn, req)
	case len(passing) > 1:
		patterns := make([]string, len(passing))
		for i, rt := range passing {
			patterns[i] = "/" + rt.pattern
		}
		r.logger.Warn("route_ambiguous", "method", string(req.Method), "path", req.Path, "patterns", patterns)
		return errorResponse(message.StatusInternalServerError, "ambiguous route"), nil
	case denied != nil:
		res := errorResponse(denied.Status(), message.StatusText(denied.Status()))
		if denied.Kind != AuthForbidden {
			res.Header.Set("WWW-Authenticate", failed.Challenge())
		}
		return res, nil
	case orphan != nil:
		return orphan.Handle(conn, req)
	}

	return errorResponse(message.StatusNotFound, message.StatusText(message.StatusNotFound)), nil
}

// errorResponse is a short plain text response for a failed request.
func errorResponse(code int, text string) *message.Response {
	res := message.NewResponse(code)
	res.SetText(text + "\n")
	return res
}
