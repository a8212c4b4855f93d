package client

import (
	"context"
	"net/url"
	"strings"

	"github.com/tony-montemuro/httpkit/message"
)

// hop identifies a redirect target; revisiting one with the same cookies
// would repeat the same exchange forever. The starting URL with the original
// cookies counts as visited.
type hop struct {
	location string
	cookie   string
}

// joinCookies merges two Cookie values by name. A later pair replaces an
// earlier one of the same name in place; new names are appended.
func joinCookies(previous, value string) string {
	var names []string
	pairs := make(map[string]string)
	for _, list := range []string{previous, value} {
		for _, pair := range strings.Split(list, ";") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			name, _, _ := strings.Cut(pair, "=")
			if _, ok := pairs[name]; !ok {
				names = append(names, name)
			}
			pairs[name] = pair
		}
	}

	merged := make([]string, 0, len(names))
	for _, name := range names {
		merged = append(merged, pairs[name])
	}

	return strings.Join(merged, "; ")
}

// redirectRequest derives the request that replays req after a redirect
// answered with code. It reports false when code is not followed for req.
func redirectRequest(req *message.Request, code int) (*message.Request, bool) {
	rewrite := false

	switch code {
	case message.StatusMovedPermanently:
		if req.Method != message.MethodGet && req.Method != message.MethodHead {
			return nil, false
		}
	case message.StatusFound, message.StatusSeeOther:
		rewrite = req.Method == message.MethodPost || req.Method == message.MethodPut
	case message.StatusTemporaryRedirect, message.StatusPermanentRedirect:
	default:
		return nil, false
	}

	next := req.Clone()
	if rewrite {
		next.Method = message.MethodGet
		next.DropBody()
	}

	return next, true
}

// setCookies folds the name=value pairs of every Set-Cookie header into one
// Cookie value.
func setCookies(res *message.Response) string {
	var pairs []string
	for _, v := range res.Header.Values("Set-Cookie") {
		pair, _, _ := strings.Cut(v, ";")
		if pair = strings.TrimSpace(pair); pair != "" {
			pairs = append(pairs, pair)
		}
	}

	return strings.Join(pairs, "; ")
}

func (c *client) follow(ctx context.Context, req *message.Request, res *message.Response) (*message.Response, error) {
	current := c.base.ResolveReference(&url.URL{Path: req.Path, RawQuery: req.RawQuery})
	visited := map[hop]struct{}{
		{location: current.String(), cookie: req.Header.Get("Cookie")}: {},
	}

	for hops := 0; ; hops++ {
		location, ok := res.Header.Lookup("Location")
		if !ok {
			return res, nil
		}

		next, ok := redirectRequest(req, res.Status.Code)
		if !ok {
			return res, nil
		}

		ref, err := url.Parse(strings.TrimSpace(location))
		if err != nil {
			return nil, &RedirectError{Location: location, Err: err}
		}
		target := current.ResolveReference(ref)
		target.Fragment = ""

		if cookie := setCookies(res); cookie != "" {
			next.Header.Set("Cookie", joinCookies(next.Header.Get("Cookie"), cookie))
		}

		key := hop{location: target.String(), cookie: next.Header.Get("Cookie")}
		if _, seen := visited[key]; seen {
			return nil, &RedirectError{Location: location, Err: ErrRedirectLoop}
		}
		visited[key] = struct{}{}

		if hops >= c.settings.maxRedirects() {
			return nil, &RedirectError{Location: location, Err: ErrTooManyRedirects}
		}

		c.metrics.ClientRedirect()
		c.logger.Debug("redirect_follow",
			"status", res.Status.Code,
			"method", string(next.Method),
			"location", target.String(),
			"hop", hops+1,
		)

		res, err = c.replay(ctx, next, target)
		if err != nil {
			return nil, err
		}
		req, current = next, target
	}
}

// replay sends req to target: on this client when target is on the same host,
// otherwise on a one-off client that is closed afterwards.
func (c *client) replay(ctx context.Context, req *message.Request, target *url.URL) (*message.Response, error) {
	req.SetTarget(target.RequestURI())

	addr, err := parseAddress(target)
	if err != nil {
		return nil, &RedirectError{Location: target.String(), Err: err}
	}

	if addr.Scheme == c.addr.Scheme && addr.HostPort() == c.addr.HostPort() {
		req.Header.Set("Host", c.addr.Authority())
		return c.exchange(ctx, req)
	}

	other, err := newClient(target, c.settings.ephemeral(), c.opts)
	if err != nil {
		return nil, &RedirectError{Location: target.String(), Err: err}
	}
	defer other.close()

	req.Header.Set("Host", other.addr.Authority())
	req.Header.Drop("Authorization")
	if other.auth != "" {
		req.Header.Set("Authorization", other.auth)
	}

	return other.exchange(ctx, req)
}
