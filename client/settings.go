package client

import (
	"crypto/tls"
	"time"

	"github.com/tony-montemuro/httpkit/config"
)

const DefaultMaxRedirects = 20

// Settings control how a client talks to its host.
type Settings struct {
	// KeepAlive is how long the server is asked to keep an idle connection.
	// Zero closes the connection after every exchange.
	KeepAlive      time.Duration
	Timeout        time.Duration
	ConnectTimeout time.Duration

	FollowRedirects bool
	MaxRedirects    int

	// MaxBodyBytes bounds a response body. Zero or less means
	// message.DefaultMaxBodyBytes.
	MaxBodyBytes int64

	DumpLimit int
	UserAgent string
	TLSConfig *tls.Config
}

func SettingsFromConfig(c config.Client) Settings {
	return Settings{
		KeepAlive:       c.KeepAlive.Duration(),
		Timeout:         c.Timeout.Duration(),
		ConnectTimeout:  c.ConnectTimeout.Duration(),
		FollowRedirects: c.FollowRedirects,
		MaxRedirects:    c.MaxRedirects,
		DumpLimit:       c.DumpLimit,
		UserAgent:       c.UserAgent,
		MaxBodyBytes:    int64(c.MaxBodyBytes),
	}
}

func (s Settings) maxRedirects() int {
	if s.MaxRedirects <= 0 {
		return DefaultMaxRedirects
	}

	return s.MaxRedirects
}

// ephemeral returns the settings of a one-off client used for a redirect to
// another host.
func (s Settings) ephemeral() Settings {
	s.KeepAlive = 0
	s.FollowRedirects = false
	return s
}
