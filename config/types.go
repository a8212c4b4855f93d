package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Settings is the full configuration of the server and client.
type Settings struct {
	Server  Server  `yaml:"server"`
	Client  Client  `yaml:"client"`
	Logging Logging `yaml:"logging"`
}

type Server struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
	Name    string `yaml:"name"`

	MaxConnections int  `yaml:"max_connections"`
	DumpWorkers    bool `yaml:"dump_workers"`

	ReadTimeout    Duration  `yaml:"read_timeout"`
	WriteTimeout   Duration  `yaml:"write_timeout"`
	IdleTimeout    Duration  `yaml:"idle_timeout"`
	MaxHeaderBytes SizeBytes `yaml:"max_header_bytes"`
	MaxBodyBytes   SizeBytes `yaml:"max_body_bytes"`
	ReceiveBuffer  SizeBytes `yaml:"receive_buffer"`
	DumpLimit      int       `yaml:"dump_limit"`

	// AcceptRate paces accepted connections per second; zero disables pacing.
	AcceptRate  float64 `yaml:"accept_rate"`
	AcceptBurst int     `yaml:"accept_burst"`

	TLS TLS `yaml:"tls"`
}

type TLS struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

func (t TLS) Enabled() bool {
	return t.CertFile != "" && t.KeyFile != ""
}

type Client struct {
	// KeepAlive is how long an idle connection is kept; zero closes it after
	// every exchange.
	KeepAlive       Duration `yaml:"keep_alive"`
	Timeout         Duration `yaml:"timeout"`
	ConnectTimeout  Duration `yaml:"connect_timeout"`
	FollowRedirects bool     `yaml:"follow_redirects"`
	MaxRedirects    int      `yaml:"max_redirects"`
	DumpLimit       int      `yaml:"dump_limit"`
	UserAgent       string   `yaml:"user_agent"`

	MaxBodyBytes SizeBytes `yaml:"max_body_bytes"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Sink   string `yaml:"sink"`
}

// SizeBytes is a byte count written either as a plain integer or in a human
// form like "64KiB".
type SizeBytes int64

func ParseSize(raw string) (SizeBytes, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		return SizeBytes(v), nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return SizeBytes(i), nil
	}

	return 0, fmt.Errorf("invalid size value: %q", raw)
}

func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParseSize(node.Value)
	if err != nil {
		return err
	}

	*s = v
	return nil
}

func (s SizeBytes) Int() int { return int(s) }

func (s SizeBytes) String() string { return humanize.IBytes(uint64(s)) }

// Duration accepts "250ms" style strings or plain numbers of seconds.
type Duration time.Duration

func ParseDuration(raw string) (Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return Duration(d), nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return Duration(time.Duration(f * float64(time.Second))), nil
	}

	return 0, fmt.Errorf("invalid duration value: %q", raw)
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParseDuration(node.Value)
	if err != nil {
		return err
	}

	*d = v
	return nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }
