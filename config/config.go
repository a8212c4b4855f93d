package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const envPrefix = "HTTPKIT_"

func Default() Settings {
	return Settings{
		Server: Server{
			Address:        "0.0.0.0",
			Port:           8080,
			Name:           "httpkit",
			MaxConnections: 64,
			ReadTimeout:    Duration(30 * time.Second),
			WriteTimeout:   Duration(30 * time.Second),
			IdleTimeout:    Duration(60 * time.Second),
			MaxHeaderBytes: 64 << 10,
			MaxBodyBytes:   64 << 20,
			DumpLimit:      2048,
		},
		Client: Client{
			KeepAlive:       Duration(30 * time.Second),
			Timeout:         Duration(30 * time.Second),
			ConnectTimeout:  Duration(10 * time.Second),
			FollowRedirects: true,
			MaxRedirects:    20,
			DumpLimit:       2048,
			UserAgent:       "httpkit",
			MaxBodyBytes:    64 << 20,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
			Sink:   "stdout",
		},
	}
}

// Load reads a YAML file over the defaults. A missing file yields the
// defaults unchanged.
func Load(path string) (Settings, error) {
	settings := Default()
	if path == "" {
		return settings, nil
	}

	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(b, &settings); err != nil {
		return settings, fmt.Errorf("parse config %s: %w", path, err)
	}

	return settings, nil
}

// LookupFunc reports the value of a configuration key, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

type override func(s *Settings, raw string) error

func stringOverride(field func(*Settings) *string) override {
	return func(s *Settings, raw string) error {
		*field(s) = raw
		return nil
	}
}

func intOverride(field func(*Settings) *int) override {
	return func(s *Settings, raw string) error {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		*field(s) = v
		return nil
	}
}

func boolOverride(field func(*Settings) *bool) override {
	return func(s *Settings, raw string) error {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		*field(s) = v
		return nil
	}
}

func floatOverride(field func(*Settings) *float64) override {
	return func(s *Settings, raw string) error {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		*field(s) = v
		return nil
	}
}

func durationOverride(field func(*Settings) *Duration) override {
	return func(s *Settings, raw string) error {
		v, err := ParseDuration(raw)
		if err != nil {
			return err
		}
		*field(s) = v
		return nil
	}
}

func sizeOverride(field func(*Settings) *SizeBytes) override {
	return func(s *Settings, raw string) error {
		v, err := ParseSize(raw)
		if err != nil {
			return err
		}
		*field(s) = v
		return nil
	}
}

var overrides = map[string]override{
	"SERVER_ADDRESS":          stringOverride(func(s *Settings) *string { return &s.Server.Address }),
	"SERVER_PORT":             intOverride(func(s *Settings) *int { return &s.Server.Port }),
	"SERVER_NAME":             stringOverride(func(s *Settings) *string { return &s.Server.Name }),
	"SERVER_MAX_CONNECTIONS":  intOverride(func(s *Settings) *int { return &s.Server.MaxConnections }),
	"SERVER_DUMP_WORKERS":     boolOverride(func(s *Settings) *bool { return &s.Server.DumpWorkers }),
	"SERVER_READ_TIMEOUT":     durationOverride(func(s *Settings) *Duration { return &s.Server.ReadTimeout }),
	"SERVER_WRITE_TIMEOUT":    durationOverride(func(s *Settings) *Duration { return &s.Server.WriteTimeout }),
	"SERVER_IDLE_TIMEOUT":     durationOverride(func(s *Settings) *Duration { return &s.Server.IdleTimeout }),
	"SERVER_MAX_HEADER_BYTES": sizeOverride(func(s *Settings) *SizeBytes { return &s.Server.MaxHeaderBytes }),
	"SERVER_MAX_BODY_BYTES":   sizeOverride(func(s *Settings) *SizeBytes { return &s.Server.MaxBodyBytes }),
	"SERVER_RECEIVE_BUFFER":   sizeOverride(func(s *Settings) *SizeBytes { return &s.Server.ReceiveBuffer }),
	"SERVER_DUMP_LIMIT":       intOverride(func(s *Settings) *int { return &s.Server.DumpLimit }),
	"SERVER_ACCEPT_RATE":      floatOverride(func(s *Settings) *float64 { return &s.Server.AcceptRate }),
	"SERVER_ACCEPT_BURST":     intOverride(func(s *Settings) *int { return &s.Server.AcceptBurst }),
	"SERVER_TLS_CERT_FILE":    stringOverride(func(s *Settings) *string { return &s.Server.TLS.CertFile }),
	"SERVER_TLS_KEY_FILE":     stringOverride(func(s *Settings) *string { return &s.Server.TLS.KeyFile }),
	"CLIENT_KEEP_ALIVE":       durationOverride(func(s *Settings) *Duration { return &s.Client.KeepAlive }),
	"CLIENT_TIMEOUT":          durationOverride(func(s *Settings) *Duration { return &s.Client.Timeout }),
	"CLIENT_CONNECT_TIMEOUT":  durationOverride(func(s *Settings) *Duration { return &s.Client.ConnectTimeout }),
	"CLIENT_FOLLOW_REDIRECTS": boolOverride(func(s *Settings) *bool { return &s.Client.FollowRedirects }),
	"CLIENT_MAX_REDIRECTS":    intOverride(func(s *Settings) *int { return &s.Client.MaxRedirects }),
	"CLIENT_DUMP_LIMIT":       intOverride(func(s *Settings) *int { return &s.Client.DumpLimit }),
	"CLIENT_MAX_BODY_BYTES":   sizeOverride(func(s *Settings) *SizeBytes { return &s.Client.MaxBodyBytes }),
	"CLIENT_USER_AGENT":       stringOverride(func(s *Settings) *string { return &s.Client.UserAgent }),
	"LOG_LEVEL":               stringOverride(func(s *Settings) *string { return &s.Logging.Level }),
	"LOG_FORMAT":              stringOverride(func(s *Settings) *string { return &s.Logging.Format }),
	"LOG_SINK":                stringOverride(func(s *Settings) *string { return &s.Logging.Sink }),
}

// ApplyEnv overrides settings from HTTPKIT_* keys found through lookup.
func ApplyEnv(s *Settings, lookup LookupFunc) error {
	var errs []error

	for key, apply := range overrides {
		raw, ok := lookup(envPrefix + key)
		if !ok {
			continue
		}
		if err := apply(s, raw); err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
		}
	}

	return errors.Join(errs...)
}

func (s Settings) Validate() error {
	var errs []error

	if s.Server.Port < 0 || s.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", s.Server.Port))
	}
	if s.Server.MaxConnections <= 0 {
		errs = append(errs, fmt.Errorf("server.max_connections must be positive: %d", s.Server.MaxConnections))
	}
	if s.Server.ReadTimeout < 0 || s.Server.WriteTimeout < 0 || s.Server.IdleTimeout < 0 {
		errs = append(errs, errors.New("server timeouts cannot be negative"))
	}
	if s.Server.MaxHeaderBytes < 0 || s.Server.MaxBodyBytes < 0 || s.Server.ReceiveBuffer < 0 {
		errs = append(errs, errors.New("server byte sizes cannot be negative"))
	}
	if s.Server.AcceptRate < 0 {
		errs = append(errs, fmt.Errorf("server.accept_rate cannot be negative: %g", s.Server.AcceptRate))
	}
	if (s.Server.TLS.CertFile == "") != (s.Server.TLS.KeyFile == "") {
		errs = append(errs, errors.New("server.tls needs both cert_file and key_file"))
	}
	if s.Client.KeepAlive < 0 || s.Client.Timeout < 0 || s.Client.ConnectTimeout < 0 {
		errs = append(errs, errors.New("client timeouts cannot be negative"))
	}
	if s.Client.MaxRedirects < 0 {
		errs = append(errs, fmt.Errorf("client.max_redirects cannot be negative: %d", s.Client.MaxRedirects))
	}

	return errors.Join(errs...)
}
