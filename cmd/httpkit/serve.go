package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tony-montemuro/httpkit/internal/metrics"
	"github.com/tony-montemuro/httpkit/logger"
	"github.com/tony-montemuro/httpkit/server"
)

const shutdownGrace = 10 * time.Second

func newServeCmd(flags *globalFlags) *cobra.Command {
	var auth string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the demo server",
		Long: `Serve /ping, /echo, /upload and /metrics. With --auth user:password,
/secret is served to that user only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), flags, auth)
		},
	}
	cmd.Flags().StringVar(&auth, "auth", "", "user:password guarding /secret")

	return cmd
}

func parseCredentials(auth string) (map[string]string, error) {
	if auth == "" {
		return nil, nil
	}

	user, password, ok := strings.Cut(auth, ":")
	if !ok || user == "" {
		return nil, fmt.Errorf("invalid --auth %q, want user:password", auth)
	}

	return map[string]string{user: password}, nil
}

func runServe(ctx context.Context, flags *globalFlags, auth string) error {
	settings, err := loadSettings(flags)
	if err != nil {
		return err
	}

	credentials, err := parseCredentials(auth)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Options{
		Level:  settings.Logging.Level,
		Format: settings.Logging.Format,
		Sink:   settings.Logging.Sink,
	})
	if err != nil {
		return err
	}

	m := metrics.New()
	router, err := newRouter(log, m, credentials)
	if err != nil {
		return err
	}

	srv, err := server.New(settings.Server, router, server.WithLogger(log), server.WithMetrics(m))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return err
	}
	log.Info("server_started", "address", srv.Addr().String(), "version", version)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
