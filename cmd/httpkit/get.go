package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tony-montemuro/httpkit/client"
	"github.com/tony-montemuro/httpkit/logger"
	"github.com/tony-montemuro/httpkit/message"
)

type getFlags struct {
	method  string
	data    string
	headers []string
	include bool
	dump    bool
}

func newGetCmd(flags *globalFlags) *cobra.Command {
	gf := &getFlags{}

	cmd := &cobra.Command{
		Use:   "get <url>",
		Short: "Fetch a URL and print the response body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd.Context(), cmd.OutOrStdout(), flags, gf, args[0])
		},
	}
	cmd.Flags().StringVarP(&gf.method, "method", "X", "GET", "request method")
	cmd.Flags().StringVarP(&gf.data, "data", "d", "", "request body sent as text/plain")
	cmd.Flags().StringArrayVarP(&gf.headers, "header", "H", nil, "extra header, name: value")
	cmd.Flags().BoolVarP(&gf.include, "include", "i", false, "print the status line and headers")
	cmd.Flags().BoolVar(&gf.dump, "dump", false, "print the full response dump")

	return cmd
}

func requestSetup(gf *getFlags) ([]client.Setup, error) {
	var setup []client.Setup
	for _, h := range gf.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q, want name: value", h)
		}
		setup = append(setup, client.WithHeader(strings.TrimSpace(name), strings.TrimSpace(value)))
	}
	if gf.data != "" {
		setup = append(setup, client.WithText(gf.data))
	}

	return setup, nil
}

func runGet(ctx context.Context, out io.Writer, flags *globalFlags, gf *getFlags, rawURL string) error {
	settings, err := loadSettings(flags)
	if err != nil {
		return err
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}

	setup, err := requestSetup(gf)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Options{
		Level:  settings.Logging.Level,
		Format: settings.Logging.Format,
		Sink:   "stderr",
	})
	if err != nil {
		return err
	}

	c, err := client.New(rawURL, client.SettingsFromConfig(settings.Client), client.WithLogger(log))
	if err != nil {
		return err
	}
	defer c.Close()

	method := message.Method(strings.ToUpper(gf.method))
	res, err := c.Do(ctx, method, u.RequestURI(), setup...)
	if err != nil {
		return err
	}

	switch {
	case gf.dump:
		_, err = fmt.Fprintln(out, res.String())
		return err
	case gf.include:
		if _, err := fmt.Fprintf(out, "%s %s\r\n%s\r\n", res.Version, res.Status, res.Header.String()); err != nil {
			return err
		}
	}

	_, err = out.Write(res.Body())
	return err
}
