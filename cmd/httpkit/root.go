package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tony-montemuro/httpkit/config"
)

var (
	version = "dev"
	commit  = "unknown"
)

type globalFlags struct {
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "httpkit",
		Short: "HTTP/1.x server and client on raw sockets",
		Long: `httpkit serves HTTP/1.x over plain TCP or TLS and fetches URLs with a
client that keeps connections alive and follows redirects.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file with HTTPKIT_* overrides")

	root.AddCommand(newServeCmd(flags), newGetCmd(flags))
	return root
}

// loadSettings reads the config file, applies HTTPKIT_* overrides from the
// environment and the dotenv file, and validates the result.
func loadSettings(flags *globalFlags) (config.Settings, error) {
	settings, err := config.Load(flags.configPath)
	if err != nil {
		return settings, err
	}

	lookup, err := config.EnvLookup(flags.envFile)
	if err != nil {
		return settings, err
	}
	if err := config.ApplyEnv(&settings, lookup); err != nil {
		return settings, err
	}

	return settings, settings.Validate()
}
