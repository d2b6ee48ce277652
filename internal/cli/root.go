// Package cli wires the service's cobra commands.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/galanggg/inbound-whisper/internal/config"
	"github.com/galanggg/inbound-whisper/internal/logging"
	"github.com/galanggg/inbound-whisper/internal/version"
)

type appState struct {
	configFile string
	verbose    bool
	jsonLogs   bool

	cfg    config.Config
	logger *zap.Logger
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

// NewRootCmd builds the root command. Running it without a subcommand
// starts the HTTP server.
func NewRootCmd() *cobra.Command {
	app := &appState{jsonLogs: true}

	cmd := &cobra.Command{
		Use:           "inbound-whisper",
		Short:         "HTTP transcription service backed by a local whisper engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}

			cfg, err := config.Load(app.configFile)
			if err != nil {
				return err
			}
			if app.verbose {
				cfg.Verbose = true
			}

			logger, err := logging.New(logging.Options{Verbose: cfg.Verbose, JSON: app.jsonLogs})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}

			app.cfg = cfg
			app.logger = logger
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runServe(cmd.Context())
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	cmd.PersistentFlags().StringVar(&app.configFile, "config", "", "Path to config.yml")
	cmd.PersistentFlags().BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs")
	cmd.PersistentFlags().BoolVar(&app.jsonLogs, "json", app.jsonLogs, "Enable JSON logging")

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newFetchCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
