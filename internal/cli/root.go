// Package cli provides the command-line interface for tablemap.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/raphaelgruber/tablemap-go/internal/client"
	"github.com/raphaelgruber/tablemap-go/internal/config"
	"github.com/raphaelgruber/tablemap-go/internal/importer"
	"github.com/raphaelgruber/tablemap-go/internal/metrics"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config, credentials and backend client
	cfg       config.Config
	creds     config.Credentials
	apiClient *client.Client
	logClose  func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "tablemap",
	Short: "Map uploaded data files into relational tables",
	Long: `Tablemap drives uploaded CSV/XLSX/ZIP files through LLM-assisted
column and table mapping on a tablemap backend.

A file is uploaded once; this client then runs automatic mapping,
negotiates tricky files interactively with the assistant, batch-processes
archives with per-file resume, and reconciles duplicate or rejected rows
after import.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()

		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		logger, cleanup := config.SetupLogger(cfg.LogFile, level, !verbose)
		slog.SetDefault(logger)
		logClose = cleanup

		var err error
		creds, err = config.LoadCredentials(cfg)
		if err != nil {
			return fmt.Errorf("load credentials: %w", err)
		}

		endpoint := creds.ServerURL
		if endpoint == "" {
			endpoint = cfg.ServerURL
		}
		apiClient = client.New(endpoint, creds.Token)
		if verbose {
			apiClient.SetStats(metrics.NewCollector())
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if apiClient != nil {
			if stats := apiClient.Stats(); stats != nil {
				snap := stats.Snapshot()
				slog.Debug("backend request stats",
					"read", snap.Read, "mutate", snap.Mutate,
					"upload", snap.Upload, "stream", snap.Stream)
			}
		}
		if logClose != nil {
			if err := logClose(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// newController builds the orchestration controller on the global client.
func newController() *importer.Controller {
	return importer.NewController(apiClient,
		importer.WithLogger(slog.Default()),
		importer.WithPollInterval(cfg.PollInterval),
	)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(duplicatesCmd)
	rootCmd.AddCommand(validationCmd)
	rootCmd.AddCommand(instructionsCmd)
}
