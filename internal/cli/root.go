// Package cli implements the mealsvc command line: the HTTP server (serve,
// also the default action) and the YAML seed loader (seed).
package cli

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-meal-backend/internal/config"
	"github.com/tbourn/go-meal-backend/internal/sysutil"
)

// RootOptions holds global flags and the state prepared before any
// subcommand runs.
type RootOptions struct {
	Version string
	EnvFile string
	DBPath  string

	// Populated in PersistentPreRunE.
	Config config.Config
	Logger zerolog.Logger
}

// NewRootCommand creates the root command for mealsvc. Running it without a
// subcommand starts the server.
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{Version: version}
	serveOpts := &ServeOptions{RootOptions: opts}

	cmd := &cobra.Command{
		Use:           "mealsvc",
		Short:         "Meal lookup HTTP service",
		Long:          "Serves meal records from an entity store over a read-only JSON API.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			explicit := cmd.Flags().Changed("env-file")
			return prepare(opts, explicit, cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(serveOpts, cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "SQLite database path (overrides DB_PATH)")
	cmd.Flags().StringVar(&serveOpts.Addr, "addr", "", "listen address (default \":$PORT\")")

	// Add subcommands
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))

	return cmd
}

// prepare loads the dotenv file and the configuration, then installs the
// global logger. A missing default dotenv file is not an error.
func prepare(opts *RootOptions, explicitEnv bool, cmd *cobra.Command) error {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil {
			if explicitEnv || !errors.Is(err, fs.ErrNotExist) {
				return WrapExitError(ExitCommandError, "failed to load env file", err)
			}
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	cfg.DBPath = sysutil.FirstNonEmpty(opts.DBPath, cfg.DBPath)

	opts.Config = cfg
	opts.Logger = sysutil.SetupLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)
	return nil
}
