package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-meal-backend/internal/repo"
	"github.com/tbourn/go-meal-backend/internal/sysutil"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	File    string
	Replace bool
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load meals from a YAML file",
		Long: `Load meals from a YAML seed file into the entity store.

Text is NFC-normalized. Files with duplicate ids or empty records are
rejected. Without --replace, ids already in the store are rejected; with
--replace, existing meals are deleted first. Either way the load is a single
transaction.

Example:
  mealsvc seed --file meals.yaml
  mealsvc seed --file meals.yaml --replace --db ./meals.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "seed file (defaults to SEED_PATH)")
	cmd.Flags().BoolVar(&opts.Replace, "replace", false, "delete existing meals before loading")

	return cmd
}

func runSeed(opts *SeedOptions, cmd *cobra.Command) error {
	lg := opts.Logger
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	path := sysutil.FirstNonEmpty(opts.File, opts.Config.SeedPath)
	if path == "" {
		return NewExitError(ExitCommandError, "no seed file: pass --file or set SEED_PATH")
	}

	meals, err := repo.ReadSeedFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read seed file", err)
	}

	db, err := repo.OpenSQLite(opts.Config.DBPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer closeDB(db)
	if err := repo.AutoMigrate(db); err != nil {
		return WrapExitError(ExitFailure, "failed to migrate database", err)
	}

	n, err := repo.SeedMeals(ctx, db, meals, opts.Replace)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to seed store", err)
	}

	lg.Info().
		Int("meals", n).
		Str("file", path).
		Str("db", opts.Config.DBPath).
		Bool("replace", opts.Replace).
		Msg("seed complete")
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d meals from %s\n", n, path)
	return nil
}
