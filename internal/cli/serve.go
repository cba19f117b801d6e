package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-meal-backend/internal/config"
	"github.com/tbourn/go-meal-backend/internal/domain"
	httpapi "github.com/tbourn/go-meal-backend/internal/http"
	"github.com/tbourn/go-meal-backend/internal/observability"
	"github.com/tbourn/go-meal-backend/internal/repo"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string

	// ready, when set, receives the bound listener address (for tests).
	ready func(addr string)
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Run the meal HTTP server until SIGINT or SIGTERM.

The entity store is created and migrated on startup. When SEED_PATH is set and
the store holds no meals, the seed file is loaded first.

Example:
  mealsvc serve
  mealsvc serve --addr 127.0.0.1:9090 --db /var/lib/mealsvc/meals.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default \":$PORT\")")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg := opts.Config
	lg := opts.Logger

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer closeDB(db)

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, observability.BuildInfo{
		Version:     opts.Version,
		Environment: cfg.GinMode,
	})
	if err != nil {
		return WrapExitError(ExitFailure, "failed to set up tracing", err)
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, cfg)

	addr := opts.Addr
	if addr == "" {
		addr = ":" + cfg.Port
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		_ = shutdownOTel(context.Background())
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}
	srv := newHTTPServer(cfg, r)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	lg.Info().
		Str("addr", ln.Addr().String()).
		Str("route", cfg.MealRoute()).
		Str("version", opts.Version).
		Msg("server listening")
	if opts.ready != nil {
		opts.ready(ln.Addr().String())
	}

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
		lg.Info().Msg("shutdown signal received, draining")
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	shErr := errors.Join(srv.Shutdown(shCtx), shutdownOTel(shCtx))

	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return WrapExitError(ExitFailure, "server error", serveErr)
	}
	if shErr != nil {
		return WrapExitError(ExitFailure, "unclean shutdown", shErr)
	}
	lg.Info().Msg("server stopped")
	return nil
}

// newHTTPServer applies the configured timeouts and header limit.
func newHTTPServer(cfg config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Handler:           h,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
}

// openStore opens and migrates the database, then loads SEED_PATH into an
// empty store.
func openStore(ctx context.Context, cfg config.Config, lg zerolog.Logger) (*gorm.DB, error) {
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		closeDB(db)
		return nil, WrapExitError(ExitFailure, "failed to migrate database", err)
	}
	if cfg.SeedPath != "" {
		if err := seedIfEmpty(ctx, db, cfg.SeedPath, lg); err != nil {
			closeDB(db)
			return nil, err
		}
	}
	return db, nil
}

func seedIfEmpty(ctx context.Context, db *gorm.DB, path string, lg zerolog.Logger) error {
	count, _, err := repo.KindStats(ctx, db, domain.KindMeal)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to inspect store", err)
	}
	if count > 0 {
		lg.Debug().Int64("meals", count).Msg("store not empty, skipping seed")
		return nil
	}
	meals, err := repo.ReadSeedFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read seed file", err)
	}
	n, err := repo.SeedMeals(ctx, db, meals, false)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to seed store", err)
	}
	lg.Info().Int("meals", n).Str("file", path).Msg("seeded empty store")
	return nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
