package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ledger/internal/auth"
	"ledger/internal/backend"
	"ledger/internal/cli"
	apphttp "ledger/internal/http"
	"ledger/internal/log"
	"ledger/internal/services"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}
			logger, err := cli.SetupLogger(cfg.LogLevel)
			if err != nil {
				return err
			}

			ctx, cancel := cli.SignalContext(cmd.Context(), logger)
			defer cancel()

			bcfg, err := backend.FromAppConfig(cfg)
			if err != nil {
				return err
			}
			res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := res.Cleanup(); err != nil {
					logger.Error("Backend cleanup failed", log.FieldError, err)
				}
			}()

			users := services.NewUserService(res.Repo, logger)
			if cfg.SeedAdminUser != "" {
				admin, err := users.EnsureAdmin(ctx, cfg.SeedAdminUser, cfg.SeedAdminPassword)
				if err != nil {
					return fmt.Errorf("seed admin: %w", err)
				}
				logger.Info("Admin account ready", log.FieldUserID, admin.ID)
			}
			expenses := services.NewExpenseService(res.Repo, res.Publisher, logger)
			tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)

			srv := apphttp.NewServer(
				apphttp.ServerConfig{Addr: ":" + cfg.Port},
				apphttp.NewHandlers(expenses, users, tokens, res.Ping),
				logger,
			)
			return run(ctx, srv, logger)
		},
	}
}

// run serves until ctx is cancelled or the listener fails, then drains
// in-flight requests.
func run(ctx context.Context, srv *apphttp.Server, logger *log.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting ledger server", "addr", srv.Addr, log.FieldOperation, log.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
			return err
		}
		logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
		return nil
	})
	return g.Wait()
}
