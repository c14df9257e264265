package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/daylog/time-tracker/internal/api"
	"github.com/daylog/time-tracker/internal/core/service"
	"github.com/daylog/time-tracker/pkg/logger"
)

const (
	shutdownTimeout = 10 * time.Second
	devJWTSecret    = "development-only-secret"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, err := setup(ctx)
	if err != nil {
		return err
	}

	b, err := openBackend(ctx, cfg, log, cfg.Store.AutoMigrate)
	if err != nil {
		return err
	}
	defer b.close(log)

	// Validate has already accepted both values.
	categories, _ := cfg.Tracker.CategorySet()
	loc, _ := cfg.Tracker.Location()

	secret := cfg.JWTSecret
	if secret == "" {
		log.Warn().Msg("JWT_SECRET not set, using the development secret")
		secret = devJWTSecret
	}

	tracking := service.NewTrackingService(b.entries, b.locker, b.idem, service.TrackingOptions{
		Categories:     categories,
		IdempotencyTTL: cfg.Tracker.IdempotencyTTL,
	}, logger.Component("tracking"))
	summary := service.NewSummaryService(b.entries, service.SummaryOptions{
		Categories:     categories,
		Location:       loc,
		MaxHistoryDays: cfg.Tracker.MaxHistoryDays,
	})
	auth := service.NewAuthService(b.users, secret, cfg.TokenTTL, cfg.AutoRegister)

	e := api.NewRouter(api.Dependencies{
		Auth:               auth,
		Tracking:           tracking,
		Summary:            summary,
		JWTSecret:          secret,
		DefaultHistoryDays: cfg.Tracker.MaxHistoryDays,
		Checks:             b.checks,
		Log:                logger.Component("http"),
	})

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- e.Start(":" + cfg.Port)
	}()
	log.Info().
		Str("port", cfg.Port).
		Str("backend", cfg.Store.Backend).
		Bool("redis", cfg.Redis.Enabled).
		Str("timezone", loc.String()).
		Msg("tracker listening")

	select {
	case err := <-srvErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("shutdown complete")
	return nil
}
