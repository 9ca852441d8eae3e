// Package main はbefore_you_signのHTTPサーバーのエントリーポイントです。
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"before_you_sign/internal/app/di"
	"before_you_sign/internal/app/router"
	assessmenthandler "before_you_sign/internal/feature/assessment/transport/handler"
	convhandler "before_you_sign/internal/feature/conversion/transport/handler"
	"before_you_sign/internal/platform/config"
	platformhandler "before_you_sign/internal/platform/http/handler"
	"before_you_sign/internal/platform/logging"
)

const serviceName = "before_you_sign"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "server",
		Short:        "Run the Before You Sign HTTP service",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file path (YAML)")
	return cmd
}

func run(parent context.Context, configPath string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logging.Setup(serviceName, cfg.LogLevel)

	app, err := di.NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			slog.Error("failed to close resources", "error", err)
		}
	}()

	// 古いリモートキャッシュの定期削除
	scheduler, err := di.NewScheduler(cfg.Maintenance.PurgeSchedule,
		di.PurgeJob(ctx, app.Gemini.OwnCachePurger(), cfg.Maintenance.PurgeOlderThan, 5*time.Minute, app.Metrics))
	if err != nil {
		return err
	}
	if scheduler != nil {
		scheduler.Start()
		defer scheduler.Stop()
		slog.Info("cache purge scheduled", "schedule", cfg.Maintenance.PurgeSchedule)
	}

	// JWT_SECRETチェック（開発中の注意喚起）
	if cfg.Auth.JWTSecret == "" {
		slog.Warn("auth.jwt_secret is not set. /v1 is served without authentication.")
	}

	r := router.NewRouter(router.Options{
		JWTSecret:      cfg.Auth.JWTSecret,
		RequestTimeout: cfg.Server.RequestTimeout,
		Checks:         readinessChecks(app),
		Metrics:        app.Metrics.Handler(),
	},
		assessmenthandler.NewAssessmentHandler(app.Assessments, cfg.Server.MaxUploadBytes),
		convhandler.NewConversionHandler(app.Conversion),
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server started", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// readinessChecks は /readyz で確認する依存サービスを返します。
func readinessChecks(app *di.App) map[string]platformhandler.Pinger {
	checks := map[string]platformhandler.Pinger{
		"database": platformhandler.PingFunc(func(ctx context.Context) error {
			sqlDB, err := app.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}),
	}
	if app.Redis != nil {
		checks["redis"] = platformhandler.PingFunc(func(ctx context.Context) error {
			return app.Redis.Ping(ctx).Err()
		})
	}
	return checks
}
