package di

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	redisv9 "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"before_you_sign/internal/feature/assessment/adapters/gemini"
	assessmenthandler "before_you_sign/internal/feature/assessment/transport/handler"
	"before_you_sign/internal/feature/assessment/usecase"
	convhandler "before_you_sign/internal/feature/conversion/transport/handler"
	"before_you_sign/internal/platform/config"
	"before_you_sign/internal/platform/metrics"
	infraredis "before_you_sign/internal/platform/redis"
)

// App はサーバーとCLIが共有する組み立て済みのコンポーネントです。
type App struct {
	Config  *config.Config
	DB      *gorm.DB
	Redis   *redisv9.Client // 未設定・接続不可ならnil
	Metrics *metrics.Metrics
	Gemini  *gemini.Client

	Assessments assessmenthandler.AssessmentUsecase
	Conversion  convhandler.ConversionUsecase

	closers []func() error
}

// NewApp は設定からすべての依存関係を組み立てます。
// 失敗した場合はそれまでに開いたリソースを解放します。
func NewApp(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	app := &App{Config: cfg, Metrics: metrics.New()}
	defer func() {
		if err != nil {
			if cerr := app.Close(); cerr != nil {
				slog.Warn("failed to release resources", "error", cerr)
			}
		}
	}()

	// db
	app.DB, err = NewDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, func() error {
		sqlDB, err := app.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	// Redis
	rdb, rerr := infraredis.NewRedisClient(ctx, infraredis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	switch {
	case errors.Is(rerr, infraredis.ErrNotConfigured):
		slog.Info("Redis not configured. Running without result cache.")
	case rerr != nil:
		slog.Warn("Redis unavailable. Running without result cache.", "error", rerr)
	default:
		app.Redis = rdb
		app.closers = append(app.closers, rdb.Close)
	}

	// Repository
	repo := NewAssessmentRepository(app.DB, app.Redis, cfg.Redis)

	runs, closeRuns, err := NewRunLogStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log store: %w", err)
	}
	app.closers = append(app.closers, closeRuns)

	// Gemini
	app.Gemini, err = NewGeminiClient(ctx, cfg, app.Metrics)
	if err != nil {
		return nil, err
	}

	// Usecase
	conv, closeConv := NewConversionUsecase(ctx, cfg, app.Metrics)
	app.closers = append(app.closers, closeConv)
	app.Conversion = conv
	app.Assessments = usecase.NewAssessmentUsecase(app.Gemini, runs, conv, repo, app.Metrics)

	return app, nil
}

// Close は開いたリソースを逆順に解放します。
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
