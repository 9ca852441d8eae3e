package di

import (
	"context"

	"before_you_sign/internal/feature/assessment/adapters/gemini"
	"before_you_sign/internal/platform/config"
	infrahttp "before_you_sign/internal/platform/http"
	"before_you_sign/internal/platform/metrics"
	"before_you_sign/internal/platform/resilience"
	"before_you_sign/internal/shared/ratelimiter"
)

// NewRetrier は設定からGemini呼び出し用のRetrierを生成します。mはnilで構いません。
func NewRetrier(cfg config.RetryConfig, m *metrics.Metrics) *resilience.Retrier {
	var opts []resilience.Option
	if m != nil {
		opts = append(opts, resilience.WithRetryObserver(m.ObserveRetry))
	}
	return resilience.New(resilience.Config{
		MaxAttempts:         cfg.MaxAttempts,
		InitialBackoff:      cfg.InitialBackoff,
		MaxBackoff:          cfg.MaxBackoff,
		Multiplier:          cfg.Multiplier,
		BreakerEnabled:      cfg.BreakerEnabled,
		BreakerMinRequests:  cfg.BreakerMinRequests,
		BreakerFailureRatio: cfg.BreakerFailureRatio,
		BreakerOpenTimeout:  cfg.BreakerOpenTimeout,
	}, gemini.Classify, opts...)
}

// NewGeminiClient はHTTPクライアント・リトライ・レート制限を組み込んだGeminiクライアントを生成します。
func NewGeminiClient(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*gemini.Client, error) {
	httpClient := infrahttp.NewHTTPClient(cfg.Gemini.HTTPTimeout)
	limiter := ratelimiter.NewRateLimiter(cfg.Gemini.RequestsPerMinute)

	var observer gemini.CallObserver
	if m != nil {
		observer = m
	}
	return gemini.NewClient(ctx, gemini.Config{
		APIKey:      cfg.GoogleAPIKey,
		Model:       cfg.Gemini.Model,
		Temperature: cfg.Gemini.Temperature,
		UseCache:    cfg.Gemini.UseCache,
		CacheTTL:    cfg.Gemini.CacheTTL,
	}, httpClient, NewRetrier(cfg.Retry, m), limiter, observer)
}
