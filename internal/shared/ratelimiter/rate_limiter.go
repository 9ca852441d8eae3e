// Package ratelimiter はAPI呼び出しの頻度を制限します。
package ratelimiter

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterInterface は、API呼び出しなどの操作の頻度を制限するインターフェースです。
type RateLimiterInterface interface {
	Wait(ctx context.Context) error
}

// RateLimiter は1分あたりのリクエスト数を上限として呼び出しを間引きます。
type RateLimiter struct {
	limiter *rate.Limiter // nilなら無制限
}

// NewRateLimiter は1分あたりperMinute回までを許可するRateLimiterを生成します。
// perMinuteが0以下の場合は制限しません。
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		return &RateLimiter{}
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
	}
}

// Wait は上限に達している場合、次の枠が空くかコンテキストが終了するまで待機します。
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl.limiter == nil {
		return nil
	}
	if rl.limiter.Tokens() < 1 {
		slog.Info("[RATE LIMIT] limit reached, waiting for next slot", "limit_per_minute", rl.limiter.Burst())
	}
	return rl.limiter.Wait(ctx)
}
