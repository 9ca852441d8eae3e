package di

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// CachePurger はリモートキャッシュを削除します。
type CachePurger interface {
	Purge(ctx context.Context, olderThan time.Duration) (int, error)
}

// PurgeCounter は削除件数を計測します。
type PurgeCounter interface {
	ObserveCachesPurged(n int)
}

// PurgeJob はolderThanより古いリモートキャッシュを削除するジョブを返します。
// 1回の実行はtimeoutで打ち切られます。counter はnilで構いません。
func PurgeJob(ctx context.Context, p CachePurger, olderThan, timeout time.Duration, counter PurgeCounter) func() {
	return func() {
		runCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		n, err := p.Purge(runCtx, olderThan)
		if counter != nil && n > 0 {
			counter.ObserveCachesPurged(n)
		}
		if err != nil {
			slog.Error("cache purge failed", "deleted", n, "error", err)
			return
		}
		slog.Info("cache purge completed", "deleted", n, "older_than", olderThan)
	}
}

// NewScheduler はschedule毎にjobを実行するcronスケジューラーを生成します。開始は呼び出し側で行います。
// scheduleが空の場合はnilを返します。
func NewScheduler(schedule string, job func()) (*cron.Cron, error) {
	if schedule == "" {
		return nil, nil
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, job); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	return c, nil
}
