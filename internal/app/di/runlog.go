package di

import (
	"context"
	"log/slog"

	"before_you_sign/internal/feature/assessment/usecase"
	"before_you_sign/internal/platform/config"
	"before_you_sign/internal/platform/runlog"
)

// runLogStore はrunlog.Storeをusecase.RunLogStoreに適合させます。
type runLogStore struct {
	store *runlog.Store
}

var _ usecase.RunLogStore = runLogStore{}

func (s runLogStore) NewRun(ctx context.Context) (usecase.RunLog, error) {
	run, err := s.store.NewRun(ctx)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// NewRunLogStore は実行ログの保存先を生成します。
// run_log.gcs_bucket が設定されていればGCSへもミラーします。返り値のcloseは常にnil以外です。
func NewRunLogStore(ctx context.Context, cfg *config.Config) (usecase.RunLogStore, func() error, error) {
	noop := func() error { return nil }
	if cfg.RunLog.GCSBucket == "" {
		return runLogStore{store: runlog.NewStore(cfg.LogDir, nil)}, noop, nil
	}

	mirror, err := runlog.NewGCSMirror(ctx, cfg.RunLog.GCSBucket, cfg.RunLog.GCSPrefix)
	if err != nil {
		return nil, noop, err
	}
	slog.Info("run logs mirrored to GCS", "bucket", cfg.RunLog.GCSBucket, "prefix", cfg.RunLog.GCSPrefix)
	return runLogStore{store: runlog.NewStore(cfg.LogDir, mirror)}, mirror.Close, nil
}
