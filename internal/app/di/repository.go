// Package di はアプリケーションの各コンポーネントを生成するファクトリを提供します。
package di

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"before_you_sign/internal/feature/assessment/adapters"
	"before_you_sign/internal/feature/assessment/usecase"
	"before_you_sign/internal/platform/cache"
	"before_you_sign/internal/platform/config"
	"before_you_sign/internal/platform/db"
)

// NewDatabase は設定に従ってDBへ接続し、評価テーブルをマイグレーションします。
func NewDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gdb, err := db.Open(db.Config{
		Driver:         cfg.Driver,
		DSN:            cfg.DSN,
		ConnectTimeout: cfg.ConnectTimeout,
		AutoMigrate:    cfg.AutoMigrate,
	}, &adapters.AssessmentModel{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return gdb, nil
}

// NewAssessmentRepository はAssessmentRepositoryの実装を生成します。
// Redisが利用可能な場合はRedisキャッシュでラップし、そうでなければDBのみを使います。
func NewAssessmentRepository(gdb *gorm.DB, rdb *redis.Client, cfg config.RedisConfig) usecase.AssessmentRepository {
	repo := adapters.NewAssessmentRepository(gdb)
	if rdb == nil {
		return repo
	}
	return cache.NewCachingAssessmentRepository(rdb, cfg.TTL, repo, "assessments")
}
