// Package db はGORMによるデータベース接続を提供します。
package db

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config はデータベース接続設定です。
type Config struct {
	Driver         string        // "sqlite" または "postgres"
	DSN            string        // sqliteはファイルパス、postgresは接続文字列
	ConnectTimeout time.Duration // 接続リトライを諦めるまでの時間
	RetryInterval  time.Duration // 接続リトライの間隔
	AutoMigrate    bool          // 起動時にマイグレーションを実行するか
}

// Dialector は設定に応じたGORMのDialectorを生成します。
// postgresはpgxの接続設定を検証した上でdatabase/sqlプールとして開きます。
func Dialector(cfg Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "sqlite":
		if err := ensureSQLiteDir(cfg.DSN); err != nil {
			return nil, err
		}
		return sqlite.Open(cfg.DSN), nil
	case "postgres":
		pc, err := pgx.ParseConfig(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("invalid postgres dsn: %w", err)
		}
		return postgres.New(postgres.Config{Conn: stdlib.OpenDB(*pc)}), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Open はリトライ付きでDBに接続し、必要であればmodelsをマイグレーションします。
func Open(cfg Config, models ...any) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	interval := cfg.RetryInterval
	if interval <= 0 {
		interval = 3 * time.Second
	}

	db, err := ConnectWithRetry(func() (*gorm.DB, error) {
		return gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	}, cfg.ConnectTimeout, interval)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate && len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
	}

	slog.Info("database connected", "driver", cfg.Driver)
	return db, nil
}

// ConnectWithRetry はopenが成功するかtimeoutを過ぎるまでinterval間隔で再試行します。
func ConnectWithRetry(open func() (*gorm.DB, error), timeout, interval time.Duration) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		db, err := open()
		if err == nil {
			return db, nil
		}
		if !time.Now().Add(interval).Before(deadline) {
			return nil, fmt.Errorf("DB connect failed after %s: %w", timeout, err)
		}
		slog.Warn("DB connect failed, retrying...", "error", err, "interval", interval)
		time.Sleep(interval)
	}
}

// ensureSQLiteDir はsqliteファイルの親ディレクトリを作成します。
func ensureSQLiteDir(dsn string) error {
	if dsn == "" || strings.HasPrefix(dsn, ":memory:") || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create sqlite dir: %w", err)
	}
	return nil
}
