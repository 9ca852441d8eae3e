// Package config はアプリケーション設定（YAML）の読み込みと検証を提供します。
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath は --config 未指定時に読み込む設定ファイルのパスです。
const DefaultPath = "local/config.yaml"

// APIKeyEnvVars はファイルの値を上書きする環境変数です（先に見つかったものを優先）。
var APIKeyEnvVars = []string{"GOOGLE_API_KEY", "GEMINI_API_KEY"}

// Config はアプリケーション全体の設定です。
// GOOGLE_API_KEY と log_dir は従来の config.yaml と互換のキー名です。
type Config struct {
	GoogleAPIKey string `yaml:"GOOGLE_API_KEY"`
	LogDir       string `yaml:"log_dir"`
	LogLevel     string `yaml:"log_level"`

	Server      ServerConfig      `yaml:"server"`
	Gemini      GeminiConfig      `yaml:"gemini"`
	Retry       RetryConfig       `yaml:"retry"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Auth        AuthConfig        `yaml:"auth"`
	RunLog      RunLogConfig      `yaml:"run_log"`
	Vision      VisionConfig      `yaml:"vision"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

// ServerConfig はHTTPサーバーの設定です。
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// GeminiConfig はGemini APIの呼び出し設定です。
type GeminiConfig struct {
	Model             string        `yaml:"model"`
	Temperature       float32       `yaml:"temperature"`
	UseCache          bool          `yaml:"use_cache"`
	CacheTTL          time.Duration `yaml:"cache_ttl"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	HTTPTimeout       time.Duration `yaml:"http_timeout"`
}

// RetryConfig は一時的なエラーに対する再試行とサーキットブレーカーの設定です。
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	Multiplier     float64       `yaml:"multiplier"`

	BreakerEnabled      bool          `yaml:"breaker_enabled"`
	BreakerMinRequests  uint32        `yaml:"breaker_min_requests"`
	BreakerFailureRatio float64       `yaml:"breaker_failure_ratio"`
	BreakerOpenTimeout  time.Duration `yaml:"breaker_open_timeout"`
}

// DatabaseConfig は評価結果を保存するデータベースの設定です。
type DatabaseConfig struct {
	Driver         string        `yaml:"driver"` // "sqlite" or "postgres"
	DSN            string        `yaml:"dsn"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	AutoMigrate    bool          `yaml:"auto_migrate"`
}

// RedisConfig は結果キャッシュ用Redisの設定です。Addrが空ならキャッシュなしで動作します。
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// AuthConfig は /v1 APIのBearerトークン認証の設定です。JWTSecretが空なら認証なし。
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// RunLogConfig は実行ログのGCSミラー設定です。
type RunLogConfig struct {
	GCSBucket string `yaml:"gcs_bucket"`
	GCSPrefix string `yaml:"gcs_prefix"`
}

// VisionConfig は画像OCR（Cloud Vision）の設定です。
type VisionConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MaintenanceConfig はリモートキャッシュ掃除ジョブの設定です。
type MaintenanceConfig struct {
	PurgeSchedule  string        `yaml:"purge_schedule"`
	PurgeOlderThan time.Duration `yaml:"purge_older_than"`
}

// DefaultConfig はデフォルト値を設定したConfigを返します。
func DefaultConfig() *Config {
	return &Config{
		LogDir:   "logs",
		LogLevel: "info",
		Server: ServerConfig{
			Addr:           ":8080",
			MaxUploadBytes: 10 * 1024 * 1024,
			RequestTimeout: 5 * time.Minute,
		},
		Gemini: GeminiConfig{
			Model:             "gemini-2.5-flash",
			Temperature:       0,
			UseCache:          true,
			CacheTTL:          15 * time.Minute,
			RequestsPerMinute: 10,
			HTTPTimeout:       2 * time.Minute,
		},
		Retry: RetryConfig{
			MaxAttempts:         5,
			InitialBackoff:      time.Second,
			MaxBackoff:          30 * time.Second,
			Multiplier:          2.0,
			BreakerEnabled:      true,
			BreakerMinRequests:  10,
			BreakerFailureRatio: 0.5,
			BreakerOpenTimeout:  30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:         "sqlite",
			DSN:            "local/before_you_sign.db",
			ConnectTimeout: 60 * time.Second,
			AutoMigrate:    true,
		},
		Redis: RedisConfig{
			TTL: 24 * time.Hour,
		},
		Auth: AuthConfig{
			TokenTTL: 30 * 24 * time.Hour,
		},
		Vision: VisionConfig{
			Enabled: false,
		},
		Maintenance: MaintenanceConfig{
			PurgeSchedule:  "@every 1h",
			PurgeOlderThan: time.Hour,
		},
	}
}

// Load は .env と YAMLファイルを読み込み、環境変数の上書きを適用して検証済みのConfigを返します。
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug(".env not found; using system environment variables")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse はデフォルト値の上にYAMLを重ねてConfigを生成します。検証は行いません。
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// applyEnv は環境変数によるAPIキーの上書きを適用します。
func (c *Config) applyEnv() {
	for _, key := range APIKeyEnvVars {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			c.GoogleAPIKey = v
			return
		}
	}
}

// Validate は設定値の整合性を検証します。
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.GoogleAPIKey) == "" {
		errs = append(errs, errors.New("GOOGLE_API_KEY is required"))
	}
	if strings.TrimSpace(c.LogDir) == "" {
		errs = append(errs, errors.New("log_dir is required"))
	}
	if c.Gemini.Model == "" {
		errs = append(errs, errors.New("gemini.model is required"))
	}
	if c.Gemini.Temperature < 0 || c.Gemini.Temperature > 2 {
		errs = append(errs, errors.New("gemini.temperature must be between 0 and 2"))
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("server.max_upload_bytes must be positive"))
	}
	return errors.Join(errs...)
}
