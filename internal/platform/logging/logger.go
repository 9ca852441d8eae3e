// Package logging はslogベースの構造化ロガーを構築します。
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup はJSONロガーを生成し、slogのデフォルトロガーとして登録します。
func Setup(service, level string) *slog.Logger {
	logger := NewJSONLogger(os.Stdout, service, level)
	slog.SetDefault(logger)
	return logger
}

// NewJSONLogger は指定されたレベルでJSON形式のロガーを生成します。
func NewJSONLogger(w io.Writer, service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler).With("service", service)
}

// ParseLevel は文字列をslog.Levelに変換します。不明な値はInfoになります。
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
