// Package usecase はconversionフィーチャーのビジネスロジックを実装します。
// アップロードされたファイルを評価用のMarkdownに変換します。
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// DefaultMaxBytes はアップロードの最大サイズ（10MB）です。
const DefaultMaxBytes = 10 * 1024 * 1024

// Converter は1つの形式を扱うコンバーターです。
// 扱わない形式には ErrSkipped を返します。
type Converter interface {
	Name() string
	Convert(ctx context.Context, filename string, data []byte) (string, error)
}

// Observer は変換結果を計測します。
type Observer interface {
	ObserveConversion(converter, outcome string)
}

type conversionUsecase struct {
	converters []Converter
	manual     map[string]Converter
	maxBytes   int64
	observer   Observer
}

// NewConversionUsecase はconversionUsecaseを生成します。convertersは登録順に試されます。
// maxBytesが0以下なら DefaultMaxBytes を使います。observer はnilで構いません。
func NewConversionUsecase(maxBytes int64, observer Observer, converters ...Converter) *conversionUsecase {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &conversionUsecase{
		converters: converters,
		manual:     map[string]Converter{},
		maxBytes:   maxBytes,
		observer:   observer,
	}
}

// Assign は拡張子に対してコンバーターを固定します。登録順の探索より優先されます。
func (u *conversionUsecase) Assign(c Converter, exts ...string) {
	for _, ext := range exts {
		u.manual[normalizeExt(ext)] = c
	}
}

// MaxBytes はアップロードの最大サイズを返します。
func (u *conversionUsecase) MaxBytes() int64 {
	return u.maxBytes
}

// ToMarkdown はファイルをMarkdownに変換します。
func (u *conversionUsecase) ToMarkdown(ctx context.Context, filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyFile
	}
	if int64(len(data)) > u.maxBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(data), u.maxBytes)
	}

	if c, ok := u.manual[normalizeExt(filepath.Ext(filename))]; ok {
		out, err := u.run(ctx, c, filename, data)
		if errors.Is(err, ErrSkipped) {
			return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
		}
		return out, err
	}

	for _, c := range u.converters {
		out, err := u.run(ctx, c, filename, data)
		if errors.Is(err, ErrSkipped) {
			continue
		}
		return out, err
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
}

func (u *conversionUsecase) run(ctx context.Context, c Converter, filename string, data []byte) (string, error) {
	out, err := c.Convert(ctx, filename, data)
	switch {
	case errors.Is(err, ErrSkipped):
		return "", err
	case err != nil:
		u.observe(c.Name(), "error")
		slog.WarnContext(ctx, "conversion failed", "converter", c.Name(), "filename", filename, "error", err)
		return "", fmt.Errorf("%w: %s: %v", ErrCorruptFile, filename, err)
	}
	u.observe(c.Name(), "ok")
	slog.InfoContext(ctx, "file converted", "converter", c.Name(), "filename", filename, "bytes", len(data), "chars", len(out))
	return out, nil
}

func (u *conversionUsecase) observe(converter, outcome string) {
	if u.observer != nil {
		u.observer.ObserveConversion(converter, outcome)
	}
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
