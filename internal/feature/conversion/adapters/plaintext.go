// Package adapters はconversionフィーチャーの形式別コンバーターを提供します。
package adapters

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"before_you_sign/internal/feature/conversion/usecase"
)

var textExts = map[string]bool{
	".txt":      true,
	".text":     true,
	".md":       true,
	".markdown": true,
}

// PlainText はプレーンテキストとMarkdownをそのまま返します。
// 拡張子のないファイルも、UTF-8のテキストであれば受け付けます。
type PlainText struct{}

var _ usecase.Converter = PlainText{}

func (PlainText) Name() string { return "plaintext" }

func (PlainText) Convert(_ context.Context, filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	known := textExts[ext]
	if !known && ext != "" {
		return "", usecase.ErrSkipped
	}

	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		if !known {
			return "", usecase.ErrSkipped
		}
		return "", errors.New("not valid UTF-8 text")
	}
	return strings.ReplaceAll(string(data), "\r\n", "\n"), nil
}
