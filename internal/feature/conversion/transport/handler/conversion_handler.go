// Package handler はconversionフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"before_you_sign/internal/api"
	"before_you_sign/internal/feature/conversion/usecase"
	"before_you_sign/internal/shared/upload"
)

// ConversionUsecase はファイル変換のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type ConversionUsecase interface {
	ToMarkdown(ctx context.Context, filename string, data []byte) (string, error)
	MaxBytes() int64
}

// ConversionHandler はファイル変換のHTTPリクエストを処理します。
type ConversionHandler struct {
	uc ConversionUsecase
}

// NewConversionHandler はConversionHandlerの新しいインスタンスを生成します。
func NewConversionHandler(uc ConversionUsecase) *ConversionHandler {
	return &ConversionHandler{uc: uc}
}

// Convert はアップロードされたファイルをMarkdownに変換して返します。
// 画面ではアップロード直後にテキストボックスを埋めるために使います。
//
// エンドポイント: POST /v1/documents/convert
// Content-Type: multipart/form-data
// フィールド: file
func (h *ConversionHandler) Convert(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		slog.Warn("ファイルの取得に失敗", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "a file is required"})
		return
	}

	f, err := upload.Read(fh, h.uc.MaxBytes())
	if err != nil {
		status, msg := ErrorStatus(err, fh.Filename)
		c.JSON(status, api.ErrorResponse{Error: msg})
		return
	}

	text, err := h.uc.ToMarkdown(c.Request.Context(), f.Name, f.Data)
	if err != nil {
		status, msg := ErrorStatus(err, f.Name)
		c.JSON(status, api.ErrorResponse{Error: msg})
		return
	}

	c.JSON(http.StatusOK, api.ConvertResponse{Filename: f.Name, Text: text})
}

// ErrorStatus は変換エラーをHTTPステータスと利用者向けメッセージに対応付けます。
func ErrorStatus(err error, filename string) (int, string) {
	unreadable := fmt.Sprintf("Couldn't read the file (%s)", filename)
	switch {
	case errors.Is(err, usecase.ErrTooLarge), errors.Is(err, upload.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, fmt.Sprintf("The file is too large (%s)", filename)
	case errors.Is(err, usecase.ErrEmptyFile):
		return http.StatusBadRequest, fmt.Sprintf("The file is empty (%s)", filename)
	case errors.Is(err, usecase.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, unreadable
	case errors.Is(err, usecase.ErrCorruptFile):
		return http.StatusUnprocessableEntity, unreadable
	default:
		slog.Error("ファイル変換に失敗", "error", err, "filename", filename)
		return http.StatusInternalServerError, unreadable
	}
}
