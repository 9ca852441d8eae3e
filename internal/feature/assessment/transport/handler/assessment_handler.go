// Package handler はassessmentフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"before_you_sign/internal/api"
	"before_you_sign/internal/feature/assessment/domain"
	"before_you_sign/internal/feature/assessment/domain/entity"
	"before_you_sign/internal/feature/assessment/usecase"
	convhandler "before_you_sign/internal/feature/conversion/transport/handler"
	convusecase "before_you_sign/internal/feature/conversion/usecase"
	"before_you_sign/internal/platform/resilience"
	"before_you_sign/internal/shared/upload"
)

// AssessmentUsecase は評価のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type AssessmentUsecase interface {
	Assess(ctx context.Context, in usecase.Input, n usecase.Notifier) (*entity.Assessment, error)
	Get(ctx context.Context, id string) (*entity.Assessment, error)
	List(ctx context.Context, limit int) ([]entity.Assessment, error)
}

// AssessmentHandler は評価のHTTPリクエストを処理します。
type AssessmentHandler struct {
	uc       AssessmentUsecase
	maxBytes int64
}

// NewAssessmentHandler はAssessmentHandlerの新しいインスタンスを生成します。
// maxBytes はアップロードファイルの上限です。
func NewAssessmentHandler(uc AssessmentUsecase, maxBytes int64) *AssessmentHandler {
	if maxBytes <= 0 {
		maxBytes = convusecase.DefaultMaxBytes
	}
	return &AssessmentHandler{uc: uc, maxBytes: maxBytes}
}

// Create は文書を評価して結果を返します。再試行の警告はログにのみ残ります。
//
// エンドポイント: POST /v1/assessments
// Content-Type: application/json {"text": "...", "force": false}
// または multipart/form-data（text または file、force）
func (h *AssessmentHandler) Create(c *gin.Context) {
	in, ok := h.bindInput(c)
	if !ok {
		return
	}

	a, err := h.uc.Assess(c.Request.Context(), in, usecase.Notifier{
		Warn: func(msg string) {
			slog.WarnContext(c.Request.Context(), "assessment warning", "message", msg)
		},
	})
	if err != nil {
		status, msg := ErrorStatus(err, in.Filename)
		c.JSON(status, api.ErrorResponse{Error: msg})
		return
	}
	c.JSON(http.StatusOK, ToResponse(a))
}

// Stream は評価をServer-Sent Eventsで返します。
// イベント: progress（ステップ）、warning（再試行の通知）、result（評価）、error（失敗）。
//
// エンドポイント: POST /v1/assessments/stream
func (h *AssessmentHandler) Stream(c *gin.Context) {
	in, ok := h.bindInput(c)
	if !ok {
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	send := func(event string, data any) {
		c.SSEvent(event, data)
		c.Writer.Flush()
	}

	a, err := h.uc.Assess(c.Request.Context(), in, usecase.Notifier{
		Warn:     func(msg string) { send("warning", api.WarningEvent{Message: msg}) },
		Progress: func(step usecase.Step) { send("progress", api.ProgressEvent{Step: string(step)}) },
	})
	if err != nil {
		_, msg := ErrorStatus(err, in.Filename)
		send("error", api.ErrorResponse{Error: msg})
		return
	}
	send("result", ToResponse(a))
}

// Get はIDで評価を返します。
//
// エンドポイント: GET /v1/assessments/:id
func (h *AssessmentHandler) Get(c *gin.Context) {
	a, err := h.uc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		status, msg := ErrorStatus(err, "")
		c.JSON(status, api.ErrorResponse{Error: msg})
		return
	}
	c.JSON(http.StatusOK, ToResponse(a))
}

// List は新しい順に評価を返します。
//
// エンドポイント: GET /v1/assessments?limit=20
func (h *AssessmentHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	items, err := h.uc.List(c.Request.Context(), limit)
	if err != nil {
		status, msg := ErrorStatus(err, "")
		c.JSON(status, api.ErrorResponse{Error: msg})
		return
	}

	out := api.AssessmentListResponse{Items: make([]api.AssessmentResponse, 0, len(items))}
	for i := range items {
		out.Items = append(out.Items, ToResponse(&items[i]))
	}
	c.JSON(http.StatusOK, out)
}

// bindInput はJSONまたはmultipartのリクエストから評価の入力を組み立てます。
// 失敗時はレスポンスを書き込んでfalseを返します。
func (h *AssessmentHandler) bindInput(c *gin.Context) (usecase.Input, bool) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		var req api.AssessRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			slog.Warn("評価リクエストのバリデーションに失敗", "error", err, "remote_addr", c.ClientIP())
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid request body"})
			return usecase.Input{}, false
		}
		return usecase.Input{Text: req.Text, Force: req.Force}, true
	}

	in := usecase.Input{
		Text:  c.PostForm("text"),
		Force: c.PostForm("force") == "true",
	}
	fh, err := c.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return in, true
	case err != nil:
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid multipart form"})
		return usecase.Input{}, false
	}

	f, err := upload.Read(fh, h.maxBytes)
	if err != nil {
		status, msg := ErrorStatus(err, fh.Filename)
		c.JSON(status, api.ErrorResponse{Error: msg})
		return usecase.Input{}, false
	}
	in.Filename = f.Name
	in.File = f.Data
	return in, true
}

// ErrorStatus は評価のエラーをHTTPステータスと利用者向けメッセージに対応付けます。
func ErrorStatus(err error, filename string) (int, string) {
	switch {
	case errors.Is(err, domain.ErrAmbiguousInput):
		return http.StatusBadRequest, "Please clear the text if you want to replace it"
	case errors.Is(err, domain.ErrEmptyDocument):
		return http.StatusBadRequest, "Please paste a document or upload a file"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "assessment not found"
	case errors.Is(err, upload.ErrTooLarge),
		errors.Is(err, convusecase.ErrTooLarge),
		errors.Is(err, convusecase.ErrEmptyFile),
		errors.Is(err, convusecase.ErrUnsupportedFormat),
		errors.Is(err, convusecase.ErrCorruptFile):
		return convhandler.ErrorStatus(err, filename)
	case resilience.IsCircuitOpen(err):
		return http.StatusServiceUnavailable, "The assistant is temporarily unavailable, please try again later"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "The assessment took too long, please try again"
	case errors.Is(err, domain.ErrMalformedOutput):
		slog.Error("モデルの出力が不正", "error", err)
		return http.StatusBadGateway, "The assistant returned an unexpected answer, please try again"
	default:
		slog.Error("評価に失敗", "error", err)
		return http.StatusBadGateway, "The assessment failed, please try again later"
	}
}

// ToResponse はエンティティをレスポンスに変換します。
func ToResponse(a *entity.Assessment) api.AssessmentResponse {
	return api.AssessmentResponse{
		ID:     a.ID,
		Source: a.Source,
		Metadata: api.MetadataResponse{
			ServiceName:      a.Metadata.ServiceName,
			ServiceNature:    a.Metadata.ServiceNature,
			DocumentType:     a.Metadata.DocumentType,
			DocumentLanguage: a.Metadata.DocumentLanguage,
		},
		Summary: api.SummaryResponse{
			Score:            a.Summary.Score.String(),
			ScoreDescription: a.Summary.Score.Description(),
			Comment:          a.Summary.Comment,
		},
		Details:   a.Reasoning,
		Cached:    a.Cached,
		CreatedAt: a.CreatedAt,
	}
}
