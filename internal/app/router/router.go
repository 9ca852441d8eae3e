// Package router はHTTPルーティングを定義します。
package router

import (
	"context"
	_ "embed"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	assessmenthandler "before_you_sign/internal/feature/assessment/transport/handler"
	convhandler "before_you_sign/internal/feature/conversion/transport/handler"
	platformhandler "before_you_sign/internal/platform/http/handler"
	jwtmw "before_you_sign/internal/platform/jwt"
)

//go:embed web/index.html
var indexHTML []byte

// Options はルーター生成時の設定です。
type Options struct {
	// JWTSecret が空の場合、/v1 は認証なしで公開されます。
	JWTSecret string
	// RequestTimeout は /v1 の各リクエストの上限時間です。0なら無制限。
	RequestTimeout time.Duration
	// Checks は /readyz で確認する依存サービスです。
	Checks map[string]platformhandler.Pinger
	// Metrics は /metrics で公開するハンドラーです。nilなら登録しません。
	Metrics http.Handler
}

func NewRouter(opts Options, assessments *assessmenthandler.AssessmentHandler, conversion *convhandler.ConversionHandler) *gin.Engine {
	r := gin.Default()

	// 認証不要
	// 画面
	r.GET("/", Index)
	// 導通確認用
	r.GET("/healthz", platformhandler.Health)
	r.HEAD("/healthz", platformhandler.Health)
	r.OPTIONS("/healthz", platformhandler.Health)
	r.GET("/readyz", platformhandler.Ready(opts.Checks))
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	// APIのルート
	// JWTSecret が設定されていればリクエストヘッダーに JWT が必要になる
	v1 := r.Group("/v1")
	v1.Use(jwtmw.AuthRequired(opts.JWTSecret), Timeout(opts.RequestTimeout))
	{
		v1.POST("/documents/convert", conversion.Convert)
		v1.POST("/assessments", assessments.Create)
		v1.POST("/assessments/stream", assessments.Stream)
		v1.GET("/assessments", assessments.List)
		v1.GET("/assessments/:id", assessments.Get)
	}

	return r
}

// Index は評価画面を返します。
func Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

// Timeout はリクエストのコンテキストにdの期限を設定するミドルウェアです。
// dが0以下の場合は何もしません。
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
