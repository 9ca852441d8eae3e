package gemini

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"

	"before_you_sign/internal/platform/resilience"
)

// Classify はGemini APIのエラーを一時的なものと恒久的なものに分類します。
// 4xx（408と429を除く）は再試行せず、ブレーカーの失敗にも数えません。
// HTTPクライアントのタイムアウトは再試行します。呼び出し元の期限切れはRetrier側で打ち切られます。
func Classify(err error) resilience.Classification {
	if errors.Is(err, context.Canceled) {
		return resilience.Classification{}
	}

	if code, ok := statusCode(err); ok {
		switch code {
		case http.StatusRequestTimeout,
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return resilience.Classification{Retryable: true, RecordFailure: true}
		}
		return resilience.Classification{RecordFailure: code >= 500}
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.Classification{Retryable: true, RecordFailure: true}
	}
	return resilience.Classification{RecordFailure: true}
}
