// Package http はモデルAPIなど外部サービス呼び出し用のHTTPクライアントを提供します。
package http

import (
	"log/slog"
	"net"
	"net/http"
	"time"
)

// UserAgent は外部API呼び出しに付与するUser-Agentです。
const UserAgent = "before_you_sign"

// NewHTTPClient はGemini APIなど外部API呼び出し用のHTTPクライアントを作成します。
//
// 設定:
//   - Proxy: 環境変数（HTTP_PROXYなど）が設定されている場合に使用
//   - Dialer.Timeout: TCP接続タイムアウト
//   - MaxIdleConnsPerHost: 同一ホストへの接続再利用数（APIホストは1つのため多めに確保）
//   - TLSHandshakeTimeout: HTTPSハンドシェイクの最大時間
//   - Client.Timeout: リクエスト全体のタイムアウト（長い生成を考慮して呼び出し元が指定）
//
// 注意:
//   - http.DefaultClientにはタイムアウトがないため、常にこのクライアントを使用すること
//   - リクエストごとにメソッド・ホスト・ステータス・所要時間をdebugで記録する
func NewHTTPClient(timeout time.Duration) *http.Client {
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: &loggingTransport{next: t}}
}

// loggingTransport はUser-Agentを付与し、往復を記録するRoundTripperです。
type loggingTransport struct {
	next http.RoundTripper
}

func (lt *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", UserAgent)
	}

	start := time.Now()
	resp, err := lt.next.RoundTrip(req)
	elapsed := time.Since(start)
	if err != nil {
		slog.DebugContext(req.Context(), "external api request failed",
			"method", req.Method, "host", req.URL.Host, "duration_ms", elapsed.Milliseconds(), "error", err)
		return nil, err
	}
	slog.DebugContext(req.Context(), "external api request",
		"method", req.Method, "host", req.URL.Host, "status", resp.StatusCode, "duration_ms", elapsed.Milliseconds())
	return resp, nil
}
