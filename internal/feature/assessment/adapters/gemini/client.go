// Package gemini はGoogle Gemini APIを使用した法的文書アシスタントを提供します。
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	"before_you_sign/internal/feature/assessment/usecase"
	"before_you_sign/internal/platform/resilience"
	"before_you_sign/internal/shared/ratelimiter"
)

const (
	// DefaultModel はGemini APIのデフォルトモデルです。
	DefaultModel = "gemini-2.5-flash"
	// DefaultCacheTTL はリモートキャッシュの有効期限です。finalizeされなかった場合もこの時間で消えます。
	DefaultCacheTTL = 15 * time.Minute
	// displayNamePrefix は作成するキャッシュの表示名の接頭辞です。
	displayNamePrefix = "before_you_sign"
)

// Config はアシスタントの設定です。
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	UseCache    bool
	CacheTTL    time.Duration
	// BaseURL はテストやプロキシ用にAPIのエンドポイントを差し替えます。
	BaseURL string
}

// CallObserver はモデル呼び出しを計測します。
type CallObserver interface {
	ObserveModelCall(step, outcome string, seconds float64)
}

// backend はgenai.Clientのうちアシスタントが使う部分です。
type backend interface {
	CreateCache(ctx context.Context, model string, cfg *genai.CreateCachedContentConfig) (*genai.CachedContent, error)
	DeleteCache(ctx context.Context, name string) error
	ListCaches(ctx context.Context) ([]*genai.CachedContent, error)
	Generate(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// sdkBackend はgenai SDKによるbackendの実装です。
type sdkBackend struct {
	client *genai.Client
}

var _ backend = (*sdkBackend)(nil)

func (b *sdkBackend) CreateCache(ctx context.Context, model string, cfg *genai.CreateCachedContentConfig) (*genai.CachedContent, error) {
	return b.client.Caches.Create(ctx, model, cfg)
}

func (b *sdkBackend) DeleteCache(ctx context.Context, name string) error {
	_, err := b.client.Caches.Delete(ctx, name, nil)
	return err
}

func (b *sdkBackend) ListCaches(ctx context.Context) ([]*genai.CachedContent, error) {
	var out []*genai.CachedContent
	for cc, err := range b.client.Caches.All(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, cc)
	}
	return out, nil
}

func (b *sdkBackend) Generate(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return b.client.Models.GenerateContent(ctx, model, contents, cfg)
}

// Client は全リクエストで共有されるセッションのファクトリです。
type Client struct {
	backend  backend
	cfg      Config
	retrier  *resilience.Retrier
	limiter  ratelimiter.RateLimiterInterface
	observer CallObserver
}

// ClientがAssistantFactoryを実装していることをコンパイル時に検証します。
var _ usecase.AssistantFactory = (*Client)(nil)

// NewClient はAPIキーでGemini APIクライアントを生成します。
// limiter と observer はnilで構いません。
func NewClient(ctx context.Context, cfg Config, httpClient *http.Client, retrier *resilience.Retrier, limiter ratelimiter.RateLimiterInterface, observer CallObserver) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return newClient(&sdkBackend{client: client}, cfg, retrier, limiter, observer), nil
}

func newClient(b backend, cfg Config, retrier *resilience.Retrier, limiter ratelimiter.RateLimiterInterface, observer CallObserver) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if retrier == nil {
		retrier = resilience.New(resilience.DefaultConfig(), Classify)
	}
	return &Client{
		backend:  b,
		cfg:      cfg,
		retrier:  retrier,
		limiter:  limiter,
		observer: observer,
	}
}

// NewSession は1文書分のセッションを生成します。
func (c *Client) NewSession(run usecase.RunLog, onRetry func(msg string)) usecase.Assistant {
	return &Session{client: c, run: run, notify: onRetry}
}

// Purger returns a Purger sharing this client's backend and retry policy.
func (c *Client) Purger() *Purger {
	return &Purger{client: c, now: time.Now}
}

// OwnCachePurger returns a Purger limited to caches this service created.
// Caches from other tools sharing the API key are left alone.
func (c *Client) OwnCachePurger() *Purger {
	return &Purger{client: c, now: time.Now, displayName: displayNamePrefix}
}

// call はレート制限とリトライを適用してfnを実行し、計測します。
func (c *Client) call(ctx context.Context, step string, fn func(context.Context) error, notify resilience.Notify) error {
	start := time.Now()
	err := c.retrier.Do(ctx, step, func(ctx context.Context) error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		return fn(ctx)
	}, notify)

	if c.observer != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		c.observer.ObserveModelCall(step, outcome, time.Since(start).Seconds())
	}
	return err
}
