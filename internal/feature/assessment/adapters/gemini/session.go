package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"before_you_sign/internal/feature/assessment/domain"
	"before_you_sign/internal/feature/assessment/domain/entity"
	"before_you_sign/internal/feature/assessment/usecase"
)

// Session は1文書に対する start → summarize → finalize の対話です。
// 並行利用には対応しません。
type Session struct {
	client *Client
	run    usecase.RunLog
	notify func(msg string)

	started   bool
	cacheName string // リモートキャッシュ名。空ならdocumentをインラインで送る
	document  string
	seq       int
}

// SessionがAssistantを実装していることをコンパイル時に検証します。
var _ usecase.Assistant = (*Session)(nil)

// Start は文書をキャッシュしてメタデータを抽出します。
// 以前のStartのキャッシュが残っていれば先に削除します。
func (s *Session) Start(ctx context.Context, document string) (entity.Metadata, error) {
	if err := s.Finalize(ctx); err != nil {
		slog.WarnContext(ctx, "failed to delete superseded cache", "error", err)
	}
	s.started = false
	s.document = ""
	s.seq = 0

	s.log(ctx, "system_prompt.txt", SystemPrompt)
	s.log(ctx, "document.md", document)

	if s.client.cfg.UseCache {
		cc, err := s.createCache(ctx, document)
		switch {
		case err == nil:
			s.cacheName = cc.Name
			s.log(ctx, "cached_content.txt", describeCache(cc))
		case isBadRequest(err):
			slog.InfoContext(ctx, "cache rejected, sending document inline", "error", err)
			s.document = document
		default:
			return entity.Metadata{}, fmt.Errorf("failed to create cache: %w", err)
		}
	} else {
		s.document = document
	}
	s.started = true

	var meta entity.Metadata
	if err := s.generateJSON(ctx, "metadata", []*genai.Content{
		genai.NewContentFromText(MetadataPrompt, genai.RoleUser),
	}, metadataSchema(), &meta); err != nil {
		return entity.Metadata{}, err
	}
	meta = entity.Metadata{
		ServiceName:      strings.TrimSpace(meta.ServiceName),
		ServiceNature:    strings.TrimSpace(meta.ServiceNature),
		DocumentType:     strings.TrimSpace(meta.DocumentType),
		DocumentLanguage: strings.TrimSpace(meta.DocumentLanguage),
	}
	if !meta.Complete() {
		return entity.Metadata{}, fmt.Errorf("metadata has empty fields: %w", domain.ErrMalformedOutput)
	}
	return meta, nil
}

// Summarize は自由記述の分析を行い、それを踏まえた評価を返します。
func (s *Session) Summarize(ctx context.Context, meta entity.Metadata) (entity.Summary, string, error) {
	intermediate := IntermediatePrompt(meta)
	reasoning, err := s.generate(ctx, "analysis", []*genai.Content{
		genai.NewContentFromText(intermediate, genai.RoleUser),
	}, nil)
	if err != nil {
		return entity.Summary{}, "", err
	}
	if strings.TrimSpace(reasoning) == "" {
		return entity.Summary{}, "", fmt.Errorf("empty analysis: %w", domain.ErrMalformedOutput)
	}

	var raw struct {
		Score   string `json:"score"`
		Comment string `json:"comment"`
	}
	history := []*genai.Content{
		genai.NewContentFromText(intermediate, genai.RoleUser),
		genai.NewContentFromText(reasoning, genai.RoleModel),
		genai.NewContentFromText(SummaryPrompt, genai.RoleUser),
	}
	if err := s.generateJSON(ctx, "summary", history, summarySchema(), &raw); err != nil {
		return entity.Summary{}, "", err
	}

	grade, err := entity.ParseGrade(raw.Score)
	if err != nil {
		return entity.Summary{}, "", fmt.Errorf("%v: %w", err, domain.ErrMalformedOutput)
	}
	comment := strings.TrimSpace(raw.Comment)
	if comment == "" {
		return entity.Summary{}, "", fmt.Errorf("empty comment: %w", domain.ErrMalformedOutput)
	}
	return entity.Summary{Score: grade, Comment: comment}, reasoning, nil
}

// Finalize はリモートキャッシュを削除します。キャッシュがなければ何もしません。
func (s *Session) Finalize(ctx context.Context) error {
	if s.cacheName == "" {
		return nil
	}
	name := s.cacheName
	err := s.client.call(ctx, "delete_cache", func(ctx context.Context) error {
		return s.client.backend.DeleteCache(ctx, name)
	}, s.notify)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete cache %s: %w", name, err)
	}
	slog.DebugContext(ctx, "cache deleted", "name", name)
	s.cacheName = ""
	return nil
}

func (s *Session) createCache(ctx context.Context, document string) (*genai.CachedContent, error) {
	cfg := &genai.CreateCachedContentConfig{
		TTL:               s.client.cfg.CacheTTL,
		DisplayName:       displayNamePrefix,
		SystemInstruction: genai.NewContentFromText(SystemPrompt, genai.RoleUser),
		Contents:          []*genai.Content{genai.NewContentFromText(document, genai.RoleUser)},
	}
	var cc *genai.CachedContent
	err := s.client.call(ctx, "create_cache", func(ctx context.Context) error {
		var err error
		cc, err = s.client.backend.CreateCache(ctx, s.client.cfg.Model, cfg)
		return err
	}, s.notify)
	return cc, err
}

// generateJSON は構造化出力を要求し、応答をoutにデコードします。
func (s *Session) generateJSON(ctx context.Context, step string, contents []*genai.Content, schema *genai.Schema, out any) error {
	text, err := s.generate(ctx, step, contents, schema)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(stripFence(text)), out); err != nil {
		return fmt.Errorf("%s: %v: %w", step, err, domain.ErrMalformedOutput)
	}
	return nil
}

// generate は1回のモデル呼び出しを行います。schemaがnilなら自由記述です。
func (s *Session) generate(ctx context.Context, step string, contents []*genai.Content, schema *genai.Schema) (string, error) {
	if !s.started {
		return "", domain.ErrNotStarted
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(s.client.cfg.Temperature),
	}
	if s.cacheName != "" {
		cfg.CachedContent = s.cacheName
	} else {
		cfg.SystemInstruction = genai.NewContentFromText(SystemPrompt, genai.RoleUser)
		contents = append([]*genai.Content{genai.NewContentFromText(s.document, genai.RoleUser)}, contents...)
	}
	if schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = schema
	}

	s.seq++
	prefix := fmt.Sprintf("%02d_%s", s.seq, step)
	s.log(ctx, prefix+"_request.txt", lastText(contents))

	var resp *genai.GenerateContentResponse
	err := s.client.call(ctx, step, func(ctx context.Context) error {
		var err error
		resp, err = s.client.backend.Generate(ctx, s.client.cfg.Model, contents, cfg)
		return err
	}, s.notify)
	if err != nil {
		return "", fmt.Errorf("%s: %w", step, err)
	}

	if u := resp.UsageMetadata; u != nil {
		slog.InfoContext(ctx, "model usage",
			"step", step,
			"cached_tokens", u.CachedContentTokenCount,
			"prompt_tokens", u.PromptTokenCount,
			"candidates_tokens", u.CandidatesTokenCount,
			"total_tokens", u.TotalTokenCount,
		)
	}
	text := resp.Text()
	s.log(ctx, prefix+"_response.md", text)
	return text, nil
}

// log は実行ログに書き込みます。失敗しても処理は継続します。
func (s *Session) log(ctx context.Context, name, text string) {
	if s.run == nil {
		return
	}
	if err := s.run.Write(ctx, name, text); err != nil {
		slog.WarnContext(ctx, "failed to write run log", "name", name, "error", err)
	}
}

func lastText(contents []*genai.Content) string {
	if len(contents) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range contents[len(contents)-1].Parts {
		if p != nil {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// stripFence は```json ... ```で囲まれた応答から本文を取り出します。
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func describeCache(cc *genai.CachedContent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "name: %s\nmodel: %s\ndisplay_name: %s\n", cc.Name, cc.Model, cc.DisplayName)
	if !cc.ExpireTime.IsZero() {
		fmt.Fprintf(&b, "expire_time: %s\n", cc.ExpireTime.Format("2006-01-02T15:04:05Z07:00"))
	}
	if cc.UsageMetadata != nil {
		fmt.Fprintf(&b, "total_token_count: %d\n", cc.UsageMetadata.TotalTokenCount)
	}
	return b.String()
}

func isBadRequest(err error) bool {
	code, ok := statusCode(err)
	return ok && code == http.StatusBadRequest
}

func isNotFound(err error) bool {
	code, ok := statusCode(err)
	return ok && code == http.StatusNotFound
}

// statusCode はgenai.APIErrorのHTTPステータスを取り出します。
func statusCode(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, true
	}
	return 0, false
}
