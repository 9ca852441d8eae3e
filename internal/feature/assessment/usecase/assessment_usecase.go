// Package usecase はassessmentフィーチャーのビジネスロジックを実装します。
package usecase

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"before_you_sign/internal/feature/assessment/domain"
	"before_you_sign/internal/feature/assessment/domain/entity"
)

const (
	// SourceText はテキスト入力の場合のソース名です。
	SourceText = "text"
	// DefaultListLimit は一覧取得のデフォルト件数です。
	DefaultListLimit = 20
	// MaxListLimit は一覧取得の最大件数です。
	MaxListLimit = 100
	// finalizeTimeout はキャンセル後もキャッシュ削除を試みる時間です。
	finalizeTimeout = 30 * time.Second
)

// Input は1回の評価リクエストです。TextとFileはどちらか一方のみ指定します。
type Input struct {
	Text     string
	Filename string
	File     []byte
	// Force は同一文書の過去の結果があっても再評価します。
	Force bool
}

type assessmentUsecase struct {
	assistants AssistantFactory
	runs       RunLogStore
	converter  Converter
	repo       AssessmentRepository
	observer   Observer
	now        func() time.Time
}

// NewAssessmentUsecase はassessmentUsecaseの新しいインスタンスを生成します。
// observer はnilで構いません。
func NewAssessmentUsecase(assistants AssistantFactory, runs RunLogStore, converter Converter, repo AssessmentRepository, observer Observer) *assessmentUsecase {
	return &assessmentUsecase{
		assistants: assistants,
		runs:       runs,
		converter:  converter,
		repo:       repo,
		observer:   observer,
		now:        time.Now,
	}
}

// Assess は文書を評価します。
// 同一文書の評価が保存済みであればForceが指定されない限りそれを返します。
func (u *assessmentUsecase) Assess(ctx context.Context, in Input, n Notifier) (*entity.Assessment, error) {
	text, source, err := u.document(ctx, in, n)
	if err != nil {
		return nil, err
	}
	digest := Digest(text)

	if !in.Force {
		prev, err := u.repo.FindByDigest(ctx, digest)
		switch {
		case err == nil:
			slog.InfoContext(ctx, "returning stored assessment", "id", prev.ID, "digest", digest)
			if u.observer != nil {
				u.observer.ObserveResultCacheHit()
			}
			prev.Cached = true
			return prev, nil
		case !errors.Is(err, domain.ErrNotFound):
			slog.WarnContext(ctx, "assessment lookup failed, assessing again", "error", err)
		}
	}

	run, err := u.runs.NewRun(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log: %w", err)
	}

	session := u.assistants.NewSession(run, n.warn)
	defer func() {
		n.progress(StepFinalizing)
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
		defer cancel()
		if err := session.Finalize(fctx); err != nil {
			slog.WarnContext(ctx, "failed to delete remote cache", "error", err, "run", run.Dir())
		}
	}()

	n.progress(StepStarting)
	meta, err := session.Start(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	n.progress(StepSummarizing)
	summary, reasoning, err := session.Summarize(ctx, meta)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	a := &entity.Assessment{
		ID:        uuid.NewString(),
		Digest:    digest,
		Source:    source,
		Metadata:  meta,
		Summary:   summary,
		Reasoning: reasoning,
		RunDir:    run.Dir(),
		CreatedAt: u.now().UTC(),
	}

	// 保存に失敗しても評価結果は返す
	if err := u.repo.Save(ctx, a); err != nil {
		slog.ErrorContext(ctx, "failed to save assessment", "error", err, "id", a.ID)
	}
	if u.observer != nil {
		u.observer.ObserveAssessment(summary.Score.String())
	}

	slog.InfoContext(ctx, "assessment completed",
		"id", a.ID,
		"source", source,
		"grade", summary.Score,
		"service", meta.ServiceName,
		"document_type", meta.DocumentType,
	)
	return a, nil
}

// Get はIDで評価を取得します。
func (u *assessmentUsecase) Get(ctx context.Context, id string) (*entity.Assessment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	return u.repo.FindByID(ctx, id)
}

// List は新しい順に評価を返します。
func (u *assessmentUsecase) List(ctx context.Context, limit int) ([]entity.Assessment, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return u.repo.List(ctx, limit)
}

// document は入力から評価対象のテキストとソース名を決定します。
func (u *assessmentUsecase) document(ctx context.Context, in Input, n Notifier) (string, string, error) {
	text := strings.TrimSpace(in.Text)
	hasFile := len(in.File) > 0

	switch {
	case text != "" && hasFile:
		return "", "", domain.ErrAmbiguousInput
	case hasFile:
		n.progress(StepConverting)
		md, err := u.converter.ToMarkdown(ctx, in.Filename, in.File)
		if err != nil {
			return "", "", err
		}
		md = strings.TrimSpace(md)
		if md == "" {
			return "", "", domain.ErrEmptyDocument
		}
		return md, in.Filename, nil
	case text != "":
		return text, SourceText, nil
	default:
		return "", "", domain.ErrEmptyDocument
	}
}

// Digest は改行と前後の空白を正規化したテキストのBLAKE2b-256を返します。
func Digest(text string) string {
	normalized := strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	sum := blake2b.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
