package usecase

import (
	"context"

	"before_you_sign/internal/feature/assessment/domain/entity"
)

// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。

// Assistant は1文書分のLLMセッションです。start → summarize → finalize の順に呼ばれます。
type Assistant interface {
	// Start は文書をリモートにキャッシュし、メタデータを抽出します。
	Start(ctx context.Context, document string) (entity.Metadata, error)
	// Summarize は自由記述の分析を行い、その結果から評価を生成します。
	Summarize(ctx context.Context, meta entity.Metadata) (entity.Summary, string, error)
	// Finalize はリモートキャッシュを削除します。複数回呼んでも安全です。
	Finalize(ctx context.Context) error
}

// AssistantFactory は実行ごとに新しいAssistantを生成します。
// onRetry は一時的なエラーで再試行する前に呼ばれます。
type AssistantFactory interface {
	NewSession(run RunLog, onRetry func(msg string)) Assistant
}

// RunLog は1回の実行のプロンプトと応答を保存します。
type RunLog interface {
	Dir() string
	Write(ctx context.Context, name, text string) error
}

// RunLogStore は実行ログを作成します。
type RunLogStore interface {
	NewRun(ctx context.Context) (RunLog, error)
}

// Converter はアップロードされたファイルをMarkdownに変換します。
type Converter interface {
	ToMarkdown(ctx context.Context, filename string, data []byte) (string, error)
}

// AssessmentRepository は評価結果の永続化を抽象化します。
// 見つからない場合は domain.ErrNotFound を返します。
type AssessmentRepository interface {
	FindByDigest(ctx context.Context, digest string) (*entity.Assessment, error)
	FindByID(ctx context.Context, id string) (*entity.Assessment, error)
	List(ctx context.Context, limit int) ([]entity.Assessment, error)
	Save(ctx context.Context, a *entity.Assessment) error
}

// Observer は評価の完了を計測します。
type Observer interface {
	ObserveAssessment(grade string)
	ObserveResultCacheHit()
}
