// Package entity はassessmentフィーチャーのドメインモデルを定義します。
package entity

import "time"

// Metadata は文書の基本情報です。start ステップの構造化出力から得られます。
type Metadata struct {
	ServiceName      string `json:"service_name"`      // サービス名
	ServiceNature    string `json:"service_nature"`    // サービスの性質（例: "a dating platform"）
	DocumentType     string `json:"document_type"`     // 文書種別（例: "Terms of Service"）
	DocumentLanguage string `json:"document_language"` // 文書の言語（フルネーム）
}

// Complete はすべての項目が空でない場合にtrueを返します。
func (m Metadata) Complete() bool {
	return m.ServiceName != "" && m.ServiceNature != "" &&
		m.DocumentType != "" && m.DocumentLanguage != ""
}

// Summary は最終的な評価です。
type Summary struct {
	Score   Grade  `json:"score"`
	Comment string `json:"comment"` // 一文の要約
}

// Assessment は1文書に対する評価結果全体を表します。
type Assessment struct {
	ID        string
	Digest    string // 正規化済み本文のBLAKE2b-256（16進）
	Source    string // "text" またはアップロードされたファイル名
	Metadata  Metadata
	Summary   Summary
	Reasoning string // summarize ステップの自由記述の分析
	RunDir    string // プロンプトと応答を保存した実行ログのディレクトリ
	CreatedAt time.Time
	Cached    bool // 以前の同一文書の結果を返した場合にtrue
}
