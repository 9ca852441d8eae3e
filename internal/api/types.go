// Package api はHTTP APIのリクエスト・レスポンス型を定義します。
package api

import "time"

// ErrorResponse はエラー時のレスポンスです。
type ErrorResponse struct {
	Error string `json:"error"`
}

// AssessRequest はJSONでの評価リクエストです。
type AssessRequest struct {
	Text  string `json:"text"`
	Force bool   `json:"force"`
}

// MetadataResponse は文書のメタデータです。
type MetadataResponse struct {
	ServiceName      string `json:"service_name"`
	ServiceNature    string `json:"service_nature"`
	DocumentType     string `json:"document_type"`
	DocumentLanguage string `json:"document_language"`
}

// SummaryResponse は評価と一文の要約です。
type SummaryResponse struct {
	Score            string `json:"score"`
	ScoreDescription string `json:"score_description"`
	Comment          string `json:"comment"`
}

// AssessmentResponse は1件の評価結果です。
type AssessmentResponse struct {
	ID        string           `json:"id"`
	Source    string           `json:"source"`
	Metadata  MetadataResponse `json:"metadata"`
	Summary   SummaryResponse  `json:"summary"`
	Details   string           `json:"details"`
	Cached    bool             `json:"cached"`
	CreatedAt time.Time        `json:"created_at"`
}

// AssessmentListResponse は評価の一覧です。
type AssessmentListResponse struct {
	Items []AssessmentResponse `json:"items"`
}

// ConvertResponse はファイル変換の結果です。
type ConvertResponse struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

// ProgressEvent はSSEのprogressイベントです。
type ProgressEvent struct {
	Step string `json:"step"`
}

// WarningEvent はSSEのwarningイベントです。
type WarningEvent struct {
	Message string `json:"message"`
}
