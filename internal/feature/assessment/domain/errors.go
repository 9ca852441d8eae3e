// Package domain はassessmentフィーチャーのドメインエラーを定義します。
package domain

import "errors"

var (
	// ErrAmbiguousInput はテキストとファイルが同時に送信された場合のエラーです。
	ErrAmbiguousInput = errors.New("provide either text or a file, not both")
	// ErrEmptyDocument は評価する文書が空の場合のエラーです。
	ErrEmptyDocument = errors.New("document is empty")
	// ErrNotFound は指定された評価が存在しない場合のエラーです。
	ErrNotFound = errors.New("assessment not found")
	// ErrMalformedOutput はモデルの構造化出力が契約を満たさない場合のエラーです。
	ErrMalformedOutput = errors.New("model returned malformed output")
	// ErrNotStarted はstart前にsummarizeが呼ばれた場合のエラーです。
	ErrNotStarted = errors.New("session not started")
)
