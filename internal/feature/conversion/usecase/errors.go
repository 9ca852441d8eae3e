package usecase

import "errors"

var (
	// ErrSkipped はコンバーターがその形式を扱わないことを示します。
	ErrSkipped = errors.New("converter does not handle this format")
	// ErrUnsupportedFormat はどのコンバーターも扱えない形式のエラーです。
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrCorruptFile は対応形式だが読み取れなかったファイルのエラーです。
	ErrCorruptFile = errors.New("could not read the file")
	// ErrTooLarge はサイズ上限を超えたファイルのエラーです。
	ErrTooLarge = errors.New("file is too large")
	// ErrEmptyFile は空のファイルのエラーです。
	ErrEmptyFile = errors.New("file is empty")
)
