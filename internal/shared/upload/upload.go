// Package upload はmultipartフォームのファイル読み込みを提供します。
package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
)

// ErrTooLarge はファイルがサイズ上限を超えた場合のエラーです。
var ErrTooLarge = errors.New("uploaded file is too large")

// File はアップロードされたファイルです。
type File struct {
	Name string
	Data []byte
}

// Read はヘッダーのファイルを最大maxBytesまで読み込みます。
// ファイル名はディレクトリ部分を除いたものになります。
func Read(fh *multipart.FileHeader, maxBytes int64) (*File, error) {
	if maxBytes > 0 && fh.Size > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, fh.Size)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if maxBytes > 0 {
		r = io.LimitReader(f, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, maxBytes)
	}
	return &File{Name: filepath.Base(fh.Filename), Data: data}, nil
}
