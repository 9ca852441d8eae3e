package adapters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"before_you_sign/internal/feature/conversion/usecase"
)

var pdfMagic = []byte("%PDF-")

// PDF はPDFのテキストレイヤーを抽出します。画像のみのPDFはエラーになります。
type PDF struct{}

var _ usecase.Converter = PDF{}

func (PDF) Name() string { return "pdf" }

func (PDF) Convert(_ context.Context, filename string, data []byte) (out string, err error) {
	if strings.ToLower(filepath.Ext(filename)) != ".pdf" && !bytes.HasPrefix(data, pdfMagic) {
		return "", usecase.ErrSkipped
	}

	// 壊れたPDFでライブラリがpanicすることがある
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return "", errors.New("pdf has no text layer")
	}
	return strings.Join(pages, "\n\n"), nil
}
