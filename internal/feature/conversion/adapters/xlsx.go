package adapters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"before_you_sign/internal/feature/conversion/usecase"
)

var spreadsheetExts = map[string]bool{".xlsx": true, ".xlsm": true, ".xltx": true}

// XLSX はスプレッドシートの各シートをMarkdownの表に変換します。
type XLSX struct{}

var _ usecase.Converter = XLSX{}

func (XLSX) Name() string { return "xlsx" }

func (XLSX) Convert(ctx context.Context, filename string, data []byte) (string, error) {
	if !spreadsheetExts[strings.ToLower(filepath.Ext(filename))] {
		return "", usecase.ErrSkipped
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("open spreadsheet: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.WarnContext(ctx, "failed to close spreadsheet", "error", err)
		}
	}()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "## %s\n\n", sheet)
		writeTable(&b, rows)
	}
	if b.Len() == 0 {
		return "", errors.New("spreadsheet is empty")
	}
	return strings.TrimSpace(b.String()), nil
}

// writeTable は先頭行を見出しとしてMarkdownの表を書き出します。
func writeTable(b *strings.Builder, rows [][]string) {
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	writeRow := func(cells []string) {
		b.WriteString("|")
		for i := 0; i < width; i++ {
			cell := ""
			if i < len(cells) {
				cell = escapeCell(cells[i])
			}
			b.WriteString(" " + cell + " |")
		}
		b.WriteString("\n")
	}

	writeRow(rows[0])
	b.WriteString("|" + strings.Repeat(" --- |", width) + "\n")
	for _, r := range rows[1:] {
		writeRow(r)
	}
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r\n", "<br>")
	return strings.ReplaceAll(s, "\n", "<br>")
}
