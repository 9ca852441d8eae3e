package adapters

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"before_you_sign/internal/feature/conversion/usecase"
)

// wordNS はWordprocessingMLの名前空間です。
const wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// DOCX はWord文書の段落をMarkdownに変換します。見出しスタイルは#に、リスト段落は-になります。
type DOCX struct{}

var _ usecase.Converter = DOCX{}

func (DOCX) Name() string { return "docx" }

func (DOCX) Convert(_ context.Context, filename string, data []byte) (string, error) {
	if strings.ToLower(filepath.Ext(filename)) != ".docx" {
		return "", usecase.ErrSkipped
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	var body io.ReadCloser
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			if body, err = f.Open(); err != nil {
				return "", fmt.Errorf("open document.xml: %w", err)
			}
			break
		}
	}
	if body == nil {
		return "", errors.New("word/document.xml not found")
	}
	defer func() { _ = body.Close() }()

	out, err := wordParagraphs(body)
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", errors.New("document has no text")
	}
	return out, nil
}

// wordParagraphs はdocument.xmlを走査して段落ごとにMarkdownの行を組み立てます。
func wordParagraphs(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		paragraphs []string
		cur        strings.Builder
		prefix     string
		inText     bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordNS {
				continue
			}
			switch t.Name.Local {
			case "p":
				cur.Reset()
				prefix = ""
			case "pStyle":
				prefix = stylePrefix(attr(t, "val"))
			case "numPr":
				if prefix == "" {
					prefix = "- "
				}
			case "t":
				inText = true
			case "tab":
				cur.WriteString("\t")
			case "br", "cr":
				cur.WriteString("\n")
			}
		case xml.EndElement:
			if t.Name.Space != wordNS {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if text := strings.TrimSpace(cur.String()); text != "" {
					paragraphs = append(paragraphs, prefix+text)
				}
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	return strings.Join(paragraphs, "\n\n"), nil
}

// stylePrefix は"Heading1"や"Title"などのスタイル名からMarkdownの接頭辞を返します。
func stylePrefix(style string) string {
	s := strings.ToLower(style)
	switch {
	case s == "title":
		return "# "
	case strings.HasPrefix(s, "heading"):
		level := strings.TrimPrefix(s, "heading")
		if len(level) == 1 && level[0] >= '1' && level[0] <= '6' {
			return strings.Repeat("#", int(level[0]-'0')) + " "
		}
	case strings.HasPrefix(s, "listparagraph"):
		return "- "
	}
	return ""
}

func attr(e xml.StartElement, local string) string {
	for _, a := range e.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
