package adapters

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"

	"before_you_sign/internal/feature/conversion/usecase"
)

// HTMLExts はHTMLコンバーターに割り当てる拡張子です。
var HTMLExts = []string{".html", ".htm", ".xhtml"}

var blankLinesRe = regexp.MustCompile(`\n{3,}`)

// noiseTags は本文抽出時に取り除く要素です。
var noiseTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
	"nav": true, "header": true, "footer": true, "aside": true,
	"iframe": true, "object": true, "embed": true,
	"form": true, "input": true, "button": true, "svg": true,
}

// HTML はHTMLの本文を抽出してMarkdownに変換します。
type HTML struct {
	converter *md.Converter
}

var _ usecase.Converter = (*HTML)(nil)

// NewHTML はGitHub Flavored Markdownを出力するHTMLコンバーターを生成します。
func NewHTML() *HTML {
	c := md.NewConverter("", true, nil)
	c.Use(plugin.GitHubFlavored())
	return &HTML{converter: c}
}

func (h *HTML) Name() string { return "html" }

func (h *HTML) Convert(_ context.Context, filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	isHTML := false
	for _, e := range HTMLExts {
		if ext == e {
			isHTML = true
		}
	}
	if !isHTML {
		return "", usecase.ErrSkipped
	}

	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	title := findTitle(doc)
	body := mainContent(doc)

	var sb strings.Builder
	if err := html.Render(&sb, body); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	out, err := h.converter.ConvertString(sb.String())
	if err != nil {
		return "", fmt.Errorf("convert html: %w", err)
	}

	out = tidyMarkdown(out)
	if title != "" && !strings.HasPrefix(out, "# ") {
		out = "# " + title + "\n\n" + out
	}
	return out, nil
}

// mainContent は<main>、<article>、role=mainの順に本文を探し、なければ<body>を返します。
func mainContent(doc *html.Node) *html.Node {
	removeNoise(doc)
	for _, match := range []func(*html.Node) bool{
		isElement("main"),
		isElement("article"),
		hasAttr("role", "main"),
		isElement("body"),
	} {
		if n := find(doc, match); n != nil {
			return n
		}
	}
	return doc
}

func removeNoise(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && noiseTags[c.Data] {
			n.RemoveChild(c)
		} else if c.Type == html.CommentNode {
			n.RemoveChild(c)
		} else {
			removeNoise(c)
		}
		c = next
	}
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}

func isElement(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == tag
	}
}

func hasAttr(key, val string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		for _, a := range n.Attr {
			if a.Key == key && a.Val == val {
				return true
			}
		}
		return false
	}
}

func findTitle(doc *html.Node) string {
	n := find(doc, isElement("title"))
	if n == nil || n.FirstChild == nil {
		return ""
	}
	return strings.TrimSpace(n.FirstChild.Data)
}

// tidyMarkdown は行末の空白と連続する空行を取り除きます。
func tidyMarkdown(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	s = blankLinesRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(s)
}
