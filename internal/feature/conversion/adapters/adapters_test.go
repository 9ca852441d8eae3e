package adapters

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"google.golang.org/genproto/googleapis/rpc/status"

	"before_you_sign/internal/feature/conversion/usecase"
)

func TestPlainText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filename string
		data     []byte
		want     string
		wantErr  error
		anyErr   bool
	}{
		{"markdown", "terms.md", []byte("# Terms\r\nBe nice."), "# Terms\nBe nice.", nil, false},
		{"bom stripped", "terms.txt", []byte("\xef\xbb\xbfHello"), "Hello", nil, false},
		{"no extension", "LICENSE", []byte("MIT"), "MIT", nil, false},
		{"other extension", "terms.pdf", []byte("%PDF-1.4"), "", usecase.ErrSkipped, false},
		{"binary without extension", "blob", []byte{0xff, 0xfe, 0x00}, "", usecase.ErrSkipped, false},
		{"binary with text extension", "terms.txt", []byte{0xff, 0xfe, 0x00}, "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := PlainText{}.Convert(context.Background(), tt.filename, tt.data)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.anyErr:
				assert.Error(t, err)
				assert.NotErrorIs(t, err, usecase.ErrSkipped)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

// TestHTML は本文が抽出され、ナビゲーションなどが除かれることを検証します。
func TestHTML(t *testing.T) {
	t.Parallel()

	page := `<!DOCTYPE html>
<html><head><title>Acme Terms</title><style>body{}</style></head>
<body>
<nav><a href="/">Home</a></nav>
<main>
<h2>Acceptance</h2>
<p>By using <strong>Acme</strong> you agree.</p>
<ul><li>No refunds</li><li>Arbitration</li></ul>
</main>
<footer>© Acme</footer>
<script>track()</script>
</body></html>`

	got, err := NewHTML().Convert(context.Background(), "terms.HTML", []byte(page))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "# Acme Terms\n\n"), got)
	assert.Contains(t, got, "## Acceptance")
	assert.Contains(t, got, "**Acme**")
	assert.Contains(t, got, "No refunds")
	assert.NotContains(t, got, "Home")
	assert.NotContains(t, got, "© Acme")
	assert.NotContains(t, got, "track()")
	assert.NotContains(t, got, "\n\n\n")
}

func TestHTML_BodyFallbackAndSkip(t *testing.T) {
	t.Parallel()

	h := NewHTML()
	got, err := h.Convert(context.Background(), "p.htm", []byte("<p>Only a paragraph</p>"))
	require.NoError(t, err)
	assert.Equal(t, "Only a paragraph", got)

	_, err = h.Convert(context.Background(), "p.txt", []byte("<p>x</p>"))
	assert.ErrorIs(t, err, usecase.ErrSkipped)
}

func TestPDF_SkipAndCorrupt(t *testing.T) {
	t.Parallel()

	_, err := PDF{}.Convert(context.Background(), "terms.txt", []byte("hello"))
	assert.ErrorIs(t, err, usecase.ErrSkipped)

	_, err = PDF{}.Convert(context.Background(), "terms.pdf", []byte("%PDF-1.4 truncated"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, usecase.ErrSkipped)
}

func TestXLSX(t *testing.T) {
	t.Parallel()

	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Plan"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "Price"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "Basic|Lite"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 10))
	require.NoError(t, f.SetCellValue("Sheet1", "A3", "Pro"))
	_, err := f.NewSheet("Empty")
	require.NoError(t, err)
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	got, err := XLSX{}.Convert(context.Background(), "pricing.xlsx", buf.Bytes())
	require.NoError(t, err)

	want := "## Sheet1\n\n" +
		"| Plan | Price |\n" +
		"| --- | --- |\n" +
		"| Basic\\|Lite | 10 |\n" +
		"| Pro |  |"
	assert.Equal(t, want, got)
}

func TestXLSX_SkipAndCorrupt(t *testing.T) {
	t.Parallel()

	_, err := XLSX{}.Convert(context.Background(), "a.csv", []byte("a,b"))
	assert.ErrorIs(t, err, usecase.ErrSkipped)

	_, err = XLSX{}.Convert(context.Background(), "a.xlsx", []byte("not a zip"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, usecase.ErrSkipped)
}

func docxBytes(t *testing.T, documentXML string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDOCX(t *testing.T) {
	t.Parallel()

	doc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:pPr><w:pStyle w:val="Title"/></w:pPr><w:r><w:t>Terms of Service</w:t></w:r></w:p>
<w:p><w:pPr><w:pStyle w:val="Heading2"/></w:pPr><w:r><w:t>Payments</w:t></w:r></w:p>
<w:p><w:r><w:t xml:space="preserve">Fees are </w:t></w:r><w:r><w:t>non-refundable.</w:t></w:r></w:p>
<w:p><w:pPr><w:numPr><w:ilvl w:val="0"/></w:numPr></w:pPr><w:r><w:t>Monthly billing</w:t></w:r></w:p>
<w:p></w:p>
</w:body>
</w:document>`

	got, err := DOCX{}.Convert(context.Background(), "tos.docx", docxBytes(t, doc))
	require.NoError(t, err)
	assert.Equal(t, "# Terms of Service\n\n## Payments\n\nFees are non-refundable.\n\n- Monthly billing", got)
}

func TestDOCX_Errors(t *testing.T) {
	t.Parallel()

	_, err := DOCX{}.Convert(context.Background(), "a.doc", []byte("x"))
	assert.ErrorIs(t, err, usecase.ErrSkipped)

	_, err = DOCX{}.Convert(context.Background(), "a.docx", []byte("not a zip"))
	assert.Error(t, err)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, _ = zw.Create("other.xml")
	require.NoError(t, zw.Close())
	_, err = DOCX{}.Convert(context.Background(), "a.docx", buf.Bytes())
	assert.Error(t, err)
}

func TestStylePrefix(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "# ", stylePrefix("Title"))
	assert.Equal(t, "### ", stylePrefix("Heading3"))
	assert.Equal(t, "- ", stylePrefix("ListParagraph"))
	assert.Equal(t, "", stylePrefix("Heading10"))
	assert.Equal(t, "", stylePrefix("Normal"))
}

// fakeAnnotator はannotatorのモック実装です。
type fakeAnnotator struct {
	resp *visionpb.BatchAnnotateImagesResponse
	err  error
	req  *visionpb.BatchAnnotateImagesRequest
}

func (f *fakeAnnotator) BatchAnnotateImages(_ context.Context, req *visionpb.BatchAnnotateImagesRequest, _ ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error) {
	f.req = req
	return f.resp, f.err
}

func (f *fakeAnnotator) Close() error { return nil }

func TestVisionOCR(t *testing.T) {
	t.Parallel()

	withText := func(text string) *visionpb.BatchAnnotateImagesResponse {
		return &visionpb.BatchAnnotateImagesResponse{Responses: []*visionpb.AnnotateImageResponse{
			{FullTextAnnotation: &visionpb.TextAnnotation{Text: text}},
		}}
	}

	tests := []struct {
		name     string
		filename string
		fake     *fakeAnnotator
		want     string
		wantErr  bool
		skipped  bool
	}{
		{"scanned page", "scan.PNG", &fakeAnnotator{resp: withText(" Terms\nNo refunds \n")}, "Terms\nNo refunds", false, false},
		{"not an image", "a.pdf", &fakeAnnotator{}, "", true, true},
		{"api failure", "a.jpg", &fakeAnnotator{err: errors.New("unavailable")}, "", true, false},
		{"response error", "a.jpg", &fakeAnnotator{resp: &visionpb.BatchAnnotateImagesResponse{
			Responses: []*visionpb.AnnotateImageResponse{{Error: &status.Status{Message: "bad image"}}},
		}}, "", true, false},
		{"no text", "a.jpg", &fakeAnnotator{resp: withText("  ")}, "", true, false},
		{"empty response", "a.jpg", &fakeAnnotator{resp: &visionpb.BatchAnnotateImagesResponse{}}, "", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := &VisionOCR{client: tt.fake}
			got, err := v.Convert(context.Background(), tt.filename, []byte("img"))
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.skipped, errors.Is(err, usecase.ErrSkipped))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			require.NotNil(t, tt.fake.req)
			assert.Equal(t, visionpb.Feature_DOCUMENT_TEXT_DETECTION, tt.fake.req.Requests[0].Features[0].Type)
		})
	}
}
