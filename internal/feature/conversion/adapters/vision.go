package adapters

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	gvision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"

	"before_you_sign/internal/feature/conversion/usecase"
)

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".webp": true, ".bmp": true, ".tif": true, ".tiff": true,
}

// annotator はImageAnnotatorClientのうちOCRで使う部分です。
type annotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
	Close() error
}

// VisionOCR はGoogle Cloud Vision APIで画像の文書をテキスト化します。
type VisionOCR struct {
	client annotator
}

var _ usecase.Converter = (*VisionOCR)(nil)

// NewVisionOCR はADCを使用してVisionOCRの新しいインスタンスを生成します。
func NewVisionOCR(ctx context.Context) (*VisionOCR, error) {
	client, err := gvision.NewImageAnnotatorClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	return &VisionOCR{client: client}, nil
}

// Close はVision APIクライアントを解放します。
func (v *VisionOCR) Close() error {
	return v.client.Close()
}

func (v *VisionOCR) Name() string { return "vision" }

func (v *VisionOCR) Convert(ctx context.Context, filename string, data []byte) (string, error) {
	if !imageExts[strings.ToLower(filepath.Ext(filename))] {
		return "", usecase.ErrSkipped
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: data},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return "", fmt.Errorf("vision API request failed: %w", err)
	}
	if len(resp.Responses) == 0 {
		return "", errors.New("vision API returned no response")
	}
	r := resp.Responses[0]
	if r.Error != nil {
		return "", fmt.Errorf("vision API error: %s", r.Error.Message)
	}
	if r.FullTextAnnotation == nil || strings.TrimSpace(r.FullTextAnnotation.Text) == "" {
		return "", errors.New("no text found in image")
	}
	return strings.TrimSpace(r.FullTextAnnotation.Text), nil
}
