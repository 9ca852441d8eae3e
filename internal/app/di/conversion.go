package di

import (
	"context"
	"log/slog"

	"before_you_sign/internal/feature/conversion/adapters"
	convhandler "before_you_sign/internal/feature/conversion/transport/handler"
	"before_you_sign/internal/feature/conversion/usecase"
	"before_you_sign/internal/platform/config"
	"before_you_sign/internal/platform/metrics"
)

// NewConversionUsecase はファイル変換のユースケースを生成します。
// vision.enabled の場合のみ画像OCRを登録し、クライアントが作れなければ警告して画像なしで続行します。
// 返り値のcloseは常にnil以外です。
func NewConversionUsecase(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (convhandler.ConversionUsecase, func() error) {
	var observer usecase.Observer
	if m != nil {
		observer = m
	}

	converters := []usecase.Converter{
		adapters.PlainText{},
		adapters.PDF{},
		adapters.XLSX{},
		adapters.DOCX{},
	}
	closeFn := func() error { return nil }

	if cfg.Vision.Enabled {
		ocr, err := adapters.NewVisionOCR(ctx)
		if err != nil {
			slog.Warn("Vision API unavailable. Images will not be converted.", "error", err)
		} else {
			converters = append(converters, ocr)
			closeFn = ocr.Close
		}
	}

	uc := usecase.NewConversionUsecase(cfg.Server.MaxUploadBytes, observer, converters...)
	uc.Assign(adapters.NewHTML(), adapters.HTMLExts...)
	return uc, closeFn
}
