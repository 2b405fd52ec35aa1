package extract

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/radiology-reports/internal/ocr"
)

type OCRAdapter struct {
	e      *ocr.Extractor
	logger *slog.Logger
}

func NewOCRAdapter(e *ocr.Extractor, logger *slog.Logger) *OCRAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRAdapter{e: e, logger: logger}
}

func (a *OCRAdapter) Extract(ctx context.Context, path string) (TextExtractionResult, error) {
	r, err := a.e.Extract(ctx, path)
	if err == nil && !r.Sufficient {
		a.logger.Warn("extract.text.insufficient", "path", path, "method", r.Method, "chars", len(r.Text))
	}
	return TextExtractionResult{
		Text:         r.Text,
		Pages:        r.Pages,
		OCRPages:     r.OCRPages,
		FailedPages:  r.FailedPages,
		SkippedPages: r.SkippedPages,
		SourceType:   r.SourceType,
		Method:       r.Method,
		Sufficient:   r.Sufficient,
		Language:     r.Language,
		Duration:     r.Duration,
		Warnings:     r.Warnings,
	}, err
}
