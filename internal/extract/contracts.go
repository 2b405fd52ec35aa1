package extract

import (
	"context"
	"time"
)

// TextExtractor is Stage 1: file -> text.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (TextExtractionResult, error)
}

type TextExtractionResult struct {
	Text         string
	Pages        int
	OCRPages     int
	FailedPages  int
	SkippedPages int
	SourceType   string // "PDF"
	Method       string // "pdf-text" | "pdf-ocr"
	Sufficient   bool   // false when both the text layer and OCR came back thin
	Language     string
	Duration     time.Duration
	Warnings     []string
}

// UsedOCR reports whether the text came from the OCR fallback. OCR output also carries
// "--- Page N ---" markers, so downstream consumers can tell from the text alone.
func (r TextExtractionResult) UsedOCR() bool { return r.Method == "pdf-ocr" }
