package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/radiology-reports/constants"
	"github.com/joseph-ayodele/radiology-reports/internal/common"
	"github.com/joseph-ayodele/radiology-reports/internal/extract"
	"github.com/joseph-ayodele/radiology-reports/internal/observability"
	"github.com/joseph-ayodele/radiology-reports/internal/repository"
)

// TextStage is stage 1: file -> text, recorded on the run.
type TextStage struct {
	TextExtractor extract.TextExtractor
	Runs          repository.RunRepository // optional
	Metrics       *observability.Metrics   // optional
	Logger        *slog.Logger
}

func NewTextStage(tx extract.TextExtractor, runs repository.RunRepository, m *observability.Metrics, logger *slog.Logger) *TextStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextStage{TextExtractor: tx, Runs: runs, Metrics: m, Logger: logger}
}

// Run extracts text from path and marks the run TEXT_OK. runID may be uuid.Nil when no
// ledger is configured.
func (s *TextStage) Run(ctx context.Context, runID uuid.UUID, path string) (extract.TextExtractionResult, error) {
	if ext := filepath.Ext(path); constants.MapExtToFormat(ext) == "" {
		return extract.TextExtractionResult{}, fmt.Errorf("%w: unsupported format %q", common.ErrInvalidInput, ext)
	}

	res, err := s.TextExtractor.Extract(ctx, path)
	if err != nil {
		s.Metrics.RecordExtraction("failed", 0, 0, 0, res.Duration)
		return res, fmt.Errorf("extract text: %w", err)
	}
	s.Metrics.RecordExtraction(res.Method, res.OCRPages, res.FailedPages, res.SkippedPages, res.Duration)

	if s.Runs != nil && runID != uuid.Nil {
		out := repository.TextOutcome{
			Text:       res.Text,
			Method:     res.Method,
			Pages:      res.Pages,
			OCRPages:   res.OCRPages,
			Sufficient: res.Sufficient,
		}
		if err := s.Runs.FinishText(ctx, runID, out); err != nil {
			return res, err
		}
	}
	return res, nil
}
