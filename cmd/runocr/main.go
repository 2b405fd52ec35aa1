package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/radiology-reports/internal/common"
	"github.com/joseph-ayodele/radiology-reports/internal/extract"
	"github.com/joseph-ayodele/radiology-reports/internal/ocr"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runocr <report.pdf>")
		os.Exit(2)
	}
	path := os.Args[1]

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.OCR.Timeout+time.Minute)
	defer cancel()

	ocrx := ocr.NewExtractor(ocr.Config{
		Pdftoppm:      cfg.OCR.Pdftoppm,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.Lang,
		TessdataDir:   cfg.OCR.TessdataDir,
		DPI:           cfg.OCR.DPI,
		MaxPages:      cfg.OCR.MaxPages,
		OCRTimeout:    cfg.OCR.Timeout,
	}, logger)
	tx := extract.NewOCRAdapter(ocrx, logger)

	start := time.Now()
	res, err := tx.Extract(ctx, path)
	dur := time.Since(start)
	if err != nil {
		logger.Error("text extraction failed", "path", path, "error", err, "duration_ms", dur.Milliseconds())
		os.Exit(1)
	}

	logger.Info("text extraction OK",
		"method", res.Method,
		"pages", res.Pages,
		"ocr_pages", res.OCRPages,
		"failed_pages", res.FailedPages,
		"skipped_pages", res.SkippedPages,
		"sufficient", res.Sufficient,
		"chars", len(res.Text),
		"duration_ms", dur.Milliseconds(),
	)
	for _, w := range res.Warnings {
		logger.Warn("extraction warning", "warning", w)
	}
	fmt.Println(res.Text)
}
