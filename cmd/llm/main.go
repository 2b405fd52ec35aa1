package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joseph-ayodele/radiology-reports/internal/common"
	"github.com/joseph-ayodele/radiology-reports/internal/extract"
	"github.com/joseph-ayodele/radiology-reports/internal/llm"
	"github.com/joseph-ayodele/radiology-reports/internal/llm/openai"
	"github.com/joseph-ayodele/radiology-reports/internal/ocr"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		logger.Error("usage: llm <report.pdf> [times]")
		os.Exit(2)
	}
	path := os.Args[1]
	times := 1
	if len(os.Args) >= 3 {
		if n, err := strconv.Atoi(os.Args[2]); err == nil && n > 0 {
			times = n
		}
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	if cfg.LLM.APIKey == "" {
		logger.Error("OPENAI_API_KEY env var is required")
		os.Exit(2)
	}
	mode, ok := llm.ParseEvidenceMode(cfg.LLM.EvidenceMode)
	if !ok {
		logger.Error("unsupported EVIDENCE_MODE", "value", cfg.LLM.EvidenceMode)
		os.Exit(2)
	}

	// --- Wire OCR + LLM same as server, without the ledger
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

	client := openai.NewClient(openai.Config{
		APIKey:     cfg.LLM.APIKey,
		BaseURL:    cfg.LLM.BaseURL,
		Model:      cfg.LLM.Model,
		Timeout:    cfg.LLM.Timeout,
		MaxRetries: cfg.LLM.MaxRetries,
	}, logger)
	analyzer, err := llm.NewAnalyzer(client, llm.AnalyzerConfig{
		Temperature:  &cfg.LLM.Temperature,
		EvidenceMode: mode,
	}, logger)
	if err != nil {
		logger.Error("build analyzer", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.OCR.Timeout+time.Minute)
	text, err := tx.Extract(ctx, path)
	cancel()
	if err != nil {
		logger.Error("extract", "path", path, "error", err)
		os.Exit(1)
	}

	// --- Analyze N times on the same text to eyeball model variance
	base := filepath.Base(path)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for i := 1; i <= times; i++ {
		runCtx, cancelRun := context.WithTimeout(context.Background(), 2*time.Minute)
		start := time.Now()
		logger.Info("analyze.run.start", "iter", i, "basename", base, "method", text.Method)

		res, err := analyzer.AnalyzeReport(runCtx, text.Text)
		cancelRun()
		if err != nil {
			logger.Error("analyze.run.error", "iter", i, "err", err)
			continue
		}
		logger.Info("analyze.run.ok", "iter", i, "elapsed_ms", time.Since(start).Milliseconds())
		_ = enc.Encode(res)

		if i < times {
			time.Sleep(750 * time.Millisecond)
		}
	}
}
