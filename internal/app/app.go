package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/joseph-ayodele/radiology-reports/internal/common"
	"github.com/joseph-ayodele/radiology-reports/internal/export"
	"github.com/joseph-ayodele/radiology-reports/internal/extract"
	"github.com/joseph-ayodele/radiology-reports/internal/llm"
	"github.com/joseph-ayodele/radiology-reports/internal/llm/openai"
	"github.com/joseph-ayodele/radiology-reports/internal/observability"
	"github.com/joseph-ayodele/radiology-reports/internal/ocr"
	"github.com/joseph-ayodele/radiology-reports/internal/pipeline"
	"github.com/joseph-ayodele/radiology-reports/internal/repository"
	"github.com/joseph-ayodele/radiology-reports/internal/server"
)

// App is the wired pipeline shared by the binaries.
type App struct {
	Config    *common.Config
	DB        *repository.DB
	Runs      repository.RunRepository
	Metrics   *observability.Metrics
	Extractor extract.TextExtractor
	Client    llm.CompletionClient
	Analyzer  *llm.Analyzer
	Processor *pipeline.Processor
	Exporter  *export.Service

	logger *slog.Logger
}

// New connects the ledger and builds extractor, completion client, analyzer and processor
// from cfg. reg may be nil.
func New(ctx context.Context, cfg *common.Config, reg *prometheus.Registry, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := server.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	a, err := build(cfg, db, reg, logger)
	if err != nil {
		db.Close(logger)
		return nil, err
	}
	return a, nil
}

func build(cfg *common.Config, db *repository.DB, reg *prometheus.Registry, logger *slog.Logger) (*App, error) {
	metrics := observability.NewMetrics(reg)
	runs := repository.NewRunRepository(db, logger)

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

	oc := openai.NewClient(openai.Config{
		APIKey:     cfg.LLM.APIKey,
		BaseURL:    cfg.LLM.BaseURL,
		Model:      cfg.LLM.Model,
		Timeout:    cfg.LLM.Timeout,
		MaxRetries: cfg.LLM.MaxRetries,
	}, logger)
	client := observability.InstrumentCompletions(oc, metrics)

	mode, ok := llm.ParseEvidenceMode(cfg.LLM.EvidenceMode)
	if !ok {
		return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unsupported EVIDENCE_MODE %q", cfg.LLM.EvidenceMode), common.ErrConfig)
	}
	analyzer, err := llm.NewAnalyzer(client, llm.AnalyzerConfig{
		Temperature:  &cfg.LLM.Temperature,
		EvidenceMode: mode,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("build analyzer: %w", err)
	}

	proc := pipeline.NewProcessor(tx, analyzer, logger,
		pipeline.WithRunRepository(runs),
		pipeline.WithMetrics(metrics),
		pipeline.WithModelName(oc.Model()),
	)

	logger.Info("app.ready", "db", db.Dialect, "model", oc.Model(), "evidence_mode", mode,
		"ocr_max_pages", cfg.OCR.MaxPages)
	return &App{
		Config:    cfg,
		DB:        db,
		Runs:      runs,
		Metrics:   metrics,
		Extractor: tx,
		Client:    client,
		Analyzer:  analyzer,
		Processor: proc,
		Exporter:  export.NewService(runs, logger),
		logger:    logger,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.DB.Close(a.logger)
}
