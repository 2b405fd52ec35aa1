package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/radiology-reports/constants"
	"github.com/joseph-ayodele/radiology-reports/internal/common"
	"github.com/joseph-ayodele/radiology-reports/internal/extract"
	"github.com/joseph-ayodele/radiology-reports/internal/llm"
	"github.com/joseph-ayodele/radiology-reports/internal/observability"
	"github.com/joseph-ayodele/radiology-reports/internal/repository"
)

// Outcome is everything one ProcessFile call produced.
type Outcome struct {
	RunID    uuid.UUID // uuid.Nil without a ledger
	Text     extract.TextExtractionResult
	Analysis *llm.StructuredAnalysis
}

type Option func(*Processor)

func WithRunRepository(r repository.RunRepository) Option {
	return func(p *Processor) { p.runs = r }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

func WithModelName(name string) Option {
	return func(p *Processor) { p.model = name }
}

// Processor coordinates text extraction then analysis, recording each run in the ledger.
type Processor struct {
	logger  *slog.Logger
	tx      extract.TextExtractor
	orch    llm.Orchestrator
	runs    repository.RunRepository
	metrics *observability.Metrics
	model   string

	text    *TextStage
	analyze *AnalyzeStage
}

func NewProcessor(tx extract.TextExtractor, orch llm.Orchestrator, logger *slog.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{logger: logger, tx: tx, orch: orch}
	for _, o := range opts {
		o(p)
	}
	p.text = NewTextStage(tx, p.runs, p.metrics, logger)
	p.analyze = NewAnalyzeStage(orch, p.runs, p.model, logger)
	return p
}

// Orchestrator exposes the analysis surface for callers that skip extraction.
func (p *Processor) Orchestrator() llm.Orchestrator { return p.orch }

// Extractor exposes stage 1 on its own.
func (p *Processor) Extractor() extract.TextExtractor { return p.tx }

// ProcessFile runs extraction then analysis for the PDF at path. Any failure marks the run
// FAILED and is returned; the partially filled Outcome is returned alongside it.
func (p *Processor) ProcessFile(ctx context.Context, path string) (Outcome, error) {
	start := time.Now()
	ctx, reqID := common.EnsureRequestID(ctx)
	var out Outcome

	if p.runs != nil {
		run, err := p.runs.Start(ctx, path)
		if err != nil {
			p.logger.Error("pipeline.run.start_failed", "path", path, "request_id", reqID, "error", err)
			return out, err
		}
		out.RunID = run.ID
		ctx = common.WithRunID(ctx, run.ID)
	}
	p.logger.Info("pipeline.run.start", "path", path, "run_id", out.RunID, "request_id", reqID)

	res, err := p.text.Run(ctx, out.RunID, path)
	out.Text = res
	if err != nil {
		return out, p.fail(ctx, out.RunID, path, "text", err)
	}
	p.logger.Info("pipeline.text.ok", "run_id", out.RunID, "method", res.Method, "pages", res.Pages,
		"ocr_pages", res.OCRPages, "sufficient", res.Sufficient)

	a, err := p.analyze.Run(ctx, out.RunID, res.Text)
	out.Analysis = a
	if err != nil {
		return out, p.fail(ctx, out.RunID, path, "analyze", err)
	}

	p.metrics.RecordRun(string(constants.RunStatusAnalyzed))
	p.logger.Info("pipeline.run.ok", "path", path, "run_id", out.RunID, "request_id", reqID,
		"elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

func (p *Processor) fail(ctx context.Context, runID uuid.UUID, path, stage string, cause error) error {
	p.metrics.RecordRun(string(constants.RunStatusFailed))
	p.logger.Error("pipeline.run.failed", "path", path, "run_id", runID, "stage", stage, "error", cause)
	if p.runs != nil && runID != uuid.Nil {
		// the caller's ctx may already be done; the ledger still needs the terminal state
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := p.runs.FinishFailure(fctx, runID, cause.Error()); err != nil {
			p.logger.Warn("pipeline.run.record_failure_failed", "run_id", runID, "error", err)
		}
	}
	return cause
}
