package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/radiology-reports/internal/llm"
	"github.com/joseph-ayodele/radiology-reports/internal/repository"
)

// AnalyzeStage is stage 2: text -> structured analysis with summary.
type AnalyzeStage struct {
	Orchestrator llm.Orchestrator
	Runs         repository.RunRepository // optional
	ModelName    string
	Logger       *slog.Logger
}

func NewAnalyzeStage(o llm.Orchestrator, runs repository.RunRepository, modelName string, logger *slog.Logger) *AnalyzeStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyzeStage{Orchestrator: o, Runs: runs, ModelName: modelName, Logger: logger}
}

func (s *AnalyzeStage) Run(ctx context.Context, runID uuid.UUID, text string) (*llm.StructuredAnalysis, error) {
	a, err := s.Orchestrator.AnalyzeReport(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("analyze report: %w", err)
	}

	if s.Runs != nil && runID != uuid.Nil {
		raw, err := json.Marshal(a)
		if err != nil {
			return a, fmt.Errorf("marshal analysis: %w", err)
		}
		if err := s.Runs.FinishAnalysis(ctx, runID, raw, s.ModelName); err != nil {
			return a, err
		}
	}
	return a, nil
}
