package llm

import "context"

// Operation names; used for prompts, logs and metrics labels.
const (
	OpAnalyze     = "analyze"
	OpSummarize   = "summarize"
	OpConsolidate = "consolidate"
	OpCompare     = "compare"
)

// CompletionRequest is one "system + prompt in, one JSON object out" round trip.
type CompletionRequest struct {
	Operation   string
	System      string
	Prompt      string
	Temperature float32
}

// CompletionClient is the single point of contact with the hosted completion service.
// Implementations return the raw JSON object produced by the model, or one of
// ErrMissingCredentials, *UpstreamError, *MalformedResponseError.
type CompletionClient interface {
	CompleteJSON(ctx context.Context, req CompletionRequest) ([]byte, error)
}

// Orchestrator is the surface the pipeline and the RPC server depend on.
type Orchestrator interface {
	AnalyzeReport(ctx context.Context, text string) (*StructuredAnalysis, error)
	GenerateSummary(ctx context.Context, data any) (string, error)
	ConsolidateReports(ctx context.Context, reports []PriorReport) (*ConsolidationResult, error)
	CompareTreatments(ctx context.Context, profile PatientProfile, options []string) (*TreatmentComparison, error)
}
