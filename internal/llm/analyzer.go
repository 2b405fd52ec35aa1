package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/radiology-reports/constants"
	"github.com/joseph-ayodele/radiology-reports/internal/common"
)

// MaxTemperature bounds sampling for every operation.
const MaxTemperature = 1.0

type AnalyzerConfig struct {
	Temperature   *float32     // nil means 0.1; an explicit 0 is kept
	MaxInputChars int          // report text cap inside the prompt, default 24000 runes
	EvidenceMode  EvidenceMode // default strict
}

// Analyzer turns report text and prior results into structured clinical data through a
// CompletionClient. It holds no per-call state and is safe for concurrent use.
type Analyzer struct {
	client      CompletionClient
	cfg         AnalyzerConfig
	temperature float32
	schemas     *schemaSet
	logger      *slog.Logger
}

var _ Orchestrator = (*Analyzer)(nil)

func NewAnalyzer(client CompletionClient, cfg AnalyzerConfig, logger *slog.Logger) (*Analyzer, error) {
	if client == nil {
		return nil, errors.New("llm: nil completion client")
	}
	if logger == nil {
		logger = slog.Default()
	}
	temperature := float32(0.1)
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}
	if temperature < 0 || temperature > MaxTemperature {
		return nil, fmt.Errorf("llm: temperature %.2f outside [0, %.1f]", temperature, MaxTemperature)
	}
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = 24000
	}
	mode, ok := ParseEvidenceMode(string(cfg.EvidenceMode))
	if !ok {
		return nil, fmt.Errorf("llm: unsupported evidence mode %q", cfg.EvidenceMode)
	}
	cfg.EvidenceMode = mode

	schemas, err := loadSchemas()
	if err != nil {
		return nil, fmt.Errorf("llm: load schemas: %w", err)
	}
	return &Analyzer{client: client, cfg: cfg, temperature: temperature, schemas: schemas, logger: logger}, nil
}

// AnalyzeReport extracts findings and then asks for the patient summary: two round trips.
func (a *Analyzer) AnalyzeReport(ctx context.Context, text string) (*StructuredAnalysis, error) {
	ctx, rid := common.EnsureRequestID(ctx)
	start := time.Now()
	analysis, err := a.ExtractFindings(ctx, text)
	if err != nil {
		return nil, err
	}
	summary, err := a.GenerateSummary(ctx, analysis)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	analysis.Summary = summary

	a.logger.Info("llm.analyze.report_ok",
		"req_id", rid,
		"birads", biradsAttr(analysis.BIRADS.Value),
		"findings", len(analysis.Findings),
		"red_flags", len(analysis.RedFlags),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return analysis, nil
}

// ExtractFindings is the clinical-extractor step of AnalyzeReport. The result has no summary.
func (a *Analyzer) ExtractFindings(ctx context.Context, text string) (*StructuredAnalysis, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("report text: %w", ErrEmptyInput)
	}
	prompt, truncated := BuildAnalysisPrompt(text, a.cfg.MaxInputChars)
	if truncated {
		a.logger.Warn("llm.analyze.input_truncated", "req_id", requestID(ctx), "max_chars", a.cfg.MaxInputChars)
	}

	var out StructuredAnalysis
	raw, err := a.complete(ctx, OpAnalyze, extractorSystem, prompt, a.schemas.analysis, &out)
	if err != nil {
		return nil, err
	}
	out.Summary = ""
	ensureAnalysisSlices(&out)

	if rejected := checkEvidence(&out, text, a.cfg.EvidenceMode); len(rejected) > 0 {
		if a.cfg.EvidenceMode == EvidenceStrict {
			a.logger.Error("llm.analyze.evidence_rejected", "req_id", requestID(ctx), "rejected", rejected)
			return nil, malformed(OpAnalyze, "evidence not found in report text", raw,
				fmt.Errorf("%d field(s) with non-verbatim quotes: %s", len(rejected), rejectedFields(rejected)))
		}
		a.logger.Warn("llm.analyze.evidence_dropped", "req_id", requestID(ctx), "rejected", rejected)
	}
	return &out, nil
}

// GenerateSummary asks the communicator role for a 2-4 sentence patient-facing explanation of
// data. It accepts the exact shape ExtractFindings returns; any existing summary is ignored.
func (a *Analyzer) GenerateSummary(ctx context.Context, data any) (string, error) {
	switch v := data.(type) {
	case nil:
		return "", fmt.Errorf("summary data: %w", ErrEmptyInput)
	case *StructuredAnalysis:
		if v == nil {
			return "", fmt.Errorf("summary data: %w", ErrEmptyInput)
		}
		cp := *v
		cp.Summary = ""
		data = cp
	case StructuredAnalysis:
		v.Summary = ""
		data = v
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("%w: encode summary data: %v", ErrInvalidInput, err)
	}

	var out struct {
		Summary string `json:"summary"`
	}
	raw, err := a.complete(ctx, OpSummarize, communicatorSystem, BuildSummaryPrompt(payload), a.schemas.summary, &out)
	if err != nil {
		return "", err
	}
	summary := strings.TrimSpace(out.Summary)
	if summary == "" {
		return "", malformed(OpSummarize, "empty summary", raw, nil)
	}
	return summary, nil
}

// ConsolidateReports trusts the caller's ordering (oldest first) and does not enforce a minimum
// history length; callers go through pipeline.PrepareHistory for that.
func (a *Analyzer) ConsolidateReports(ctx context.Context, reports []PriorReport) (*ConsolidationResult, error) {
	var out ConsolidationResult
	if _, err := a.complete(ctx, OpConsolidate, consolidationSystem, BuildConsolidationPrompt(reports), a.schemas.consolidation, &out); err != nil {
		return nil, err
	}
	if out.KeyPatterns == nil {
		out.KeyPatterns = []string{}
	}
	return &out, nil
}

// CompareTreatments returns exactly one comparison per option, in input order.
func (a *Analyzer) CompareTreatments(ctx context.Context, profile PatientProfile, options []string) (*TreatmentComparison, error) {
	opts, err := cleanOptions(options)
	if err != nil {
		return nil, err
	}

	var out TreatmentComparison
	raw, err := a.complete(ctx, OpCompare, treatmentSystem, BuildTreatmentPrompt(profile, opts), a.schemas.treatment, &out)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Disclaimer) == "" {
		return nil, malformed(OpCompare, "missing disclaimer", raw, nil)
	}
	if len(out.Comparisons) != len(opts) {
		return nil, malformed(OpCompare,
			fmt.Sprintf("got %d comparisons for %d options", len(out.Comparisons), len(opts)), raw, nil)
	}
	out.Comparisons = alignComparisons(opts, out.Comparisons)
	return &out, nil
}

func cleanOptions(options []string) ([]string, error) {
	if len(options) < constants.MinTreatmentOptions || len(options) > constants.MaxTreatmentOptions {
		return nil, fmt.Errorf("%w: need %d to %d treatment options, got %d",
			ErrInvalidInput, constants.MinTreatmentOptions, constants.MaxTreatmentOptions, len(options))
	}
	out := make([]string, len(options))
	for i, o := range options {
		o = strings.TrimSpace(o)
		if o == "" {
			return nil, fmt.Errorf("%w: treatment option %d is blank", ErrInvalidInput, i+1)
		}
		out[i] = o
	}
	return out, nil
}

// alignComparisons puts entries back into option order. Entries are matched by name first;
// leftovers fill the remaining slots in the order the model returned them. Every entry ends up
// labelled with its input option.
func alignComparisons(options []string, got []TreatmentScore) []TreatmentScore {
	out := make([]TreatmentScore, len(options))
	used := make([]bool, len(got))
	filled := make([]bool, len(options))

	for i, o := range options {
		key := normalizeForMatch(o)
		for j, c := range got {
			if !used[j] && normalizeForMatch(c.Treatment) == key {
				out[i], used[j], filled[i] = c, true, true
				break
			}
		}
	}
	next := 0
	for i := range options {
		if filled[i] {
			continue
		}
		for used[next] {
			next++
		}
		out[i], used[next] = got[next], true
	}
	for i := range out {
		out[i].Treatment = options[i]
		ensureScoreSlices(&out[i])
	}
	return out
}

// complete runs the shared invocation: one round trip, strict schema validation, a lenient
// formatting repair when strict validation fails, then decode into out.
func (a *Analyzer) complete(ctx context.Context, op, system, prompt string, rs responseSchema, out any) ([]byte, error) {
	rid := requestID(ctx)
	start := time.Now()
	a.logger.Debug("llm."+op+".start", "req_id", rid, "prompt_chars", len(prompt))

	raw, err := a.client.CompleteJSON(ctx, CompletionRequest{
		Operation:   op,
		System:      system,
		Prompt:      prompt,
		Temperature: a.temperature,
	})
	if err != nil {
		a.logger.Error("llm."+op+".failed", "req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	if vErr := validateCompiled(rs.compiled, raw); vErr != nil {
		cleaned, changed, sErr := NormalizeAndSanitizeJSON(raw, rs.allowed, a.logger)
		if sErr != nil {
			a.logger.Error("llm."+op+".sanitize_failed", "req_id", rid, "error", sErr)
			return nil, malformed(op, "not a JSON object", raw, sErr)
		}
		if v2 := validateCompiled(rs.compiled, cleaned); v2 != nil {
			a.logger.Error("llm."+op+".schema_validation_failed", "req_id", rid, "error", v2,
				"elapsed_ms", time.Since(start).Milliseconds())
			return nil, malformed(op, "schema validation failed", raw, v2)
		}
		a.logger.Warn("llm."+op+".lenient_sanitize_applied", "req_id", rid, "changed", changed)
		raw = cleaned
	}

	// the schema accepts 4.0 as an integer, encoding/json does not
	canon, err := reencode(raw)
	if err != nil {
		return nil, malformed(op, "decode", raw, err)
	}
	if err := json.Unmarshal(canon, out); err != nil {
		return nil, malformed(op, "decode", raw, err)
	}
	raw = canon
	a.logger.Info("llm."+op+".ok", "req_id", rid, "elapsed_ms", time.Since(start).Milliseconds())
	return raw, nil
}

// reencode round-trips a validated document through generic values so whole-number floats
// come back as integer literals.
func reencode(raw []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func ensureAnalysisSlices(a *StructuredAnalysis) {
	nonNil := func(s *[]string) {
		if *s == nil {
			*s = []string{}
		}
	}
	nonNil(&a.BIRADS.Evidence)
	nonNil(&a.BreastDensity.Evidence)
	nonNil(&a.Exam.Evidence)
	nonNil(&a.Comparison.Evidence)
	nonNil(&a.RedFlags)
	if a.Findings == nil {
		a.Findings = []Finding{}
	}
	for i := range a.Findings {
		nonNil(&a.Findings[i].Evidence)
	}
	if a.Recommendations == nil {
		a.Recommendations = []Recommendation{}
	}
	for i := range a.Recommendations {
		nonNil(&a.Recommendations[i].Evidence)
	}
}

func ensureScoreSlices(s *TreatmentScore) {
	for _, p := range []*[]string{&s.Benefits, &s.SideEffects, &s.Considerations} {
		if *p == nil {
			*p = []string{}
		}
	}
}

func rejectedFields(rejected map[string][]string) string {
	fields := make([]string, 0, len(rejected))
	for _, f := range []string{"birads", "breast_density", "exam", "comparison", "findings", "recommendations"} {
		if _, ok := rejected[f]; ok {
			fields = append(fields, f)
		}
	}
	return strings.Join(fields, ", ")
}

func requestID(ctx context.Context) string {
	if id := common.RequestIDFromContext(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

func biradsAttr(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
