package server

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/radiology-reports/internal/export"
	"github.com/joseph-ayodele/radiology-reports/internal/ingest"
	"github.com/joseph-ayodele/radiology-reports/internal/llm"
	"github.com/joseph-ayodele/radiology-reports/internal/pipeline"
)

// AnalysisService implements AnalysisServiceServer on top of the pipeline.
type AnalysisService struct {
	proc     *pipeline.Processor
	ingestor ingest.Ingestor // optional
	exporter *export.Service // optional
	logger   *slog.Logger
	now      func() time.Time
}

func NewAnalysisService(proc *pipeline.Processor, ing ingest.Ingestor, exp *export.Service, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisService{proc: proc, ingestor: ing, exporter: exp, logger: logger, now: time.Now}
}

type extractTextResponse struct {
	Text         string   `json:"text"`
	Method       string   `json:"method"`
	Pages        int      `json:"pages"`
	OCRPages     int      `json:"ocr_pages"`
	FailedPages  int      `json:"failed_pages"`
	SkippedPages int      `json:"skipped_pages"`
	Sufficient   bool     `json:"sufficient"`
	Warnings     []string `json:"warnings"`
}

// ExtractText: {path} -> extractTextResponse.
func (s *AnalysisService) ExtractText(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	path, err := requiredString(req, "path")
	if err != nil {
		return nil, err
	}
	res, err := s.proc.Extractor().Extract(ctx, path)
	if err != nil {
		s.logger.Error("rpc.extract_text.failed", "path", path, "error", err)
		return nil, toStatus(err)
	}
	warnings := res.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return encodeStruct(extractTextResponse{
		Text:         res.Text,
		Method:       res.Method,
		Pages:        res.Pages,
		OCRPages:     res.OCRPages,
		FailedPages:  res.FailedPages,
		SkippedPages: res.SkippedPages,
		Sufficient:   res.Sufficient,
		Warnings:     warnings,
	})
}

// AnalyzeReport: {text} -> StructuredAnalysis with summary.
func (s *AnalysisService) AnalyzeReport(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	text := req.GetFields()["text"].GetStringValue()
	if strings.TrimSpace(text) == "" {
		return nil, status.Error(codes.InvalidArgument, "text is required")
	}
	a, err := s.proc.Orchestrator().AnalyzeReport(ctx, text)
	if err != nil {
		s.logger.Error("rpc.analyze_report.failed", "chars", len(text), "error", err)
		return nil, toStatus(err)
	}
	return encodeStruct(a)
}

type processFileResponse struct {
	RunID      string                  `json:"run_id,omitempty"`
	Method     string                  `json:"method"`
	Pages      int                     `json:"pages"`
	OCRPages   int                     `json:"ocr_pages"`
	Sufficient bool                    `json:"sufficient"`
	Analysis   *llm.StructuredAnalysis `json:"analysis"`
}

// ProcessFile: {path} -> processFileResponse, recorded in the run ledger.
func (s *AnalysisService) ProcessFile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	path, err := requiredString(req, "path")
	if err != nil {
		return nil, err
	}
	out, err := s.proc.ProcessFile(ctx, path)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := processFileResponse{
		Method:     out.Text.Method,
		Pages:      out.Text.Pages,
		OCRPages:   out.Text.OCRPages,
		Sufficient: out.Text.Sufficient,
		Analysis:   out.Analysis,
	}
	if out.RunID != uuid.Nil {
		resp.RunID = out.RunID.String()
	}
	return encodeStruct(resp)
}

type historyRecord struct {
	ID          string                  `json:"id"`
	Status      string                  `json:"status"`
	CreatedDate string                  `json:"created_date"` // YYYY-MM-DD or RFC 3339
	Analysis    *llm.StructuredAnalysis `json:"analysis"`
}

// ConsolidateReports: {reports: [historyRecord]} -> HistoryConsolidation. Records are
// filtered to completed and sorted here, so callers may send a patient's raw history.
func (s *AnalysisService) ConsolidateReports(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in struct {
		Reports []historyRecord `json:"reports"`
	}
	if err := decodeStruct(req, &in); err != nil {
		return nil, err
	}

	records := make([]pipeline.ReportRecord, 0, len(in.Reports))
	for i, r := range in.Reports {
		created, err := parseDate(r.CreatedDate)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "reports[%d].created_date: %v", i, err)
		}
		records = append(records, pipeline.ReportRecord{
			ID: r.ID, Status: r.Status, CreatedAt: created, Analysis: r.Analysis,
		})
	}

	res, err := s.proc.ConsolidateHistory(ctx, records)
	if err != nil {
		return nil, toStatus(err)
	}
	return encodeStruct(res)
}

type patientRecord struct {
	DateOfBirth       string   `json:"date_of_birth"`
	CancerStage       string   `json:"cancer_stage"`
	CancerType        string   `json:"cancer_type"`
	ERStatus          string   `json:"er_status"`
	PRStatus          string   `json:"pr_status"`
	HER2Status        string   `json:"her2_status"`
	TumorSizeCM       *float64 `json:"tumor_size_cm"`
	LymphNodePositive *bool    `json:"lymph_node_positive"`
	MenopausalStatus  string   `json:"menopausal_status"`
}

// CompareTreatments: {patient: patientRecord, options: [string]} -> TreatmentComparison.
func (s *AnalysisService) CompareTreatments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in struct {
		Patient patientRecord `json:"patient"`
		Options []string      `json:"options"`
	}
	if err := decodeStruct(req, &in); err != nil {
		return nil, err
	}

	rec := pipeline.PatientRecord{
		CancerStage:       in.Patient.CancerStage,
		CancerType:        in.Patient.CancerType,
		ERStatus:          in.Patient.ERStatus,
		PRStatus:          in.Patient.PRStatus,
		HER2Status:        in.Patient.HER2Status,
		TumorSizeCM:       in.Patient.TumorSizeCM,
		LymphNodePositive: in.Patient.LymphNodePositive,
		MenopausalStatus:  in.Patient.MenopausalStatus,
	}
	if dob := strings.TrimSpace(in.Patient.DateOfBirth); dob != "" {
		d, err := parseDate(dob)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "patient.date_of_birth: %v", err)
		}
		rec.DateOfBirth = &d
	}

	res, err := s.proc.Orchestrator().CompareTreatments(ctx, pipeline.ProfileFromPatient(rec, s.now()), in.Options)
	if err != nil {
		s.logger.Error("rpc.compare_treatments.failed", "options", len(in.Options), "error", err)
		return nil, toStatus(err)
	}
	return encodeStruct(res)
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
