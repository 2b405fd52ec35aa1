package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/radiology-reports/internal/entity"
	"github.com/joseph-ayodele/radiology-reports/internal/llm"
	"github.com/joseph-ayodele/radiology-reports/internal/repository"
)

const (
	sheetName       = "Analyses"
	defaultRowLimit = 500
	summaryMaxChars = 400
)

// Service produces XLSX bytes for ledger exports.
type Service struct {
	runs   repository.RunRepository
	logger *slog.Logger
}

func NewService(runs repository.RunRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{runs: runs, logger: logger}
}

var headers = []string{
	"Started At",
	"File",
	"Status",
	"Method",
	"Pages",
	"OCR Pages",
	"BI-RADS",
	"Confidence",
	"Breast Density",
	"Exam",
	"Red Flags",
	"Summary",
	"Error",
}

// AnalysesXLSX returns a workbook (as bytes) of the most recent runs, newest first.
// limit <= 0 uses a default cap.
func (s *Service) AnalysesXLSX(ctx context.Context, limit int) ([]byte, error) {
	start := time.Now()
	if limit <= 0 {
		limit = defaultRowLimit
	}

	runs, err := s.runs.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}

	for i, r := range runs {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheetName, cell, v)
		}

		write(1, r.StartedAt.UTC().Format(time.RFC3339))
		write(2, r.FilePath)
		write(3, string(r.Status))
		write(4, deref(r.Method))
		write(5, r.Pages)
		write(6, r.OCRPages)

		if a := s.decode(r); a != nil {
			if a.BIRADS.Value != nil {
				write(7, *a.BIRADS.Value)
			}
			write(8, a.BIRADS.Confidence)
			write(9, a.BreastDensity.Value)
			write(10, strings.TrimSpace(a.Exam.Type+" "+a.Exam.Laterality))
			write(11, strings.Join(a.RedFlags, "; "))
			write(12, truncate(a.Summary, summaryMaxChars))
		}
		write(13, deref(r.ErrorMessage))
	}

	_ = f.SetColWidth(sheetName, "A", "A", 22) // started
	_ = f.SetColWidth(sheetName, "B", "B", 60) // file
	_ = f.SetColWidth(sheetName, "C", "D", 12)
	_ = f.SetColWidth(sheetName, "E", "H", 10)
	_ = f.SetColWidth(sheetName, "I", "J", 20)
	_ = f.SetColWidth(sheetName, "K", "K", 36)
	_ = f.SetColWidth(sheetName, "L", "M", 60)
	_ = f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok", "rows", len(runs), "elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

func (s *Service) decode(r entity.AnalysisRun) *llm.StructuredAnalysis {
	if len(r.Analysis) == 0 {
		return nil
	}
	var a llm.StructuredAnalysis
	if err := json.Unmarshal(r.Analysis, &a); err != nil {
		s.logger.Warn("export.xlsx.bad_analysis", "run_id", r.ID, "error", err)
		return nil
	}
	return &a
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
