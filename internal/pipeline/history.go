package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/joseph-ayodele/radiology-reports/constants"
	"github.com/joseph-ayodele/radiology-reports/internal/llm"
)

// ErrInsufficientHistory means fewer than two completed reports were available to consolidate.
var ErrInsufficientHistory = errors.New("pipeline: at least two completed reports are required")

const dateLayout = "2006-01-02"

// ReportRecord is one stored report for a patient as the caller holds it.
type ReportRecord struct {
	ID        string
	Status    string
	CreatedAt time.Time
	Analysis  *llm.StructuredAnalysis
}

// DateRange spans the creation dates of the consolidated reports.
type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// HistoryConsolidation is the consolidation result plus the metadata callers report with it.
type HistoryConsolidation struct {
	llm.ConsolidationResult
	ReportCount int       `json:"report_count"`
	DateRange   DateRange `json:"date_range"`
}

// PrepareHistory keeps completed reports that carry an analysis and orders them oldest first.
func PrepareHistory(records []ReportRecord) ([]llm.PriorReport, error) {
	kept := make([]ReportRecord, 0, len(records))
	for _, r := range records {
		if !strings.EqualFold(r.Status, constants.ReportStatusCompleted) || r.Analysis == nil {
			continue
		}
		kept = append(kept, r)
	}
	if len(kept) < constants.MinConsolidationReports {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientHistory, len(kept))
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].CreatedAt.Before(kept[j].CreatedAt) })

	out := make([]llm.PriorReport, 0, len(kept))
	for _, r := range kept {
		out = append(out, llm.PriorReport{
			CreatedDate: r.CreatedAt.Format(dateLayout),
			BIRADS:      r.Analysis.BIRADS.Value,
			Findings:    r.Analysis.Findings,
			Summary:     r.Analysis.Summary,
		})
	}
	return out, nil
}

// ConsolidateHistory prepares records and asks the orchestrator for a progression summary.
func (p *Processor) ConsolidateHistory(ctx context.Context, records []ReportRecord) (*HistoryConsolidation, error) {
	reports, err := PrepareHistory(records)
	if err != nil {
		p.logger.Warn("pipeline.consolidate.rejected", "records", len(records), "error", err)
		return nil, err
	}
	res, err := p.orch.ConsolidateReports(ctx, reports)
	if err != nil {
		return nil, fmt.Errorf("consolidate reports: %w", err)
	}
	out := &HistoryConsolidation{
		ConsolidationResult: *res,
		ReportCount:         len(reports),
		DateRange: DateRange{
			From: reports[0].CreatedDate,
			To:   reports[len(reports)-1].CreatedDate,
		},
	}
	p.logger.Info("pipeline.consolidate.ok", "reports", out.ReportCount,
		"from", out.DateRange.From, "to", out.DateRange.To)
	return out, nil
}
