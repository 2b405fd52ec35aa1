package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/radiology-reports/constants"
	"github.com/joseph-ayodele/radiology-reports/internal/common"
	"github.com/joseph-ayodele/radiology-reports/internal/entity"
)

// TextOutcome is what stage 1 records on a run.
type TextOutcome struct {
	Text       string
	Method     string
	Pages      int
	OCRPages   int
	Sufficient bool
}

type RunRepository interface {
	Start(ctx context.Context, filePath string) (*entity.AnalysisRun, error)
	FinishText(ctx context.Context, runID uuid.UUID, out TextOutcome) error
	FinishAnalysis(ctx context.Context, runID uuid.UUID, analysis json.RawMessage, modelName string) error
	FinishFailure(ctx context.Context, runID uuid.UUID, message string) error
	Get(ctx context.Context, runID uuid.UUID) (*entity.AnalysisRun, error)
	ListRecent(ctx context.Context, limit int) ([]entity.AnalysisRun, error)
}

type runRepo struct {
	db  *DB
	log *slog.Logger
	now func() time.Time
}

func NewRunRepository(db *DB, log *slog.Logger) RunRepository {
	if log == nil {
		log = slog.Default()
	}
	return &runRepo{db: db, log: log, now: func() time.Time { return time.Now().UTC() }}
}

var runColumns = []string{
	"id", "file_path", "request_id", "status", "started_at", "finished_at", "method", "pages",
	"ocr_pages", "text_chars", "sufficient", "extracted_text", "analysis", "model_name", "error_message",
}

func (r *runRepo) Start(ctx context.Context, filePath string) (*entity.AnalysisRun, error) {
	run := &entity.AnalysisRun{
		ID:        uuid.New(),
		FilePath:  filePath,
		RequestID: common.RequestIDFromContext(ctx),
		Status:    constants.RunStatusRunning,
		StartedAt: r.now(),
	}
	q, args := entsql.Dialect(r.db.Dialect).
		Insert(runsTable).
		Columns("id", "file_path", "request_id", "status", "started_at").
		Values(run.ID.String(), run.FilePath, nullString(run.RequestID), string(run.Status), run.StartedAt).
		Query()
	if err := r.db.Driver.Exec(ctx, q, args, nil); err != nil {
		r.log.Error("analysis_run start failed", "file_path", filePath, "err", err)
		return nil, fmt.Errorf("%w: start run: %v", common.ErrDatabase, err)
	}
	r.log.Info("analysis_run started", "run_id", run.ID, "file_path", filePath)
	return run, nil
}

func (r *runRepo) FinishText(ctx context.Context, runID uuid.UUID, out TextOutcome) error {
	u := entsql.Dialect(r.db.Dialect).
		Update(runsTable).
		Set("status", string(constants.RunStatusTextOK)).
		Set("method", nullString(out.Method)).
		Set("pages", out.Pages).
		Set("ocr_pages", out.OCRPages).
		Set("text_chars", len([]rune(out.Text))).
		Set("sufficient", out.Sufficient).
		Set("extracted_text", out.Text).
		Where(entsql.And(
			entsql.EQ("id", runID.String()),
			entsql.EQ("status", string(constants.RunStatusRunning)),
		))
	if err := r.update(ctx, runID, u); err != nil {
		r.log.Error("analysis_run finish(TEXT_OK) failed", "run_id", runID, "err", err)
		return err
	}
	r.log.Info("analysis_run text stored", "run_id", runID, "method", out.Method, "pages", out.Pages)
	return nil
}

func (r *runRepo) FinishAnalysis(ctx context.Context, runID uuid.UUID, analysis json.RawMessage, modelName string) error {
	u := entsql.Dialect(r.db.Dialect).
		Update(runsTable).
		Set("status", string(constants.RunStatusAnalyzed)).
		Set("analysis", string(analysis)).
		Set("model_name", nullString(modelName)).
		Set("finished_at", r.now()).
		Where(entsql.And(
			entsql.EQ("id", runID.String()),
			entsql.EQ("status", string(constants.RunStatusTextOK)),
		))
	if err := r.update(ctx, runID, u); err != nil {
		r.log.Error("analysis_run finish(ANALYZED) failed", "run_id", runID, "err", err)
		return err
	}
	r.log.Info("analysis_run finished (ANALYZED)", "run_id", runID)
	return nil
}

func (r *runRepo) FinishFailure(ctx context.Context, runID uuid.UUID, message string) error {
	u := entsql.Dialect(r.db.Dialect).
		Update(runsTable).
		Set("status", string(constants.RunStatusFailed)).
		Set("error_message", message).
		Set("finished_at", r.now()).
		Where(entsql.And(
			entsql.EQ("id", runID.String()),
			entsql.In("status",
				string(constants.RunStatusQueued),
				string(constants.RunStatusRunning),
				string(constants.RunStatusTextOK),
			),
		))
	if err := r.update(ctx, runID, u); err != nil {
		r.log.Error("analysis_run finish(FAILED) failed", "run_id", runID, "err", err)
		return err
	}
	r.log.Warn("analysis_run finished (FAILED)", "run_id", runID, "error", message)
	return nil
}

// update runs u and maps "no row in the expected state" to ErrNotFound.
func (r *runRepo) update(ctx context.Context, runID uuid.UUID, u *entsql.UpdateBuilder) error {
	q, args := u.Query()
	var res sql.Result
	if err := r.db.Driver.Exec(ctx, q, args, &res); err != nil {
		return fmt.Errorf("%w: update run: %v", common.ErrDatabase, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", common.ErrDatabase, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: run %s in expected state", common.ErrNotFound, runID)
	}
	return nil
}

func (r *runRepo) Get(ctx context.Context, runID uuid.UUID) (*entity.AnalysisRun, error) {
	b := entsql.Dialect(r.db.Dialect)
	q, args := b.Select(runColumns...).
		From(b.Table(runsTable)).
		Where(entsql.EQ("id", runID.String())).
		Limit(1).
		Query()
	runs, err := r.query(ctx, q, args)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: run %s", common.ErrNotFound, runID)
	}
	return &runs[0], nil
}

func (r *runRepo) ListRecent(ctx context.Context, limit int) ([]entity.AnalysisRun, error) {
	if limit <= 0 {
		limit = 100
	}
	b := entsql.Dialect(r.db.Dialect)
	q, args := b.Select(runColumns...).
		From(b.Table(runsTable)).
		OrderBy(entsql.Desc("started_at"), entsql.Desc("id")).
		Limit(limit).
		Query()
	return r.query(ctx, q, args)
}

func (r *runRepo) query(ctx context.Context, q string, args []any) ([]entity.AnalysisRun, error) {
	rows := &entsql.Rows{}
	if err := r.db.Driver.Query(ctx, q, args, rows); err != nil {
		return nil, fmt.Errorf("%w: query runs: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []entity.AnalysisRun
	for rows.Next() {
		var (
			run                                                  entity.AnalysisRun
			id, status                                           string
			requestID, method, text, analysis, model, errMessage sql.NullString
			finished                                             sql.NullTime
		)
		if err := rows.Scan(&id, &run.FilePath, &requestID, &status, &run.StartedAt, &finished, &method,
			&run.Pages, &run.OCRPages, &run.TextChars, &run.Sufficient, &text, &analysis, &model, &errMessage); err != nil {
			return nil, fmt.Errorf("%w: scan run: %v", common.ErrDatabase, err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("%w: bad run id %q: %v", common.ErrDatabase, id, err)
		}
		run.ID = parsed
		run.Status = constants.RunStatus(status)
		run.RequestID = requestID.String
		run.Method = ptr(method)
		run.ExtractedText = ptr(text)
		run.ModelName = ptr(model)
		run.ErrorMessage = ptr(errMessage)
		if analysis.Valid && analysis.String != "" {
			run.Analysis = json.RawMessage(analysis.String)
		}
		if finished.Valid {
			t := finished.Time
			run.FinishedAt = &t
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate runs: %v", common.ErrDatabase, err)
	}
	return out, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func ptr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
