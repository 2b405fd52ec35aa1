package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/radiology-reports/constants"
)

// AnalysisRun is one pass of a report file through the pipeline (extract -> analyze).
type AnalysisRun struct {
	ID            uuid.UUID           `json:"id"`
	FilePath      string              `json:"file_path"`
	RequestID     string              `json:"request_id,omitempty"`
	Status        constants.RunStatus `json:"status"`
	StartedAt     time.Time           `json:"started_at"`
	FinishedAt    *time.Time          `json:"finished_at,omitempty"`
	Method        *string             `json:"method,omitempty"`
	Pages         int                 `json:"pages"`
	OCRPages      int                 `json:"ocr_pages"`
	TextChars     int                 `json:"text_chars"`
	Sufficient    bool                `json:"sufficient"`
	ExtractedText *string             `json:"extracted_text,omitempty"`
	Analysis      json.RawMessage     `json:"analysis,omitempty"`
	ModelName     *string             `json:"model_name,omitempty"`
	ErrorMessage  *string             `json:"error_message,omitempty"`
}

// Terminal reports whether the run can no longer change.
func (r AnalysisRun) Terminal() bool {
	return r.Status == constants.RunStatusAnalyzed || r.Status == constants.RunStatusFailed
}
