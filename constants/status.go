package constants

// RunStatus is the canonical status for rows in analysis_runs.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusQueued   RunStatus = "QUEUED"   // waiting for a worker
	RunStatusRunning  RunStatus = "RUNNING"  // in progress
	RunStatusTextOK   RunStatus = "TEXT_OK"  // stage 1 completed (text extracted)
	RunStatusAnalyzed RunStatus = "ANALYZED" // stage 2 completed (structured analysis)
	RunStatusFailed   RunStatus = "FAILED"   // terminal failure
)

// ReportStatusCompleted is the record status callers filter on before consolidation.
const ReportStatusCompleted = "completed"
