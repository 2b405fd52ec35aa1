package llm

// StructuredAnalysis is what the clinical extractor returns for one report, plus the
// patient-facing summary appended by AnalyzeReport.
type StructuredAnalysis struct {
	BIRADS          BIRADS           `json:"birads"`
	BreastDensity   BreastDensity    `json:"breast_density"`
	Exam            Exam             `json:"exam"`
	Comparison      Comparison       `json:"comparison"`
	Findings        []Finding        `json:"findings"`
	Recommendations []Recommendation `json:"recommendations"`
	RedFlags        []string         `json:"red_flags"`
	Summary         string           `json:"summary,omitempty"`
}

type BIRADS struct {
	Value      *int     `json:"value"` // 0..6, nil when the report states none
	Confidence string   `json:"confidence"`
	Evidence   []string `json:"evidence"`
}

type BreastDensity struct {
	Value    string   `json:"value"`
	Evidence []string `json:"evidence"`
}

type Exam struct {
	Type       string   `json:"type"`
	Laterality string   `json:"laterality"`
	Evidence   []string `json:"evidence"`
}

type Comparison struct {
	PriorExamDate string   `json:"prior_exam_date"`
	Evidence      []string `json:"evidence"`
}

type Finding struct {
	Laterality  string   `json:"laterality"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	Assessment  string   `json:"assessment"`
	Evidence    []string `json:"evidence"`
}

type Recommendation struct {
	Action    string   `json:"action"`
	Timeframe string   `json:"timeframe"`
	Evidence  []string `json:"evidence"`
}

// ConsolidationResult describes a patient's progression across reports.
type ConsolidationResult struct {
	ConsolidatedSummary string   `json:"consolidated_summary"`
	OverallAssessment   string   `json:"overall_assessment"`
	ProgressionNotes    string   `json:"progression_notes"`
	KeyPatterns         []string `json:"key_patterns"`
}

type TreatmentComparison struct {
	Comparisons           []TreatmentScore `json:"comparisons"`
	OverallRecommendation string           `json:"overall_recommendation"`
	Disclaimer            string           `json:"disclaimer"`
}

type TreatmentScore struct {
	Treatment      string   `json:"treatment"`
	Score          int      `json:"score"` // 1..10
	EfficacyRate   string   `json:"efficacy_rate"`
	Benefits       []string `json:"benefits"`
	SideEffects    []string `json:"side_effects"`
	Duration       string   `json:"duration"`
	Considerations []string `json:"considerations"`
}

// PatientProfile is assembled by the caller; Age is derived from date of birth at call time.
type PatientProfile struct {
	CancerStage       string   `json:"cancer_stage,omitempty"`
	CancerType        string   `json:"cancer_type,omitempty"`
	ERStatus          string   `json:"er_status,omitempty"`
	PRStatus          string   `json:"pr_status,omitempty"`
	HER2Status        string   `json:"her2_status,omitempty"`
	TumorSizeCM       *float64 `json:"tumor_size_cm,omitempty"`
	LymphNodePositive *bool    `json:"lymph_node_positive,omitempty"`
	MenopausalStatus  string   `json:"menopausal_status,omitempty"`
	Age               *int     `json:"age,omitempty"`
}

// PriorReport is one completed report in a patient's history, oldest first.
type PriorReport struct {
	CreatedDate string    `json:"created_date"` // YYYY-MM-DD
	BIRADS      *int      `json:"birads"`
	Findings    []Finding `json:"findings"`
	Summary     string    `json:"summary"`
}
