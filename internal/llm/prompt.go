package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/radiology-reports/constants"
)

// System roles. Extraction accuracy and patient-facing tone are kept in separate personas.
var (
	extractorSystem = strings.Join([]string{
		"You are a clinical information extractor for breast imaging (mammography, ultrasound, MRI) reports.",
		"Return ONLY a single JSON object that matches the provided JSON Schema.",
		fmt.Sprintf("birads.value is the BI-RADS assessment category as an integer %d-%d; report subcategories 4A/4B/4C as 4.", constants.BIRADSMin, constants.BIRADSMax),
		"Use null for any value the report does not state. Never infer a category, density or date that is not written.",
		"Every 'evidence' entry MUST be copied verbatim from the report text: exact words, no paraphrasing, no ellipses.",
		"confidence is one of: " + strings.Join(constants.ConfidenceLevels(), ", ") + ".",
		"List red_flags only for findings that need prompt clinical attention (e.g., suspicious mass, BI-RADS 4-5, new malignancy). Use [] when there are none.",
	}, " ")

	communicatorSystem = strings.Join([]string{
		"You explain breast imaging results to patients.",
		"Write 2 to 4 short sentences in plain language, without medical jargon.",
		"Be honest about what the results show, and reassuring in tone; never minimize a finding that needs follow-up.",
		"Do not add diagnoses, numbers or advice that are not in the data. Encourage the patient to discuss results with their doctor.",
		`Return ONLY a JSON object of the form {"summary": "..."}.`,
	}, " ")

	consolidationSystem = strings.Join([]string{
		"You are a breast radiologist reviewing one patient's reports over time.",
		"The reports are listed oldest first; describe how the findings progressed between them.",
		"Highlight new, resolved, stable or worsening findings and changes in BI-RADS category.",
		"Return ONLY a single JSON object that matches the provided JSON Schema.",
	}, " ")

	treatmentSystem = strings.Join([]string{
		"You are an oncology decision-support assistant comparing breast cancer treatment options for a clinician.",
		fmt.Sprintf("Score each option from %d (poor fit) to %d (best fit) for this patient profile.", constants.MinTreatmentScore, constants.MaxTreatmentScore),
		"Return exactly one entry in 'comparisons' per treatment option, in the same order as given, using the option text as 'treatment'.",
		"Always include a 'disclaimer' stating that this is not medical advice and decisions belong to the care team.",
		"Return ONLY a single JSON object that matches the provided JSON Schema.",
	}, " ")
)

// BuildAnalysisPrompt embeds the report text and the target schema.
func BuildAnalysisPrompt(text string, maxChars int) (string, bool) {
	body, truncated := clip(strings.TrimSpace(text), maxChars)

	var b strings.Builder
	b.WriteString("Extract the structured findings from this radiology report.\n\n")
	b.WriteString("Report text:\n<<<\n")
	b.WriteString(body)
	if truncated {
		b.WriteString("\n…(truncated)")
	}
	b.WriteString("\n>>>\n\n")
	writeSchema(&b, BuildAnalysisJSONSchema())
	return b.String(), truncated
}

func BuildSummaryPrompt(data []byte) string {
	var b strings.Builder
	b.WriteString("Structured findings from the patient's report:\n")
	b.Write(data)
	b.WriteString("\n\n")
	writeSchema(&b, BuildSummaryJSONSchema())
	return b.String()
}

func BuildConsolidationPrompt(reports []PriorReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The patient has %d completed reports, oldest first:\n", len(reports))
	for i, r := range reports {
		fmt.Fprintf(&b, "\nReport %d (%s):\n", i+1, orDash(r.CreatedDate))
		b.WriteString(mustJSON(r))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	writeSchema(&b, BuildConsolidationJSONSchema())
	return b.String()
}

func BuildTreatmentPrompt(profile PatientProfile, options []string) string {
	var b strings.Builder
	b.WriteString("Patient profile:\n")
	b.WriteString(mustJSON(profile))
	b.WriteString("\n\nTreatment options, in order:\n")
	for i, o := range options {
		fmt.Fprintf(&b, "%d. %s\n", i+1, o)
	}
	b.WriteString("\n")
	writeSchema(&b, BuildTreatmentJSONSchema())
	return b.String()
}

func writeSchema(b *strings.Builder, schema map[string]any) {
	b.WriteString("Return ONLY JSON that matches this JSON Schema:\n")
	b.WriteString(mustJSON(schema))
}

// clip cuts s to at most max runes.
func clip(s string, max int) (string, bool) {
	if max <= 0 {
		return s, false
	}
	r := []rune(s)
	if len(r) <= max {
		return s, false
	}
	return string(r[:max]), true
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
