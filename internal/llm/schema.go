package llm

import "github.com/joseph-ayodele/radiology-reports/constants"

// Schemas are JSON-Schema (draft 2020-12 subset) maps. They are embedded in the prompt so the
// model sees the target shape, and compiled once for local validation of every response.

func BuildAnalysisJSONSchema() map[string]any {
	finding := object(map[string]any{
		"laterality":  nullableString(),
		"location":    nullableString(),
		"description": map[string]any{"type": "string"},
		"assessment":  nullableString(),
		"evidence":    evidenceProp(),
	}, "description", "evidence")

	recommendation := object(map[string]any{
		"action":    map[string]any{"type": "string", "minLength": 1},
		"timeframe": nullableString(),
		"evidence":  evidenceProp(),
	}, "action", "evidence")

	props := map[string]any{
		"birads": object(map[string]any{
			"value": map[string]any{
				"type":    []any{"integer", "null"},
				"minimum": constants.BIRADSMin,
				"maximum": constants.BIRADSMax,
			},
			"confidence": map[string]any{"type": "string", "enum": constants.ConfidenceLevels()},
			"evidence":   evidenceProp(),
		}, "value", "confidence", "evidence"),
		"breast_density": object(map[string]any{
			"value":    nullableString(),
			"evidence": evidenceProp(),
		}, "value", "evidence"),
		"exam": object(map[string]any{
			"type":       nullableString(),
			"laterality": nullableString(),
			"evidence":   evidenceProp(),
		}, "type", "laterality", "evidence"),
		"comparison": object(map[string]any{
			"prior_exam_date": nullableString(),
			"evidence":        evidenceProp(),
		}, "prior_exam_date", "evidence"),
		"findings":        map[string]any{"type": "array", "items": finding},
		"recommendations": map[string]any{"type": "array", "items": recommendation},
		"red_flags":       stringArray(),
	}
	required := []string{"birads", "breast_density", "exam", "comparison", "findings", "recommendations", "red_flags"}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

func BuildSummaryJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"summary": map[string]any{"type": "string", "minLength": 1},
		},
		"required": []string{"summary"},
	}
}

func BuildConsolidationJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"consolidated_summary": map[string]any{"type": "string", "minLength": 1},
			"overall_assessment":   map[string]any{"type": "string"},
			"progression_notes":    map[string]any{"type": "string"},
			"key_patterns":         stringArray(),
		},
		"required": []string{"consolidated_summary", "overall_assessment", "progression_notes", "key_patterns"},
	}
}

func BuildTreatmentJSONSchema() map[string]any {
	entry := object(map[string]any{
		"treatment": map[string]any{"type": "string", "minLength": 1},
		"score": map[string]any{
			"type":    "integer",
			"minimum": constants.MinTreatmentScore,
			"maximum": constants.MaxTreatmentScore,
		},
		"efficacy_rate":  map[string]any{"type": "string"},
		"benefits":       stringArray(),
		"side_effects":   stringArray(),
		"duration":       map[string]any{"type": "string"},
		"considerations": stringArray(),
	}, "treatment", "score", "efficacy_rate", "benefits", "side_effects", "duration", "considerations")

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"comparisons": map[string]any{
				"type":     "array",
				"items":    entry,
				"minItems": constants.MinTreatmentOptions,
				"maxItems": constants.MaxTreatmentOptions,
			},
			"overall_recommendation": map[string]any{"type": "string"},
			"disclaimer":             map[string]any{"type": "string", "minLength": 1},
		},
		"required": []string{"comparisons", "overall_recommendation", "disclaimer"},
	}
}

func object(props map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func nullableString() map[string]any {
	return map[string]any{"type": []any{"string", "null"}}
}

func stringArray() map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
}

// evidence quotes must be copied verbatim from the report
func evidenceProp() map[string]any {
	return stringArray()
}
