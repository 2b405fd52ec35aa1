package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var reFence = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// StripCodeFences removes a single markdown code fence around a JSON payload.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if m := reFence.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// array-valued keys that models like to send as null
var arrayKeys = map[string]struct{}{
	"evidence": {}, "findings": {}, "recommendations": {}, "red_flags": {}, "key_patterns": {},
	"comparisons": {}, "benefits": {}, "side_effects": {}, "considerations": {},
}

// NormalizeAndSanitizeJSON repairs formatting only; it never moves a value into range.
// - Drops unknown top-level keys (additionalProperties = false friendliness)
// - null arrays -> []
// - numeric strings -> integers for birads value and score ("4A" -> 4)
// - lowercases the confidence enum
// - numbers -> strings for efficacy_rate
func NormalizeAndSanitizeJSON(raw []byte, allowed map[string]struct{}, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(StripCodeFences(string(raw))), &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var changed []string
	if len(allowed) > 0 {
		for k := range maps.Clone(m) {
			if _, ok := allowed[k]; !ok {
				delete(m, k)
				changed = append(changed, k+"(unknown)")
			}
		}
	}
	sanitizeValue("", m, &changed)

	out, err := json.Marshal(m)
	if err != nil {
		return nil, changed, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(changed) > 0 {
		logger.Warn("llm.response.normalize_sanitize", "changed", changed)
	}
	return out, changed, nil
}

func sanitizeValue(path string, v any, changed *[]string) {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			p := k
			if path != "" {
				p = path + "." + k
			}
			if fixed, ok := sanitizeField(p, k, child); ok {
				t[k] = fixed
				*changed = append(*changed, p)
				child = fixed
			}
			sanitizeValue(p, child, changed)
		}
	case []any:
		for i, child := range t {
			sanitizeValue(fmt.Sprintf("%s[%d]", path, i), child, changed)
		}
	}
}

// sanitizeField returns a replacement for the value at key, if one applies.
func sanitizeField(path, key string, v any) (any, bool) {
	if _, ok := arrayKeys[key]; ok && v == nil {
		return []any{}, true
	}
	switch {
	case path == "birads.value":
		return coerceCategory(v)
	case key == "score":
		return coerceInt(v)
	case key == "confidence":
		if s, ok := v.(string); ok {
			if low := strings.ToLower(strings.TrimSpace(s)); low != s {
				return low, true
			}
		}
	case key == "efficacy_rate":
		if f, ok := v.(float64); ok {
			return strconv.FormatFloat(f, 'f', -1, 64), true
		}
	}
	return nil, false
}

var reSubcategory = regexp.MustCompile(`^(?i)(?:bi-?rads\s*)?([0-6])[abc]?$`)

// coerceCategory accepts "4", "4A" and "BI-RADS 4" for a category number. Fractions are left
// alone so validation rejects them.
func coerceCategory(v any) (any, bool) {
	s, ok := v.(string)
	if !ok {
		return nil, false
	}
	m := reSubcategory.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil, false
	}
	n, _ := strconv.Atoi(m[1])
	return float64(n), true
}

func coerceInt(v any) (any, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.Atoi(s); err == nil {
			return float64(n), true
		}
	case float64:
		if t != math.Trunc(t) && !math.IsInf(t, 0) && !math.IsNaN(t) {
			return math.Round(t), true
		}
	}
	return nil, false
}
