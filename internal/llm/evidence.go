package llm

import (
	"strings"
	"unicode"
)

// EvidenceMode decides what happens to evidence quotes that are not found in the source text.
type EvidenceMode string

const (
	// EvidenceStrict treats a non-verbatim quote as a malformed response.
	EvidenceStrict EvidenceMode = "strict"
	// EvidenceLenient drops non-verbatim quotes and keeps the rest of the analysis.
	EvidenceLenient EvidenceMode = "lenient"
)

func ParseEvidenceMode(s string) (EvidenceMode, bool) {
	switch EvidenceMode(strings.ToLower(strings.TrimSpace(s))) {
	case EvidenceStrict, "":
		return EvidenceStrict, true
	case EvidenceLenient:
		return EvidenceLenient, true
	}
	return "", false
}

var quoteReplacer = strings.NewReplacer(
	"‘", "'", "’", "'", "“", `"`, "”", `"`,
	"–", "-", "—", "-",
)

// normalizeForMatch folds case, typographic quotes and whitespace runs, so a quote that
// differs from the report only by line wrapping still counts as verbatim.
func normalizeForMatch(s string) string {
	s = quoteReplacer.Replace(strings.ToLower(s))
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// evidenceChecker finds quotes that do not occur in the source.
type evidenceChecker struct {
	source string
}

func newEvidenceChecker(source string) evidenceChecker {
	return evidenceChecker{source: normalizeForMatch(source)}
}

func (c evidenceChecker) verbatim(quote string) bool {
	q := normalizeForMatch(quote)
	q = strings.Trim(q, `"'`)
	return q == "" || strings.Contains(c.source, q)
}

// filter returns the quotes found in the source (blank quotes dropped) and those that were not.
func (c evidenceChecker) filter(quotes []string) (kept, rejected []string) {
	kept = make([]string, 0, len(quotes))
	for _, q := range quotes {
		if strings.TrimSpace(q) == "" {
			continue
		}
		if c.verbatim(q) {
			kept = append(kept, q)
		} else {
			rejected = append(rejected, q)
		}
	}
	return kept, rejected
}

// checkEvidence walks every evidence list of a. In lenient mode rejected quotes are removed;
// the rejected quotes are returned either way, keyed by field.
func checkEvidence(a *StructuredAnalysis, source string, mode EvidenceMode) map[string][]string {
	c := newEvidenceChecker(source)
	rejected := map[string][]string{}

	apply := func(field string, quotes *[]string) {
		kept, bad := c.filter(*quotes)
		if len(bad) > 0 {
			rejected[field] = append(rejected[field], bad...)
		}
		if mode == EvidenceLenient || len(bad) == 0 {
			*quotes = kept
		}
	}

	apply("birads", &a.BIRADS.Evidence)
	apply("breast_density", &a.BreastDensity.Evidence)
	apply("exam", &a.Exam.Evidence)
	apply("comparison", &a.Comparison.Evidence)
	for i := range a.Findings {
		apply("findings", &a.Findings[i].Evidence)
	}
	for i := range a.Recommendations {
		apply("recommendations", &a.Recommendations[i].Evidence)
	}
	return rejected
}
