package ocr

import (
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/radiology-reports/constants"
)

// IsSufficient reports whether text looks like a real text-bearing document rather than the
// headers and footers a scanned PDF usually carries.
func (e *Extractor) IsSufficient(text string) bool {
	return sufficient(text, e.cfg.MinChars, e.cfg.MinWords)
}

// IsSufficient applies the default thresholds.
func IsSufficient(text string) bool {
	return sufficient(text, constants.MinTextChars, constants.MinTextWords)
}

func sufficient(text string, minChars, minWords int) bool {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < minChars {
		return false
	}
	words := 0
	for _, w := range strings.Fields(trimmed) {
		if utf8.RuneCountInString(w) >= constants.MinWordLength {
			words++
			if words >= minWords {
				return true
			}
		}
	}
	return false
}
