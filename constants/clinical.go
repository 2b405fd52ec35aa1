package constants

// Text sufficiency policy: below either threshold a text layer is treated as a scan.
const (
	MinTextChars  = 100
	MinTextWords  = 10
	MinWordLength = 3
)

// OCR fallback bounds.
const (
	MaxOCRPages = 20
	OCRDPI      = 300
)

// PageMarkerFormat prefixes every OCR page segment with its 1-based page number.
const PageMarkerFormat = "--- Page %d ---"

// BI-RADS assessment categories.
const (
	BIRADSMin = 0
	BIRADSMax = 6
)

// Treatment comparison bounds.
const (
	MinTreatmentOptions = 1
	MaxTreatmentOptions = 5
	MinTreatmentScore   = 1
	MaxTreatmentScore   = 10
)

// MinConsolidationReports is the smallest history that supports a progression narrative.
const MinConsolidationReports = 2

type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// ConfidenceLevels lists the accepted confidence values in ascending order.
func ConfidenceLevels() []string {
	return []string{string(ConfidenceLow), string(ConfidenceMedium), string(ConfidenceHigh)}
}
