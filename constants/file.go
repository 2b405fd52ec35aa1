package constants

import "strings"

// PDF is the only source format the pipeline accepts.
const PDF = "PDF"

// AllowedExtensions holds the file extensions accepted for report ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsPDF reports whether ext (with or without the leading dot) names a PDF.
func IsPDF(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

// MapExtToFormat returns the source format for ext, or "" when unsupported.
func MapExtToFormat(ext string) string {
	if IsPDF(ext) {
		return PDF
	}
	return ""
}
