package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/radiology-reports/constants"
)

// AllowedExt checks if a file extension names a report format we accept.
func AllowedExt(ext string) bool {
	return constants.IsPDF(ext)
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return base != "." && strings.HasPrefix(base, ".")
}
