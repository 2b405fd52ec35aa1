package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// walkReports calls fn for every PDF under root; walk errors on single entries go to onErr
// and do not stop the walk. An error from fn stops it.
func walkReports(root string, skipHidden bool, stats *DirStats, fn func(path string) error, onErr func(path string, err error)) error {
	if strings.TrimSpace(root) == "" {
		return errors.New("root_path is required")
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			stats.Failed++
			onErr(path, walkErr)
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++
		return fn(path)
	})
}

// ScanDirectory lists the PDFs under root in lexical order.
func ScanDirectory(root string, skipHidden bool) ([]string, error) {
	var (
		paths []string
		stats DirStats
	)
	err := walkReports(root, skipHidden, &stats,
		func(path string) error {
			paths = append(paths, path)
			return nil
		},
		func(string, error) {},
	)
	if err != nil {
		return paths, fmt.Errorf("walk: %w", err)
	}
	return paths, nil
}
