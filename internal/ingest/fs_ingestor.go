package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joseph-ayodele/radiology-reports/internal/async"
	"github.com/joseph-ayodele/radiology-reports/internal/common"
)

// FSIngestor reads from the local filesystem and submits each new PDF to the queue once per
// distinct content hash.
type FSIngestor struct {
	Queue  async.Queue
	Logger *slog.Logger

	mu   sync.Mutex
	seen map[string]string // hash -> first path
}

func NewFSIngestor(q async.Queue, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{Queue: q, Logger: logger, seen: map[string]string{}}
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	out := IngestionResult{SourcePath: path}

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	out.SourcePath = abs

	if ext := filepath.Ext(abs); !AllowedExt(ext) {
		i.Logger.Warn("ingest.path.unsupported", "path", abs, "ext", ext)
		return out, fmt.Errorf("%w: unsupported or missing extension %q", common.ErrInvalidInput, ext)
	}

	sum, err := hashFile(abs)
	if err != nil {
		i.Logger.Error("ingest.path.hash_failed", "path", abs, "error", err)
		return out, err
	}
	out.HashHex = sum

	i.mu.Lock()
	first, dup := i.seen[sum]
	if !dup {
		i.seen[sum] = abs
	}
	i.mu.Unlock()
	if dup {
		out.Deduplicated = true
		i.Logger.Info("ingest.path.duplicate", "path", abs, "first_path", first, "hash", sum)
		return out, nil
	}

	reqID := common.RequestIDFromContext(ctx)
	out.SubmittedAt = time.Now().UTC()
	if err := i.Queue.Enqueue(ctx, async.Job{Path: abs, SubmittedAt: out.SubmittedAt, RequestID: reqID}); err != nil {
		// allow a retry of the same content later
		i.mu.Lock()
		delete(i.seen, sum)
		i.mu.Unlock()
		return out, fmt.Errorf("enqueue: %w", err)
	}
	i.Logger.Info("ingest.path.queued", "path", abs, "hash", sum)
	return out, nil
}

// IngestDirectory walks root, skips hidden entries if requested, and calls IngestPath for each
// PDF. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	var (
		results []IngestionResult
		stats   DirStats
	)
	err := walkReports(root, skipHidden, &stats,
		func(path string) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := i.IngestPath(ctx, path)
			if err != nil {
				r.Err = err.Error()
				results = append(results, r)
				stats.Failed++
				return nil
			}
			results = append(results, r)
			stats.Succeeded++
			if r.Deduplicated {
				stats.Deduplicated++
			}
			return nil
		},
		func(path string, err error) {
			results = append(results, IngestionResult{SourcePath: path, Err: err.Error()})
		},
	)
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	i.Logger.Info("ingest.directory.ok", "root", root, "matched", stats.Matched,
		"succeeded", stats.Succeeded, "deduplicated", stats.Deduplicated, "failed", stats.Failed)
	return results, stats, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
