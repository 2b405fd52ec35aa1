package ingest

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/radiology-reports/internal/async"
	"github.com/joseph-ayodele/radiology-reports/internal/common"
)

type memQueue struct {
	mu   sync.Mutex
	jobs []async.Job
	err  error
}

func (q *memQueue) Enqueue(_ context.Context, job async.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *memQueue) Shutdown(context.Context) {}

func (q *memQueue) paths() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []string
	for _, j := range q.jobs {
		out = append(out, j.Path)
	}
	return out
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func writeFile(t *testing.T, path, body string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestScanDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.pdf"), "b")
	writeFile(t, filepath.Join(root, "a.PDF"), "a")
	writeFile(t, filepath.Join(root, "notes.txt"), "x")
	writeFile(t, filepath.Join(root, "sub", "c.pdf"), "c")
	writeFile(t, filepath.Join(root, ".cache", "d.pdf"), "d")
	writeFile(t, filepath.Join(root, ".e.pdf"), "e")

	got, err := ScanDirectory(root, true)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.PDF"),
		filepath.Join(root, "b.pdf"),
		filepath.Join(root, "sub", "c.pdf"),
	}, got)

	all, err := ScanDirectory(root, false)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestScanDirectory_MissingRoot(t *testing.T) {
	_, err := ScanDirectory(filepath.Join(t.TempDir(), "nope"), true)
	assert.Error(t, err)

	_, err = ScanDirectory("  ", true)
	assert.Error(t, err)
}

func TestFSIngestor_DeduplicatesByContent(t *testing.T) {
	root := t.TempDir()
	a := writeFile(t, filepath.Join(root, "a.pdf"), "same bytes")
	b := writeFile(t, filepath.Join(root, "copy.pdf"), "same bytes")
	c := writeFile(t, filepath.Join(root, "c.pdf"), "other bytes")

	q := &memQueue{}
	ing := NewFSIngestor(q, quiet())
	ctx := common.WithRequestID(context.Background(), "req-1")

	r1, err := ing.IngestPath(ctx, a)
	require.NoError(t, err)
	assert.False(t, r1.Deduplicated)
	assert.Len(t, r1.HashHex, 64)

	r2, err := ing.IngestPath(ctx, b)
	require.NoError(t, err)
	assert.True(t, r2.Deduplicated)
	assert.Equal(t, r1.HashHex, r2.HashHex)

	_, err = ing.IngestPath(ctx, c)
	require.NoError(t, err)

	assert.Equal(t, []string{a, c}, q.paths())
	assert.Equal(t, "req-1", q.jobs[0].RequestID)
	assert.False(t, q.jobs[0].SubmittedAt.IsZero())
}

func TestFSIngestor_RejectsNonPDF(t *testing.T) {
	p := writeFile(t, filepath.Join(t.TempDir(), "x.docx"), "x")
	q := &memQueue{}
	_, err := NewFSIngestor(q, quiet()).IngestPath(context.Background(), p)
	require.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Empty(t, q.paths())
}

func TestFSIngestor_EnqueueFailureAllowsRetry(t *testing.T) {
	p := writeFile(t, filepath.Join(t.TempDir(), "a.pdf"), "x")
	q := &memQueue{err: async.ErrQueueClosed}
	ing := NewFSIngestor(q, quiet())

	_, err := ing.IngestPath(context.Background(), p)
	require.ErrorIs(t, err, async.ErrQueueClosed)

	q.err = nil
	r, err := ing.IngestPath(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, r.Deduplicated)
	assert.Equal(t, []string{p}, q.paths())
}

func TestFSIngestor_IngestDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.pdf"), "1")
	writeFile(t, filepath.Join(root, "b.pdf"), "1")
	writeFile(t, filepath.Join(root, "c.pdf"), "2")
	writeFile(t, filepath.Join(root, "readme.md"), "x")

	q := &memQueue{}
	results, stats, err := NewFSIngestor(q, quiet()).IngestDirectory(context.Background(), root, true)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, uint32(3), stats.Matched)
	assert.Equal(t, uint32(3), stats.Succeeded)
	assert.Equal(t, uint32(1), stats.Deduplicated)
	assert.Equal(t, uint32(0), stats.Failed)
	assert.Len(t, q.paths(), 2)
}

// cancelAfterFirst cancels the caller's context once the first job is queued.
type cancelAfterFirst struct {
	memQueue
	cancel context.CancelFunc
}

func (q *cancelAfterFirst) Enqueue(ctx context.Context, job async.Job) error {
	if err := q.memQueue.Enqueue(ctx, job); err != nil {
		return err
	}
	q.cancel()
	return nil
}

func TestFSIngestor_IngestDirectoryStopsOnCancel(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.pdf"), "1")
	writeFile(t, filepath.Join(root, "b.pdf"), "2")
	writeFile(t, filepath.Join(root, "c.pdf"), "3")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := &cancelAfterFirst{cancel: cancel}

	results, stats, err := NewFSIngestor(q, quiet()).IngestDirectory(ctx, root, true)
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, results, 1)
	assert.Equal(t, uint32(1), stats.Succeeded)
	assert.Equal(t, []string{filepath.Join(root, "a.pdf")}, q.paths())
}

func TestStartWatcher_InitialScanAndNewFiles(t *testing.T) {
	root := t.TempDir()
	existing := writeFile(t, filepath.Join(root, "old.pdf"), "old")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{
		Roots: []string{root}, InitialScan: true, Debounce: 50 * time.Millisecond, Logger: quiet(),
	})
	require.NoError(t, err)

	assert.Equal(t, existing, next(t, events))

	fresh := filepath.Join(root, "new.pdf")
	writeFile(t, fresh, "part one")
	require.NoError(t, os.WriteFile(fresh, []byte("part one and two"), 0o644))
	writeFile(t, filepath.Join(root, "ignored.txt"), "x")

	assert.Equal(t, fresh, next(t, events))
	select {
	case p := <-events:
		t.Fatalf("burst should collapse into one event, got extra %q", p)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	require.Eventually(t, func() bool {
		_, ok := <-events
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStartWatcher_NoRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{Logger: quiet()})
	assert.Error(t, err)
}

func next(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for watcher event")
		return ""
	}
}
