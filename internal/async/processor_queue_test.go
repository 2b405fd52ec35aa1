package async

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/radiology-reports/internal/common"
	"github.com/joseph-ayodele/radiology-reports/internal/observability"
	"github.com/joseph-ayodele/radiology-reports/internal/pipeline"
)

type recordingProcessor struct {
	mu         sync.Mutex
	paths      []string
	requestIDs []string
	deadlines  []bool
	block      chan struct{}
	err        error
}

func (r *recordingProcessor) ProcessFile(ctx context.Context, path string) (pipeline.Outcome, error) {
	if r.block != nil {
		<-r.block
	}
	_, hasDeadline := ctx.Deadline()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	r.requestIDs = append(r.requestIDs, common.RequestIDFromContext(ctx))
	r.deadlines = append(r.deadlines, hasDeadline)
	return pipeline.Outcome{}, r.err
}

func (r *recordingProcessor) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestProcessorQueue_DrainsOnShutdown(t *testing.T) {
	proc := &recordingProcessor{err: errors.New("boom")}
	q := NewProcessorQueue(proc, quietLogger(), WithWorkers(3), WithQueueSize(16), WithProcessTimeout(time.Minute))

	paths := []string{"/a.pdf", "/b.pdf", "/c.pdf", "/d.pdf", "/e.pdf"}
	for _, p := range paths {
		require.NoError(t, q.Enqueue(context.Background(), Job{Path: p, RequestID: "req-" + p}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	assert.ElementsMatch(t, paths, proc.seen())
	for i, p := range proc.paths {
		assert.Equal(t, "req-"+p, proc.requestIDs[i])
		assert.True(t, proc.deadlines[i], "each job runs under the process timeout")
	}
}

func TestProcessorQueue_RejectsAfterShutdown(t *testing.T) {
	q := NewProcessorQueue(&recordingProcessor{}, quietLogger(), WithWorkers(1))
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	err := q.Enqueue(context.Background(), Job{Path: "/late.pdf"})
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestProcessorQueue_FullQueueHonoursContext(t *testing.T) {
	proc := &recordingProcessor{block: make(chan struct{})}
	m := observability.NewMetrics(nil)
	q := NewProcessorQueue(proc, quietLogger(), WithWorkers(1), WithQueueSize(1), WithQueueMetrics(m))

	// one job held by the worker, one filling the buffer
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "/1.pdf"}))
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.QueueDepth) == 0
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "/2.pdf"}))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueueDepth))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Enqueue(ctx, Job{Path: "/3.pdf"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(proc.block)
	q.Shutdown(context.Background())
	assert.ElementsMatch(t, []string{"/1.pdf", "/2.pdf"}, proc.seen())
}
