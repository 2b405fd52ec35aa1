package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/radiology-reports/internal/llm"
)

type stubClient struct{ err error }

func (s stubClient) CompleteJSON(context.Context, llm.CompletionRequest) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte(`{}`), nil
}

func TestInstrumentCompletions(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	ctx := context.Background()

	_, _ = InstrumentCompletions(stubClient{}, m).CompleteJSON(ctx, llm.CompletionRequest{Operation: llm.OpAnalyze})
	_, _ = InstrumentCompletions(stubClient{err: &llm.UpstreamError{StatusCode: 503}}, m).
		CompleteJSON(ctx, llm.CompletionRequest{Operation: llm.OpAnalyze})
	_, _ = InstrumentCompletions(stubClient{err: fmt.Errorf("wrap: %w", llm.ErrMissingCredentials)}, m).
		CompleteJSON(ctx, llm.CompletionRequest{Operation: llm.OpCompare})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CompletionsTotal.WithLabelValues(llm.OpAnalyze, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CompletionsTotal.WithLabelValues(llm.OpAnalyze, "upstream")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CompletionsTotal.WithLabelValues(llm.OpCompare, "credentials")))
}

func TestCompletionOutcome(t *testing.T) {
	assert.Equal(t, "malformed", CompletionOutcome(&llm.MalformedResponseError{Op: "x", Reason: "y"}))
	assert.Equal(t, "timeout", CompletionOutcome(context.DeadlineExceeded))
	assert.Equal(t, "error", CompletionOutcome(errors.New("boom")))
}

func TestRecordExtractionAndHandler(t *testing.T) {
	m := NewMetrics(nil)
	m.RecordExtraction("pdf-ocr", 20, 1, 5, 2*time.Second)
	m.RecordRun("ANALYZED")

	assert.Equal(t, 20.0, testutil.ToFloat64(m.OCRPagesTotal.WithLabelValues("recognized")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.OCRPagesTotal.WithLabelValues("skipped")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `radiology_runs_total{status="ANALYZED"} 1`))
	assert.Contains(t, body, "radiology_extractions_total")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRun("FAILED")
		m.RecordExtraction("pdf-text", 0, 0, 0, time.Second)
		m.RecordCompletion("analyze", nil, time.Second)
	})
	c := stubClient{}
	assert.Equal(t, llm.CompletionClient(c), InstrumentCompletions(c, nil))
}
