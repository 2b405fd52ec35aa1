package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/radiology-reports/internal/common"
)

func testConfig() *common.Config {
	return &common.Config{
		Database: common.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"},
		Server:   common.ServerConfig{GRPCAddr: ":0"},
		OCR:      common.OCRConfig{DPI: 300, MaxPages: 20},
		LLM:      common.LLMConfig{Model: "gpt-4o-mini", EvidenceMode: "lenient", Temperature: 0.1},
		Ingest:   common.IngestConfig{Workers: 1},
	}
}

func TestNew_WiresSQLiteStack(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := New(context.Background(), testConfig(), nil, logger)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "sqlite3", a.DB.Dialect)
	assert.NotNil(t, a.Processor.Orchestrator())
	assert.Same(t, a.Extractor, a.Processor.Extractor())

	runs, err := a.Runs.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestNew_RejectsEvidenceMode(t *testing.T) {
	cfg := testConfig()
	cfg.LLM.EvidenceMode = "off"
	_, err := New(context.Background(), cfg, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.ErrorIs(t, err, common.ErrConfig)
}
