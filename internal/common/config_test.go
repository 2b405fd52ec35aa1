package common

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (stand-in for testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadConfig_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DB_URL", "postgres://u:p@localhost:5432/db")
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, ":8080", cfg.Server.GRPCAddr)
	assert.Equal(t, 300, cfg.OCR.DPI)
	assert.Equal(t, 20, cfg.OCR.MaxPages)
	assert.Equal(t, 5*time.Minute, cfg.OCR.Timeout)
	assert.Equal(t, "strict", cfg.LLM.EvidenceMode)
	assert.InDelta(t, 0.1, cfg.LLM.Temperature, 1e-6)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("OCR_MAX_PAGES", "5")
	t.Setenv("OPENAI_TIMEOUT", "15s")
	t.Setenv("EVIDENCE_MODE", "lenient")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 5, cfg.OCR.MaxPages)
	assert.Equal(t, 15*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "lenient", cfg.LLM.EvidenceMode)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_ZeroTemperatureKept(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DB_URL", "postgres://u:p@localhost:5432/db")
	t.Setenv("OPENAI_TEMPERATURE", "0")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Zero(t, cfg.LLM.Temperature)
	assert.NoError(t, cfg.Validate())
}

func TestValidate_Errors(t *testing.T) {
	base := func() *Config {
		return &Config{
			Database: DatabaseConfig{Driver: "postgres", DSN: "postgres://x"},
			Server:   ServerConfig{GRPCAddr: ":8080"},
			OCR:      OCRConfig{DPI: 300, MaxPages: 20},
			LLM:      LLMConfig{EvidenceMode: "strict"},
			Ingest:   IngestConfig{Workers: 1},
		}
	}

	cases := map[string]func(c *Config){
		"missing dsn":   func(c *Config) { c.Database.DSN = "" },
		"bad driver":    func(c *Config) { c.Database.Driver = "mysql" },
		"low dpi":       func(c *Config) { c.OCR.DPI = 150 },
		"bad evidence":  func(c *Config) { c.LLM.EvidenceMode = "off" },
		"no workers":    func(c *Config) { c.Ingest.Workers = 0 },
		"no grpc addr":  func(c *Config) { c.Server.GRPCAddr = "" },
		"no page limit": func(c *Config) { c.OCR.MaxPages = 0 },
		"page cap over": func(c *Config) { c.OCR.MaxPages = 21 },
		"hot sampling":  func(c *Config) { c.LLM.Temperature = 1.5 },
		"negative temp": func(c *Config) { c.LLM.Temperature = -0.1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base()
			mutate(c)
			err := c.Validate()
			require.Error(t, err)

			var appErr *AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, CodeConfig, appErr.Code)
			assert.ErrorIs(t, err, ErrConfig)
		})
	}
}
