package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/joseph-ayodele/radiology-reports/constants"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	OCR      OCRConfig
	LLM      LLMConfig
	Ingest   IngestConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string // "postgres" | "sqlite"
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr    string
	MetricsAddr string
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Pdftoppm    string
	Tesseract   string
	TessdataDir string
	Lang        string
	DPI         int
	MaxPages    int
	Timeout     time.Duration
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Model        string
	BaseURL      string
	APIKey       string
	Temperature  float32
	Timeout      time.Duration
	MaxRetries   int
	EvidenceMode string // "strict" | "lenient"
}

// IngestConfig holds inbox and worker configuration
type IngestConfig struct {
	InboxDir       string
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration
	Debounce       time.Duration
}

// LoadConfig loads configuration from environment variables and an optional .env file.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DB_MAX_CONN_LIFETIME", 30*time.Minute)
	v.SetDefault("DB_MAX_CONN_IDLE_TIME", 5*time.Minute)
	v.SetDefault("DB_DIAL_TIMEOUT", 3*time.Second)
	v.SetDefault("DB_STATEMENT_TIMEOUT", time.Duration(0))
	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("METRICS_ADDR", ":9090")
	v.SetDefault("PDFTOPPM_BIN", "pdftoppm")
	v.SetDefault("TESSERACT_BIN", "tesseract")
	v.SetDefault("OCR_LANG", "eng")
	v.SetDefault("OCR_DPI", constants.OCRDPI)
	v.SetDefault("OCR_MAX_PAGES", constants.MaxOCRPages)
	v.SetDefault("OCR_TIMEOUT", 5*time.Minute)
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("OPENAI_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("OPENAI_TEMPERATURE", 0.1)
	v.SetDefault("OPENAI_TIMEOUT", 60*time.Second)
	v.SetDefault("OPENAI_MAX_RETRIES", 2)
	v.SetDefault("EVIDENCE_MODE", "strict")
	v.SetDefault("INBOX_DIR", "")
	v.SetDefault("WORKERS", 4)
	v.SetDefault("QUEUE_SIZE", 256)
	v.SetDefault("PROCESS_TIMEOUT", 10*time.Minute)
	v.SetDefault("WATCH_DEBOUNCE", 500*time.Millisecond)

	// Bind env vars explicitly so keys without defaults are picked up too.
	for _, k := range []string{"DB_URL", "OPENAI_API_KEY", "TESSDATA_PREFIX"} {
		_ = v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{
		Database: DatabaseConfig{
			Driver:           strings.ToLower(v.GetString("DB_DRIVER")),
			DSN:              v.GetString("DB_URL"),
			MaxConns:         v.GetInt32("DB_MAX_CONNS"),
			MinConns:         v.GetInt32("DB_MIN_CONNS"),
			MaxConnLifetime:  v.GetDuration("DB_MAX_CONN_LIFETIME"),
			MaxConnIdleTime:  v.GetDuration("DB_MAX_CONN_IDLE_TIME"),
			DialTimeout:      v.GetDuration("DB_DIAL_TIMEOUT"),
			StatementTimeout: v.GetDuration("DB_STATEMENT_TIMEOUT"),
		},
		Server: ServerConfig{
			GRPCAddr:    v.GetString("GRPC_ADDR"),
			MetricsAddr: v.GetString("METRICS_ADDR"),
		},
		OCR: OCRConfig{
			Pdftoppm:    v.GetString("PDFTOPPM_BIN"),
			Tesseract:   v.GetString("TESSERACT_BIN"),
			TessdataDir: v.GetString("TESSDATA_PREFIX"),
			Lang:        v.GetString("OCR_LANG"),
			DPI:         v.GetInt("OCR_DPI"),
			MaxPages:    v.GetInt("OCR_MAX_PAGES"),
			Timeout:     v.GetDuration("OCR_TIMEOUT"),
		},
		LLM: LLMConfig{
			Model:        v.GetString("OPENAI_MODEL"),
			BaseURL:      v.GetString("OPENAI_BASE_URL"),
			APIKey:       v.GetString("OPENAI_API_KEY"),
			Temperature:  float32(v.GetFloat64("OPENAI_TEMPERATURE")),
			Timeout:      v.GetDuration("OPENAI_TIMEOUT"),
			MaxRetries:   v.GetInt("OPENAI_MAX_RETRIES"),
			EvidenceMode: strings.ToLower(v.GetString("EVIDENCE_MODE")),
		},
		Ingest: IngestConfig{
			InboxDir:       v.GetString("INBOX_DIR"),
			Workers:        v.GetInt("WORKERS"),
			QueueSize:      v.GetInt("QUEUE_SIZE"),
			ProcessTimeout: v.GetDuration("PROCESS_TIMEOUT"),
			Debounce:       v.GetDuration("WATCH_DEBOUNCE"),
		},
	}
	return cfg, nil
}

// Validate validates the loaded configuration. The completion credential is not checked
// here: the client reads it at call time and fails before any network request.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" {
			return NewAppError(CodeConfig, "DB_URL is required for the postgres driver", ErrConfig)
		}
	case "sqlite":
	default:
		return NewAppError(CodeConfig, fmt.Sprintf("unsupported DB_DRIVER %q", c.Database.Driver), ErrConfig)
	}
	if c.Server.GRPCAddr == "" {
		return NewAppError(CodeConfig, "GRPC_ADDR is required", ErrConfig)
	}
	if c.OCR.DPI < constants.OCRDPI {
		return NewAppError(CodeConfig, fmt.Sprintf("OCR_DPI must be at least %d", constants.OCRDPI), ErrConfig)
	}
	if c.OCR.MaxPages <= 0 || c.OCR.MaxPages > constants.MaxOCRPages {
		return NewAppError(CodeConfig, fmt.Sprintf("OCR_MAX_PAGES must be between 1 and %d", constants.MaxOCRPages), ErrConfig)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 1 {
		return NewAppError(CodeConfig, "OPENAI_TEMPERATURE must be between 0 and 1", ErrConfig)
	}
	switch c.LLM.EvidenceMode {
	case "strict", "lenient":
	default:
		return NewAppError(CodeConfig, fmt.Sprintf("unsupported EVIDENCE_MODE %q", c.LLM.EvidenceMode), ErrConfig)
	}
	if c.Ingest.Workers <= 0 {
		return NewAppError(CodeConfig, "WORKERS must be positive", ErrConfig)
	}
	return nil
}
