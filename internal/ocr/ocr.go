package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/radiology-reports/constants"
)

// ErrUnreadable means the source PDF could not be read at all (missing, corrupt, not a PDF).
// It is the only failure Extract reports; every other condition degrades to best-effort text.
var ErrUnreadable = errors.New("ocr: source document is unreadable")

const (
	MethodText = "pdf-text"
	MethodOCR  = "pdf-ocr"
)

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string
	DPI           int // rasterization DPI for scanned PDFs, default 300
	MaxPages      int // OCR page cap, default and upper bound 20

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default

	MinChars int // sufficiency: minimum trimmed characters, default 100
	MinWords int // sufficiency: minimum tokens longer than 2 chars, default 10

	OCRTimeout time.Duration // bound for the whole OCR fallback, default 5m
}

type ExtractionResult struct {
	Text         string
	Pages        int // pages in the document
	OCRPages     int // pages that produced OCR text
	FailedPages  int // pages whose render or recognition failed
	SkippedPages int // pages beyond the OCR cap
	SourceType   string
	Method       string // MethodText | MethodOCR
	Sufficient   bool
	Language     string
	Duration     time.Duration
	Warnings     []string
}

// Option customizes an Extractor; mostly used to swap backends in tests.
type Option func(*Extractor)

func WithRunner(r Runner) Option { return func(e *Extractor) { e.runner = r } }
func WithTextLayer(t TextLayer) Option { return func(e *Extractor) { e.text = t } }
func WithPageCounter(p PageCounter) Option { return func(e *Extractor) { e.pages = p } }
func WithRasterizer(r Rasterizer) Option { return func(e *Extractor) { e.raster = r } }
func WithEngines(p EngineProvider) Option { return func(e *Extractor) { e.engines = p } }
func WithTempDirRoot(dir string) Option { return func(e *Extractor) { e.tempRoot = dir } }

type Extractor struct {
	cfg      Config
	runner   Runner
	text     TextLayer
	pages    PageCounter
	raster   Rasterizer
	engines  EngineProvider
	tempRoot string
	logger   *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI < constants.OCRDPI {
		cfg.DPI = constants.OCRDPI
	}
	if cfg.MaxPages <= 0 || cfg.MaxPages > constants.MaxOCRPages {
		cfg.MaxPages = constants.MaxOCRPages
	}
	if cfg.MinChars <= 0 {
		cfg.MinChars = constants.MinTextChars
	}
	if cfg.MinWords <= 0 {
		cfg.MinWords = constants.MinTextWords
	}
	if cfg.OCRTimeout <= 0 {
		cfg.OCRTimeout = 5 * time.Minute
	}

	e := &Extractor{cfg: cfg, logger: logger}
	for _, o := range opts {
		o(e)
	}
	if e.runner == nil {
		e.runner = execRunner{logger: logger}
	}
	if e.text == nil {
		e.text = pdfTextLayer{}
	}
	if e.pages == nil {
		e.pages = pdfcpuPageCounter{}
	}
	if e.raster == nil {
		e.raster = &popplerRasterizer{runner: e.runner, bin: cfg.Pdftoppm, dpi: cfg.DPI}
	}
	if e.engines == nil {
		e.engines = &TesseractProvider{
			Runner:      e.runner,
			Bin:         cfg.Tesseract,
			Lang:        cfg.TesseractLang,
			TessdataDir: cfg.TessdataDir,
			PSM:         cfg.PSM,
			OEM:         cfg.OEM,
		}
	}
	return e
}

// Extract returns the best text it can get out of the PDF at path: the embedded text layer
// when it looks like a real document, otherwise OCR of the rendered pages. It fails only with
// ErrUnreadable.
func (e *Extractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	start := time.Now()
	res := ExtractionResult{SourceType: constants.PDF, Language: e.cfg.TesseractLang}

	if ext := filepath.Ext(path); !constants.IsPDF(ext) {
		e.logger.Error("ocr.extract.unsupported", "path", path, "ext", ext)
		return res, fmt.Errorf("%w: unsupported extension %q", ErrUnreadable, ext)
	}

	e.logger.Debug("ocr.extract.start", "path", path)
	native, pages, err := e.text.ReadText(ctx, path)
	if err != nil {
		e.logger.Error("ocr.extract.unreadable", "path", path, "error", err)
		return res, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	res.Pages = pages

	if e.IsSufficient(native) {
		res.Text = native
		res.Method = MethodText
		res.Sufficient = true
		res.Duration = time.Since(start)
		e.logger.Info("ocr.extract.ok", "path", path, "method", res.Method, "pages", pages,
			"chars", len(native), "elapsed_ms", res.Duration.Milliseconds())
		return res, nil
	}

	e.logger.Info("ocr.extract.insufficient_text", "path", path, "chars", len(strings.TrimSpace(native)))
	fb, err := e.ocrPDF(ctx, path, pages)
	res.Warnings = append(res.Warnings, fb.warnings...)
	if err != nil {
		// OCR could not run at all; the text layer is still better than nothing.
		e.logger.Warn("ocr.extract.fallback_failed", "path", path, "error", err)
		res.Warnings = append(res.Warnings, err.Error())
	}
	if fb.pages > 0 {
		res.Pages = fb.pages
	}
	res.OCRPages = fb.recognized
	res.FailedPages = fb.failed
	res.SkippedPages = fb.skipped

	switch {
	case e.IsSufficient(fb.text):
		res.Text, res.Method, res.Sufficient = fb.text, MethodOCR, true
	case strings.TrimSpace(fb.text) != "":
		res.Text, res.Method = fb.text, MethodOCR
	default:
		res.Text, res.Method = native, MethodText
	}
	res.Duration = time.Since(start)

	e.logger.Info("ocr.extract.ok", "path", path, "method", res.Method, "pages", res.Pages,
		"ocr_pages", res.OCRPages, "skipped_pages", res.SkippedPages, "sufficient", res.Sufficient,
		"elapsed_ms", res.Duration.Milliseconds())
	return res, nil
}
