package ocr

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joseph-ayodele/radiology-reports/constants"
)

type ocrOutcome struct {
	text       string
	pages      int
	recognized int
	failed     int
	skipped    int
	warnings   []string
}

// ocrPDF rasterizes and recognizes pages 1..MaxPages in order. Page failures become warnings;
// only setup failures (no page count, no temp dir, no engine) are returned as errors.
func (e *Extractor) ocrPDF(ctx context.Context, path string, nativePages int) (out ocrOutcome, err error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.OCRTimeout)
	defer cancel()

	total, perr := e.pages.PageCount(ctx, path)
	if perr != nil || total <= 0 {
		if nativePages <= 0 {
			return out, fmt.Errorf("ocr page count: %v", perr)
		}
		e.logger.Debug("ocr.pdf.page_count_fallback", "path", path, "pages", nativePages, "error", perr)
		total = nativePages
	}
	out.pages = total

	limit := total
	if limit > e.cfg.MaxPages {
		limit = e.cfg.MaxPages
		out.skipped = total - limit
		e.logger.Info("ocr.pdf.page_cap", "path", path, "pages", total, "processed", limit, "skipped", out.skipped)
	}

	tmpDir, err := os.MkdirTemp(e.tempRoot, "rr-ocr-*")
	if err != nil {
		return out, fmt.Errorf("ocr temp dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			e.logger.Warn("ocr.pdf.cleanup_failed", "dir", tmpDir, "error", rmErr)
		}
	}()

	engine, err := e.engines.Open(ctx)
	if err != nil {
		return out, fmt.Errorf("ocr engine: %w", err)
	}
	defer func() {
		if cErr := engine.Close(); cErr != nil {
			e.logger.Warn("ocr.pdf.engine_close_failed", "error", cErr)
		}
	}()

	segments := make([]string, 0, limit)
	for page := 1; page <= limit; page++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			out.warnings = append(out.warnings, fmt.Sprintf("ocr stopped before page %d: %v", page, ctxErr))
			e.logger.Warn("ocr.pdf.stopped", "path", path, "page", page, "error", ctxErr)
			break
		}
		txt, pErr := e.recognizePage(ctx, engine, path, page, tmpDir)
		if pErr != nil {
			out.failed++
			out.warnings = append(out.warnings, pErr.Error())
			e.logger.Warn("ocr.pdf.page_failed", "path", path, "page", page, "error", pErr)
			continue
		}
		out.recognized++
		segments = append(segments, fmt.Sprintf(constants.PageMarkerFormat, page)+"\n"+txt)
	}
	out.text = strings.Join(segments, "\n\n")
	return out, nil
}

func (e *Extractor) recognizePage(ctx context.Context, engine Engine, path string, page int, dir string) (string, error) {
	img, err := e.raster.RenderPage(ctx, path, page, dir)
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(img) }()

	txt, err := engine.Recognize(ctx, img)
	if err != nil {
		return "", fmt.Errorf("page %d: %w", page, err)
	}
	return Normalize(txt), nil
}
