package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Rasterizer renders a single 1-based page of a PDF to an image inside dir.
type Rasterizer interface {
	RenderPage(ctx context.Context, pdfPath string, page int, dir string) (string, error)
}

type popplerRasterizer struct {
	runner Runner
	bin    string
	dpi    int
}

func (p *popplerRasterizer) RenderPage(ctx context.Context, pdfPath string, page int, dir string) (string, error) {
	prefix := filepath.Join(dir, fmt.Sprintf("page-%03d", page))
	n := strconv.Itoa(page)
	// pdftoppm -r 300 -png -f N -l N -singlefile <in.pdf> <dir/page-NNN>
	_, errb, err := p.runner.Run(ctx, p.bin,
		"-r", strconv.Itoa(p.dpi), "-png", "-f", n, "-l", n, "-singlefile", pdfPath, prefix)
	if err != nil {
		return "", fmt.Errorf("pdftoppm page %d: %w (%s)", page, err, truncate(strings.TrimSpace(string(errb)), 256))
	}
	out := prefix + ".png"
	if _, statErr := os.Stat(out); statErr != nil {
		return "", fmt.Errorf("pdftoppm page %d produced no image: %v", page, statErr)
	}
	return out, nil
}
