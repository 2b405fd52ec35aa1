package ocr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reportText = "FINDINGS: There is a spiculated mass in the upper outer quadrant of the right breast " +
	"measuring approximately twelve millimeters. IMPRESSION: Suspicious abnormality. BI-RADS 4."

type fakeTextLayer struct {
	text  string
	pages int
	err   error
}

func (f fakeTextLayer) ReadText(context.Context, string) (string, int, error) {
	return f.text, f.pages, f.err
}

type fakePageCounter struct {
	n   int
	err error
}

func (f fakePageCounter) PageCount(context.Context, string) (int, error) { return f.n, f.err }

// fakeRasterizer writes a real file per page so cleanup can be asserted.
type fakeRasterizer struct {
	mu       sync.Mutex
	rendered []int
	dirs     map[string]struct{}
	failOn   map[int]bool
}

func (f *fakeRasterizer) RenderPage(_ context.Context, _ string, page int, dir string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rendered = append(f.rendered, page)
	if f.dirs == nil {
		f.dirs = map[string]struct{}{}
	}
	f.dirs[dir] = struct{}{}
	if f.failOn[page] {
		return "", fmt.Errorf("render page %d failed", page)
	}
	img := filepath.Join(dir, fmt.Sprintf("page-%03d.png", page))
	if err := os.WriteFile(img, []byte(fmt.Sprintf("page %d", page)), 0o600); err != nil {
		return "", err
	}
	return img, nil
}

type fakeEngine struct {
	p *fakeProvider
}

func (e *fakeEngine) Recognize(_ context.Context, img string) (string, error) {
	b, err := os.ReadFile(img)
	if err != nil {
		return "", err
	}
	var page int
	_, _ = fmt.Sscanf(string(b), "page %d", &page)
	if e.p.failOn[page] {
		return "", errors.New("recognition failed")
	}
	return fmt.Sprintf("Text of page %d. %s", page, reportText), nil
}

func (e *fakeEngine) Close() error {
	e.p.mu.Lock()
	defer e.p.mu.Unlock()
	e.p.closed++
	return nil
}

type fakeProvider struct {
	mu      sync.Mutex
	opened  int
	closed  int
	openErr error
	failOn  map[int]bool
}

func (p *fakeProvider) Open(context.Context) (Engine, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.openErr != nil {
		return nil, p.openErr
	}
	p.opened++
	return &fakeEngine{p: p}, nil
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestExtractor(t *testing.T, tl TextLayer, pc PageCounter, r Rasterizer, p EngineProvider) (*Extractor, string) {
	t.Helper()
	root := t.TempDir()
	e := NewExtractor(Config{}, discardLogger(),
		WithTextLayer(tl),
		WithPageCounter(pc),
		WithRasterizer(r),
		WithEngines(p),
		WithTempDirRoot(root),
	)
	return e, root
}

func pdfPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "report.pdf")
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary OCR artifacts must be removed")
}

func TestExtract_NativeTextReturnedUnchanged(t *testing.T) {
	native := "  " + reportText + "\n\n"
	prov := &fakeProvider{}
	raster := &fakeRasterizer{}
	e, _ := newTestExtractor(t, fakeTextLayer{text: native, pages: 2}, fakePageCounter{n: 2}, raster, prov)

	res, err := e.Extract(context.Background(), pdfPath(t))
	require.NoError(t, err)

	assert.Equal(t, native, res.Text)
	assert.Equal(t, MethodText, res.Method)
	assert.True(t, res.Sufficient)
	assert.Equal(t, 2, res.Pages)
	assert.Zero(t, prov.opened, "OCR must not run when the text layer is sufficient")
	assert.Empty(t, raster.rendered)
}

func TestExtract_OCRFallbackMarksPagesInOrder(t *testing.T) {
	prov := &fakeProvider{}
	raster := &fakeRasterizer{}
	e, root := newTestExtractor(t, fakeTextLayer{text: "Page 1", pages: 3}, fakePageCounter{n: 3}, raster, prov)

	res, err := e.Extract(context.Background(), pdfPath(t))
	require.NoError(t, err)

	assert.Equal(t, MethodOCR, res.Method)
	assert.True(t, res.Sufficient)
	assert.Equal(t, 3, res.OCRPages)
	assert.Equal(t, []int{1, 2, 3}, raster.rendered)
	require.True(t, strings.HasPrefix(res.Text, "--- Page 1 ---\n"))

	i1 := strings.Index(res.Text, "--- Page 1 ---")
	i2 := strings.Index(res.Text, "--- Page 2 ---")
	i3 := strings.Index(res.Text, "--- Page 3 ---")
	assert.True(t, i1 < i2 && i2 < i3, "pages must appear in ascending order")

	assert.Equal(t, 1, prov.opened, "one engine per extraction")
	assert.Equal(t, 1, prov.closed)
	assertEmptyDir(t, root)
}

func TestExtract_PageCap(t *testing.T) {
	prov := &fakeProvider{}
	raster := &fakeRasterizer{}
	e, root := newTestExtractor(t, fakeTextLayer{pages: 25}, fakePageCounter{n: 25}, raster, prov)

	res, err := e.Extract(context.Background(), pdfPath(t))
	require.NoError(t, err)

	assert.Len(t, raster.rendered, 20)
	assert.Equal(t, 20, raster.rendered[len(raster.rendered)-1])
	assert.Equal(t, 25, res.Pages)
	assert.Equal(t, 20, res.OCRPages)
	assert.Equal(t, 5, res.SkippedPages)
	assert.Contains(t, res.Text, "--- Page 20 ---")
	assert.NotContains(t, res.Text, "--- Page 21 ---")
	assertEmptyDir(t, root)
}

func TestExtract_TwentyPageScanFullyProcessed(t *testing.T) {
	prov := &fakeProvider{}
	raster := &fakeRasterizer{}
	e, root := newTestExtractor(t, fakeTextLayer{pages: 20}, fakePageCounter{n: 20}, raster, prov)

	res, err := e.Extract(context.Background(), pdfPath(t))
	require.NoError(t, err)

	assert.Len(t, raster.rendered, 20)
	assert.Equal(t, 20, res.Pages)
	assert.Equal(t, 20, res.OCRPages)
	assert.Zero(t, res.SkippedPages)
	assert.Contains(t, res.Text, "--- Page 1 ---")
	assert.Contains(t, res.Text, "--- Page 20 ---")
	assertEmptyDir(t, root)
}

func TestExtract_PageCapCannotBeRaised(t *testing.T) {
	raster := &fakeRasterizer{}
	root := t.TempDir()
	e := NewExtractor(Config{MaxPages: 50}, discardLogger(),
		WithTextLayer(fakeTextLayer{pages: 25}),
		WithPageCounter(fakePageCounter{n: 25}),
		WithRasterizer(raster),
		WithEngines(&fakeProvider{}),
		WithTempDirRoot(root),
	)

	res, err := e.Extract(context.Background(), pdfPath(t))
	require.NoError(t, err)
	assert.Len(t, raster.rendered, 20)
	assert.Equal(t, 5, res.SkippedPages)
}

// blockingRasterizer never finishes a page on its own.
type blockingRasterizer struct {
	calls int
}

func (b *blockingRasterizer) RenderPage(ctx context.Context, _ string, _ int, _ string) (string, error) {
	b.calls++
	<-ctx.Done()
	return "", ctx.Err()
}

func TestExtract_OCRTimeoutBoundsFallback(t *testing.T) {
	prov := &fakeProvider{}
	raster := &blockingRasterizer{}
	root := t.TempDir()
	e := NewExtractor(Config{OCRTimeout: 50 * time.Millisecond}, discardLogger(),
		WithTextLayer(fakeTextLayer{text: "Scanned", pages: 3}),
		WithPageCounter(fakePageCounter{n: 3}),
		WithRasterizer(raster),
		WithEngines(prov),
		WithTempDirRoot(root),
	)

	start := time.Now()
	res, err := e.Extract(context.Background(), pdfPath(t))
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	assert.Equal(t, 1, raster.calls, "no page is started after the deadline")
	assert.Equal(t, "Scanned", res.Text)
	assert.False(t, res.Sufficient)
	assert.Equal(t, 1, res.FailedPages)
	assert.Zero(t, res.OCRPages)
	assert.Equal(t, 1, prov.opened)
	assert.Equal(t, 1, prov.closed)
	assertEmptyDir(t, root)
}

func TestExtract_PageFailuresAreTolerated(t *testing.T) {
	prov := &fakeProvider{failOn: map[int]bool{2: true}}
	raster := &fakeRasterizer{failOn: map[int]bool{3: true}}
	e, root := newTestExtractor(t, fakeTextLayer{pages: 4}, fakePageCounter{n: 4}, raster, prov)

	res, err := e.Extract(context.Background(), pdfPath(t))
	require.NoError(t, err)

	assert.Equal(t, 2, res.OCRPages)
	assert.Equal(t, 2, res.FailedPages)
	assert.Contains(t, res.Text, "--- Page 1 ---")
	assert.NotContains(t, res.Text, "--- Page 2 ---")
	assert.NotContains(t, res.Text, "--- Page 3 ---")
	assert.Contains(t, res.Text, "--- Page 4 ---")
	assert.Len(t, res.Warnings, 2)
	assert.Equal(t, 1, prov.closed)
	assertEmptyDir(t, root)
}

func TestExtract_AllPagesFailFallsBackToNative(t *testing.T) {
	prov := &fakeProvider{failOn: map[int]bool{1: true, 2: true}}
	e, root := newTestExtractor(t, fakeTextLayer{text: "Scanned", pages: 2}, fakePageCounter{n: 2}, &fakeRasterizer{}, prov)

	res, err := e.Extract(context.Background(), pdfPath(t))
	require.NoError(t, err)

	assert.Equal(t, "Scanned", res.Text)
	assert.Equal(t, MethodText, res.Method)
	assert.False(t, res.Sufficient)
	assert.Equal(t, 1, prov.closed)
	assertEmptyDir(t, root)
}

func TestExtract_EngineUnavailableStillReturnsText(t *testing.T) {
	prov := &fakeProvider{openErr: errors.New("tesseract not installed")}
	e, root := newTestExtractor(t, fakeTextLayer{text: "", pages: 1}, fakePageCounter{n: 1}, &fakeRasterizer{}, prov)

	res, err := e.Extract(context.Background(), pdfPath(t))
	require.NoError(t, err)

	assert.Equal(t, "", res.Text)
	assert.False(t, res.Sufficient)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[len(res.Warnings)-1], "tesseract not installed")
	assertEmptyDir(t, root)
}

func TestExtract_PageCountFallsBackToTextLayer(t *testing.T) {
	raster := &fakeRasterizer{}
	e, _ := newTestExtractor(t, fakeTextLayer{pages: 2}, fakePageCounter{err: errors.New("bad xref")}, raster, &fakeProvider{})

	res, err := e.Extract(context.Background(), pdfPath(t))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, raster.rendered)
	assert.Equal(t, 2, res.OCRPages)
}

func TestExtract_Unreadable(t *testing.T) {
	e, _ := newTestExtractor(t, fakeTextLayer{err: errors.New("malformed PDF")}, fakePageCounter{}, &fakeRasterizer{}, &fakeProvider{})

	_, err := e.Extract(context.Background(), pdfPath(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestExtract_RejectsNonPDF(t *testing.T) {
	prov := &fakeProvider{}
	e, _ := newTestExtractor(t, fakeTextLayer{text: reportText}, fakePageCounter{}, &fakeRasterizer{}, prov)

	_, err := e.Extract(context.Background(), filepath.Join(t.TempDir(), "report.docx"))
	assert.ErrorIs(t, err, ErrUnreadable)
	assert.Zero(t, prov.opened)
}

func TestExtract_MissingFileWithRealParser(t *testing.T) {
	e := NewExtractor(Config{}, discardLogger(), WithEngines(&fakeProvider{}))

	_, err := e.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestExtract_CorruptFileWithRealParser(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is not a pdf"), 0o600))
	e := NewExtractor(Config{}, discardLogger(), WithEngines(&fakeProvider{}))

	_, err := e.Extract(context.Background(), path)
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestExtract_CancelledContextStopsOCR(t *testing.T) {
	prov := &fakeProvider{}
	raster := &fakeRasterizer{}
	e, root := newTestExtractor(t, fakeTextLayer{pages: 3}, fakePageCounter{n: 3}, raster, prov)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := e.Extract(ctx, pdfPath(t))
	require.NoError(t, err)

	assert.Empty(t, raster.rendered)
	assert.Zero(t, res.OCRPages)
	assert.Equal(t, prov.opened, prov.closed)
	assertEmptyDir(t, root)
}
