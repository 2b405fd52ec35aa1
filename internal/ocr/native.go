package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// TextLayer reads the embedded text of a PDF.
type TextLayer interface {
	ReadText(ctx context.Context, path string) (text string, pages int, err error)
}

// PageCounter reports the number of pages in a PDF.
type PageCounter interface {
	PageCount(ctx context.Context, path string) (int, error)
}

type pdfTextLayer struct{}

func (pdfTextLayer) ReadText(_ context.Context, path string) (text string, pages int, err error) {
	// the parser panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			text, pages, err = "", 0, fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	pages = r.NumPage()
	b, err := r.GetPlainText()
	if err != nil {
		return "", pages, err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, b); err != nil {
		return "", pages, err
	}
	return buf.String(), pages, nil
}

type pdfcpuPageCounter struct{}

func (pdfcpuPageCounter) PageCount(_ context.Context, path string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("pdfcpu panic: %v", r)
		}
	}()
	return api.PageCountFile(path)
}
