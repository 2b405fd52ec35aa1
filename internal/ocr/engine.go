package ocr

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// ErrEngineClosed is returned by Recognize after Close.
var ErrEngineClosed = errors.New("ocr: engine closed")

// Engine recognizes text in page images. One Engine serves one extraction and is released
// with Close on every path out of it.
type Engine interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
	Close() error
}

// EngineProvider acquires an Engine for a single extraction.
type EngineProvider interface {
	Open(ctx context.Context) (Engine, error)
}

// TesseractProvider opens sessions that shell out to the tesseract CLI.
type TesseractProvider struct {
	Runner      Runner
	Bin         string
	Lang        string
	TessdataDir string
	PSM         int
	OEM         int
}

func (p *TesseractProvider) Open(ctx context.Context) (Engine, error) {
	if p.Runner == nil {
		return nil, errors.New("ocr: tesseract provider has no runner")
	}
	// fail fast when the binary is missing instead of once per page
	if _, errb, err := p.Runner.Run(ctx, p.Bin, "--version"); err != nil {
		return nil, fmt.Errorf("tesseract unavailable: %w (%s)", err, strings.TrimSpace(string(errb)))
	}
	args := []string{"-l", p.Lang}
	if p.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(p.PSM))
	}
	if p.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(p.OEM))
	}
	if p.TessdataDir != "" {
		args = append(args, "--tessdata-dir", p.TessdataDir)
	}
	return &tesseractSession{runner: p.Runner, bin: p.Bin, args: args}, nil
}

type tesseractSession struct {
	runner Runner
	bin    string
	args   []string

	mu     sync.Mutex
	closed bool
}

func (s *tesseractSession) Recognize(ctx context.Context, imagePath string) (string, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return "", ErrEngineClosed
	}

	// tesseract <img> stdout -l <lang> [...]
	args := append([]string{imagePath, "stdout"}, s.args...)
	out, errb, err := s.runner.Run(ctx, s.bin, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w (%s)", err, truncate(strings.TrimSpace(string(errb)), 256))
	}
	return string(out), nil
}

func (s *tesseractSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
