package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/radiology-reports/internal/app"
	"github.com/joseph-ayodele/radiology-reports/internal/common"
	"github.com/joseph-ayodele/radiology-reports/internal/ingest"
)

type options struct {
	dir        string
	out        string
	dbPath     string
	workers    int
	timeout    time.Duration
	skipHidden bool
	verbose    bool
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:   "report-batch",
		Short: "Extract and analyze every radiology report PDF in a directory",
		Long: "Walks --dir for PDFs, runs text extraction and analysis on each with bounded\n" +
			"concurrency, records every run in a SQLite ledger and writes an XLSX summary.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.dir, "dir", "", "directory to process reports from (required)")
	f.StringVar(&o.out, "out", "", "output XLSX path (default <dir>/../analyses.xlsx)")
	f.StringVar(&o.dbPath, "db", "", "SQLite ledger file (default in-memory)")
	f.IntVar(&o.workers, "workers", 4, "files processed concurrently")
	f.DurationVar(&o.timeout, "timeout", 10*time.Minute, "per-file processing timeout")
	f.BoolVar(&o.skipHidden, "skip-hidden", true, "skip hidden files and directories")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "debug logging")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

func run(ctx context.Context, o options) error {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if o.workers <= 0 {
		return fmt.Errorf("--workers must be positive")
	}
	if o.out == "" {
		o.out = filepath.Join(filepath.Dir(filepath.Clean(o.dir)), "analyses.xlsx")
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		return err
	}
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = ":memory:"
	if o.dbPath != "" {
		cfg.Database.DSN = "file:" + o.dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	a, err := app.New(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	paths, err := ingest.ScanDirectory(o.dir, o.skipHidden)
	if err != nil {
		return err
	}
	logger.Info("batch.scan.ok", "dir", o.dir, "files", len(paths))

	var processed, failed atomic.Int64
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for _, p := range paths {
		p := p
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, o.timeout)
			defer cancel()
			if _, err := a.Processor.ProcessFile(fctx, p); err != nil {
				// one bad report does not stop the batch; the ledger has the reason
				failed.Add(1)
				return nil
			}
			processed.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	xlsx, err := a.Exporter.AnalysesXLSX(ctx, len(paths))
	if err != nil {
		return err
	}
	if err := os.WriteFile(o.out, xlsx, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", o.out, err)
	}

	logger.Info("batch.done", "files", len(paths), "processed", processed.Load(), "failed", failed.Load(),
		"output", o.out, "elapsed_ms", time.Since(start).Milliseconds())
	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files found: %d\n", len(paths))
	fmt.Printf("- Files analyzed: %d\n", processed.Load())
	fmt.Printf("- Failures: %d\n", failed.Load())
	fmt.Printf("- Output: %s\n", o.out)
	return nil
}
