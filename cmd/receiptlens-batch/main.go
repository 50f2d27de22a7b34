package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/avelis/receiptlens/internal/common"
	"github.com/avelis/receiptlens/internal/export"
	"github.com/avelis/receiptlens/internal/extraction"
	"github.com/avelis/receiptlens/internal/ingest"
	"github.com/avelis/receiptlens/internal/repository"
	"github.com/avelis/receiptlens/internal/utils"
)

// receiptlens-batch ingests a directory of receipt text files in one
// shot and writes the resulting records to an XLSX or CSV file.
func main() {
	cfg := common.LoadConfig()

	fs := ff.NewFlagSet("receiptlens-batch")
	var (
		dir     = fs.StringLong("dir", "", "directory of receipt text files to ingest (required)")
		out     = fs.StringLong("out", "", "output file path, .xlsx or .csv (defaults next to the directory)")
		dbURL   = fs.StringLong("db-url", cfg.Database.DSN, "database DSN (postgres:// or a SQLite path)")
		memory  = fs.BoolLong("memory", "keep records in memory instead of a database")
		fromStr = fs.StringLong("from", "", "only export transactions on or after this date (YYYY-MM-DD)")
		toStr   = fs.StringLong("to", "", "only export transactions on or before this date (YYYY-MM-DD)")
	)
	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPTLENS"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *dir == "" {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintln(os.Stderr, "error: --dir is required")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(*dir), "records.xlsx")
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(*out)), ".")

	var from, to *time.Time
	if *fromStr != "" {
		parsed, err := utils.ParseYMD(*fromStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: invalid --from date, use YYYY-MM-DD: %v\n", err)
			os.Exit(1)
		}
		from = &parsed
	}
	if *toStr != "" {
		parsed, err := utils.ParseYMD(*toStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: invalid --to date, use YYYY-MM-DD: %v\n", err)
			os.Exit(1)
		}
		to = &parsed
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	var store repository.RecordStore
	if *memory {
		store = repository.NewMemoryStore()
	} else {
		cfg.Database.DSN = *dbURL
		sqlStore, err := repository.Open(ctx, cfg.Database, logger)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		store = sqlStore
	}
	defer store.Close()

	coordinator := extraction.NewCoordinator(cfg.Extraction, logger)
	ingestor := ingest.NewIngestor(coordinator, store, cfg.Extraction, logger)

	logger.Info("starting ingestion", "dir", *dir)
	results, stats, err := ingestor.IngestDirectory(ctx, *dir, cfg.Ingest.SkipHidden)
	if err != nil {
		logger.Error("failed to ingest directory", "error", err)
		os.Exit(1)
	}
	for _, r := range results {
		if r.Err != "" {
			logger.Error("failed to ingest file", "path", r.SourcePath, "error", r.Err)
		}
	}
	logger.Info("ingestion complete",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed)

	exporter := export.NewService(store, logger)
	data, _, err := exporter.Export(ctx, format, repository.ListFilter{FromDate: from, ToDate: to})
	if err != nil {
		logger.Error("failed to export records", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, data, 0644); err != nil {
		logger.Error("failed to write output file", "path", *out, "error", err)
		os.Exit(1)
	}

	logger.Info("batch complete",
		"files_ingested", stats.Succeeded,
		"failures", stats.Failed,
		"output_file", *out)

	fmt.Printf("Batch complete!\n")
	fmt.Printf("- Files ingested: %d\n", stats.Succeeded)
	fmt.Printf("- Deduplicated: %d\n", stats.Deduplicated)
	fmt.Printf("- Failures: %d\n", stats.Failed)
	fmt.Printf("- Output: %s\n", *out)
}
