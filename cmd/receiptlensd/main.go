package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/avelis/receiptlens/internal/analytics"
	"github.com/avelis/receiptlens/internal/async"
	"github.com/avelis/receiptlens/internal/common"
	"github.com/avelis/receiptlens/internal/export"
	"github.com/avelis/receiptlens/internal/extraction"
	"github.com/avelis/receiptlens/internal/ingest"
	"github.com/avelis/receiptlens/internal/repository"
	"github.com/avelis/receiptlens/internal/server"
)

func main() {
	cfg := common.LoadConfig()

	fs := ff.NewFlagSet("receiptlensd")
	var (
		httpAddr      = fs.StringLong("http-addr", cfg.Server.HTTPAddr, "HTTP listen address")
		dbURL         = fs.StringLong("db-url", cfg.Database.DSN, "database DSN (postgres:// or a SQLite path)")
		memory        = fs.BoolLong("memory", "keep records in memory instead of a database")
		queueWorkers  = fs.IntLong("queue-workers", cfg.Queue.Workers, "batch extraction workers")
		queueSize     = fs.IntLong("queue-size", cfg.Queue.QueueSize, "batch queue capacity")
		defaultWindow = fs.IntLong("default-window", cfg.Analytics.DefaultWindow, "default moving-average window")
		watchDirs     = fs.StringLong("watch-dirs", strings.Join(cfg.Ingest.WatchDirs, ","), "comma-separated directories to watch for receipt text files")
		logLevel      = fs.StringLong("log-level", "info", "log level: debug, info, warn or error")
	)
	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPTLENS"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg.Server.HTTPAddr = *httpAddr
	cfg.Database.DSN = *dbURL
	cfg.Queue.Workers = *queueWorkers
	cfg.Queue.QueueSize = *queueSize
	cfg.Analytics.DefaultWindow = *defaultWindow
	cfg.Ingest.WatchDirs = splitDirs(*watchDirs)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(*logLevel),
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store repository.RecordStore
	if *memory {
		logger.Info("using in-memory record store")
		store = repository.NewMemoryStore()
	} else {
		sqlStore, err := repository.Open(ctx, cfg.Database, logger)
		if err != nil {
			logger.Error("failed to open database", "error", err, "db_url", cfg.Database.DSN)
			os.Exit(1)
		}
		if err := repository.HealthCheck(ctx, sqlStore, cfg.Database.DialTimeout, logger); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}
		store = sqlStore
	}
	defer store.Close()

	coordinator := extraction.NewCoordinator(cfg.Extraction, logger)
	engine := analytics.NewEngine(cfg.Analytics, logger)
	exporter := export.NewService(store, logger)

	queue := async.NewExtractQueue(coordinator, store, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.QueueSize),
		async.WithJobTimeout(cfg.Queue.JobTimeout),
	)

	if len(cfg.Ingest.WatchDirs) > 0 {
		ingestor := ingest.NewIngestor(coordinator, store, cfg.Extraction, logger)
		go func() {
			err := ingestor.Watch(ctx, ingest.WatchConfig{
				Roots:       cfg.Ingest.WatchDirs,
				InitialScan: true,
				Debounce:    cfg.Ingest.Debounce,
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("watcher stopped", "error", err)
			}
		}()
	}

	srv := server.New(store, coordinator, engine, exporter, queue, logger)
	httpServer := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: srv.Router(),
	}

	logger.Info("receiptlens listening", "addr", cfg.Server.HTTPAddr)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	queue.Shutdown(shutdownCtx)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitDirs(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
