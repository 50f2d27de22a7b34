package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/avelis/receiptlens/internal/common"
	"github.com/avelis/receiptlens/internal/extraction"
	"github.com/avelis/receiptlens/internal/utils"
)

// runextract runs the extraction pipeline over one receipt text and
// prints the resulting record as JSON. Logs go to stderr so the output
// stays pipeable.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		logger.Error("usage", "cmd", "runextract <file|-> [label]")
		os.Exit(2)
	}

	var raw []byte
	var err error
	if os.Args[1] == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(os.Args[1])
	}
	if err != nil {
		logger.Error("failed to read receipt text", "arg", os.Args[1], "error", err)
		os.Exit(1)
	}

	label := ""
	if len(os.Args) >= 3 {
		label = os.Args[2]
	}

	cfg := common.LoadConfig()
	coordinator := extraction.NewCoordinator(cfg.Extraction, logger)

	start := time.Now()
	rec, err := coordinator.Extract(string(raw), label)
	if err != nil {
		logger.Error("extraction failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}
	logger.Info("extraction OK",
		"record_id", rec.ID,
		"category", string(rec.Category),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	out, err := json.MarshalIndent(utils.ToRecordDTO(rec), "", "  ")
	if err != nil {
		logger.Error("failed to encode record", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
