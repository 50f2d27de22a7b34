package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avelis/receiptlens/internal/common"
	"github.com/avelis/receiptlens/internal/entity"
	"github.com/avelis/receiptlens/internal/repository"
)

// Allowed extensions for discovery (lowercase, without '.').
var defaultExts = map[string]struct{}{
	"txt": {},
	"text": {},
}

// Result is the per-file ingest outcome.
type Result struct {
	SourcePath   string
	RecordID     string
	Deduplicated bool
	HashHex      string
	IngestedAt   time.Time
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Extractor turns raw receipt text into a record.
type Extractor interface {
	Extract(rawText, manualLabel string) (*entity.Record, error)
}

// Ingestor reads receipt text files from the local filesystem, extracts
// them, and stores the results. Files whose content hash was already seen
// in this process are skipped, so a rescan or a watcher replay does not
// duplicate records.
type Ingestor struct {
	extractor Extractor
	store     repository.RecordStore
	maxBytes  int
	logger    *slog.Logger

	mu   sync.Mutex
	seen map[string]uuid.UUID
}

func NewIngestor(extractor Extractor, store repository.RecordStore, cfg common.ExtractionConfig, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		extractor: extractor,
		store:     store,
		maxBytes:  cfg.MaxTextBytes,
		logger:    logger,
		seen:      make(map[string]uuid.UUID),
	}
}

// IngestPath ingests a single text file.
func (i *Ingestor) IngestPath(ctx context.Context, path string) (Result, error) {
	var out Result

	abs, err := filepath.Abs(path)
	if err != nil {
		i.logger.Error("ingest.abs_path", "path", path, "error", err)
		return out, err
	}
	out.SourcePath = abs

	if !allowed(abs, defaultExts) {
		return out, errors.New("unsupported or missing extension")
	}

	raw, err := i.readCapped(abs)
	if err != nil {
		i.logger.Error("ingest.read", "path", abs, "error", err)
		return out, err
	}

	sum := sha256.Sum256(raw)
	out.HashHex = hex.EncodeToString(sum[:])

	i.mu.Lock()
	prior, dup := i.seen[out.HashHex]
	i.mu.Unlock()
	if dup {
		out.RecordID = prior.String()
		out.Deduplicated = true
		i.logger.Info("ingest.dedup", "path", abs, "record_id", prior)
		return out, nil
	}

	rec, err := i.extractor.Extract(string(raw), "")
	if err != nil {
		return out, err
	}
	if err := i.store.Create(ctx, rec); err != nil {
		return out, err
	}

	i.mu.Lock()
	i.seen[out.HashHex] = rec.ID
	i.mu.Unlock()

	out.RecordID = rec.ID.String()
	out.IngestedAt = rec.CreatedAt
	i.logger.Info("ingest.ok", "path", abs, "record_id", rec.ID)
	return out, nil
}

// IngestDirectory walks root, skips hidden entries if requested, and
// ingests every matching file. Per-file failures are recorded and the
// walk continues.
func (i *Ingestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]Result, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []Result
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			results = append(results, Result{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && isHidden(path) && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !allowed(path, defaultExts) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path)
		if err != nil {
			r.Err = err.Error()
			if r.SourcePath == "" {
				r.SourcePath = path
			}
			results = append(results, r)
			stats.Failed++
			return nil
		}
		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})
	if err != nil {
		return results, stats, err
	}
	return results, stats, nil
}

func (i *Ingestor) readCapped(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	limit := int64(i.maxBytes)
	if limit <= 0 {
		limit = 64 * 1024
	}
	raw, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > limit {
		return nil, errors.New("file exceeds the configured text size limit")
	}
	return raw, nil
}

func allowed(path string, exts map[string]struct{}) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	_, ok := exts[ext]
	return ok
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
