package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig controls directory watching.
type WatchConfig struct {
	Roots       []string // directories to watch (recursive)
	AllowedExts map[string]struct{}
	InitialScan bool          // emit files already present under the roots
	Debounce    time.Duration // coalesce rapid create/write bursts
}

// StartWatcher emits the path of every matching file created or updated
// under the roots. Both channels close when ctx is done.
func StartWatcher(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		return nil, nil, errors.New("no watch roots provided")
	}
	exts := cfg.AllowedExts
	if exts == nil {
		exts = defaultExts
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("watch.create", "error", err)
		return nil, nil, err
	}

	pathCh := make(chan string, 256)
	errCh := make(chan error, 1)

	addRoot := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if cfg.InitialScan && allowed(path, exts) {
				select {
				case pathCh <- path:
				default:
				}
			}
			return nil
		})
	}
	for _, root := range cfg.Roots {
		if err := addRoot(root); err != nil {
			logger.Error("watch.add_root", "root", root, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}

	go func() {
		defer close(pathCh)
		defer close(errCh)
		defer w.Close()

		var mu sync.Mutex
		var timer *time.Timer
		pending := map[string]struct{}{}

		// flush also runs on the debounce timer goroutine.
		flush := func() {
			mu.Lock()
			defer mu.Unlock()
			for p := range pending {
				select {
				case pathCh <- p:
				default:
				}
				delete(pending, p)
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&fsnotify.Create != 0 {
					// A created directory needs watching; Add on a plain file fails and is ignored.
					_ = w.Add(ev.Name)
				}
				if allowed(ev.Name, exts) && ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
					mu.Lock()
					pending[ev.Name] = struct{}{}
					mu.Unlock()
					if cfg.Debounce > 0 {
						if timer != nil {
							timer.Stop()
						}
						timer = time.AfterFunc(cfg.Debounce, flush)
					} else {
						flush()
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watch.error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return pathCh, errCh, nil
}

// Watch runs the watcher and ingests every emitted path until ctx ends.
func (i *Ingestor) Watch(ctx context.Context, cfg WatchConfig) error {
	paths, errs, err := StartWatcher(ctx, cfg, i.logger)
	if err != nil {
		return err
	}
	i.logger.Info("watch.start", "roots", cfg.Roots)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case path, ok := <-paths:
			if !ok {
				return nil
			}
			if _, err := i.IngestPath(ctx, path); err != nil {
				i.logger.Error("watch.ingest", "path", path, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			i.logger.Error("watch.error", "error", err)
		}
	}
}
