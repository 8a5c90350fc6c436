package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// OnReload is invoked after a successful hot-reload with the config
// before and after the change. Consumers should only react to the
// subset of fields that are safe to change on a live engine (capture
// intervals and thresholds under Pipeline) — swapping store DSNs or
// listen addresses out from under a running process is not supported
// and callbacks must not attempt it.
type OnReload func(old, new *AppConfig)

// Watcher watches a config file's directory and reloads it on write,
// create, or rename — grounded on tokenman's internal/config.Watcher,
// adapted to zap logging and AppConfig.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	filePath  string
	logger    *zap.Logger
	callbacks []OnReload
	mu        sync.Mutex
	done      chan struct{}
}

// Watch starts watching filePath's containing directory for changes.
// Editors perform atomic saves (write tmp + rename), which changes the
// inode out from under a direct file watch; watching the directory
// catches the rename instead.
func Watch(filePath string, logger *zap.Logger) (*Watcher, error) {
	if filePath == "" {
		return nil, fmt.Errorf("config watcher: file path must not be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("config watcher: resolving path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: creating fsnotify watcher: %w", err)
	}

	dir := filepath.Dir(absPath)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("config watcher: watching directory %s: %w", dir, err)
	}

	w := &Watcher{
		fsWatcher: fsw,
		filePath:  absPath,
		logger:    logger,
		done:      make(chan struct{}),
	}

	go w.loop()

	return w, nil
}

// OnChange registers a callback invoked after each successful reload.
// Safe to call from multiple goroutines.
func (w *Watcher) OnChange(fn OnReload) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Close stops the watcher and releases its fsnotify handle.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsWatcher.Close()
}

func (w *Watcher) loop() {
	const debounce = 100 * time.Millisecond
	var timer *time.Timer

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.filePath {
				continue
			}

			isWrite := event.Op&fsnotify.Write != 0
			isCreate := event.Op&fsnotify.Create != 0
			isRename := event.Op&fsnotify.Rename != 0
			if !isWrite && !isCreate && !isRename {
				continue
			}

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, w.reload)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	old := Get()

	newCfg, err := Load(w.filePath)
	if err != nil {
		w.logger.Warn("config reload failed, keeping previous config",
			zap.String("path", w.filePath), zap.Error(err))
		return
	}
	w.logger.Info("config reloaded", zap.String("path", w.filePath))

	w.mu.Lock()
	cbs := make([]OnReload, len(w.callbacks))
	copy(cbs, w.callbacks)
	w.mu.Unlock()

	for _, cb := range cbs {
		w.safeInvoke(cb, old, newCfg)
	}
}

func (w *Watcher) safeInvoke(cb OnReload, old, new *AppConfig) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("config reload callback panicked", zap.Any("recover", r))
		}
	}()
	cb(old, new)
}
