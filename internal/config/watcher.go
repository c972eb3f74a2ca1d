// This file implements hot reloading of the category pattern file in
// development.
package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	apperrors "mnemonic-backend/internal/errors"
)

// CategoryWatcher watches the category pattern file and invokes callbacks
// with the freshly parsed pattern sets on change. Reloading is only wired
// in development; production keeps the patterns it started with.
type CategoryWatcher struct {
	path      string
	callbacks []func(map[string][]string)
	mu        sync.Mutex
	logger    *zap.Logger
	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
}

// NewCategoryWatcher starts watching the given pattern file.
func NewCategoryWatcher(path string, logger *zap.Logger) (*CategoryWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create file watcher")
	}
	if err := fsWatcher.Add(path); err != nil {
		fsWatcher.Close()
		return nil, apperrors.Wrap(err, "failed to watch category file")
	}

	w := &CategoryWatcher{
		path:    path,
		logger:  logger,
		watcher: fsWatcher,
		stopCh:  make(chan struct{}),
	}
	go w.watchLoop()

	logger.Info("category pattern hot reloading enabled", zap.String("path", path))
	return w, nil
}

// OnReload registers a callback invoked with the new pattern sets.
func (w *CategoryWatcher) OnReload(callback func(map[string][]string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Stop halts the watch loop and closes the underlying watcher.
func (w *CategoryWatcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
}

func (w *CategoryWatcher) watchLoop() {
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("category watcher error", zap.Error(err))
		}
	}
}

func (w *CategoryWatcher) reload() {
	categories, err := ReadCategoryFile(w.path)
	if err != nil {
		w.logger.Warn("failed to reload category file; keeping previous patterns",
			zap.String("path", w.path),
			zap.Error(err),
		)
		return
	}

	w.mu.Lock()
	callbacks := make([]func(map[string][]string), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	for _, callback := range callbacks {
		callback(categories)
	}
	w.logger.Info("category patterns reloaded",
		zap.String("path", w.path),
		zap.Int("categories", len(categories)),
	)
}
